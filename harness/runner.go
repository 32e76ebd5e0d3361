// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDiagnosticTimeout bounds the capture taken after a failure.
const DefaultDiagnosticTimeout = 10 * time.Second

// CookieSource provides the cookie installed before the first step.
type CookieSource interface {
	Cookie(baseURL string) (Cookie, error)
}

// Options configures a Runner.
type Options struct {
	// Launcher starts the session for each run. Defaults to LaunchChrome.
	Launcher Launcher
	Launch   LaunchOptions
	// OutputDir receives screenshots with relative paths and diagnostic
	// captures. Defaults to the current directory.
	OutputDir string
	Waiter    Waiter
	// Credentials, if set, logs the session in before step 0.
	Credentials       CookieSource
	Observer          Observer
	Logger            Logger
	DiagnosticTimeout time.Duration
}

// Runner executes scenarios. A Runner holds no per-run state and may run
// several scenarios concurrently; each run gets its own session.
type Runner struct {
	opts Options
}

// NewRunner returns a Runner with defaults applied to opts.
func NewRunner(opts Options) *Runner {
	if opts.Launcher == nil {
		opts.Launcher = LaunchChrome
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}
	if opts.Launch.Logger == nil {
		opts.Launch.Logger = opts.Logger
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.DiagnosticTimeout <= 0 {
		opts.DiagnosticTimeout = DefaultDiagnosticTimeout
	}
	return &Runner{opts: opts}
}

// Run executes sc against a new session and always returns a result. Steps
// run strictly in order and the first failure ends the run. The session is
// closed on every path out of Run, including cancellation of ctx.
func (r *Runner) Run(ctx context.Context, sc Scenario) *ScenarioResult {
	res := &ScenarioResult{
		ID:          uuid.NewString(),
		Scenario:    sc.Name,
		BaseURL:     sc.BaseURL,
		FailedIndex: -1,
		Steps:       make([]StepResult, 0, len(sc.Steps)),
		StartedAt:   time.Now(),
	}
	r.emit(Event{Type: EventScenarioStart, RunID: res.ID, Scenario: sc.Name, Index: -1})
	defer func() {
		res.Duration = time.Since(res.StartedAt)
		r.opts.Logger.Logf("Scenario %s finished in %s: %s", sc.Name, res.Duration.Round(time.Millisecond), res)
		r.emit(Event{Type: EventScenarioEnd, RunID: res.ID, Scenario: sc.Name, Index: res.FailedIndex, Status: res.Status, Reason: res.Reason})
	}()

	if err := sc.Validate(); err != nil {
		res.setupFailed(err)
		return res
	}

	sess, err := r.opts.Launcher(ctx, r.opts.Launch)
	if err != nil {
		res.setupFailed(err)
		return res
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.opts.Logger.Logf("Scenario %s: closing session: %v", sc.Name, err)
		}
	}()

	if r.opts.Credentials != nil {
		if err := r.login(ctx, sess, sc.BaseURL); err != nil {
			res.setupFailed(err)
			return res
		}
	}

	for i, step := range sc.Steps {
		r.emit(Event{Type: EventStepStart, RunID: res.ID, Scenario: sc.Name, Index: i, Step: step.String()})
		sr, shot, err := r.runStep(ctx, sess, sc, i, step)
		res.Steps = append(res.Steps, sr)
		r.emit(Event{Type: EventStepEnd, RunID: res.ID, Scenario: sc.Name, Index: i, Step: step.String(), Outcome: sr.Outcome, Reason: sr.Reason})
		if err != nil {
			res.Status = FailedAt
			res.FailedIndex = i
			res.Reason = (&StepError{Index: i, Kind: step.Kind, Err: err}).Error()
			r.opts.Logger.Logf("Scenario %s: %s", sc.Name, res.Reason)
			r.diagnose(ctx, sess, sc, i, step, res)
			return res
		}
		if shot != "" {
			res.Screenshots = append(res.Screenshots, shot)
		}
	}
	res.Status = AllSucceeded
	return res
}

func (res *ScenarioResult) setupFailed(err error) {
	res.Status = SetupFailed
	res.Reason = err.Error()
}

func (r *Runner) login(ctx context.Context, sess Session, baseURL string) error {
	c, err := r.opts.Credentials.Cookie(baseURL)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}
	if err := sess.SetCookie(ctx, c); err != nil {
		return fmt.Errorf("credentials: set cookie %s: %w", c.Name, err)
	}
	return nil
}

// runStep performs one action and its attached wait. The returned error
// is nil exactly when the outcome is Success.
func (r *Runner) runStep(ctx context.Context, sess Session, sc Scenario, i int, step Step) (sr StepResult, shot string, err error) {
	start := time.Now()
	sr = StepResult{Index: i, Step: step, Outcome: Success}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		sr.Duration = time.Since(start)
		if err != nil {
			sr.Outcome = ActionFailed
			if errors.Is(err, ErrTimedOut) {
				sr.Outcome = TimedOut
			}
			sr.Reason = err.Error()
			shot = ""
		}
	}()

	r.opts.Logger.Logf("Scenario %s: step %d: %s", sc.Name, i, step)
	shot, err = r.act(ctx, sess, sc, step)
	if err != nil {
		return sr, shot, err
	}
	if !step.Wait.IsZero() {
		err = r.opts.Waiter.Wait(ctx, sess, step.Wait, step.Timeout)
	}
	return sr, shot, err
}

func (r *Runner) act(ctx context.Context, sess Session, sc Scenario, step Step) (string, error) {
	switch step.Kind {
	case KindNavigate:
		u, err := ResolveURL(sc.BaseURL, step.Path)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNavigation, err)
		}
		return "", sess.Navigate(ctx, u)
	case KindFill:
		return "", sess.Fill(ctx, step.Selector, step.Text)
	case KindClick:
		return "", sess.Click(ctx, step.Selector)
	case KindPress:
		return "", sess.Press(ctx, step.Selector, step.Key)
	case KindWait:
		return "", nil
	case KindScreenshot:
		path := r.outputPath(step.Path)
		if err := sess.Screenshot(ctx, path); err != nil {
			if !errors.Is(err, ErrCapture) {
				err = fmt.Errorf("%w: %w", ErrCapture, err)
			}
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("unknown step kind %q", step.Kind)
}

func (r *Runner) outputPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.opts.OutputDir, p)
}

// diagnose captures the page after a failure. Nothing it does can change
// the result's status; errors are only logged.
func (r *Runner) diagnose(ctx context.Context, sess Session, sc Scenario, i int, step Step, res *ScenarioResult) {
	defer func() {
		if p := recover(); p != nil {
			r.opts.Logger.Logf("Scenario %s: diagnostic capture panicked: %v", sc.Name, p)
		}
	}()
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.DiagnosticTimeout)
	defer cancel()

	name := fmt.Sprintf("debug-%s-%d-%s", fileSafe(sc.Name), i, step.Kind)
	shot := filepath.Join(r.opts.OutputDir, name+".png")
	if err := sess.Screenshot(dctx, shot); err != nil {
		r.opts.Logger.Logf("DEBUG: Failed to capture screenshot for %s: %v", name, err)
	} else {
		res.Diagnostic = shot
	}

	html, err := sess.HTML(dctx)
	if err != nil {
		r.opts.Logger.Logf("DEBUG: Failed to capture HTML for %s: %v", name, err)
		return
	}
	htmlPath := filepath.Join(r.opts.OutputDir, name+".html")
	if err := os.WriteFile(htmlPath, []byte(html), 0644); err != nil {
		r.opts.Logger.Logf("DEBUG: Failed to write %s: %v", htmlPath, err)
		return
	}
	r.opts.Logger.Logf("DEBUG: Saved HTML dump to %s", htmlPath)
}

func (r *Runner) emit(ev Event) {
	if r.opts.Observer == nil {
		return
	}
	ev.Time = time.Now()
	r.opts.Observer.Observe(ev)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}
