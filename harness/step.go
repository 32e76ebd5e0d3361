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
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ttbt-io/uiverify/harness/selector"
)

// StepKind names the action a step performs.
type StepKind string

const (
	KindNavigate   StepKind = "navigate"
	KindFill       StepKind = "fill"
	KindPress      StepKind = "press"
	KindClick      StepKind = "click"
	KindWait       StepKind = "wait"
	KindScreenshot StepKind = "screenshot"
)

// ConditionKind names the predicate a Condition evaluates.
type ConditionKind string

const (
	CondNone     ConditionKind = ""
	CondVisible  ConditionKind = "visible"
	CondContains ConditionKind = "contains"
	CondDelay    ConditionKind = "delay"
)

// Condition is a predicate over the current page state. The zero value is
// "no condition".
type Condition struct {
	Kind     ConditionKind `json:"kind,omitempty"`
	Selector string        `json:"selector,omitempty"`
	Text     string        `json:"text,omitempty"`
	Delay    time.Duration `json:"delay,omitempty"`
}

// Visible is satisfied once an element matching sel is rendered and visible.
func Visible(sel string) Condition {
	return Condition{Kind: CondVisible, Selector: sel}
}

// ContainsText is satisfied once an element matching sel contains text.
func ContainsText(sel, text string) Condition {
	return Condition{Kind: CondContains, Selector: sel, Text: text}
}

// FixedDelay always succeeds after d, whatever the page does. It is timing
// dependent and flaky; use it only when the page exposes no usable signal.
func FixedDelay(d time.Duration) Condition {
	return Condition{Kind: CondDelay, Delay: d}
}

// IsZero reports whether c is the empty condition.
func (c Condition) IsZero() bool {
	return c.Kind == CondNone
}

func (c Condition) String() string {
	switch c.Kind {
	case CondNone:
		return "none"
	case CondVisible:
		return fmt.Sprintf("visible(%s)", c.Selector)
	case CondContains:
		return fmt.Sprintf("contains(%s, %q)", c.Selector, c.Text)
	case CondDelay:
		return fmt.Sprintf("delay(%s)", c.Delay)
	}
	return string(c.Kind)
}

// Validate checks that c is well formed.
func (c Condition) Validate() error {
	switch c.Kind {
	case CondNone:
		return nil
	case CondVisible, CondContains:
		if _, err := selector.Parse(c.Selector); err != nil {
			return fmt.Errorf("%s: %w", c.Kind, err)
		}
		if c.Kind == CondContains && c.Text == "" {
			return fmt.Errorf("contains: text is required")
		}
		return nil
	case CondDelay:
		if c.Delay < 0 {
			return fmt.Errorf("delay: negative duration %s", c.Delay)
		}
		return nil
	}
	return fmt.Errorf("unknown condition kind %q", c.Kind)
}

// Step is one declarative action with an optional post-condition. Steps
// are plain values and compare with ==.
type Step struct {
	Kind     StepKind      `json:"kind"`
	Path     string        `json:"path,omitempty"`
	Selector string        `json:"selector,omitempty"`
	Text     string        `json:"text,omitempty"`
	Key      string        `json:"key,omitempty"`
	Wait     Condition     `json:"wait,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Navigate loads path relative to the scenario's base URL, as joined by
// ResolveURL: a path starting with "/" replaces the base path, any other
// relative path is appended to it, and absolute URLs are used as is.
func Navigate(path string) Step {
	return Step{Kind: KindNavigate, Path: path}
}

// Fill replaces the value of the element matching sel with text.
func Fill(sel, text string) Step {
	return Step{Kind: KindFill, Selector: sel, Text: text}
}

// Press sends key to the element matching sel.
func Press(sel, key string) Step {
	return Step{Kind: KindPress, Selector: sel, Key: key}
}

// Click clicks the first element matching sel.
func Click(sel string) Step {
	return Step{Kind: KindClick, Selector: sel}
}

// WaitFor waits up to timeout for cond.
func WaitFor(cond Condition, timeout time.Duration) Step {
	return Step{Kind: KindWait, Wait: cond, Timeout: timeout}
}

// Screenshot captures the page to path. Relative paths land in the
// runner's output directory.
func Screenshot(path string) Step {
	return Step{Kind: KindScreenshot, Path: path}
}

// Then returns a copy of s that waits up to timeout for cond after its
// action completes.
func (s Step) Then(cond Condition, timeout time.Duration) Step {
	s.Wait = cond
	s.Timeout = timeout
	return s
}

func (s Step) String() string {
	var b strings.Builder
	b.WriteString(string(s.Kind))
	switch s.Kind {
	case KindNavigate, KindScreenshot:
		b.WriteString(" " + s.Path)
	case KindFill:
		fmt.Fprintf(&b, " %s %q", s.Selector, s.Text)
	case KindPress:
		fmt.Fprintf(&b, " %s %s", s.Selector, s.Key)
	case KindClick:
		b.WriteString(" " + s.Selector)
	case KindWait:
		fmt.Fprintf(&b, " %s", s.Wait)
	}
	if s.Kind != KindWait && !s.Wait.IsZero() {
		fmt.Fprintf(&b, " then %s", s.Wait)
	}
	if !s.Wait.IsZero() && s.Wait.Kind != CondDelay {
		fmt.Fprintf(&b, " within %s", s.Timeout)
	}
	return b.String()
}

// Validate checks that s carries everything its kind needs.
func (s Step) Validate() error {
	switch s.Kind {
	case KindNavigate, KindScreenshot:
		if s.Path == "" {
			return fmt.Errorf("%s: path is required", s.Kind)
		}
	case KindFill, KindPress, KindClick:
		if _, err := selector.Parse(s.Selector); err != nil {
			return fmt.Errorf("%s: %w", s.Kind, err)
		}
		if s.Kind == KindPress && s.Key == "" {
			return fmt.Errorf("press: key is required")
		}
	case KindWait:
		if s.Wait.IsZero() {
			return fmt.Errorf("wait: condition is required")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	if err := s.Wait.Validate(); err != nil {
		return err
	}
	return nil
}

// Scenario is a named, ordered list of steps against one base URL.
type Scenario struct {
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
	Steps   []Step `json:"steps"`
}

// Validate checks the scenario and every step. Errors name the step index.
func (sc Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	u, err := url.Parse(sc.BaseURL)
	if err != nil {
		return fmt.Errorf("scenario %s: invalid base URL: %w", sc.Name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scenario %s: base URL %q must be absolute", sc.Name, sc.BaseURL)
	}
	for i, s := range sc.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("scenario %s: step %d: %w", sc.Name, i, err)
		}
	}
	return nil
}

// ResolveURL joins a navigate path to base. Absolute URLs are returned as
// is, paths starting with "/" replace the base path, and relative paths
// are appended to it.
func ResolveURL(base, path string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	return b.ResolveReference(ref).String(), nil
}
