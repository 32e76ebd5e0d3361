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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ttbt-io/uiverify/harness/selector"
)

const probeTimeout = 2 * time.Second

// keyNames maps the key names used in scenarios to CDP key codes.
var keyNames = map[string]string{
	"enter":      kb.Enter,
	"return":     kb.Enter,
	"tab":        kb.Tab,
	"escape":     kb.Escape,
	"esc":        kb.Escape,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"arrowup":    kb.ArrowUp,
	"arrowdown":  kb.ArrowDown,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"home":       kb.Home,
	"end":        kb.End,
	"pageup":     kb.PageUp,
	"pagedown":   kb.PageDown,
}

// KeyCode returns the CDP key sequence for a named key. Unknown names are
// returned unchanged and typed as text.
func KeyCode(name string) string {
	if code, ok := keyNames[strings.ToLower(name)]; ok {
		return code
	}
	return name
}

// probeJS evaluates to true when an element matching the selector is
// visible, or contains the text when one is given.
const probeJS = `(function(kind, expr, text) {
	let nodes = [];
	try {
		if (kind === 'xpath') {
			const r = document.evaluate(expr, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			for (let i = 0; i < r.snapshotLength; i++) nodes.push(r.snapshotItem(i));
		} else {
			nodes = Array.from(document.querySelectorAll(expr));
		}
	} catch (e) {
		return false;
	}
	for (const el of nodes) {
		if (!(el instanceof Element)) continue;
		if (text !== null) {
			if ([el.innerText, el.textContent, el.value].some(v => typeof v === 'string' && v.includes(text))) return true;
			continue;
		}
		const style = window.getComputedStyle(el);
		if (el.offsetHeight !== 0 && style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0') return true;
	}
	return false;
})(%s, %s, %s)`

const disableAnimationsJS = `(() => {
	const style = document.createElement('style');
	style.innerHTML = '*{-webkit-transition-duration:0s!important;transition-duration:0s!important;-webkit-animation-duration:0s!important;animation-duration:0s!important;}';
	document.head.appendChild(style);
})()`

// ChromeSession is a Session backed by chromedp.
type ChromeSession struct {
	ctx         context.Context // tab context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        LaunchOptions
	closeOnce   sync.Once
}

var _ Session = (*ChromeSession)(nil)

// LaunchChrome starts Chrome, or attaches to opts.RemoteURL, and opens one
// tab. The browser lives until Close, independently of ctx; ctx only
// bounds the launch.
func LaunchChrome(ctx context.Context, opts LaunchOptions) (Session, error) {
	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1280, 800
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", opts.Headless),
			chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		)
		if path := strings.TrimSpace(opts.ExecPath); path != "" {
			execOpts = append(execOpts, chromedp.ExecPath(path))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
	}

	logf := opts.Logger.Logf
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logf),
		chromedp.WithErrorf(logf),
	)
	s := &ChromeSession{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
	}
	if opts.ConsoleLog {
		chromedp.ListenTarget(tabCtx, func(ev any) {
			switch ev := ev.(type) {
			case *runtime.EventConsoleAPICalled:
				args := make([]string, len(ev.Args))
				for i, arg := range ev.Args {
					args[i] = string(arg.Value)
				}
				logf("JS CONSOLE (%s): %s", ev.Type, strings.Join(args, " "))
			}
		})
	}

	// The first Run allocates the browser. It must run on the tab context
	// itself, or the browser would die with a shorter-lived context.
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(tabCtx)
	}()
	select {
	case err := <-errc:
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
		}
	case <-ctx.Done():
		s.Close()
		return nil, fmt.Errorf("%w: %w", ErrLaunch, ctx.Err())
	}
	if opts.RemoteURL != "" {
		logf("Attached to Chrome at %s", opts.RemoteURL)
	} else {
		logf("Started Chrome (headless=%v)", opts.Headless)
	}
	return s, nil
}

// bind returns a context that carries the tab and is cancelled with ctx.
func (s *ChromeSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		return runCtx, func() {
			stop()
			cancelDeadline()
			cancel()
		}
	}
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	if s.opts.DisableAnimations {
		if err := chromedp.Run(runCtx, chromedp.Evaluate(disableAnimationsJS, nil)); err != nil {
			s.opts.Logger.Logf("disable animations on %s: %v", url, err)
		}
	}
	return nil
}

// locate waits, within the lookup window, for sel to match a visible node.
func (s *ChromeSession) locate(ctx context.Context, sel string) (string, []chromedp.QueryOption, error) {
	parsed, err := selector.Parse(sel)
	if err != nil {
		return "", nil, err
	}
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if parsed.Kind == selector.XPath {
		opts = []chromedp.QueryOption{chromedp.BySearch}
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()
	if err := chromedp.Run(lookupCtx, chromedp.WaitVisible(parsed.Expr, opts...)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, ctxErr
		}
		return "", nil, fmt.Errorf("%w: %s within %s", ErrElementNotFound, sel, s.opts.LookupTimeout)
	}
	return parsed.Expr, opts, nil
}

func (s *ChromeSession) Fill(ctx context.Context, sel, text string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	expr, opts, err := s.locate(runCtx, sel)
	if err != nil {
		return err
	}
	return chromedp.Run(runCtx,
		chromedp.SetValue(expr, "", opts...),
		chromedp.SendKeys(expr, text, opts...),
	)
}

func (s *ChromeSession) Click(ctx context.Context, sel string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	expr, opts, err := s.locate(runCtx, sel)
	if err != nil {
		return err
	}
	return chromedp.Run(runCtx, chromedp.Click(expr, opts...))
}

func (s *ChromeSession) Press(ctx context.Context, sel, key string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	expr, opts, err := s.locate(runCtx, sel)
	if err != nil {
		return err
	}
	return chromedp.Run(runCtx, chromedp.SendKeys(expr, KeyCode(key), opts...))
}

func (s *ChromeSession) QueryVisible(ctx context.Context, sel string) bool {
	return s.probe(ctx, sel, nil)
}

func (s *ChromeSession) QueryText(ctx context.Context, sel, text string) bool {
	return s.probe(ctx, sel, &text)
}

func (s *ChromeSession) probe(ctx context.Context, sel string, text *string) bool {
	parsed, err := selector.Parse(sel)
	if err != nil {
		return false
	}
	kind, _ := json.Marshal(string(parsed.Kind))
	expr, _ := json.Marshal(parsed.Expr)
	arg, _ := json.Marshal(text)

	runCtx, cancel := s.bind(ctx)
	defer cancel()
	probeCtx, cancelProbe := context.WithTimeout(runCtx, probeTimeout)
	defer cancelProbe()

	var ok bool
	if err := chromedp.Run(probeCtx, chromedp.Evaluate(fmt.Sprintf(probeJS, kind, expr, arg), &ok)); err != nil {
		return false
	}
	return ok
}

// Screenshot captures the full page and saves it to path.
func (s *ChromeSession) Screenshot(ctx context.Context, path string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("%w: %w", ErrCapture, err)
	}
	if len(buf) == 0 {
		return fmt.Errorf("%w: empty image", ErrCapture)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory for screenshot: %w", ErrCapture, err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("%w: failed to write screenshot to file: %w", ErrCapture, err)
	}
	s.opts.Logger.Logf("Saved screenshot to %s", path)
	return nil
}

func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *ChromeSession) SetCookie(ctx context.Context, c Cookie) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	path := c.Path
	if path == "" {
		path = "/"
	}
	return chromedp.Run(runCtx,
		network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(path).
			WithSecure(c.Secure).
			WithHTTPOnly(c.HTTPOnly),
	)
}

// Close closes the tab and releases the browser. Only the first call does
// any work.
func (s *ChromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = cerr
		}
		s.cancel()
		s.allocCancel()
	})
	return err
}
