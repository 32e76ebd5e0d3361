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
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// fakeSession is a scripted Session. Elements listed in visible are
// rendered; texts holds their text; missing selectors never resolve.
type fakeSession struct {
	mu      sync.Mutex
	calls   []string
	visible map[string]bool
	texts   map[string]string
	missing map[string]bool

	navErr        error
	screenshotErr error
	cookieErr     error
	panicOn       string
	// probeDelay makes every probe slow, like a page busy with scripts.
	probeDelay time.Duration

	// after runs after every successful action, with the lock held.
	after func(f *fakeSession, call string)

	probes  int
	closes  int
	shots   []string
	cookies []Cookie
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		visible: make(map[string]bool),
		texts:   make(map[string]string),
		missing: make(map[string]bool),
	}
}

func (f *fakeSession) launcher() Launcher {
	return func(ctx context.Context, opts LaunchOptions) (Session, error) {
		return f, nil
	}
}

func (f *fakeSession) record(call string) {
	f.calls = append(f.calls, call)
	if f.panicOn != "" && strings.HasPrefix(call, f.panicOn) {
		panic("boom: " + call)
	}
}

func (f *fakeSession) done(call string) {
	if f.after != nil {
		f.after(f, call)
	}
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := "navigate " + url
	f.record(call)
	if f.navErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, f.navErr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.done(call)
	return nil
}

func (f *fakeSession) act(ctx context.Context, call, sel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.missing[sel] {
		return fmt.Errorf("%w: %s", ErrElementNotFound, sel)
	}
	f.done(call)
	return nil
}

func (f *fakeSession) Fill(ctx context.Context, sel, text string) error {
	return f.act(ctx, fmt.Sprintf("fill %s %s", sel, text), sel)
}

func (f *fakeSession) Click(ctx context.Context, sel string) error {
	return f.act(ctx, "click "+sel, sel)
}

func (f *fakeSession) Press(ctx context.Context, sel, key string) error {
	return f.act(ctx, fmt.Sprintf("press %s %s", sel, key), sel)
}

func (f *fakeSession) QueryVisible(ctx context.Context, sel string) bool {
	time.Sleep(f.probeDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.visible[sel]
}

func (f *fakeSession) QueryText(ctx context.Context, sel, text string) bool {
	time.Sleep(f.probeDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return strings.Contains(f.texts[sel], text)
}

func (f *fakeSession) Screenshot(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("screenshot " + path)
	f.shots = append(f.shots, path)
	if f.screenshotErr != nil {
		return fmt.Errorf("%w: %w", ErrCapture, f.screenshotErr)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrCapture, err)
	}
	if err := os.WriteFile(path, testPNG(), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrCapture, err)
	}
	return nil
}

func (f *fakeSession) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("html")
	return "<html><body>fake</body></html>", nil
}

func (f *fakeSession) SetCookie(ctx context.Context, c Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cookie " + c.Name)
	if f.cookieErr != nil {
		return f.cookieErr
	}
	f.cookies = append(f.cookies, c)
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeSession) snapshot() (calls []string, shots []string, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...), append([]string(nil), f.shots...), f.closes
}

func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
