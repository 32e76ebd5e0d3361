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
	"log"
	"time"
)

// Logger interface allows passing *testing.T or log.Printf
type Logger interface {
	Logf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Logf(format string, args ...any) {
	log.Printf(format, args...)
}

// DefaultLogger writes to the standard logger.
var DefaultLogger Logger = stdLogger{}

// Session is one page in one browser instance. Calls are not safe for
// concurrent use; a session belongs to a single runner.
type Session interface {
	// Navigate loads url and waits for the base page load.
	Navigate(ctx context.Context, url string) error
	// Fill replaces the value of the matching element.
	Fill(ctx context.Context, sel, text string) error
	// Click clicks the first matching element.
	Click(ctx context.Context, sel string) error
	// Press sends a named key (e.g. "Enter") to the matching element.
	Press(ctx context.Context, sel, key string) error
	// QueryVisible reports whether a matching element is rendered and
	// visible. It never fails; errors read as false.
	QueryVisible(ctx context.Context, sel string) bool
	// QueryText reports whether a matching element contains text.
	QueryText(ctx context.Context, sel, text string) bool
	// Screenshot writes a PNG of the current page to path.
	Screenshot(ctx context.Context, path string) error
	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)
	// SetCookie installs a cookie in the browser.
	SetCookie(ctx context.Context, c Cookie) error
	// Close releases the page and browser. Calling it again is a no-op.
	Close() error
}

// Cookie is a browser cookie to install before the first step.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	// RemoteURL connects to an already running Chrome's debugging endpoint
	// instead of starting a process.
	RemoteURL string
	// ExecPath overrides the Chrome binary.
	ExecPath string
	Headless bool
	// WindowWidth and WindowHeight set the viewport. Zero uses 1280x800.
	WindowWidth  int
	WindowHeight int
	// LookupTimeout bounds how long Fill, Click and Press look for their
	// element. Zero uses DefaultLookupTimeout.
	LookupTimeout time.Duration
	// DisableAnimations zeroes CSS transitions after every navigation.
	DisableAnimations bool
	// ConsoleLog forwards page console messages to the logger.
	ConsoleLog bool
	Logger     Logger
}

// DefaultLookupTimeout is the element lookup window for actions.
const DefaultLookupTimeout = 2 * time.Second

// Launcher starts a session.
type Launcher func(ctx context.Context, opts LaunchOptions) (Session, error)
