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
	"errors"
	"fmt"
)

var (
	// ErrLaunch means the browser could not be started. The scenario never runs.
	ErrLaunch = errors.New("browser launch failed")
	// ErrNavigation means the target could not be loaded.
	ErrNavigation = errors.New("navigation failed")
	// ErrElementNotFound means a selector did not resolve within the lookup window.
	ErrElementNotFound = errors.New("element not found")
	// ErrTimedOut means a condition was not satisfied before its timeout.
	ErrTimedOut = errors.New("timed out")
	// ErrCapture means a screenshot could not be rendered or written.
	ErrCapture = errors.New("capture failed")
)

// StepError identifies the step that failed.
type StepError struct {
	Index int
	Kind  StepKind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
