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
	"fmt"
	"time"
)

// DefaultPollInterval is how often the waiter re-evaluates a condition.
const DefaultPollInterval = 200 * time.Millisecond

// Waiter turns a one-shot probe into a bounded wait.
type Waiter struct {
	Interval time.Duration
}

// Probe evaluates cond once against s.
func Probe(ctx context.Context, s Session, cond Condition) bool {
	switch cond.Kind {
	case CondVisible:
		return s.QueryVisible(ctx, cond.Selector)
	case CondContains:
		return s.QueryText(ctx, cond.Selector, cond.Text)
	case CondNone, CondDelay:
		return true
	}
	return false
}

// Wait blocks until cond holds or timeout elapses, returning nil or an
// error wrapping ErrTimedOut. A timeout <= 0 means a single probe. Delay
// conditions sleep for their delay and always succeed. Cancellation of ctx
// returns ctx.Err().
func (w Waiter) Wait(ctx context.Context, s Session, cond Condition, timeout time.Duration) error {
	if cond.Kind == CondDelay {
		timer := time.NewTimer(cond.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if timeout <= 0 {
		if Probe(ctx, s, cond) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s not satisfied", ErrTimedOut, cond)
	}

	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	end := time.Now().Add(timeout)
	// Probes never run past the deadline, however slow the page is.
	probeCtx, cancel := context.WithDeadline(ctx, end)
	defer cancel()
	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	for {
		if Probe(probeCtx, s, cond) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(end)
		if remaining <= 0 {
			return fmt.Errorf("%w: %s not satisfied after %s", ErrTimedOut, cond, timeout)
		}
		timer.Reset(min(interval, remaining))
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
