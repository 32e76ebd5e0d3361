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
	"time"
)

// Outcome is the result of one executed step.
type Outcome string

const (
	Success      Outcome = "success"
	TimedOut     Outcome = "timed_out"
	ActionFailed Outcome = "action_failed"
)

// Status is the overall state of a scenario run.
type Status string

const (
	AllSucceeded Status = "all_succeeded"
	FailedAt     Status = "failed_at"
	SetupFailed  Status = "setup_failed"
)

// Exit codes reported by the CLI.
const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitSetup   = 2
)

// StepResult records what happened to one executed step.
type StepResult struct {
	Index    int           `json:"index"`
	Step     Step          `json:"step"`
	Outcome  Outcome       `json:"outcome"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ScenarioResult is the structured outcome of a scenario run. Steps holds
// one entry per executed step, in order.
type ScenarioResult struct {
	ID          string        `json:"id"`
	Scenario    string        `json:"scenario"`
	BaseURL     string        `json:"baseUrl"`
	Status      Status        `json:"status"`
	FailedIndex int           `json:"failedIndex"` // -1 unless Status is FailedAt
	Reason      string        `json:"reason,omitempty"`
	Steps       []StepResult  `json:"steps"`
	Screenshots []string      `json:"screenshots,omitempty"`
	Diagnostic  string        `json:"diagnostic,omitempty"` // diagnostic screenshot, if one was written
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}

// Succeeded reports whether every step succeeded.
func (r *ScenarioResult) Succeeded() bool {
	return r.Status == AllSucceeded
}

// ExitCode maps the status to the process exit code.
func (r *ScenarioResult) ExitCode() int {
	switch r.Status {
	case AllSucceeded:
		return ExitSuccess
	case FailedAt:
		return ExitFailed
	default:
		return ExitSetup
	}
}

func (r *ScenarioResult) String() string {
	switch r.Status {
	case AllSucceeded:
		return fmt.Sprintf("%s: all %d steps succeeded", r.Scenario, len(r.Steps))
	case FailedAt:
		return fmt.Sprintf("%s: failed at %s", r.Scenario, r.Reason)
	default:
		return fmt.Sprintf("%s: setup failed: %s", r.Scenario, r.Reason)
	}
}

// ExitCode returns the most severe exit code among results.
func ExitCode(results []*ScenarioResult) int {
	code := ExitSuccess
	for _, r := range results {
		if r == nil {
			continue
		}
		if c := r.ExitCode(); c > code {
			code = c
		}
	}
	return code
}
