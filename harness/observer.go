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
	"time"
)

// Event types emitted by a Runner.
const (
	EventScenarioStart = "scenario_start"
	EventStepStart     = "step_start"
	EventStepEnd       = "step_end"
	EventScenarioEnd   = "scenario_end"
)

// Event describes progress of a run.
type Event struct {
	Type     string    `json:"type"`
	RunID    string    `json:"runId"`
	Scenario string    `json:"scenario"`
	Index    int       `json:"index"` // step index, -1 for scenario events without one
	Step     string    `json:"step,omitempty"`
	Outcome  Outcome   `json:"outcome,omitempty"`
	Status   Status    `json:"status,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Time     time.Time `json:"time"`
}

// Observer receives events. Observe is called from the goroutine running
// the scenario and must not block for long.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ev)
		}
	}
}
