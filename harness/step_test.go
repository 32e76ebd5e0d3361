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
	"strings"
	"testing"
	"time"
)

func TestStepsAreValues(t *testing.T) {
	a := Fill("#name", "Ada")
	b := Fill("#name", "Ada")
	if a != b {
		t.Errorf("Identical steps compare unequal: %v != %v", a, b)
	}
	if a == Fill("#name", "Grace") {
		t.Errorf("Different steps compare equal")
	}

	base := Click("#save")
	withWait := base.Then(Visible("#toast"), time.Second)
	if !base.Wait.IsZero() {
		t.Errorf("Then modified the receiver: %+v", base)
	}
	if withWait.Wait != Visible("#toast") || withWait.Timeout != time.Second {
		t.Errorf("Then did not attach the condition: %+v", withWait)
	}
	if withWait.Kind != KindClick || withWait.Selector != "#save" {
		t.Errorf("Then changed the action: %+v", withWait)
	}
}

func TestStepString(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Navigate("/places"), "navigate /places"},
		{Fill("#q", "SoFi Stadium"), `fill #q "SoFi Stadium"`},
		{Press("#q", "Enter"), "press #q Enter"},
		{Click("#go"), "click #go"},
		{Screenshot("out.png"), "screenshot out.png"},
		{WaitFor(Visible("#x"), 2*time.Second), "wait visible(#x) within 2s"},
		{WaitFor(FixedDelay(5*time.Second), 0), "wait delay(5s)"},
		{Click("#go").Then(ContainsText("#s", "ok"), time.Second), `click #go then contains(#s, "ok") within 1s`},
	}
	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestStepValidate(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"Navigate", Navigate("/"), ""},
		{"NavigateEmpty", Navigate(""), "path is required"},
		{"ScreenshotEmpty", Screenshot(""), "path is required"},
		{"Fill", Fill("text:Name", "x"), ""},
		{"FillNoSelector", Fill("", "x"), "fill"},
		{"PressNoKey", Press("#q", ""), "key is required"},
		{"ClickBadXPath", Click("xpath:"), "click"},
		{"WaitNoCondition", WaitFor(Condition{}, time.Second), "condition is required"},
		{"ContainsNoText", WaitFor(ContainsText("#a", ""), time.Second), "text is required"},
		{"NegativeDelay", WaitFor(FixedDelay(-time.Second), 0), "negative"},
		{"UnknownKind", Step{Kind: "hover"}, "unknown step kind"},
		{"UnknownCondition", Click("#a").Then(Condition{Kind: "gone"}, time.Second), "unknown condition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name    string
		sc      Scenario
		wantErr string
	}{
		{"Valid", Scenario{Name: "ok", BaseURL: "http://localhost:8080", Steps: []Step{Navigate("/")}}, ""},
		{"Empty", Scenario{Name: "empty", BaseURL: "http://localhost"}, ""},
		{"NoName", Scenario{BaseURL: "http://localhost"}, "name is required"},
		{"RelativeBase", Scenario{Name: "rel", BaseURL: "/places"}, "must be absolute"},
		{"BadStep", Scenario{Name: "bad", BaseURL: "http://localhost", Steps: []Step{Navigate("/"), Press("#q", "")}}, "step 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://localhost:8080", "/places", "http://localhost:8080/places"},
		{"http://localhost:8080/", "/places", "http://localhost:8080/places"},
		{"http://app/places", "/places", "http://app/places"},
		{"http://app/app", "trip/1/chat", "http://app/app/trip/1/chat"},
		{"http://app/app/", "trip/1/chat", "http://app/app/trip/1/chat"},
		{"http://app/", "/?q=1", "http://app/?q=1"},
		{"http://app/places", "https://other.example/x", "https://other.example/x"},
	}
	for _, tt := range tests {
		got, err := ResolveURL(tt.base, tt.path)
		if err != nil {
			t.Errorf("ResolveURL(%q, %q): %v", tt.base, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
	if _, err := ResolveURL("http://app", "http://[::1"); err == nil {
		t.Error("Expected error for malformed path")
	}
}
