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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMonitorStreamsEvents(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Close()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	// Delivered by replay, since the client connects afterwards.
	m.Observe(Event{Type: EventScenarioStart, RunID: "r1", Scenario: "places", Index: -1})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	m.Observe(Event{Type: EventStepEnd, RunID: "r1", Scenario: "places", Index: 0, Outcome: Success})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got []Event
	for len(got) < 2 {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON after %d events: %v", len(got), err)
		}
		got = append(got, ev)
	}
	if got[0].Type != EventScenarioStart || got[1].Type != EventStepEnd {
		t.Errorf("Unexpected event order: %+v", got)
	}
	if got[1].Outcome != Success || got[1].RunID != "r1" {
		t.Errorf("Unexpected event: %+v", got[1])
	}
}

func TestMonitorReplaysAllRecentEvents(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Close()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	const n = 200
	for i := range n {
		m.Observe(Event{Type: EventStepEnd, RunID: "r1", Scenario: "places", Index: i})
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for want := range n {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON after %d events: %v", want, err)
		}
		if ev.Index != want {
			t.Fatalf("Expected event %d, got %d", want, ev.Index)
		}
	}
}

func TestMonitorRejectsCrossOrigin(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Close()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.example"}})
	if err == nil {
		t.Fatal("Expected cross-origin dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

func TestMonitorRuns(t *testing.T) {
	rs := newTestRunStore(t)
	if err := rs.SaveRun(&ScenarioResult{ID: "r1", Scenario: "recap", Status: AllSucceeded, FailedIndex: -1}); err != nil {
		t.Fatal(err)
	}
	m := NewMonitor(rs)
	defer m.Close()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	err = json.NewDecoder(resp.Body).Decode(&names)
	resp.Body.Close()
	if err != nil || len(names) != 1 || names[0] != "recap" {
		t.Errorf("GET /runs = %v, %v", names, err)
	}

	resp, err = http.Get(srv.URL + "/runs/recap")
	if err != nil {
		t.Fatal(err)
	}
	var runs []*ScenarioResult
	err = json.NewDecoder(resp.Body).Decode(&runs)
	resp.Body.Close()
	if err != nil || len(runs) != 1 || runs[0].ID != "r1" || runs[0].Status != AllSucceeded {
		t.Errorf("GET /runs/recap = %+v, %v", runs, err)
	}

	resp, err = http.Get(srv.URL + "/runs/unknown")
	if err != nil {
		t.Fatal(err)
	}
	runs = nil
	err = json.NewDecoder(resp.Body).Decode(&runs)
	resp.Body.Close()
	if err != nil || runs == nil || len(runs) != 0 {
		t.Errorf("Expected empty list for unknown scenario, got %v, %v", runs, err)
	}
}

func TestMonitorWithoutStore(t *testing.T) {
	m := NewMonitor(nil)
	defer m.Close()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without a store, got %d", resp.StatusCode)
	}
}

func TestMonitorClosed(t *testing.T) {
	m := NewMonitor(nil)
	m.Close()
	m.Close()
	m.Observe(Event{Type: EventScenarioStart})
}
