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
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Events replayed to clients that connect mid-run.
	maxRecentEvents = 256

	// Per-client queue. It holds a full replay plus live events.
	clientQueueSize = maxRecentEvents + 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Monitor streams runner events to websocket clients and serves stored
// runs over HTTP. It implements Observer.
type Monitor struct {
	store *RunStore

	// Registered clients. Owned by run.
	clients map[*monitorClient]bool
	recent  []Event

	events     chan Event
	register   chan *monitorClient
	unregister chan *monitorClient
	done       chan struct{}
	closeOnce  sync.Once
}

type monitorClient struct {
	m    *Monitor
	conn *websocket.Conn
	send chan Event
}

var _ Observer = (*Monitor)(nil)

// NewMonitor starts a monitor. store may be nil, in which case the run
// endpoints are not served.
func NewMonitor(store *RunStore) *Monitor {
	m := &Monitor{
		store:      store,
		clients:    make(map[*monitorClient]bool),
		events:     make(chan Event, 256),
		register:   make(chan *monitorClient),
		unregister: make(chan *monitorClient),
		done:       make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	for {
		select {
		case c := <-m.register:
			m.clients[c] = true
			for _, ev := range m.recent {
				select {
				case c.send <- ev:
				default:
				}
			}
		case c := <-m.unregister:
			if m.clients[c] {
				delete(m.clients, c)
				close(c.send)
			}
		case ev := <-m.events:
			m.recent = append(m.recent, ev)
			if len(m.recent) > maxRecentEvents {
				m.recent = m.recent[len(m.recent)-maxRecentEvents:]
			}
			for c := range m.clients {
				select {
				case c.send <- ev:
				default:
					// Too slow; drop the client rather than stall the runner.
					delete(m.clients, c)
					close(c.send)
				}
			}
		case <-m.done:
			for c := range m.clients {
				delete(m.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Observe queues ev for broadcast. It never blocks; events are dropped
// when the queue is full or the monitor is closed.
func (m *Monitor) Observe(ev Event) {
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.events <- ev:
	default:
		log.Printf("Monitor: event queue full, dropping %s for %s", ev.Type, ev.Scenario)
	}
}

// Close disconnects all clients and stops the monitor.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

// Handler serves /ws (event stream), /runs (scenarios with stored runs)
// and /runs/{scenario} (stored runs of one scenario).
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", m.serveWS)
	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		if m.store == nil {
			http.NotFound(w, r)
			return
		}
		names, err := m.store.Scenarios()
		if err != nil {
			log.Printf("Monitor: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, names)
	})
	mux.HandleFunc("GET /runs/{scenario}", func(w http.ResponseWriter, r *http.Request) {
		if m.store == nil {
			http.NotFound(w, r)
			return
		}
		runs := make([]*ScenarioResult, 0)
		for run, err := range m.store.ListRuns(r.PathValue("scenario")) {
			if err != nil {
				log.Printf("Monitor: %v", err)
				continue
			}
			runs = append(runs, run)
		}
		writeJSON(w, runs)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Monitor: encode response: %v", err)
	}
}

func (m *Monitor) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Monitor: upgrade: %v", err)
		return
	}
	c := &monitorClient{m: m, conn: conn, send: make(chan Event, clientQueueSize)}
	select {
	case m.register <- c:
	case <-m.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump drains the connection so pongs and close frames are handled.
func (c *monitorClient) readPump() {
	defer func() {
		select {
		case c.m.unregister <- c:
		case <-c.m.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Monitor: %v", err)
			}
			return
		}
	}
}

// writePump pumps events from the monitor to the websocket connection.
func (c *monitorClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The monitor closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
