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

package e2e

import (
	"fmt"
	"html"
	"net/http"
)

const page = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.hidden { display: none; }
#overlay { padding: 1em; background: #eef; }
</style>
</head>
<body>
%s
</body>
</html>
`

const placesBody = `<h1>Places</h1>
<input id="search" type="text" placeholder="Search for a place...">
<div id="overlay" class="hidden"></div>
<script>
document.getElementById('search').addEventListener('keydown', (e) => {
  if (e.key !== 'Enter') return;
  const q = e.target.value;
  // Results arrive asynchronously, like a real search backend.
  setTimeout(() => {
    const o = document.getElementById('overlay');
    o.textContent = 'Results for ' + q;
    o.classList.remove('hidden');
  }, 300);
});
</script>`

const chatBody = `<h1>Trip chat</h1>
<ul id="messages"></ul>
<script>
setTimeout(() => {
  const li = document.createElement('li');
  li.textContent = 'Welcome to the trip!';
  document.getElementById('messages').appendChild(li);
}, 200);
</script>`

const tripsBody = `<h1>Trips</h1>
<div class="card"><h3>Tokyo</h3><button class="recap">Recap</button></div>
<div class="card"><h3>Lisbon</h3><button class="recap">Recap</button></div>
<div id="modal" class="hidden"><h2>Create Trip Recap</h2><button id="close">Close</button></div>
<script>
for (const b of document.querySelectorAll('button.recap')) {
  b.addEventListener('click', () => document.getElementById('modal').classList.remove('hidden'));
}
document.getElementById('close').addEventListener('click', () => document.getElementById('modal').classList.add('hidden'));
</script>`

// newTestApp returns a small stand-in for a trip planning app.
func newTestApp() http.Handler {
	mux := http.NewServeMux()
	serve := func(title, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, page, title, body)
		}
	}
	mux.HandleFunc("GET /{$}", serve("Trips", tripsBody))
	mux.HandleFunc("GET /places", serve("Places", placesBody))
	mux.HandleFunc("GET /trip/{id}/chat", serve("Chat", chatBody))
	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		user := "anonymous"
		if c, err := r.Cookie("mock_auth_user"); err == nil {
			user = c.Value
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, page, "Who am I", `<p>Signed in as <span id="user">`+html.EscapeString(user)+`</span></p>`)
	})
	return mux
}
