package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadPath is the WebSocket endpoint of the reload client.
const ReloadPath = "/__pages/reload"

// Event types understood by the reload client.
const (
	EventReload = "reload"
	EventCSS    = "css"
	EventError  = "error"
	EventClear  = "clear"
)

const (
	clientQueue = 8
	writeWait   = 5 * time.Second
	pingPeriod  = 30 * time.Second
)

// Event is pushed to browsers over the reload socket.
type Event struct {
	Type string `json:"type"`

	// Paths are the URL paths of changed stylesheets. Empty means every
	// same-origin stylesheet is refreshed.
	Paths []string `json:"paths,omitempty"`

	// Page is the request path that failed to render.
	Page string `json:"page,omitempty"`

	// Source is the HTML file, relative to the pages root, the failing page
	// was rendered from.
	Source string `json:"source,omitempty"`

	Error string `json:"error,omitempty"`
}

// Hub pushes reload events to connected browsers. Each browser has a small
// queue drained by its own writer; one that falls behind is disconnected and
// reconnects by itself.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*browser]struct{}
	failure []byte
}

type browser struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a reload hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*browser]struct{}),
		upgrader: websocket.Upgrader{
			// The dev server may be reached through an upstream's origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and keeps the browser registered until it
// disconnects. A browser connecting while a page is broken is told so
// immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("reload upgrade failed", "error", err)
		return
	}

	b := &browser{conn: conn, send: make(chan []byte, clientQueue)}
	h.mu.Lock()
	h.clients[b] = struct{}{}
	if h.failure != nil {
		b.send <- h.failure
	}
	h.mu.Unlock()

	written := make(chan struct{})
	go func() {
		defer close(written)
		h.write(b)
	}()

	// The client never sends data; reading surfaces the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(b)
	<-written
}

// Reload tells browsers to reload the page.
func (h *Hub) Reload() {
	h.broadcast(Event{Type: EventReload})
}

// CSS tells browsers to refresh the stylesheets served at paths.
func (h *Hub) CSS(paths ...string) {
	h.broadcast(Event{Type: EventCSS, Paths: paths})
}

// PageFailed reports that page could not be rendered from source. The failure
// is kept and replayed to browsers that connect until Clear is called.
func (h *Hub) PageFailed(page, source string, err error) {
	data, merr := json.Marshal(Event{Type: EventError, Page: page, Source: source, Error: err.Error()})
	if merr != nil {
		return
	}
	h.mu.Lock()
	h.failure = data
	h.mu.Unlock()
	h.send(data)
}

// Clear forgets the last page failure and hides its overlay. It is a no-op
// when nothing failed.
func (h *Hub) Clear() {
	h.mu.Lock()
	failed := h.failure != nil
	h.failure = nil
	h.mu.Unlock()
	if failed {
		h.broadcast(Event{Type: EventClear})
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every browser. The hub stays usable.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for b := range h.clients {
		delete(h.clients, b)
		close(b.send)
	}
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.send(data)
}

func (h *Hub) send(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for b := range h.clients {
		select {
		case b.send <- data:
		default:
			h.logger.Debug("reload client too slow, disconnecting")
			delete(h.clients, b)
			close(b.send)
		}
	}
}

func (h *Hub) drop(b *browser) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[b]; ok {
		delete(h.clients, b)
		close(b.send)
	}
}

// write is the only writer of b.conn. It closes the connection when the
// queue is closed or a write fails, which also ends the read loop.
func (h *Hub) write(b *browser) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		b.conn.Close()
	}()

	for {
		select {
		case data, ok := <-b.send:
			b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				b.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// DevClientScript is injected before </body> of every page the dev server
// renders. Failures are only shown on the page they belong to.
const DevClientScript = `<script>
(function () {
  var endpoint = (location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '` + ReloadPath + `';
  var overlayID = 'pages-dev-failure';
  var delay = 500;

  function refreshStyles(paths) {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    for (var i = 0; i < links.length; i++) {
      var url = new URL(links[i].href, location.href);
      if (url.origin !== location.origin) continue;
      if (paths && paths.length && paths.indexOf(url.pathname) < 0) continue;
      url.searchParams.set('t', Date.now());
      links[i].href = url.href;
    }
  }

  function hideFailure() {
    var el = document.getElementById(overlayID);
    if (el) el.remove();
  }

  function showFailure(ev) {
    if (ev.page && ev.page !== location.pathname) return;
    hideFailure();
    var box = document.createElement('div');
    box.id = overlayID;
    box.style.cssText = 'position:fixed;inset:0;z-index:2147483647;overflow:auto;padding:32px;background:rgba(24,24,27,.95);color:#fafafa;font:14px/1.5 ui-monospace,monospace;';
    var title = document.createElement('h2');
    title.textContent = 'Cannot render ' + (ev.page || location.pathname);
    box.appendChild(title);
    if (ev.source) {
      var source = document.createElement('p');
      source.textContent = 'from ' + ev.source;
      box.appendChild(source);
    }
    var detail = document.createElement('pre');
    detail.style.whiteSpace = 'pre-wrap';
    detail.textContent = ev.error;
    box.appendChild(detail);
    document.body.appendChild(box);
  }

  function connect() {
    var ws = new WebSocket(endpoint);
    ws.onopen = function () { delay = 500; };
    ws.onmessage = function (e) {
      var ev;
      try { ev = JSON.parse(e.data); } catch (_) { return; }
      if (ev.type === 'reload') location.reload();
      else if (ev.type === 'css') refreshStyles(ev.paths);
      else if (ev.type === 'error') showFailure(ev);
      else if (ev.type === 'clear') hideFailure();
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 10000);
    };
  }

  connect();
})();
</script>`
