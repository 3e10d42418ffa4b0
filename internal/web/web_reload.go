package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pdfweb/internal/reload"
	"github.com/gorilla/websocket"
)

const (
	reloadPath       = "/__reload"
	reloadScriptPath = "/__reload.js"

	reloadWriteWait = 5 * time.Second
)

// ReloadEvent is sent to live reload clients after a watched file changed
type ReloadEvent struct {
	Type string `json:"type"` // "template" or "static"
	Path string `json:"path"`
}

// loaded by the index page when IndexData.LiveReload is set
const reloadClientJS = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "` + reloadPath + `");
  ws.onmessage = function () { location.reload(); };
})();
`

func reloadScript(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", []byte(reloadClientJS))
}

type reloadClient struct {
	conn *websocket.Conn
	send chan ReloadEvent
}

// reloadHub keeps the connected browsers of a debug server
type reloadHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*reloadClient]struct{}
	closed  bool
}

func newReloadHub() *reloadHub {
	return &reloadHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 1024,
		},
		clients: make(map[*reloadClient]struct{}),
	}
}

func (h *reloadHub) serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already answered the request
		log.Printf("[RELOAD]: upgrade failed from %s: %v", c.ClientIP(), err)
		return
	}
	client := &reloadClient{conn: conn, send: make(chan ReloadEvent, 8)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go client.writePump()
	client.readPump(h)
}

// readPump drains the connection until the browser goes away
func (rc *reloadClient) readPump(h *reloadHub) {
	defer h.unregister(rc)
	for {
		if _, _, err := rc.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[RELOAD]: client error: %v", err)
			}
			return
		}
	}
}

func (rc *reloadClient) writePump() {
	defer rc.conn.Close()
	for ev := range rc.send {
		rc.conn.SetWriteDeadline(time.Now().Add(reloadWriteWait))
		if err := rc.conn.WriteJSON(ev); err != nil {
			return
		}
	}
	rc.conn.SetWriteDeadline(time.Now().Add(reloadWriteWait))
	rc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

func (h *reloadHub) unregister(rc *reloadClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[rc]; ok {
		delete(h.clients, rc)
		close(rc.send)
	}
}

// Broadcast queues ev for every client and returns how many received it.
// Clients with a full queue are skipped; they reload on the next event anyway.
func (h *reloadHub) Broadcast(ev ReloadEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for rc := range h.clients {
		select {
		case rc.send <- ev:
			n++
		default:
		}
	}
	return n
}

// Clients returns the number of connected browsers
func (h *reloadHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients; hijacked connections survive http.Server.Shutdown otherwise.
func (h *reloadHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for rc := range h.clients {
		delete(h.clients, rc)
		close(rc.send)
	}
}

// WatchChanges starts watching the on-disk template and static directories.
// It is a no-op outside debug mode or when only embedded assets are served.
func (s *WebServer) WatchChanges() error {
	if !s.Config.Debug || (s.templatesDir == "" && s.staticDir == "") {
		return nil
	}
	w, err := reload.NewWatcher(reload.DefaultDebounce)
	if err != nil {
		return err
	}
	for _, dir := range []string{s.templatesDir, s.staticDir} {
		if dir == "" {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Stop()
			return err
		}
		log.Printf("[RELOAD]: watching %s", dir)
	}
	w.Start(s.OnChange)
	s.watcher = w
	return nil
}

// OnChange reacts to a changed file: templates are re-parsed, then
// live reload clients are told to refresh.
func (s *WebServer) OnChange(path string) {
	ev := ReloadEvent{}
	if rel, ok := relativeTo(s.templatesDir, path); ok {
		if err := s.templates.Reload(); err != nil {
			log.Printf("[RELOAD]: keeping previous templates: %v", err)
			return
		}
		ev = ReloadEvent{Type: "template", Path: rel}
	} else if rel, ok := relativeTo(s.staticDir, path); ok {
		ev = ReloadEvent{Type: "static", Path: rel}
	} else {
		return
	}
	log.Printf("[RELOAD]: %s %s changed", ev.Type, ev.Path)
	if s.hub != nil {
		s.hub.Broadcast(ev)
	}
}
