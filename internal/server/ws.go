package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/logging"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	clientBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API only listens locally; CORS guards the JSON routes.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	send chan guard.Event
}

// Hub fans guard events out to websocket clients. A client that falls
// behind loses events rather than stalling the guard.
type Hub struct {
	guard       Controller
	unsubscribe func()

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	dropped int
}

// NewHub subscribes to g's events.
func NewHub(g Controller) *Hub {
	h := &Hub{
		guard:   g,
		clients: make(map[*client]struct{}),
	}
	if g != nil {
		h.unsubscribe = g.Subscribe(h.broadcast)
	}
	return h
}

func (h *Hub) broadcast(e guard.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			h.dropped++
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close unsubscribes from the guard and disconnects every client.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the connection and streams events as JSON. The first
// message is a status snapshot.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", logging.KeyError, err)
		return
	}

	c := &client{send: make(chan guard.Event, clientBuffer)}
	if h.guard != nil {
		st := h.guard.Status()
		c.send <- guard.Event{Type: guard.EventStatus, At: time.Now(), Status: &st}
	}
	if !h.add(c) {
		conn.Close()
		return
	}

	go h.writePump(conn, c)
	h.readPump(conn, c)
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer h.remove(c)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.DebugLog("websocket closed", logging.KeyError, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
