package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The control surface is key-protected elsewhere; the event stream is
	// read-only status text.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsEvent struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Hub fans bot status lines out to connected websocket clients. It
// implements the notifier contract, so it can sit next to Telegram in a
// fanout. A slow client is dropped rather than allowed to stall the hub.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Send broadcasts one status line to every connected client.
func (h *Hub) Send(text string) {
	payload, err := json.Marshal(wsEvent{Time: time.Now(), Text: text})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			h.logger.Warn("dropping slow websocket client")
			close(ch)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	go h.writeLoop(conn, ch)
	h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch <-chan []byte) {
	for payload := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames and detects disconnects.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	conn.Close()
}
