package web

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LogHub fans each finished cycle's transcript out to connected websocket
// clients.
type LogHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *zap.Logger
}

func NewLogHub(logger *zap.Logger) *LogHub {
	return &LogHub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

type cycleMessage struct {
	Account string   `json:"account"`
	Log     []string `json:"log"`
}

func (h *LogHub) Broadcast(account string, transcript []string) {
	msg := cycleMessage{Account: account, Log: transcript}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *LogHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *LogHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.add(conn)

	// Drain the connection so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.remove(conn)
				return
			}
		}
	}()
}
