package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
	"github.com/6ogo/Brainy-sub002/internal/voice"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio frames

	// Visualization frame cadence while a session is active.
	vizFramePeriod = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// origin filtering happens at the reverse proxy
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ConversationService is what the hub needs from the tutoring usecase
type ConversationService interface {
	voice.Responder
	BindStudent(sessionID, studentID string)
	EndSession(ctx context.Context, sessionID string)
}

// Hub maintains the set of active clients, one voice session each
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	recognizer repositories.SpeechRecognizer
	service    ConversationService
	sessionCfg voice.SessionConfig

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	recognizer repositories.SpeechRecognizer,
	service ConversationService,
	sessionCfg voice.SessionConfig,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		recognizer: recognizer,
		service:    service,
		sessionCfg: sessionCfg,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.clientID] = client
			h.mu.Unlock()
			h.logger.Info("client registered", zap.String("client_id", client.clientID))

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.clientID]
			delete(h.clients, client.clientID)
			h.mu.Unlock()
			if ok {
				client.teardownSession()
				client.closeSend()
				h.logger.Info("client unregistered", zap.String("client_id", client.clientID))
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the connection for a pre-authenticated student
func HandleWebSocket(hub *Hub, c echo.Context, studentID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, studentID, logger)
	hub.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}
