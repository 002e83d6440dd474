package ws

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/HerbHall/netbridge/internal/netinfo"
	"github.com/HerbHall/netbridge/internal/server"
	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/HerbHall/netbridge/pkg/plugin"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler bridges connection and network info reports to web content over
// WebSocket.
type Handler struct {
	hub    *Hub
	token  string
	bus    plugin.EventBus
	logger *zap.Logger
	unsubs []func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to report events.
// An empty token disables the token check.
func NewHandler(token string, bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		token:  token,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+server.BridgePath, h.handleBridge)
}

// Hub returns the handler's hub.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// Close drops the bus subscriptions.
func (h *Handler) Close() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

// handleBridge upgrades the connection to WebSocket and streams reports.
func (h *Handler) handleBridge(w http.ResponseWriter, r *http.Request) {
	// Token comes from the query string; the browser WebSocket API cannot
	// set headers.
	if h.token != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Hosted content is served from arbitrary origins; the token gates access.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan Message, 64),
		logger: h.logger,
	}

	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until the client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards connection and network info reports to all
// connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.unsubs = append(h.unsubs, h.bus.Subscribe(netinfo.TopicConnectionChanged, func(_ context.Context, event plugin.Event) {
		report, ok := event.Payload.(*models.ConnectionReport)
		if !ok {
			return
		}
		h.hub.Broadcast(newMessage(MessageConnection, event, report.Type))
	}))

	h.unsubs = append(h.unsubs, h.bus.Subscribe(netinfo.TopicInfoChanged, func(_ context.Context, event plugin.Event) {
		snap, ok := event.Payload.(*models.NetworkSnapshot)
		if !ok {
			return
		}
		h.hub.Broadcast(newMessage(MessageNetworkInfo, event, snap))
	}))

	h.logger.Info("subscribed to report events for WebSocket broadcasting")
}

func newMessage(t MessageType, event plugin.Event, data any) Message {
	return Message{
		ID:           uuid.NewString(),
		Type:         t,
		Timestamp:    event.Timestamp,
		KeepCallback: true,
		Data:         data,
	}
}
