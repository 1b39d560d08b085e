// Package websocket pushes dashboard events to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ergopulse/internal/infrastructure"
)

// Message types
const (
	TypeConnection = "connection"
)

// broadcastBuffer bounds the events queued while the hub loop is busy
const broadcastBuffer = 64

// Message is the JSON envelope of every event sent to clients
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
// The client set is owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	count        atomic.Int64
	messagesSent atomic.Int64

	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
	clock   func() time.Time
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		clock:      time.Now,
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		h.started.Store(true)
		go h.Run()
	})
}

// Run is the hub's main loop
func (h *Hub) Run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				h.remove(ctx, client)
			}
			h.logger.Info("Hub shut down")
			return

		case client := <-h.register:
			h.clients[client] = true
			count := h.count.Add(1)
			infrastructure.RecordWebSocketClients(ctx, h.metrics, 1)

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int64("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			welcome, err := h.encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID)
			if err == nil {
				select {
				case client.send <- welcome:
				default:
					h.logger.Warn("Failed to send connection message, client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(ctx, client)
				h.logger.InfoContext(client.context(), "Client unregistered",
					slog.Int64("total_clients", h.count.Load()),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			sent, dropped := 0, 0
			for client := range h.clients {
				select {
				case client.send <- message:
					sent++
				default:
					dropped++
					h.remove(ctx, client)
					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.messagesSent.Add(int64(sent))

			h.logger.Debug("Broadcast delivered",
				slog.Int("sent", sent),
				slog.Int("dropped", dropped),
				slog.Int("message_size", len(message)))
		}
	}
}

func (h *Hub) remove(ctx context.Context, client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Add(-1)
	infrastructure.RecordWebSocketClients(ctx, h.metrics, -1)
}

func (h *Hub) encode(messageType string, data interface{}, traceID string) ([]byte, error) {
	payload, err := json.Marshal(Message{
		Type:      messageType,
		Data:      data,
		Timestamp: h.clock().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("message_type", messageType),
			slog.String("error", err.Error()))
	}
	return payload, err
}

// Broadcast sends an event to every connected client. It never blocks: the
// event is dropped when the hub is stopped or its queue is full.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := h.encode(messageType, data, "")
	if err != nil {
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Broadcast queue full, dropping event",
			slog.String("message_type", messageType))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	return int(h.count.Load())
}

// MessagesSent returns how many messages were queued to clients
func (h *Hub) MessagesSent() int64 {
	return h.messagesSent.Load()
}

// Stop closes every client and waits for the hub loop to exit
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		if h.started.Load() {
			<-h.done
		}
	})
}
