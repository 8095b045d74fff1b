// Package websocket pushes display snapshots to connected browsers.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"compfinder/internal/infrastructure"
	"compfinder/pkg/contracts/domain"
	"compfinder/pkg/contracts/events"
)

const broadcastBuffer = 64

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Last display update, replayed to clients that connect later
	latest []byte

	mu       sync.RWMutex
	logger   *slog.Logger
	quit     chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			latest := h.latest
			h.mu.Unlock()

			h.logger.Info("Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if msg, err := json.Marshal(events.NewMessage(events.MessageTypeConnection, map[string]interface{}{
				"status":    "connected",
				"client_id": client.id,
			})); err == nil {
				h.deliver(client, msg)
			}
			if latest != nil {
				h.deliver(client, latest)
			}

		case client := <-h.unregister:
			h.remove(client, "unregistered")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				h.deliver(client, message)
			}

			h.logger.Debug("Broadcast sent",
				slog.Int("client_count", len(clients)),
				slog.Int("message_size", len(message)))
		}
	}
}

// deliver queues message for client and drops clients whose buffer is full.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.logger.Warn("Client send buffer full, disconnecting", slog.String("client_id", client.id))
		h.remove(client, "slow")
	}
}

func (h *Hub) remove(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// Register adds a client. It blocks until the hub loop accepts it or the hub stops.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast wraps data in a typed message and sends it to every client.
func (h *Hub) Broadcast(messageType events.MessageType, data interface{}) {
	h.BroadcastMessage(events.NewMessage(messageType, data))
}

// BroadcastMessage sends msg to every client. It never blocks; when the hub is backed up
// the message is dropped.
func (h *Hub) BroadcastMessage(msg events.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}

	if msg.Type == events.MessageTypeDisplayUpdate {
		h.mu.Lock()
		h.latest = data
		h.mu.Unlock()
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	default:
		h.logger.Warn("Broadcast queue full, dropping message", slog.String("message_type", string(msg.Type)))
	}
}

// PublishSnapshot broadcasts a display snapshot. It matches display.Subscriber.
func (h *Hub) PublishSnapshot(snapshot domain.DisplaySnapshot) {
	h.Broadcast(events.MessageTypeDisplayUpdate, snapshot)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop stops the hub and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	})
}
