package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/infrastructure"
)

// metricsInterval is how often the hub logs its counters
const metricsInterval = 30 * time.Second

// Hub maintains the set of live clients and tells them when their dataset goes away
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Dataset ids whose cache entry was dropped
	invalidated chan string

	mu sync.RWMutex

	logger  *slog.Logger
	metrics *infrastructure.DomainMetrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *infrastructure.DomainMetrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		invalidated: make(chan string, 16),
		logger:      infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:     metrics,
		quit:        make(chan struct{}),
	}
}

// Start starts the hub's goroutines
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			select {
			case <-h.quit:
				client.shutdown()
				return
			default:
			}
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			ctx := client.context()
			h.metrics.TrackLiveClient(ctx, 1)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("dashboard", client.dashboard),
				slog.String("dataset", client.dataset),
				slog.String("remote_addr", client.remoteAddr))

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			count := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}
			client.shutdown()

			ctx := client.context()
			h.metrics.TrackLiveClient(ctx, -1)
			h.logger.InfoContext(ctx, "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case id := <-h.invalidated:
			h.notify(id)
		}
	}
}

// notify tells every client watching dataset id that it was dropped
func (h *Hub) notify(id string) {
	h.mu.RLock()
	var watching []*Client
	for client := range h.clients {
		if client.dataset == id {
			watching = append(watching, client)
		}
	}
	h.mu.RUnlock()

	if len(watching) == 0 {
		return
	}

	sent, dropped := 0, 0
	for _, client := range watching {
		data, err := json.Marshal(Message{
			Type:      TypeInvalidated,
			Dashboard: client.dashboard,
			Dataset:   id,
			Timestamp: time.Now(),
		})
		if err != nil {
			h.logger.Error("Error marshaling invalidation message", slog.String("error", err.Error()))
			return
		}
		if client.enqueue(data) {
			sent++
		} else {
			dropped++
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(sent)
	h.messagesDropped += int64(dropped)
	h.mu.Unlock()

	h.logger.Info("Dataset invalidated, clients notified",
		slog.String("dataset", id),
		slog.Int("notified", sent),
		slog.Int("dropped", dropped))
}

// Invalidated queues a notification for clients of dataset id. It never blocks
// the caller; when the queue is full the notification is dropped.
func (h *Hub) Invalidated(id string) {
	select {
	case h.invalidated <- id:
	default:
		h.logger.Warn("Invalidation queue full, notification dropped", slog.String("dataset", id))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.shutdown()
	}
}

// Unregister removes a client and closes its send queue
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Stop gracefully stops the hub and closes every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.shutdown()
		h.metrics.TrackLiveClient(context.Background(), -1)
	}
}

func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			stats := h.Stats()
			h.logger.Info("WebSocket hub metrics",
				slog.Int("active_clients", stats.ActiveClients),
				slog.Int64("total_connections", stats.TotalConnections),
				slog.Int64("messages_sent", stats.MessagesSent),
				slog.Int64("messages_dropped", stats.MessagesDropped))
		}
	}
}

// HubStats is a snapshot of hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// Stats returns current hub counters
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		MessagesDropped:  h.messagesDropped,
	}
}
