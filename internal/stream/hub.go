// Package stream broadcasts emitted signal batches to WebSocket subscribers.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signal-lab/internal/domain"
	"signal-lab/internal/observability"
)

// HubConfig configures the broadcast hub.
type HubConfig struct {
	// WriteTimeout is timeout for writing a batch to one subscriber.
	WriteTimeout time.Duration
	// SendBuffer is the per-subscriber outbound queue length. A subscriber
	// that falls this many batches behind is disconnected.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout: 10 * time.Second,
		SendBuffer:   16,
	}
}

// Hub fans emitted signal batches out to connected WebSocket subscribers.
// Every processed window produces exactly one batch message, even when the
// window emitted no signals; subscribers can rely on batch cadence matching
// window cadence.
type Hub struct {
	config   HubConfig
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	closed   bool
	upgrader websocket.Upgrader
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub.
func NewHub(config *HubConfig) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultHubConfig().SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultHubConfig().WriteTimeout
	}

	return &Hub{
		config: cfg,
		subs:   make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and registers it
// as a subscriber until the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()
	observability.DefaultMetrics.StreamSubscribers.Set(float64(count))

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// Broadcast sends one batch of signals to every subscriber. A slow
// subscriber whose queue is full is dropped rather than stalling the
// pipeline.
func (h *Hub) Broadcast(signals []domain.Signal) {
	if signals == nil {
		signals = []domain.Signal{}
	}
	payload, err := json.Marshal(signals)
	if err != nil {
		log.Printf("[stream] marshal batch: %v", err)
		return
	}

	h.mu.Lock()
	var stale []*subscriber
	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			stale = append(stale, sub)
		}
	}
	for _, sub := range stale {
		delete(h.subs, sub)
		close(sub.send)
	}
	count := len(h.subs)
	h.mu.Unlock()

	for _, sub := range stale {
		log.Printf("[stream] dropping slow subscriber %s", sub.conn.RemoteAddr())
		sub.conn.Close()
	}
	observability.DefaultMetrics.StreamSubscribers.Set(float64(count))
	observability.DefaultMetrics.BatchesBroadcast.Inc()
}

// Close disconnects all subscribers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		close(sub.send)
		sub.conn.Close()
	}
	observability.DefaultMetrics.StreamSubscribers.Set(0)
}

// SubscriberCount returns the current number of subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// writeLoop drains the subscriber's queue onto the connection.
func (h *Hub) writeLoop(sub *subscriber) {
	for payload := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.unregister(sub)
			return
		}
	}
}

// readLoop discards inbound messages and detects disconnects. The stream is
// one-way; clients only listen.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.unregister(sub)
			return
		}
	}
}

// unregister removes a subscriber after its connection failed.
func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
	count := len(h.subs)
	h.mu.Unlock()

	sub.conn.Close()
	observability.DefaultMetrics.StreamSubscribers.Set(float64(count))
}
