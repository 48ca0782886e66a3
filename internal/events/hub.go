package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"narration-timeline-service/internal/models"
)

// Hub fans run events out to connected websocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan models.Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewHub returns a Hub. Call Run to start delivering events.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan models.Event, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			// The viewer is a local debugging tool.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run delivers broadcasts until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Msg("Viewer client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Msg("Viewer client disconnected")

		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					log.Warn().Err(err).Msg("Viewer write failed")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues event for delivery to every client. It drops the event
// once Run has stopped.
func (h *Hub) Broadcast(event models.Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Reads only detect disconnects.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// MessageReader is the part of *kafka.Reader that Consume uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Consume decodes event envelopes from r and broadcasts them until ctx is
// done. Undecodable messages are skipped.
func Consume(ctx context.Context, r MessageReader, hub *Hub) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("topic", msg.Topic).Msg("Kafka read failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var event models.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic).Msg("Skipping undecodable event")
			continue
		}
		log.Debug().
			Str("topic", msg.Topic).
			Str("eventType", event.EventType).
			Str("runId", event.RunID).
			Msg("Event received")
		hub.Broadcast(event)
	}
}

// NewReader returns a partition-0 reader positioned since ago, without a
// consumer group so it works through a port-forward.
func NewReader(ctx context.Context, brokers []string, topic string, since time.Duration) *kafka.Reader {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from the start")
	}
	return reader
}
