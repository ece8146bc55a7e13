package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/models"
)

const updatesChannel = "mcq_updates"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes job and research updates to every connected client. With a Redis
// client, updates fan out through pub/sub so any instance can publish.
type Hub struct {
	mu          sync.Mutex
	connections map[*websocket.Conn]bool
	redisClient *redis.Client
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		redisClient: redisClient,
	}
}

// Run relays pub/sub messages to local connections until ctx is done. It returns
// at once when the hub has no Redis client.
func (h *Hub) Run(ctx context.Context) {
	if h.redisClient == nil {
		return
	}

	pubsub := h.redisClient.Subscribe(ctx, updatesChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.register(conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Publish sends msg to all clients, through Redis when configured.
func (h *Hub) Publish(ctx context.Context, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode websocket message")
		return
	}

	if h.redisClient != nil {
		err := h.redisClient.Publish(ctx, updatesChannel, string(data)).Err()
		if err == nil {
			return
		}
		log.Warn().Err(err).Msg("Redis publish failed, broadcasting locally")
	}
	h.broadcast(data)
}

func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn] = true
	log.Debug().Int("total", len(h.connections)).Msg("WebSocket connected")
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.connections, conn)
	log.Debug().Int("total", len(h.connections)).Msg("WebSocket disconnected")
}

// broadcast holds the lock while writing; gorilla connections allow one writer at a time.
func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed")
		}
	}
}
