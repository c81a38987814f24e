package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-research-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const streamChannel = "chat_stream_events"

// Hub fans chat stream events out to every socket subscribed to a chat.
// Events are also published to Redis so instances that hold the subscriber
// for a chat the researcher runs on elsewhere still deliver.
type Hub struct {
	// chatId -> subscribed sockets (a chat can be open in several tabs)
	streams map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		streams:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.streams[client.ChatID] = append(h.streams[client.ChatID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Stream subscriber attached", map[string]interface{}{"chat_id": client.ChatID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.streams[client.ChatID]; ok {
				for i, c := range clients {
					if c == client {
						h.streams[client.ChatID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.streams[client.ChatID]) == 0 {
					delete(h.streams, client.ChatID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish delivers one stream event to the chat's subscribers, locally and
// through Redis for other instances.
func (h *Hub) Publish(chatId uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": payload,
	})
	if err != nil {
		h.logger.Warn("Hub", "Failed to encode stream event", map[string]interface{}{
			"chat_id": chatId,
			"event":   event,
			"error":   err.Error(),
		})
		return
	}

	h.deliverLocal(chatId, data)

	if h.rdb != nil {
		envelope, _ := json.Marshal(map[string]interface{}{
			"target_chat_id": chatId.String(),
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), streamChannel, envelope)
	}
}

func (h *Hub) deliverLocal(chatId uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.streams[chatId]...)
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Subscriber buffer full, dropping connection", map[string]interface{}{"chat_id": chatId})
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, streamChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var envelope struct {
			TargetChatID string          `json:"target_chat_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			log.Printf("[WARN] hub: redis envelope parse error: %v", err)
			continue
		}

		chatId, err := uuid.Parse(envelope.TargetChatID)
		if err != nil {
			continue
		}
		h.deliverLocal(chatId, envelope.Message)
	}
}
