package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Frame types pushed to dashboard clients.
const (
	frameToast      = "toast"
	frameSound      = "sound"
	frameBrowser    = "browser_notification"
	frameBadge      = "badge"
	frameCollection = "collection_update"
)

type Hub struct {
	// Registered clients map: recipient id -> list of clients (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers one frame to all of a recipient's connected tabs, then
// relays it over Redis for tabs attached to other instances.
func (h *Hub) Send(userID string, frameType string, data interface{}) {
	payload, _ := json.Marshal(map[string]interface{}{
		"type": frameType,
		"data": data,
	})

	h.mu.RLock()
	clients, localFound := h.clients[userID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- payload:
			default:
				// The hub loop owns channel closure; unregister only.
				h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
				h.unregister <- client
			}
		}
	}

	if h.rdb != nil {
		h.relay(userID, payload)
	}
}

// Broadcast delivers one frame to every connected client on every instance.
func (h *Hub) Broadcast(frameType string, data interface{}) {
	payload, _ := json.Marshal(map[string]interface{}{
		"type": frameType,
		"data": data,
	})

	h.mu.RLock()
	var slow []*Client
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- payload:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()
	for _, client := range slow {
		h.unregister <- client
	}

	if h.rdb != nil {
		h.relay("*", payload)
	}
}

// ShowToast implements notification.Displayer.
func (h *Hub) ShowToast(n model.Notification, duration time.Duration) {
	h.Send(n.RecipientID, frameToast, map[string]interface{}{
		"notification": n,
		"durationMs":   duration.Milliseconds(),
	})
}

// PlaySound implements notification.Displayer.
func (h *Hub) PlaySound(n model.Notification, frequencyHz int) {
	h.Send(n.RecipientID, frameSound, map[string]interface{}{
		"frequencyHz": frequencyHz,
		"priority":    n.Priority,
	})
}

// ShowBrowserNotification implements notification.Displayer.
func (h *Hub) ShowBrowserNotification(n model.Notification) {
	h.Send(n.RecipientID, frameBrowser, n)
}

// UpdateBadge pushes a fresh unread count; wired to the center's OnBadge.
func (h *Hub) UpdateBadge(recipientID string, unread int) {
	h.Send(recipientID, frameBadge, map[string]interface{}{"count": unread})
}

// PushCollection forwards a coordinator render: the full sorted view of one
// collection for the subscribed user.
func (h *Hub) PushCollection(userID, collection string, records []model.Record) {
	h.Send(userID, frameCollection, map[string]interface{}{
		"collection": collection,
		"records":    records,
	})
}

func (h *Hub) relay(targetUserID string, payload []byte) {
	envelope, _ := json.Marshal(map[string]interface{}{
		"target_user_id": targetUserID,
		"message":        json.RawMessage(payload),
	})
	h.rdb.Publish(context.Background(), "cluster_events", envelope)
}

func (h *Hub) subscribeToRedis() {
	// All instances subscribe to "cluster_events". When a message arrives,
	// each checks whether the target user has local clients and delivers.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		if payload.TargetUserID == "*" {
			h.mu.RLock()
			var slow []*Client
			for _, clients := range h.clients {
				for _, client := range clients {
					select {
					case client.Send <- payload.Message:
					default:
						slow = append(slow, client)
					}
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.unregister <- client
			}
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[payload.TargetUserID]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					h.unregister <- client
				}
			}
		}
	}
}
