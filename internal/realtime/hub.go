package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/apex/log"
)

// Client represents a single websocket client connection.
// The network conn itself is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event types pushed to clients after writes.
const (
	StudySessionCreated = "study_session_created"
	StudySessionUpdated = "study_session_updated"
	StudySessionDeleted = "study_session_deleted"
	HabitLogged         = "habit_logged"
	HabitLogDeleted     = "habit_log_deleted"
	GoalChanged         = "goal_changed"
	GroupChanged        = "group_changed"
)

// Event is the JSON payload sent to a user's connections.
type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	EntityID uint      `json:"entityId,omitempty"`
	At       time.Time `json:"at"`
	Version  int       `json:"version"`
}

// Hub maintains active user connections and broadcasts events to them.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[string]map[Client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		userIDToClients: make(map[string]map[Client]struct{}),
	}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Connections returns how many clients a user has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userIDToClients[userID])
}

// Broadcast sends a message to all clients of a user and returns how many
// accepted it. Failed clients are cleaned up by their handler. Sends happen
// outside the lock so a slow client never stalls Register or Unregister.
func (h *Hub) Broadcast(userID string, message []byte) int {
	h.mu.RLock()
	clients := make([]Client, 0, len(h.userIDToClients[userID]))
	for c := range h.userIDToClients[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// Publish encodes an event of the given type and broadcasts it to userID.
func (h *Hub) Publish(userID, eventType string, entityID uint) {
	evt := Event{
		Type:     eventType,
		UserID:   userID,
		EntityID: entityID,
		At:       time.Now().UTC(),
		Version:  1,
	}
	bytes, err := json.Marshal(evt)
	if err != nil {
		log.WithError(err).Warn("encode realtime event")
		return
	}
	h.Broadcast(userID, bytes)
}
