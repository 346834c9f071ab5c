package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"buttonrace/internal/events"
)

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type        string    `json:"type"`
	ButtonIndex int       `json:"button_index,omitempty"`
	RoundID     uuid.UUID `json:"round_id,omitempty"`
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Client represents a single WebSocket connection in the hub. A player
// with two tabs open is two clients with the same PlayerID.
type Client struct {
	ID       string
	PlayerID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub manages WebSocket connections and fans round events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub and announces the player to everyone else.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.broadcastExcept(c.ID, ServerMessage{
		Type:    "player_connected",
		Payload: map[string]string{"player_id": c.PlayerID.String()},
	})
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		close(c.Send)
		delete(h.clients, clientID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all clients. Non-blocking: drops if channel full.
func (h *Hub) Broadcast(msg ServerMessage) {
	h.broadcastExcept("", msg)
}

func (h *Hub) broadcastExcept(senderID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("failed to marshal hub message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		if id == senderID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}

func (h *Hub) PublishRoundStarted(e events.RoundStarted) {
	h.Broadcast(ServerMessage{Type: "round_started", Payload: e})
}

func (h *Hub) PublishRankingUpdated(e events.RankingUpdated) {
	h.Broadcast(ServerMessage{Type: "ranking_updated", Payload: e})
}

func (h *Hub) PublishWinnerConfirmed(e events.WinnerConfirmed) {
	h.Broadcast(ServerMessage{Type: "winner_confirmed", Payload: e})
}
