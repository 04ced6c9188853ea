package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go-fulfillment-ws/internal/model"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected dashboard session.
type Client struct {
	Conn  Conn
	Actor model.Actor
}

// sees reports whether the client should receive evt. Staff see every
// event; sellers only those addressed to them.
func (c *Client) sees(evt model.Event) bool {
	if len(evt.Recipients) == 0 || c.Actor.Is(model.RoleStaff, model.RoleAdmin) {
		return true
	}
	for _, r := range evt.Recipients {
		if r == c.Actor.ID {
			return true
		}
	}
	return false
}

type outbound struct {
	event   model.Event
	payload []byte
}

type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan outbound
	mutex      sync.Mutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan outbound),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.Clients {
				client.Conn.Close()
				delete(h.Clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.Register:
			h.mutex.Lock()
			h.Clients[client] = true
			h.mutex.Unlock()
			h.log.Info("ws client connected", zap.String("actor_id", client.Actor.ID), zap.String("role", string(client.Actor.Role)))

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Conn.Close()
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.Clients {
				if !client.sees(msg.event) {
					continue
				}
				if err := client.Conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					client.Conn.Close()
					delete(h.Clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish hands evt to the run loop; it gives up when ctx ends.
func (h *Hub) Publish(ctx context.Context, evt model.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{event: evt, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}
