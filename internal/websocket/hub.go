package websocket

import (
	"encoding/json"
	"log/slog"

	"taskhub/internal/event"
	"taskhub/internal/model"
)

// Hub fans bus events out to connected clients. Notification events are
// routed only to the addressed user; everything else is broadcast.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	bus event.Bus
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		bus:        bus,
	}
}

func (h *Hub) Run() {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case e := <-events:
			message, err := json.Marshal(e)
			if err != nil {
				slog.Error("failed to marshal event", "error", err)
				continue
			}

			targetUserID := notificationTarget(e)
			for client := range h.clients {
				if targetUserID != "" && client.userID != targetUserID {
					continue
				}
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func notificationTarget(e event.Event) string {
	if e.Type != event.TypeNotificationCreated {
		return ""
	}
	if n, ok := e.Payload.(model.Notification); ok {
		return n.UserID
	}
	return ""
}
