package websocket

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/vidshare/vidshare_server/internal/upload"
)

const deliveryBufferSize = 256

// Hub fans messages out to every connection of a user.
type Hub struct {
	clients map[*Client]bool
	byUser  map[string][]*Client

	register   chan *Client
	unregister chan *Client
	deliver    chan *delivery
	stats      chan chan [2]int
	stopped    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *delivery, deliveryBufferSize),
		stats:      make(chan chan [2]int),
		stopped:    make(chan struct{}),
	}
}

// Run owns the client maps until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.deliver:
			h.deliverToUser(d)

		case reply := <-h.stats:
			reply <- [2]int{len(h.clients), len(h.byUser)}

		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			log.Info().Msg("[WS] Hub stopped")
			return nil
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.byUser[client.user.ID] = append(h.byUser[client.user.ID], client)

	log.Info().
		Str("userId", client.user.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	userClients := h.byUser[client.user.ID]
	for i, c := range userClients {
		if c == client {
			h.byUser[client.user.ID] = append(userClients[:i], userClients[i+1:]...)
			break
		}
	}
	if len(h.byUser[client.user.ID]) == 0 {
		delete(h.byUser, client.user.ID)
	}

	log.Info().
		Str("userId", client.user.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client unregistered")
}

func (h *Hub) deliverToUser(d *delivery) {
	for _, client := range h.byUser[d.userID] {
		select {
		case client.send <- d.message:
		default:
			log.Warn().
				Str("userId", d.userID).
				Msg("[WS] Client send buffer full, dropping message")
		}
	}
}

// Register reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// NotifySubmission pushes a submission status change to all of the user's connections.
// It never blocks the submission; updates are dropped when the hub is saturated.
func (h *Hub) NotifySubmission(userID string, update upload.SubmissionUpdate) {
	d := &delivery{
		userID: userID,
		message: &SubmissionMessage{
			Type:       MessageTypeSubmission,
			Submission: update,
		},
	}
	select {
	case h.deliver <- d:
	default:
		log.Warn().Str("userId", userID).Msg("[WS] Delivery queue full, dropping submission update")
	}
}

func (h *Hub) GetStats() (totalClients, totalUsers int) {
	reply := make(chan [2]int, 1)
	select {
	case h.stats <- reply:
		counts := <-reply
		return counts[0], counts[1]
	case <-h.stopped:
		return 0, 0
	}
}
