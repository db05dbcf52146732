// Package services provides business logic services
package services

import (
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"
)

// TaskEventSubject returns the NATS subject carrying one user's task events
func TaskEventSubject(userID uint) string {
	return fmt.Sprintf("tasks.events.%d", userID)
}

// BoardHub relays task change events from NATS to WebSocket clients, so every
// open session of a user sees board mutations made by the others.
type BoardHub struct {
	natsConn *nats.Conn

	// WebSocket connections
	clients   map[*BoardClient]bool
	clientsMu sync.RWMutex

	// Per-user event subscriptions (userID -> subscription)
	subscriptions   map[uint]*userSubscription
	subscriptionsMu sync.RWMutex

	register   chan *BoardClient
	unregister chan *BoardClient
}

// userSubscription tracks the NATS subscription feeding one user's sessions
type userSubscription struct {
	userID    uint
	natsSub   *nats.Subscription
	viewers   map[*BoardClient]bool
	viewersMu sync.RWMutex
}

// NewBoardHub creates a new board hub
func NewBoardHub(natsConn *nats.Conn) *BoardHub {
	return &BoardHub{
		natsConn:      natsConn,
		clients:       make(map[*BoardClient]bool),
		subscriptions: make(map[uint]*userSubscription),
		register:      make(chan *BoardClient),
		unregister:    make(chan *BoardClient),
	}
}

// Register adds a client to the hub
func (h *BoardHub) Register(client *BoardClient) {
	h.register <- client
}

// Run starts the hub's main loop
func (h *BoardHub) Run() {
	log.Println("📺 Board hub started")

	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()

			if err := h.subscribe(client); err != nil {
				log.Printf("⚠️ Board subscription failed for user %d: %v", client.userID, err)
			}
			log.Printf("📺 Board client connected: %s (user %d)", client.remoteAddr, client.userID)

		case client := <-h.unregister:
			// Detach from the event stream first; a broadcast in flight
			// must never see a closed send channel
			h.unsubscribe(client)

			h.clientsMu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()

			log.Printf("📺 Board client disconnected: %s", client.remoteAddr)
		}
	}
}

// subscribe attaches a client to its user's event stream, creating the NATS
// subscription when this is the user's first session
func (h *BoardHub) subscribe(client *BoardClient) error {
	h.subscriptionsMu.Lock()
	defer h.subscriptionsMu.Unlock()

	sub, exists := h.subscriptions[client.userID]
	if !exists {
		sub = &userSubscription{
			userID:  client.userID,
			viewers: make(map[*BoardClient]bool),
		}

		userID := client.userID
		natsSub, err := h.natsConn.Subscribe(TaskEventSubject(userID), func(msg *nats.Msg) {
			h.broadcast(userID, msg.Data)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to task events: %w", err)
		}
		sub.natsSub = natsSub
		h.subscriptions[client.userID] = sub
	}

	sub.viewersMu.Lock()
	sub.viewers[client] = true
	sub.viewersMu.Unlock()
	return nil
}

// unsubscribe detaches a client; the NATS subscription is dropped with the
// user's last session
func (h *BoardHub) unsubscribe(client *BoardClient) {
	h.subscriptionsMu.Lock()
	defer h.subscriptionsMu.Unlock()

	sub, exists := h.subscriptions[client.userID]
	if !exists {
		return
	}

	sub.viewersMu.Lock()
	delete(sub.viewers, client)
	viewerCount := len(sub.viewers)
	sub.viewersMu.Unlock()

	if viewerCount == 0 {
		if sub.natsSub != nil {
			sub.natsSub.Unsubscribe()
		}
		delete(h.subscriptions, client.userID)
	}
}

// broadcast relays an event payload to every session of a user
func (h *BoardHub) broadcast(userID uint, data []byte) {
	h.subscriptionsMu.RLock()
	sub, exists := h.subscriptions[userID]
	h.subscriptionsMu.RUnlock()

	if !exists {
		return
	}

	sub.viewersMu.RLock()
	for client := range sub.viewers {
		select {
		case client.send <- data:
		default:
			// Client buffer full, skip event; the client refetches anyway
		}
	}
	sub.viewersMu.RUnlock()
}

// HubStats describes the hub's current load
type HubStats struct {
	Clients       int `json:"clients"`
	Subscriptions int `json:"subscriptions"`
}

// Stats returns hub statistics
func (h *BoardHub) Stats() HubStats {
	h.clientsMu.RLock()
	clientCount := len(h.clients)
	h.clientsMu.RUnlock()

	h.subscriptionsMu.RLock()
	subCount := len(h.subscriptions)
	h.subscriptionsMu.RUnlock()

	return HubStats{
		Clients:       clientCount,
		Subscriptions: subCount,
	}
}
