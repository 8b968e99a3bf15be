package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// Hub maintains the set of active clients and delivers envelopes coming from
// the broker to the ones they target.
type Hub struct {
	broker Broker
	logger logging.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub(broker Broker, logger logging.Logger) *Hub {
	return &Hub{
		broker:  broker,
		logger:  logger.With("module", "realtime"),
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Run consumes the broker until ctx is cancelled. Every client still
// connected at that point is disconnected.
func (h *Hub) Run(ctx context.Context) error {
	envs, err := h.broker.Subscribe(ctx)
	if err != nil {
		return err
	}

	h.logger.Info(ctx, "realtime hub started")
	for env := range envs {
		h.deliver(env)
	}

	h.mu.Lock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	h.logger.Info(context.Background(), "realtime hub stopped")
	return nil
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes c and closes its send channel. Safe to call for a
// client the hub already dropped.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Online reports whether the user has a connection on this instance.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUsers publishes ev for the given users through the broker.
func (h *Hub) SendToUsers(ctx context.Context, ev Event, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return h.publish(ctx, ev, userIDs)
}

// Broadcast publishes ev for every connected client.
func (h *Hub) Broadcast(ctx context.Context, ev Event) error {
	return h.publish(ctx, ev, nil)
}

func (h *Hub) publish(ctx context.Context, ev Event, userIDs []string) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.broker.Publish(ctx, Envelope{UserIDs: userIDs, Data: data})
}

func (h *Hub) deliver(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets []*Client
	if len(env.UserIDs) == 0 {
		for _, set := range h.clients {
			for c := range set {
				targets = append(targets, c)
			}
		}
	} else {
		seen := make(map[string]bool, len(env.UserIDs))
		for _, id := range env.UserIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			for c := range h.clients[id] {
				targets = append(targets, c)
			}
		}
	}

	for _, c := range targets {
		select {
		case c.send <- env.Data:
		default:
			// slow consumer: drop it, the client reconnects
			h.removeLocked(c)
		}
	}
}
