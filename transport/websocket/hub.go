package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientTooSlow  = errors.New("client send buffer is full")
)

// Hub indexes live clients by connection id and delivers outbound messages to
// them without blocking.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[string]*client),
	}
}

// Send queues a message for one connection. A client whose queue is full is
// disconnected.
func (that *Hub) Send(connID, action string, payload any) error {
	that.mu.RLock()
	c, ok := that.clients[connID]
	that.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, connID)
	}

	data, err := encodeMessage(action, payload)
	if err != nil {
		return err
	}

	if !c.enqueue(data) {
		that.logger.Warn("dropping slow client", "connID", connID, "action", action)
		that.unregister(c)

		return fmt.Errorf("%w: %s", ErrClientTooSlow, connID)
	}

	return nil
}

func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.clients)
}

// Close disconnects every client.
func (that *Hub) Close() {
	that.mu.Lock()
	clients := that.clients
	that.clients = make(map[string]*client)
	that.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (that *Hub) register(c *client) {
	that.mu.Lock()
	that.clients[c.connID] = c
	that.mu.Unlock()

	that.logger.Debug("client registered", "connID", c.connID)
}

func (that *Hub) unregister(c *client) {
	that.mu.Lock()
	if that.clients[c.connID] == c {
		delete(that.clients, c.connID)
	}
	that.mu.Unlock()

	c.close()
}
