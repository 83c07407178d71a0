package collab

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const takeoverSaveTimeout = 10 * time.Second

// Hub tracks the single live editor per project. A new connection for a
// project takes over from the previous one.
type Hub struct {
	mu      sync.Mutex
	editors map[string]*Client // projectID -> client
	stopped bool
}

func NewHub() *Hub {
	return &Hub{editors: make(map[string]*Client)}
}

// Register makes client the project's editor and retires any previous one.
// It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	prev := h.editors[client.ProjectID]
	h.editors[client.ProjectID] = client
	h.mu.Unlock()

	if prev != nil && prev != client {
		slog.Info("editor replaced", "project", client.ProjectID, "previous", prev.ClientID, "client", client.ClientID)
		ctx, cancel := context.WithTimeout(context.Background(), takeoverSaveTimeout)
		prev.retire(ctx, TypeSessionReplaced)
		cancel()
	}
	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
	return true
}

// Unregister removes client if it is still the project's editor.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.editors[client.ProjectID] == client {
		delete(h.editors, client.ProjectID)
		slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
	}
}

// Editor returns the live client for a project.
func (h *Hub) Editor(projectID string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.editors[projectID]
	return c, ok
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.editors)
}

// Stop saves every open session once, then closes all editors.
func (h *Hub) Stop(ctx context.Context) {
	h.mu.Lock()
	h.stopped = true
	clients := make([]*Client, 0, len(h.editors))
	for _, c := range h.editors {
		clients = append(clients, c)
	}
	h.editors = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.retire(ctx, TypeServerShutdown)
	}
	slog.Info("hub stopped", "editors", len(clients))
}
