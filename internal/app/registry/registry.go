package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// Registry tracks live websocket clients per channel and runs one
// persistence worker per channel while it has subscribers.
type Registry struct {
	mu        sync.RWMutex
	clients   map[string]contracts.Client // session_id → client
	chatHub   map[string]map[string]contracts.Client
	workers   map[string]context.CancelFunc
	runWorker func(ctx context.Context, chatID string) error
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]contracts.Client),
		chatHub: make(map[string]map[string]contracts.Client),
		workers: make(map[string]context.CancelFunc),
	}
}

func (h *Registry) RunWorker(runWorker func(ctx context.Context, chatID string) error) {
	h.runWorker = runWorker
}

func (h *Registry) Register(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	chatID := c.ChatID()
	sessionID := c.SessionID()
	if h.chatHub[chatID] == nil {
		h.chatHub[chatID] = make(map[string]contracts.Client)
		if h.runWorker != nil {
			ctx, cancel := context.WithCancel(context.Background())
			h.workers[chatID] = cancel
			go h.runWorker(ctx, chatID)
		}
	}
	h.chatHub[chatID][sessionID] = c
	h.clients[sessionID] = c
}

func (h *Registry) Unregister(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	chatID := c.ChatID()
	sessionID := c.SessionID()
	delete(h.chatHub[chatID], sessionID)
	delete(h.clients, sessionID)
	if len(h.chatHub[chatID]) == 0 {
		delete(h.chatHub, chatID)
		if cancel := h.workers[chatID]; cancel != nil {
			cancel()
			delete(h.workers, chatID)
		}
	}
}

func (h *Registry) SendAck(ctx context.Context, sessionID string, ack domain.AckMessage) {
	h.SendEvent(ctx, sessionID, ack)
}

func (h *Registry) SendEvent(ctx context.Context, sessionID string, event any) {
	h.mu.RLock()
	c := h.clients[sessionID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	data, _ := json.Marshal(event)
	_ = c.Send(ctx, data)
}

// Broadcast sends to every client in the channel except the sender's own
// session; an empty senderSession reaches everyone.
func (h *Registry) Broadcast(ctx context.Context, chatID string, senderSession string, event any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, _ := json.Marshal(event)
	for sid, c := range h.chatHub[chatID] {
		if senderSession != "" && sid == senderSession {
			continue
		}
		_ = c.Send(ctx, data)
	}
}
