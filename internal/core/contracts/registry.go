package contracts

import (
	"context"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// Registry manages the physical websocket connections grouped by channel and
// bridges persisted events back to the connected clients.
type Registry interface {
	// Register adds a client to its channel and starts the channel's
	// persistence worker if it is the first subscriber.
	Register(c Client)
	// Unregister removes the client and stops the worker with the last one.
	Unregister(c Client)
	// SendAck targets the sender's own connection.
	SendAck(ctx context.Context, sessionID string, ack domain.AckMessage)
	// SendEvent targets one session with an arbitrary envelope (presence,
	// language, error).
	SendEvent(ctx context.Context, sessionID string, event any)
	// Broadcast sends a message to every client in a channel except the
	// sender's session.
	Broadcast(ctx context.Context, chatID string, senderSession string, event any)
}

// Client is the minimal surface the Registry needs from a connection.
type Client interface {
	SessionID() string
	ChatID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
