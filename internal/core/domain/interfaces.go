package domain

import (
	"context"
	"time"
)

// ProfileRepository handles the persistent identity rows, keyed by session
// handle. Username and stable-id lookups may return several rows because
// uniqueness is only best-effort; callers disambiguate.
type ProfileRepository interface {
	GetBySession(ctx context.Context, sessionID string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	// UpdateFields applies a partial update; nil fields are left untouched.
	UpdateFields(ctx context.Context, sessionID string, username, language *string) error
	SetPresence(ctx context.Context, sessionID string, online bool, at time.Time) error
	FindByUsername(ctx context.Context, username string) ([]Profile, error)
	FindByUserID(ctx context.Context, userID string) ([]Profile, error)
}

// ChatRepository handles channel metadata lifecycle.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID string) (*Chat, error)
	CreateChat(ctx context.Context, c *Chat) error
	// UpdateSummary refreshes the last-message preview. Returns
	// ErrChatNotFound when no row exists so the caller can create it.
	UpdateSummary(ctx context.Context, chatID, text, senderID string, at time.Time) error
}

// MessageRepository handles persistence of chat entries.
type MessageRepository interface {
	Insert(ctx context.Context, m *Message) error
	// ListByChat returns the full channel history ordered by timestamp asc.
	ListByChat(ctx context.Context, chatID string) ([]Message, error)
	DeleteByChat(ctx context.Context, chatID string) (int64, error)
}
