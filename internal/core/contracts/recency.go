package contracts

import (
	"context"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// RecencyStore is the per-user cache layer: recent contacts, per-channel
// message history for instant display, and the theme preference. It is a
// cache, never the source of truth for messages.
type RecencyStore interface {
	// RecentContacts returns up to 5 bookmarks, most recent first.
	RecentContacts(ctx context.Context, ownerID string) ([]domain.Friend, error)
	// AddRecentContact dedups by contact id, moves it to the front and
	// evicts beyond the cap.
	AddRecentContact(ctx context.Context, ownerID string, f domain.Friend) error

	History(ctx context.Context, chatID string) ([]domain.ChatMessage, error)
	AppendHistory(ctx context.Context, chatID string, msg domain.ChatMessage) error
	ClearHistory(ctx context.Context, chatID string) error

	Theme(ctx context.Context, ownerID string) (string, error)
	SetTheme(ctx context.Context, ownerID, theme string) error
}
