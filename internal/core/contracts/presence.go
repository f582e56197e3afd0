package contracts

import (
	"context"
	"time"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// PresenceStore keeps the hot per-session heartbeat state. Redis is the
// authority for freshness; Postgres only carries the cold copy.
type PresenceStore interface {
	// Refresh records a heartbeat: online flag set, lastSeen and
	// lastOnlineUpdate moved to now. Entries expire on their own if the
	// heartbeat stops.
	Refresh(ctx context.Context, sessionID string, now time.Time) error
	// MarkOffline is the best-effort teardown signal.
	MarkOffline(ctx context.Context, sessionID string, now time.Time) error
	// Get returns the current presence view; a missing entry reads as
	// offline, not as an error.
	Get(ctx context.Context, sessionID string) (domain.Presence, error)
}
