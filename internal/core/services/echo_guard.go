package services

import (
	"sync"
	"time"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// EchoGuard suppresses the authoritative readback of a session's own recent
// write. After a local profile mutation the fresh value is noted here; a read
// arriving within the cooldown window serves the noted copy instead of the
// store, so a slow remote echo cannot resurrect a superseded value.
type EchoGuard struct {
	mu       sync.Mutex
	cooldown time.Duration
	entries  map[string]guardEntry
}

type guardEntry struct {
	profile domain.Profile
	until   time.Time
}

func NewEchoGuard(cooldown time.Duration) *EchoGuard {
	return &EchoGuard{
		cooldown: cooldown,
		entries:  make(map[string]guardEntry),
	}
}

// Note records a self-mutation for the session.
func (g *EchoGuard) Note(sessionID string, p domain.Profile) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[sessionID] = guardEntry{profile: p, until: time.Now().Add(g.cooldown)}
}

// Fresh returns the noted profile while the cooldown is still running.
// Expired entries are dropped on access.
func (g *EchoGuard) Fresh(sessionID string, now time.Time) (domain.Profile, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[sessionID]
	if !ok {
		return domain.Profile{}, false
	}
	if now.After(e.until) {
		delete(g.entries, sessionID)
		return domain.Profile{}, false
	}
	return e.profile, true
}
