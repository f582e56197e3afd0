package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// DirectoryService resolves a username or stable user id to exactly one
// profile. Uniqueness is only best-effort at write time, so several rows may
// match; the tie-break below picks one deterministically. Lookup errors
// propagate so callers decide their own fallback.
type DirectoryService struct {
	log      *slog.Logger
	profiles domain.ProfileRepository
	presence contracts.PresenceStore
	now      func() time.Time
}

func NewDirectoryService(log *slog.Logger, profiles domain.ProfileRepository, presence contracts.PresenceStore) *DirectoryService {
	return &DirectoryService{
		log:      log,
		profiles: profiles,
		presence: presence,
		now:      time.Now,
	}
}

func (s *DirectoryService) FindByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	if username == "" {
		return nil, domain.ErrUserNotFound
	}
	candidates, err := s.profiles.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.pick(ctx, candidates)
}

func (s *DirectoryService) FindByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	candidates, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.pick(ctx, candidates)
}

// UsernameAvailable reports whether no profile currently holds the name.
func (s *DirectoryService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	candidates, err := s.profiles.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return len(candidates) == 0, nil
}

// pick applies the duplicate tie-break: a genuinely online profile wins;
// among online profiles the most recently seen wins; with no online profile
// the most recently seen offline one wins; absent usable timestamps the
// first row returned by the store stands.
func (s *DirectoryService) pick(ctx context.Context, candidates []domain.Profile) (*domain.Profile, error) {
	if len(candidates) == 0 {
		return nil, domain.ErrUserNotFound
	}
	now := s.now()
	overlaid := make([]domain.Profile, len(candidates))
	for i, c := range candidates {
		overlaid[i] = s.overlay(ctx, c, now)
	}
	if len(overlaid) > 1 {
		s.log.WarnContext(ctx, "directory - pick - duplicate profiles matched", "count", len(overlaid), "user_id", overlaid[0].UserID)
	}
	best := &overlaid[0]
	for i := 1; i < len(overlaid); i++ {
		cur := &overlaid[i]
		if cur.IsOnline && !best.IsOnline {
			best = cur
			continue
		}
		if cur.IsOnline == best.IsOnline && cur.LastSeen.After(best.LastSeen) {
			best = cur
		}
	}
	out := *best
	return &out, nil
}

// overlay replaces the cold presence columns with the hot store's view when
// available; the hot view already encodes the freshness check.
func (s *DirectoryService) overlay(ctx context.Context, p domain.Profile, now time.Time) domain.Profile {
	pr, err := s.presence.Get(ctx, p.SessionID)
	if err != nil {
		// Stale cold columns still need the freshness bound applied.
		p.IsOnline = domain.Presence{
			Online:           p.IsOnline,
			LastOnlineUpdate: p.LastOnlineUpdate,
		}.Fresh(now)
		return p
	}
	p.IsOnline = pr.Fresh(now)
	if !pr.LastSeen.IsZero() {
		p.LastSeen = pr.LastSeen
	}
	if !pr.LastOnlineUpdate.IsZero() {
		p.LastOnlineUpdate = pr.LastOnlineUpdate
	}
	return p
}
