package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smakam/globtranslate-claude/internal/core/contracts"
	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

const (
	heartbeatInterval = 30 * time.Second
	coldSyncInterval  = 2 * time.Minute
	echoCooldown      = 2 * time.Second
)

// IdentityService owns the local identity lifecycle: anonymous sign-in,
// profile mutation, heartbeat and sign-out.
type IdentityService struct {
	log       *slog.Logger
	profiles  domain.ProfileRepository
	presence  contracts.PresenceStore
	directory *DirectoryService
	tx        contracts.TxRunner
	guard     *EchoGuard
}

func NewIdentityService(
	log *slog.Logger,
	profiles domain.ProfileRepository,
	presence contracts.PresenceStore,
	directory *DirectoryService,
	tx contracts.TxRunner,
) *IdentityService {
	return &IdentityService{
		log:       log,
		profiles:  profiles,
		presence:  presence,
		directory: directory,
		tx:        tx,
		guard:     NewEchoGuard(echoCooldown),
	}
}

// SignInAnonymous establishes or resumes an anonymous session. An empty
// sessionID mints a fresh handle. A profile-fetch failure during resume is
// treated as "no profile yet", not as fatal: a profile is created, and the
// ON CONFLICT guard in the repository keeps an existing row intact.
func (s *IdentityService) SignInAnonymous(ctx context.Context, sessionID string) (*domain.Session, error) {
	isNew := false
	if sessionID == "" {
		sessionID = uuid.NewString()
		isNew = true
	}
	profile, err := s.profiles.GetBySession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.ErrorContext(ctx, "identity - sign in - profile fetch failed, treating as new", "session_id", sessionID, "err", err)
		}
		profile = domain.NewProfile(sessionID)
		if err := s.profiles.Create(ctx, profile); err != nil {
			s.log.ErrorContext(ctx, "identity - sign in - create profile failed", "session_id", sessionID, "err", err)
			return nil, err
		}
		// Create is a no-op when the row already exists; re-read so a
		// resumed session keeps its original stable id.
		if existing, err := s.profiles.GetBySession(ctx, sessionID); err == nil {
			profile = existing
			isNew = false
		} else {
			isNew = true
		}
	}
	if err := s.presence.Refresh(ctx, sessionID, time.Now()); err != nil {
		s.log.ErrorContext(ctx, "identity - sign in - presence refresh failed", "session_id", sessionID, "err", err)
	}
	s.log.InfoContext(ctx, "identity - sign in - session established", "session_id", sessionID, "user_id", profile.UserID, "is_new", isNew)
	return &domain.Session{
		SessionID: sessionID,
		UserID:    profile.UserID,
		Username:  profile.Username,
		Language:  profile.Language,
		IsNew:     isNew,
	}, nil
}

// CurrentProfile returns the caller's profile. A readback inside the echo
// cooldown serves the locally noted copy so a slow remote echo cannot win
// over a fresher self-mutation.
func (s *IdentityService) CurrentProfile(ctx context.Context, sessionID string) (*domain.Profile, error) {
	if p, ok := s.guard.Fresh(sessionID, time.Now()); ok {
		return &p, nil
	}
	return s.profiles.GetBySession(ctx, sessionID)
}

// UpdateUsername applies the new handle. Collisions with another identity
// are rejected rather than silently re-authenticating as the existing one.
func (s *IdentityService) UpdateUsername(ctx context.Context, sessionID, username string) (*domain.Profile, error) {
	profile, err := s.profiles.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if username != profile.Username {
		owner, err := s.directory.FindByUsername(ctx, username)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		if owner != nil && owner.UserID != profile.UserID {
			s.log.WarnContext(ctx, "identity - update username - name taken", "session_id", sessionID, "username", username)
			return nil, domain.ErrUsernameTaken
		}
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		return s.profiles.UpdateFields(txCtx, sessionID, &username, nil)
	}); err != nil {
		s.log.ErrorContext(ctx, "identity - update username - update failed", "session_id", sessionID, "err", err)
		return nil, err
	}
	profile.Username = username
	s.guard.Note(sessionID, *profile)
	s.log.InfoContext(ctx, "identity - update username - success", "session_id", sessionID, "username", username)
	return profile, nil
}

func (s *IdentityService) UpdateLanguage(ctx context.Context, sessionID, language string) (*domain.Profile, error) {
	profile, err := s.profiles.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		return s.profiles.UpdateFields(txCtx, sessionID, nil, &language)
	}); err != nil {
		s.log.ErrorContext(ctx, "identity - update language - update failed", "session_id", sessionID, "err", err)
		return nil, err
	}
	profile.Language = language
	s.guard.Note(sessionID, *profile)
	s.log.InfoContext(ctx, "identity - update language - success", "session_id", sessionID, "language", language)
	return profile, nil
}

// Heartbeat records one presence refresh in the hot store. Failures are
// logged and skipped; the next scheduled tick tries again.
func (s *IdentityService) Heartbeat(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrInvalidSessionID
	}
	if err := s.presence.Refresh(ctx, sessionID, time.Now()); err != nil {
		s.log.ErrorContext(ctx, "identity - heartbeat - refresh failed", "session_id", sessionID, "err", err)
		return err
	}
	return nil
}

// RunHeartbeat emits a presence refresh immediately and then on a fixed
// interval for the lifetime of ctx, with a slower cold sync down to the
// profile row for offline readers.
func (s *IdentityService) RunHeartbeat(ctx context.Context, sessionID string) {
	_ = s.Heartbeat(ctx, sessionID)
	hot := time.NewTicker(heartbeatInterval)
	defer hot.Stop()
	cold := time.NewTicker(coldSyncInterval)
	defer cold.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("identity - run heartbeat - stopped", "session_id", sessionID)
			return
		case <-hot.C:
			_ = s.Heartbeat(ctx, sessionID)
		case <-cold.C:
			if err := s.profiles.SetPresence(ctx, sessionID, true, time.Now()); err != nil {
				s.log.ErrorContext(ctx, "identity - run heartbeat - cold sync failed", "session_id", sessionID, "err", err)
			}
		}
	}
}

// SignOut marks presence offline first, best-effort, then the session token
// simply stops being used; nothing is revoked server-side.
func (s *IdentityService) SignOut(ctx context.Context, sessionID string) error {
	now := time.Now()
	if err := s.presence.MarkOffline(ctx, sessionID, now); err != nil {
		s.log.ErrorContext(ctx, "identity - sign out - hot mark offline failed", "session_id", sessionID, "err", err)
	}
	if err := s.profiles.SetPresence(ctx, sessionID, false, now); err != nil {
		s.log.ErrorContext(ctx, "identity - sign out - cold mark offline failed", "session_id", sessionID, "err", err)
		return err
	}
	s.log.InfoContext(ctx, "identity - sign out - success", "session_id", sessionID)
	return nil
}
