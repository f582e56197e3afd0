package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

func profileRow(sessionID, userID, username string, online bool, lastSeen time.Time) domain.Profile {
	return domain.Profile{
		SessionID:        sessionID,
		UserID:           userID,
		Username:         username,
		Language:         "en",
		IsOnline:         online,
		LastSeen:         lastSeen,
		LastOnlineUpdate: lastSeen,
	}
}

func TestDirectoryNotFound(t *testing.T) {
	svc := NewDirectoryService(testLogger(), newFakeProfiles(), newFakePresence())

	_, err := svc.FindByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.FindByUsername(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDirectoryOnlineDuplicateWins(t *testing.T) {
	now := time.Now()
	profiles := newFakeProfiles(
		profileRow("sess-a", "user_1_aaa", "alice", false, now.Add(-time.Hour)),
		profileRow("sess-b", "user_2_bbb", "alice", false, now.Add(-time.Minute)),
	)
	presence := newFakePresence()
	require.NoError(t, presence.Refresh(context.Background(), "sess-a", now))

	svc := NewDirectoryService(testLogger(), profiles, presence)
	p, err := svc.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "sess-a", p.SessionID)
	require.True(t, p.IsOnline)
}

func TestDirectoryMostRecentOfflineWins(t *testing.T) {
	now := time.Now()
	profiles := newFakeProfiles(
		profileRow("sess-a", "user_1_aaa", "bob", false, now.Add(-2*time.Hour)),
		profileRow("sess-b", "user_2_bbb", "bob", false, now.Add(-time.Minute)),
	)
	svc := NewDirectoryService(testLogger(), profiles, newFakePresence())

	p, err := svc.FindByUsername(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, "sess-b", p.SessionID)
	require.False(t, p.IsOnline)
}

func TestDirectoryStalePresenceReadsOffline(t *testing.T) {
	now := time.Now()
	// Cold columns claim online, but the last heartbeat is older than the
	// freshness window.
	profiles := newFakeProfiles(
		profileRow("sess-a", "user_1_aaa", "carol", true, now.Add(-10*time.Minute)),
	)
	presence := newFakePresence()
	presence.getErr = errors.New("redis down")

	svc := NewDirectoryService(testLogger(), profiles, presence)
	p, err := svc.FindByUserID(context.Background(), "user_1_aaa")
	require.NoError(t, err)
	require.False(t, p.IsOnline)
}

func TestDirectoryHotPresenceOverridesColdColumns(t *testing.T) {
	now := time.Now()
	profiles := newFakeProfiles(
		profileRow("sess-a", "user_1_aaa", "dave", false, now.Add(-time.Hour)),
	)
	presence := newFakePresence()
	require.NoError(t, presence.Refresh(context.Background(), "sess-a", now))

	svc := NewDirectoryService(testLogger(), profiles, presence)
	p, err := svc.FindByUserID(context.Background(), "user_1_aaa")
	require.NoError(t, err)
	require.True(t, p.IsOnline)
	require.WithinDuration(t, now, p.LastSeen, time.Second)
}

func TestUsernameAvailable(t *testing.T) {
	profiles := newFakeProfiles(
		profileRow("sess-a", "user_1_aaa", "taken", false, time.Now()),
	)
	svc := NewDirectoryService(testLogger(), profiles, newFakePresence())

	ok, err := svc.UsernameAvailable(context.Background(), "taken")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.UsernameAvailable(context.Background(), "free")
	require.NoError(t, err)
	require.True(t, ok)
}
