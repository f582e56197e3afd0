package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

func testPresence(t *testing.T) (*RedisPresenceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPresenceStore(rdb), mr
}

func TestPresenceRefreshAndGet(t *testing.T) {
	ctx := context.Background()
	store, _ := testPresence(t)
	now := time.Now()

	require.NoError(t, store.Refresh(ctx, "sess-a", now))

	pr, err := store.Get(ctx, "sess-a")
	require.NoError(t, err)
	require.True(t, pr.Online)
	require.Equal(t, now.UnixMilli(), pr.LastSeen.UnixMilli())
	require.Equal(t, now.UnixMilli(), pr.LastOnlineUpdate.UnixMilli())
	require.True(t, pr.Fresh(now))
}

func TestPresenceMissingReadsOffline(t *testing.T) {
	store, _ := testPresence(t)

	pr, err := store.Get(context.Background(), "sess-unknown")
	require.NoError(t, err)
	require.False(t, pr.Online)
	require.False(t, pr.Fresh(time.Now()))
}

func TestPresenceMarkOfflineKeepsLastSeen(t *testing.T) {
	ctx := context.Background()
	store, _ := testPresence(t)
	seen := time.Now()

	require.NoError(t, store.Refresh(ctx, "sess-a", seen.Add(-time.Minute)))
	require.NoError(t, store.MarkOffline(ctx, "sess-a", seen))

	pr, err := store.Get(ctx, "sess-a")
	require.NoError(t, err)
	require.False(t, pr.Online)
	require.Equal(t, seen.UnixMilli(), pr.LastSeen.UnixMilli())
	require.False(t, pr.Fresh(seen))
}

func TestPresenceStaleHeartbeatNotFresh(t *testing.T) {
	ctx := context.Background()
	store, _ := testPresence(t)
	then := time.Now()

	require.NoError(t, store.Refresh(ctx, "sess-a", then))

	pr, err := store.Get(ctx, "sess-a")
	require.NoError(t, err)
	require.True(t, pr.Online)
	// The online flag stops counting once the heartbeat ages past the
	// freshness window.
	require.False(t, pr.Fresh(then.Add(domain.PresenceFreshness+time.Second)))
}

func TestPresenceKeyExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := testPresence(t)

	require.NoError(t, store.Refresh(ctx, "sess-a", time.Now()))
	mr.FastForward(2*domain.PresenceFreshness + time.Second)

	pr, err := store.Get(ctx, "sess-a")
	require.NoError(t, err)
	require.False(t, pr.Online)
}
