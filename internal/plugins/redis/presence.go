package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

type RedisPresenceStore struct {
	rdb *redis.Client
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{rdb: rdb}
}

func presenceKey(sessionID string) string {
	return "presence:" + sessionID
}

// Refresh records a heartbeat. The key expires at twice the freshness window
// so an abandoned session does not leak memory; consumers still apply the
// 2-minute freshness check themselves rather than trusting key existence.
func (p *RedisPresenceStore) Refresh(ctx context.Context, sessionID string, now time.Time) error {
	key := presenceKey(sessionID)
	if err := p.rdb.HSet(ctx, key, map[string]any{
		"online":             1,
		"last_seen":          now.UnixMilli(),
		"last_online_update": now.UnixMilli(),
	}).Err(); err != nil {
		return err
	}
	return p.rdb.Expire(ctx, key, 2*domain.PresenceFreshness).Err()
}

func (p *RedisPresenceStore) MarkOffline(ctx context.Context, sessionID string, now time.Time) error {
	key := presenceKey(sessionID)
	if err := p.rdb.HSet(ctx, key, map[string]any{
		"online":    0,
		"last_seen": now.UnixMilli(),
	}).Err(); err != nil {
		return err
	}
	return p.rdb.Expire(ctx, key, 2*domain.PresenceFreshness).Err()
}

// Get returns the presence view; an expired or missing key reads as offline.
func (p *RedisPresenceStore) Get(ctx context.Context, sessionID string) (domain.Presence, error) {
	fields, err := p.rdb.HGetAll(ctx, presenceKey(sessionID)).Result()
	if err != nil {
		return domain.Presence{}, err
	}
	if len(fields) == 0 {
		return domain.Presence{}, nil
	}
	var pr domain.Presence
	pr.Online = fields["online"] == "1"
	if ms, err := strconv.ParseInt(fields["last_seen"], 10, 64); err == nil {
		pr.LastSeen = time.UnixMilli(ms)
	}
	if ms, err := strconv.ParseInt(fields["last_online_update"], 10, 64); err == nil {
		pr.LastOnlineUpdate = time.UnixMilli(ms)
	}
	return pr, nil
}
