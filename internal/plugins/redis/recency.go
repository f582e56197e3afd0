package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

// RedisRecencyStore backs the per-user cache layer: recent contacts, the
// per-channel history cache and the theme preference. Everything here is
// reconstructible, so losing a key is never a correctness problem.
type RedisRecencyStore struct {
	rdb *redis.Client
}

func NewRedisRecencyStore(rdb *redis.Client) *RedisRecencyStore {
	return &RedisRecencyStore{rdb: rdb}
}

const historyCap = 200

func recentKey(ownerID string) string { return "recent:" + ownerID }
func historyKey(chatID string) string { return "history:" + chatID }
func themeKey(ownerID string) string  { return "theme:" + ownerID }

func (s *RedisRecencyStore) RecentContacts(ctx context.Context, ownerID string) ([]domain.Friend, error) {
	raw, err := s.rdb.LRange(ctx, recentKey(ownerID), 0, int64(domain.RecentContactsCap-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Friend, 0, len(raw))
	for _, item := range raw {
		var f domain.Friend
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// AddRecentContact removes any entry with the same contact id, pushes the new
// bookmark to the front and trims beyond the cap. LREM needs the exact stored
// bytes, so stale entries for the same id are dropped by re-listing instead.
func (s *RedisRecencyStore) AddRecentContact(ctx context.Context, ownerID string, f domain.Friend) error {
	key := recentKey(ownerID)
	existing, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, item := range existing {
		var prev domain.Friend
		if json.Unmarshal([]byte(item), &prev) == nil && prev.ID == f.ID {
			pipe.LRem(ctx, key, 0, item)
		}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(domain.RecentContactsCap-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRecencyStore) History(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	raw, err := s.rdb.LRange(ctx, historyKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisRecencyStore) AppendHistory(ctx context.Context, chatID string, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := historyKey(chatID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -int64(historyCap), -1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRecencyStore) ClearHistory(ctx context.Context, chatID string) error {
	return s.rdb.Del(ctx, historyKey(chatID)).Err()
}

func (s *RedisRecencyStore) Theme(ctx context.Context, ownerID string) (string, error) {
	theme, err := s.rdb.Get(ctx, themeKey(ownerID)).Result()
	if err == redis.Nil {
		return "light", nil
	}
	if err != nil {
		return "", err
	}
	if theme != "dark" {
		theme = "light"
	}
	return theme, nil
}

func (s *RedisRecencyStore) SetTheme(ctx context.Context, ownerID, theme string) error {
	if theme != "dark" {
		theme = "light"
	}
	return s.rdb.Set(ctx, themeKey(ownerID), theme, 0).Err()
}
