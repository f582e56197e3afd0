package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

/*
	-- Chats. id is the deterministic channel id derived from the two
	-- stable user ids; participant_a/b hold the session handles that are
	-- authorized on the channel, user_a/b the stable ids for reference.
	CREATE TABLE chats (
		id              TEXT PRIMARY KEY,
		participant_a   TEXT NOT NULL,
		participant_b   TEXT NOT NULL,
		user_a          TEXT NOT NULL,
		user_b          TEXT NOT NULL,
		last_message    TEXT NOT NULL DEFAULT '',
		last_sender_id  TEXT NOT NULL DEFAULT '',
		last_message_at TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	if chatID == "" {
		return nil, domain.ErrInvalidChatID
	}
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, user_a, user_b,
		       last_message, last_sender_id, last_message_at, created_at, updated_at
		FROM chats
		WHERE id = $1
	`, chatID)
	var c domain.Chat
	var pa, pb, ua, ub string
	var lastAt sql.NullTime
	err := row.Scan(&c.ID, &pa, &pb, &ua, &ub, &c.LastMessage, &c.LastSenderID, &lastAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	c.Participants = []string{pa, pb}
	c.UserIDs = []string{ua, ub}
	if lastAt.Valid {
		c.LastMessageAt = lastAt.Time
	}
	return &c, nil
}

func (r *ChatRepo) CreateChat(ctx context.Context, c *domain.Chat) error {
	if c.ID == "" {
		return domain.ErrInvalidChatID
	}
	if len(c.Participants) != 2 || len(c.UserIDs) != 2 {
		return domain.ErrPeerUnresolved
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO chats (id, participant_a, participant_b, user_a, user_b, last_message, last_sender_id, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`,
		c.ID,
		c.Participants[0], c.Participants[1],
		c.UserIDs[0], c.UserIDs[1],
		c.LastMessage, c.LastSenderID,
		nullTime(c.LastMessageAt),
	)
	return err
}

func (r *ChatRepo) UpdateSummary(ctx context.Context, chatID, text, senderID string, at time.Time) error {
	if chatID == "" {
		return domain.ErrInvalidChatID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE chats
		SET last_message = $2, last_sender_id = $3, last_message_at = $4, updated_at = now()
		WHERE id = $1
	`, chatID, text, senderID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
