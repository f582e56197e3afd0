package postgres

import (
	"context"
	"database/sql"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

/*
	CREATE TABLE messages (
		id              UUID PRIMARY KEY,
		chat_id         TEXT NOT NULL REFERENCES chats(id),
		sender_id       TEXT NOT NULL,
		sender_username TEXT NOT NULL,
		original_text   TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		msg_type        TEXT NOT NULL DEFAULT 'text',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX messages_chat_id_created_at_idx ON messages (chat_id, created_at);
*/

func (r *MessageRepo) Insert(ctx context.Context, m *domain.Message) error {
	if m.ChatID == "" {
		return domain.ErrInvalidChatID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO messages (
			id, chat_id, sender_id, sender_username, original_text, translated_text, msg_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		m.ID,
		m.ChatID,
		m.SenderID,
		m.SenderUsername,
		m.OriginalText,
		m.TranslatedText,
		string(m.Type),
		m.CreatedAt,
	)
	return err
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	if chatID == "" {
		return nil, domain.ErrInvalidChatID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, chat_id, sender_id, sender_username, original_text, translated_text, msg_type, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var msgType string
		if err := rows.Scan(
			&m.ID,
			&m.ChatID,
			&m.SenderID,
			&m.SenderUsername,
			&m.OriginalText,
			&m.TranslatedText,
			&msgType,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Type = domain.MessageType(msgType)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) DeleteByChat(ctx context.Context, chatID string) (int64, error) {
	if chatID == "" {
		return 0, domain.ErrInvalidChatID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = $1`, chatID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
