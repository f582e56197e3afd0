package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/smakam/globtranslate-claude/internal/core/domain"
)

type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

/*
	-- Profiles, keyed by session handle. user_id and username are NOT
	-- unique on purpose: duplicates from multi-device onboarding are
	-- resolved at read time by the directory service.
	CREATE TABLE profiles (
		session_id          TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		username            TEXT NOT NULL DEFAULT '',
		language            TEXT NOT NULL DEFAULT 'en',
		is_online           BOOLEAN NOT NULL DEFAULT false,
		last_seen           TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_online_update  TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX profiles_user_id_idx ON profiles (user_id);
	CREATE INDEX profiles_username_idx ON profiles (username);
*/

const profileColumns = `session_id, user_id, username, language, is_online, last_seen, last_online_update, created_at`

func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.SessionID,
		&p.UserID,
		&p.Username,
		&p.Language,
		&p.IsOnline,
		&p.LastSeen,
		&p.LastOnlineUpdate,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Profile, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidSessionID
	}
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE session_id = $1
	`, sessionID)
	p, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	if p.SessionID == "" {
		return domain.ErrInvalidSessionID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO profiles (
			session_id, user_id, username, language, is_online, last_seen, last_online_update
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING
	`,
		p.SessionID,
		p.UserID,
		p.Username,
		p.Language,
		p.IsOnline,
		p.LastSeen,
		p.LastOnlineUpdate,
	)
	return err
}

func (r *ProfileRepo) UpdateFields(ctx context.Context, sessionID string, username, language *string) error {
	if sessionID == "" {
		return domain.ErrInvalidSessionID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE profiles
		SET username = COALESCE($2, username),
		    language = COALESCE($3, language)
		WHERE session_id = $1
	`, sessionID, username, language)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *ProfileRepo) SetPresence(ctx context.Context, sessionID string, online bool, at time.Time) error {
	if sessionID == "" {
		return domain.ErrInvalidSessionID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE profiles
		SET is_online = $2, last_seen = $3, last_online_update = $3
		WHERE session_id = $1
	`, sessionID, online, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// FindByUsername is a case-sensitive exact match. More than one row can come
// back; ordering here is stable so the read-time tie-break is deterministic.
func (r *ProfileRepo) FindByUsername(ctx context.Context, username string) ([]domain.Profile, error) {
	return r.findBy(ctx, `username`, username)
}

func (r *ProfileRepo) FindByUserID(ctx context.Context, userID string) ([]domain.Profile, error) {
	return r.findBy(ctx, `user_id`, userID)
}

func (r *ProfileRepo) findBy(ctx context.Context, column, value string) ([]domain.Profile, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE `+column+` = $1
		ORDER BY created_at ASC, session_id ASC
	`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
