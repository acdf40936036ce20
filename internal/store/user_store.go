package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/breedchat/internal/domain"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Sync records a sign-in from the identity provider. A new email creates a
// user; a known email gets its supabase id and last login refreshed.
func (s *UserStore) Sync(ctx context.Context, email, supabaseID string) (created bool, err error) {
	ts := now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET supabase_id = ?, last_login = ? WHERE email = ?
	`, supabaseID, ts, email)
	if err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, supabase_id, role, created_at, last_login)
		VALUES (?, ?, ?, 'user', ?, ?)
		ON CONFLICT(email) DO UPDATE SET supabase_id = excluded.supabase_id, last_login = excluded.last_login
	`, newID(), email, supabaseID, ts, ts)
	if err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return true, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, supabase_id, role, created_at, last_login FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.SupabaseID, &u.Role, &u.CreatedAt, &u.LastLogin)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
