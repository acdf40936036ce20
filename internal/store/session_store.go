package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/breedchat/internal/domain"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create adds an active session for userID and deactivates the user's
// other sessions.
func (s *SessionStore) Create(ctx context.Context, userID, name string) (*domain.ChatSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_sessions SET is_active = 0 WHERE user_id = ? AND is_active = 1
	`, userID); err != nil {
		return nil, fmt.Errorf("failed to deactivate sessions: %w", err)
	}

	sess := &domain.ChatSession{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		IsActive:  true,
		CreatedAt: now(),
	}
	sess.UpdatedAt = sess.CreatedAt
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, session_name, is_active, message_count, created_at, updated_at)
		VALUES (?, ?, ?, 1, 0, ?, ?)
	`, sess.ID, sess.UserID, sess.Name, sess.CreatedAt, sess.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) GetByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	sess := &domain.ChatSession{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_name, is_active, message_count, created_at, updated_at
		FROM chat_sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.UserID, &sess.Name, &sess.IsActive, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListByUser returns the user's sessions, most recently updated first, each
// with a preview of its latest message.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.user_id, s.session_name, s.is_active, s.message_count, s.created_at, s.updated_at,
			COALESCE((
				SELECT m.message FROM chat_messages m
				WHERE m.session_id = s.id
				ORDER BY m.created_at DESC, m.rowid DESC LIMIT 1
			), '')
		FROM chat_sessions s
		WHERE s.user_id = ?
		ORDER BY s.updated_at DESC, s.rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer closeRows(rows)

	var sessions []*domain.ChatSession
	for rows.Next() {
		sess := &domain.ChatSession{}
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Name, &sess.IsActive, &sess.MessageCount,
			&sess.CreatedAt, &sess.UpdatedAt, &sess.LastMessage); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionStore) Rename(ctx context.Context, id, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET session_name = ?, updated_at = ? WHERE id = ?
	`, name, now(), id)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a session and its messages.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}
	return tx.Commit()
}

// SetActive makes id the user's only active session.
func (s *SessionStore) SetActive(ctx context.Context, id, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_sessions SET is_active = 0 WHERE user_id = ? AND is_active = 1
	`, userID); err != nil {
		return fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE chat_sessions SET is_active = 1 WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to activate session: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}
	return tx.Commit()
}
