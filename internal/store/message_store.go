package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/breedchat/internal/domain"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append stores a message and bumps its session's message count and
// updated_at. It returns ErrNotFound when the session does not exist.
func (s *MessageStore) Append(ctx context.Context, sessionID, userID, role, message string, imageKey *string) (*domain.ChatMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	msg := &domain.ChatMessage{
		ID:        newID(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Message:   message,
		ImageKey:  imageKey,
		CreatedAt: now(),
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE chat_sessions SET updated_at = ?, message_count = message_count + 1 WHERE id = ?
	`, msg.CreatedAt, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, user_id, role, message, image_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID, msg.UserID, msg.Role, msg.Message, msg.ImageKey, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// ListBySession returns a session's messages, oldest first.
func (s *MessageStore) ListBySession(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error) {
	return s.list(ctx, `WHERE session_id = ?`, sessionID)
}

// ListByUser returns every message a user has in any session, oldest first.
func (s *MessageStore) ListByUser(ctx context.Context, userID string) ([]*domain.ChatMessage, error) {
	return s.list(ctx, `WHERE user_id = ?`, userID)
}

func (s *MessageStore) list(ctx context.Context, where string, arg string) ([]*domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, message, image_key, created_at
		FROM chat_messages `+where+`
		ORDER BY created_at ASC, rowid ASC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer closeRows(rows)

	var msgs []*domain.ChatMessage
	for rows.Next() {
		m := &domain.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role, &m.Message, &m.ImageKey, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return msgs, nil
}
