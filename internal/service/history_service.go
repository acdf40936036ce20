package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vbonduro/breedchat/internal/domain"
	"github.com/vbonduro/breedchat/internal/imagestore"
	"github.com/vbonduro/breedchat/internal/store"
)

// DefaultSessionName is used when a session is created without a name.
const DefaultSessionName = "New Chat"

// sessionRepository is the subset of store.SessionStore that HistoryService requires.
type sessionRepository interface {
	Create(ctx context.Context, userID, name string) (*domain.ChatSession, error)
	GetByID(ctx context.Context, id string) (*domain.ChatSession, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.ChatSession, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id, userID string) error
}

// messageRepository is the subset of store.MessageStore that HistoryService requires.
type messageRepository interface {
	Append(ctx context.Context, sessionID, userID, role, message string, imageKey *string) (*domain.ChatMessage, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.ChatMessage, error)
}

// Attachment is an image sent along with a chat message.
type Attachment struct {
	MIMEType string
	Data     []byte
}

type HistoryService struct {
	sessions sessionRepository
	messages messageRepository
	images   imagestore.ImageStore
	logger   *slog.Logger
}

func NewHistoryService(
	sessions sessionRepository,
	messages messageRepository,
	images imagestore.ImageStore,
	logger *slog.Logger,
) *HistoryService {
	return &HistoryService{
		sessions: sessions,
		messages: messages,
		images:   images,
		logger:   logger,
	}
}

// CreateSession starts a new active session for the user.
func (s *HistoryService) CreateSession(ctx context.Context, userID, name string) (*domain.ChatSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalid)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultSessionName
	}
	sess, err := s.sessions.Create(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("chat session created", "session_id", sess.ID, "user_id", userID)
	return sess, nil
}

// GetSession returns the session or ErrNotFound.
func (s *HistoryService) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *HistoryService) ListSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// SessionMessages returns a session's messages oldest first.
func (s *HistoryService) SessionMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(ctx, sessionID)
}

func (s *HistoryService) RenameSession(ctx context.Context, id, name string) (*domain.ChatSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: session_name is required", ErrInvalid)
	}
	if err := s.sessions.Rename(ctx, id, name); err != nil {
		return nil, mapStoreErr("failed to rename session", err)
	}
	return s.GetSession(ctx, id)
}

// DeleteSession removes the session, its messages and any images they
// referenced.
func (s *HistoryService) DeleteSession(ctx context.Context, id string) error {
	msgs, err := s.messages.ListBySession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list session messages: %w", err)
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return mapStoreErr("failed to delete session", err)
	}

	for _, m := range msgs {
		if m.ImageKey == nil {
			continue
		}
		if err := s.images.Delete(ctx, *m.ImageKey); err != nil && !errors.Is(err, imagestore.ErrNotFound) {
			s.logger.Error("failed to delete chat image", "image_key", *m.ImageKey, "error", err)
		}
	}
	s.logger.Info("chat session deleted", "session_id", id, "messages", len(msgs))
	return nil
}

func (s *HistoryService) SetActiveSession(ctx context.Context, id, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalid)
	}
	if err := s.sessions.SetActive(ctx, id, userID); err != nil {
		return mapStoreErr("failed to set active session", err)
	}
	return nil
}

// AppendMessage stores one message, saving its image first when present.
func (s *HistoryService) AppendMessage(ctx context.Context, sessionID, userID, role, message string, image *Attachment) (*domain.ChatMessage, error) {
	if role != domain.RoleUser && role != domain.RoleBot {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalid, domain.RoleUser, domain.RoleBot)
	}
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id and session_id are required", ErrInvalid)
	}

	var imageKey *string
	if image != nil && len(image.Data) > 0 {
		key, err := s.images.Save(ctx, image.MIMEType, bytes.NewReader(image.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to save chat image: %w", err)
		}
		s.logger.Debug("chat image saved", "session_id", sessionID, "image_key", key)
		imageKey = &key
	}

	msg, err := s.messages.Append(ctx, sessionID, userID, role, message, imageKey)
	if err != nil {
		if imageKey != nil {
			if derr := s.images.Delete(ctx, *imageKey); derr != nil {
				s.logger.Error("failed to roll back chat image", "image_key", *imageKey, "error", derr)
			}
		}
		return nil, mapStoreErr("failed to append message", err)
	}
	return msg, nil
}

// RecordExchange appends a user question and the bot's answer to a session.
func (s *HistoryService) RecordExchange(ctx context.Context, sessionID, userID, question string, image *Attachment, answer string) error {
	if _, err := s.AppendMessage(ctx, sessionID, userID, domain.RoleUser, question, image); err != nil {
		return err
	}
	if _, err := s.AppendMessage(ctx, sessionID, userID, domain.RoleBot, answer, nil); err != nil {
		return err
	}
	return nil
}

// UserHistory returns every message the user has sent or received.
func (s *HistoryService) UserHistory(ctx context.Context, userID string) ([]*domain.ChatMessage, error) {
	return s.messages.ListByUser(ctx, userID)
}

// Image opens a stored chat image. The caller closes the reader.
func (s *HistoryService) Image(ctx context.Context, key string) (io.ReadCloser, string, error) {
	rc, mimeType, err := s.images.Get(ctx, key)
	if errors.Is(err, imagestore.ErrNotFound) || errors.Is(err, imagestore.ErrInvalidKey) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get chat image: %w", err)
	}
	return rc, mimeType, nil
}

func mapStoreErr(msg string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
