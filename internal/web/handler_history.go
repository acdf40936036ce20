package web

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/breedchat/internal/domain"
	"github.com/vbonduro/breedchat/internal/service"
)

type sessionJSON struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	SessionName  string    `json:"session_name"`
	IsActive     bool      `json:"is_active"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toSessionJSON(s *domain.ChatSession) sessionJSON {
	return sessionJSON{
		ID:           s.ID,
		UserID:       s.UserID,
		SessionName:  s.Name,
		IsActive:     s.IsActive,
		MessageCount: s.MessageCount,
		LastMessage:  s.LastMessage,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type messageJSON struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	ImageKey  *string   `json:"image_key"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessagesJSON(msgs []*domain.ChatMessage) []messageJSON {
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		j := messageJSON{
			ID:        m.ID,
			SessionID: m.SessionID,
			UserID:    m.UserID,
			Role:      m.Role,
			Message:   m.Message,
			ImageKey:  m.ImageKey,
			CreatedAt: m.CreatedAt,
		}
		if m.ImageKey != nil {
			j.ImageURL = "/api/images/" + *m.ImageKey
		}
		out = append(out, j)
	}
	return out
}

type createSessionRequest struct {
	UserID      string `json:"user_id"`
	SessionName string `json:"session_name"`
}

type renameSessionRequest struct {
	SessionName string `json:"session_name"`
}

type appendHistoryRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	// Image is base64, optionally as a data URL.
	Image string `json:"image,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.authorize(w, r, req.UserID) {
		return
	}

	sess, err := s.history.CreateSession(r.Context(), req.UserID, req.SessionName)
	if err != nil {
		s.writeServiceError(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionJSON(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "userID")
	if !s.authorize(w, r, userID) {
		return
	}

	sessions, err := s.history.ListSessions(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, "list sessions", err)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionJSON(sess))
	}
	writeJSON(w, http.StatusOK, map[string][]sessionJSON{"sessions": out})
}

// ownedSession loads the {id} session and checks the caller may use it.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request) (*domain.ChatSession, bool) {
	sess, err := s.history.GetSession(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, "get session", err)
		return nil, false
	}
	if !s.authorize(w, r, sess.UserID) {
		return nil, false
	}
	return sess, true
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	msgs, err := s.history.SessionMessages(r.Context(), sess.ID)
	if err != nil {
		s.writeServiceError(w, "list session messages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]messageJSON{"messages": toMessagesJSON(msgs)})
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	var req renameSessionRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.history.RenameSession(r.Context(), sess.ID, req.SessionName)
	if err != nil {
		s.writeServiceError(w, "rename session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(updated))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	if err := s.history.DeleteSession(r.Context(), sess.ID); err != nil {
		s.writeServiceError(w, "delete session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetActiveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = sess.UserID
	}
	if userID != sess.UserID {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.history.SetActiveSession(r.Context(), sess.ID, userID); err != nil {
		s.writeServiceError(w, "set active session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (s *Server) handleAppendHistory(w http.ResponseWriter, r *http.Request) {
	var req appendHistoryRequest
	if err := decodeJSON(w, r, maxUploadSize*2, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.authorize(w, r, req.UserID) {
		return
	}

	var att *service.Attachment
	if req.Image != "" {
		data, err := decodeImageString(req.Image)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image must be base64 encoded")
			return
		}
		mimeType, ok := allowedImageMIME(data)
		if !ok {
			writeError(w, http.StatusBadRequest, errUnsupportedUpload.Error())
			return
		}
		att = &service.Attachment{MIMEType: mimeType, Data: data}
	}

	if sess, err := s.history.GetSession(r.Context(), req.SessionID); err == nil && sess.UserID != req.UserID {
		writeError(w, http.StatusForbidden, "session belongs to another user")
		return
	}

	msg, err := s.history.AppendMessage(r.Context(), req.SessionID, req.UserID, req.Role, req.Message, att)
	if err != nil {
		s.writeServiceError(w, "append message", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessagesJSON([]*domain.ChatMessage{msg})[0])
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "userID")
	if !s.authorize(w, r, userID) {
		return
	}
	msgs, err := s.history.UserHistory(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, "list user history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]messageJSON{"messages": toMessagesJSON(msgs)})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	reader, mimeType, err := s.history.Image(r.Context(), key)
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		s.logger.Error("get image failed", "image_key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer closeWithLog(reader, "image reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write image failed", "image_key", key, "error", err)
	}
}

// decodeImageString accepts plain base64 or a data URL.
func decodeImageString(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
