package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/breedchat/internal/auth"
	"github.com/vbonduro/breedchat/internal/chat"
	"github.com/vbonduro/breedchat/internal/classifier"
	"github.com/vbonduro/breedchat/internal/service"
)

// answerComposer is the subset of chat.Composer the server requires.
type answerComposer interface {
	ComposeAnswer(ctx context.Context, message string, image *chat.Image) (*chat.Answer, error)
}

// dogChecker is the subset of gate.Gate the server requires.
type dogChecker interface {
	IsDogImage(ctx context.Context, image []byte, mimeType string) (bool, error)
}

// breedPredictor is the subset of classifier.Classifier the server requires.
type breedPredictor interface {
	PredictFromBytes(ctx context.Context, image []byte, topK int) (classifier.Result, error)
}

type predictResponse struct {
	IsDog       bool              `json:"is_dog"`
	Message     string            `json:"message,omitempty"`
	Predictions classifier.Result `json:"predictions,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	topK := 1
	if v := r.URL.Query().Get("topk"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "topk must be a positive integer")
			return
		}
		topK = n
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	up, err := readImageUpload(r, "file", s.logger)
	if !s.checkUpload(w, err, true) {
		return
	}

	isDog, err := s.gate.IsDogImage(r.Context(), up.data, up.mimeType)
	if err != nil {
		s.logger.Error("dog image check failed", "filename", up.filename, "error", err)
		writeError(w, http.StatusBadGateway, "dog image validation failed")
		return
	}
	if !isDog {
		writeJSON(w, http.StatusOK, predictResponse{IsDog: false, Message: chat.NotDogReply})
		return
	}

	preds, err := s.classifier.PredictFromBytes(r.Context(), up.data, topK)
	if err != nil {
		if errors.Is(err, classifier.ErrImageDecode) {
			writeError(w, http.StatusBadRequest, "could not decode image")
			return
		}
		s.logger.Error("prediction failed", "filename", up.filename, "error", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{IsDog: true, Predictions: preds})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	message := r.FormValue("message")
	if strings.TrimSpace(message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	userID := strings.TrimSpace(r.FormValue("user_id"))
	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	persist := userID != "" && sessionID != ""
	if persist && !s.authorizeSession(w, r, userID, sessionID) {
		return
	}

	up, err := readImageUpload(r, "image", s.logger)
	if !s.checkUpload(w, err, false) {
		return
	}
	var image *chat.Image
	if up != nil {
		image = &chat.Image{Filename: up.filename, MIMEType: up.mimeType, Data: up.data}
	}

	answer, err := s.composer.ComposeAnswer(r.Context(), message, image)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	if persist {
		var att *service.Attachment
		if up != nil {
			att = &service.Attachment{MIMEType: up.mimeType, Data: up.data}
		}
		// The answer is returned even when history cannot be written.
		if err := s.history.RecordExchange(r.Context(), sessionID, userID, message, att, answer.Answer); err != nil {
			s.logger.Error("failed to record chat exchange", "session_id", sessionID, "user_id", userID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, answer)
}

// authorizeSession checks that the caller may write to the session as userID.
// Without an auth verifier only the session's existence is checked.
func (s *Server) authorizeSession(w http.ResponseWriter, r *http.Request, userID, sessionID string) bool {
	if s.auth != nil {
		if _, ok := auth.Subject(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required to save chat history")
			return false
		}
	}
	if !s.authorize(w, r, userID) {
		return false
	}
	sess, err := s.history.GetSession(r.Context(), sessionID)
	if err != nil {
		s.writeServiceError(w, "get session", err)
		return false
	}
	if sess.UserID != userID {
		writeError(w, http.StatusForbidden, "session belongs to another user")
		return false
	}
	return true
}

// checkUpload writes the response for an upload error and reports whether
// the handler should continue.
func (s *Server) checkUpload(w http.ResponseWriter, err error, required bool) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, errNoUpload):
		if required {
			writeError(w, http.StatusBadRequest, "image file required")
			return false
		}
		return true
	case errors.Is(err, errUnsupportedUpload):
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	default:
		s.logger.Error("failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "failed to read file")
		return false
	}
}

// writePipelineError maps composer failures to HTTP statuses. Upstream model
// details are logged, never returned.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var pe *chat.PipelineError
	if !errors.As(err, &pe) {
		s.logger.Error("chat pipeline failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.logger.Error("chat pipeline failed", "stage", pe.Kind.String(), "error", pe.Err)
	switch pe.Kind {
	case chat.KindImageDecode:
		writeError(w, http.StatusBadRequest, "could not decode image")
	case chat.KindGate:
		writeError(w, http.StatusBadGateway, "dog image validation failed")
	case chat.KindGrounding:
		writeError(w, http.StatusBadGateway, "language model call failed")
	default:
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}
