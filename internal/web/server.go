// Package web exposes the breed chat pipeline, reference data, chat history
// and account endpoints over HTTP.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vbonduro/breedchat/internal/auth"
	"github.com/vbonduro/breedchat/internal/service"
)

// Deps are the collaborators the server routes to. Auth is optional; a nil
// verifier leaves every route open.
type Deps struct {
	Composer    answerComposer
	Gate        dogChecker
	Classifier  breedPredictor
	Knowledge   referenceData
	History     *service.HistoryService
	Accounts    *service.AccountService
	Auth        *auth.Verifier
	CORSOrigins []string
	Logger      *slog.Logger
}

type Server struct {
	composer   answerComposer
	gate       dogChecker
	classifier breedPredictor
	knowledge  referenceData
	history    *service.HistoryService
	accounts   *service.AccountService
	auth       *auth.Verifier
	router     chi.Router
	logger     *slog.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		composer:   d.Composer,
		gate:       d.Gate,
		classifier: d.Classifier,
		knowledge:  d.Knowledge,
		history:    d.History,
		accounts:   d.Accounts,
		auth:       d.Auth,
		logger:     d.Logger,
	}
	s.router = s.routes(d.CORSOrigins)
	return s
}

func (s *Server) routes(origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(corsHandler(origins))

	r.Get("/", s.handleRoot)

	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.With(s.optionalAuth).Post("/chat/message", s.handleChatMessage)

		r.Route("/data", func(r chi.Router) {
			r.Get("/sample-questions", s.handleSampleQuestions)
			r.Get("/all-breeds", s.handleAllBreeds)
			r.Get("/breed/{name}", s.handleBreed)
			r.Get("/diet/{name}", s.handleDiet)
			r.Get("/diet/{name}/{stage}", s.handleDietStage)
		})

		r.Get("/images/{key}", s.handleImage)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/users/sync", s.handleSyncUser)

			r.Post("/orders", s.handleCreateOrder)
			r.Get("/orders/user/{userID}", s.handleListOrders)

			r.Route("/chat-sessions", func(r chi.Router) {
				r.Post("/", s.handleCreateSession)
				r.Get("/user/{userID}", s.handleListSessions)
				r.Get("/{id}/messages", s.handleSessionMessages)
				r.Put("/{id}", s.handleRenameSession)
				r.Delete("/{id}", s.handleDeleteSession)
				r.Post("/{id}/set-active", s.handleSetActiveSession)
			})

			r.Post("/chat-history", s.handleAppendHistory)
			r.Get("/chat-history/user/{userID}", s.handleUserHistory)
		})
	})
	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	if s.auth == nil {
		return next
	}
	return s.auth.Middleware(next)
}

func (s *Server) optionalAuth(next http.Handler) http.Handler {
	if s.auth == nil {
		return next
	}
	return s.auth.Optional(next)
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server for addr. Write timeouts leave room for
// model inference and upstream language model calls.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "breedchat backend running",
	})
}
