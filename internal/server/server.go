// package server contains middleware & handlers for the study API
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the study API.
// Implementations handle a group of endpoints (study time, progress records).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// StudyTimeStore applies idempotent study-time totals and sums them per day and week.
type StudyTimeStore interface {
	Apply(req models.SyncRequest) (int64, error)
	Summary(userID, dateKey string) (*models.Summary, error)
}

// ProgressStore persists progress records.
type ProgressStore interface {
	Create(p models.ProgressCreate) (*models.ProgressRecord, error)
	Get(id int64) (*models.ProgressRecord, error)
	List(skip, limit int) ([]models.ProgressRecord, error)
	ListBySubject(subject string) ([]models.ProgressRecord, error)
	Update(id int64, u models.ProgressUpdate) (*models.ProgressRecord, error)
	Delete(id int64) error
	SubjectSummaries() ([]models.SubjectSummary, error)
	RenameSubject(r models.SubjectRename) (int64, error)
}

// Server is the reference study API.
type Server struct {
	router *BasicRouter
	http   *http.Server
	logger *log.Logger
}

// New wires the routes and middleware.
//
// /health is registered before the auth middleware is added, so it stays reachable without a token.
func New(cfg shared.ServerConfig, studyTime StudyTimeStore, progress ProgressStore, logger *log.Logger) *Server {
	logger = shared.WithLogger(logger, "component", "server")

	r := NewBasicRouter()
	r.Use(Recover(logger), Logging(logger))
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(cfg.RateLimit, cfg.Burst))
	}
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(health))

	r.Use(BearerAuth(cfg.Token))
	r.Handler(NewStudyTimeHandler(studyTime, logger))
	r.Handler(NewProgressHandler(progress, logger))

	return &Server{
		router: r,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()
	s.logger.Info("study API listening", "addr", s.http.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down study API")
		return s.http.Shutdown(shutdownCtx)
	}
}
