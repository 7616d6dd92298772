// Package httpapi exposes drafting, sending and the local stores as a small
// JSON API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shineum/mailscribe/internal/metrics"
	"github.com/shineum/mailscribe/internal/service"
)

// DefaultMaxBodyBytes caps request bodies. Attachments travel base64 encoded
// inside the JSON body.
const DefaultMaxBodyBytes = 35 << 20

// Config holds the server settings and the mail account used when a send
// request leaves provider, sender or password empty. When Token is set every
// /api request must carry it as a bearer token; otherwise the stored password
// is only filled in for loopback clients.
type Config struct {
	Listen         string
	Token          string
	MailProvider   string
	SenderEmail    string
	SenderPassword string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// Server serves the API.
type Server struct {
	cfg        Config
	svc        *service.Service
	metrics    *metrics.Metrics
	router     chi.Router
	httpServer *http.Server
}

// New builds the router. m may be nil, in which case /metrics serves the
// default registry.
func New(cfg Config, svc *service.Service, m *metrics.Metrics) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		metrics: m,
		router:  r,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", slog.String("addr", s.cfg.Listen))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("http api stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(s.limitBody)

		r.Get("/providers", s.handleProviders)
		r.Post("/drafts", s.handleDraft)
		r.Post("/emails", s.handleSend)
		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handlePutProfile)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/log", s.handleLog)
	})
}
