// Package host serves the remote procedure gateway, the viewer bootstrap and
// a live presence stream over HTTP.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gearxr/gear/internal/cache"
	"github.com/gearxr/gear/internal/dispatcher"
	"github.com/gearxr/gear/internal/handlers"
	"github.com/gearxr/gear/internal/storage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ServicePath is where call batches are posted.
const ServicePath = "/lib/ajax/service.php"

// Dependencies holds all dependencies of the HTTP server.
type Dependencies struct {
	Store      storage.Store
	Service    *handlers.Service
	Dispatcher *dispatcher.Dispatcher
	Logger     *slog.Logger
	AccessLog  zerolog.Logger
	// StreamInterval is how often the presence stream pushes; defaults to
	// half of handlers.DefaultFreshness.
	StreamInterval time.Duration
	// TokenTTL bounds how long a resolved token is reused without a
	// store lookup; defaults to cache.DefaultTTL.
	TokenTTL time.Duration
}

// Server routes host requests.
type Server struct {
	deps   Dependencies
	logger *slog.Logger
	router *mux.Router
	users  *cache.UserCache
}

// New creates a server with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.StreamInterval <= 0 {
		deps.StreamInterval = handlers.DefaultFreshness / 2
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger,
		router: mux.NewRouter(),
		users:  cache.NewUserCache(deps.TokenTTL),
	}

	s.router.Use(s.accessLog, s.authenticate)
	s.router.HandleFunc("/healthcheck", s.healthcheck).Methods(http.MethodGet)
	s.router.HandleFunc(ServicePath, s.serviceCalls).Methods(http.MethodPost)
	s.router.HandleFunc("/view/{cmid:[0-9]+}/bootstrap", s.bootstrap).Methods(http.MethodGet)
	s.router.HandleFunc("/presence/stream", s.presenceStream).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Host listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthcheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// bearerToken returns the token of an Authorization header, or the token
// query parameter used by browsers opening a websocket.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// authenticate resolves the caller. Unknown tokens leave the request
// anonymous; each route decides whether that is acceptable.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}
		if u, ok := s.users.Get(tok); ok {
			next.ServeHTTP(w, r.WithContext(handlers.WithCaller(r.Context(), u)))
			return
		}
		u, err := s.deps.Store.UserByToken(r.Context(), tok)
		switch {
		case err == nil:
			s.users.Set(tok, u)
			r = r.WithContext(handlers.WithCaller(r.Context(), u))
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Debug("Unknown bearer token", "path", r.URL.Path)
		default:
			s.logger.Error("Token lookup failed", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}
