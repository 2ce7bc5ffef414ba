package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/imjhanC/Music-API-test/internal/config"
	"github.com/imjhanC/Music-API-test/internal/pool"
	"github.com/imjhanC/Music-API-test/pkg/models"
)

var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerNotRunning     = errors.New("server is not running")
)

// Searcher is the search operation consumed by the HTTP layer.
type Searcher interface {
	Search(ctx context.Context, query string) []models.SearchHit
}

// Resolver is the stream resolution surface consumed by the HTTP layer.
type Resolver interface {
	ResolveAudio(ctx context.Context, videoID string) (*models.StreamResult, error)
	ResolveVideo(ctx context.Context, videoID string) (*models.VideoStreamResult, error)
	ListFormats(ctx context.Context, videoID string) (*models.FormatListing, error)
}

// Server is the HTTP front of the service.
type Server struct {
	cfg      *config.Config
	searcher Searcher
	resolver Resolver
	pool     *pool.Pool
	flight   singleflight.Group
	router   *chi.Mux
	server   *http.Server
	listener net.Listener
	running  bool
	mu       sync.RWMutex
	log      zerolog.Logger
}

func NewServer(cfg *config.Config, searcher Searcher, resolver Resolver, workers *pool.Pool, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		searcher: searcher,
		resolver: resolver,
		pool:     workers,
		router:   chi.NewRouter(),
		log:      log.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
	s.router.Use(corsHeaders)
	s.router.Use(middleware.Timeout(2 * time.Minute))

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/search", s.handleSearch)
	s.router.Get("/stream", s.handleMissingVideoID)
	s.router.Get("/stream/{videoID}", s.handleStream)
	s.router.Get("/streamvideo", s.handleMissingVideoID)
	s.router.Get("/streamvideo/{videoID}", s.handleStreamVideo)
	s.router.Get("/formats/{videoID}", s.handleFormats)
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.running = true

	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServerNotRunning
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.running = false
	s.server = nil
	s.listener = nil

	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the actual listening address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// corsHeaders allows any origin; the API serves mobile clients directly.
func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
