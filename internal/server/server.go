// Package server provides the HTTP API for highlighting job descriptions.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jd-highlighter/internal/config"
	"github.com/jonathan/jd-highlighter/internal/db"
	"github.com/jonathan/jd-highlighter/internal/highlight"
	"github.com/jonathan/jd-highlighter/internal/legend"
	"github.com/jonathan/jd-highlighter/internal/rendering"
	"github.com/jonathan/jd-highlighter/internal/server/ratelimit"
)

// PostingStore supplies stored job postings. *db.DB satisfies it.
type PostingStore interface {
	Ping(ctx context.Context) error
	GetJobPostingByID(ctx context.Context, id uuid.UUID) (*db.JobPosting, error)
	GetJobPostingByURL(ctx context.Context, url string) (*db.JobPosting, error)
	ListJobPostings(ctx context.Context, opts db.ListJobPostingsOptions) ([]db.JobPosting, int, error)
}

// healthPingTimeout bounds the store ping made by /health.
const healthPingTimeout = 2 * time.Second

// Config holds server configuration
type Config struct {
	Port             int
	MaxBodyBytes     int64
	MaxBatchSize     int
	BatchConcurrency int
	MemoSize         int
	Budget           highlight.Budget
	RateLimit        ratelimit.Config
	Logger           *log.Logger
}

// ConfigFrom derives the server configuration from the application config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		Port:             c.Port,
		MaxBodyBytes:     c.MaxBodyBytes,
		MaxBatchSize:     100,
		BatchConcurrency: c.BatchConcurrency,
		MemoSize:         c.MemoSize,
		Budget:           c.Budget(),
		RateLimit:        ratelimit.DefaultConfig(c.RateLimitRPS, c.RateLimitBurst),
	}
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	registry    *highlight.Registry
	legend      *legend.Legend
	segmenter   *highlight.Segmenter
	renderCtx   rendering.Context
	store       PostingStore
	rateLimiter *ratelimit.Limiter
	memo        *memo
	cfg         Config
	logger      *log.Logger
}

// New creates a new server instance. store may be nil, in which case the
// job posting endpoints answer 503.
func New(reg *highlight.Registry, leg *legend.Legend, store PostingStore, cfg Config) (*Server, error) {
	if reg == nil || leg == nil {
		return nil, fmt.Errorf("registry and legend are required")
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		registry:    reg,
		legend:      leg,
		segmenter:   highlight.NewSegmenter(reg, highlight.WithBudget(cfg.Budget), highlight.WithLogger(logger)),
		renderCtx:   rendering.DefaultContext(reg),
		store:       store,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		memo:        newMemo(cfg.MemoSize),
		cfg:         cfg,
		logger:      logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes registers every endpoint on a new mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("GET /legend", s.handleLegend)

	mux.HandleFunc("POST /highlight", s.handleHighlight)
	mux.HandleFunc("POST /highlight/batch", s.handleHighlightBatch)

	mux.HandleFunc("GET /job-postings", s.handleListJobPostings)
	mux.HandleFunc("GET /job-postings/highlights", s.handleJobPostingHighlightsByURL)
	mux.HandleFunc("GET /job-postings/{id}/highlights", s.handleJobPostingHighlights)
	return mux
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withRateLimit(s.withLogging(s.withCORS(s.routes()))))
}

// Start begins listening for requests and blocks until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("[server] starting on %s (%d categories)", s.httpServer.Addr, s.registry.Len())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.Close()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Println("[server] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	s.logger.Println("[server] stopped")
	return nil
}

// Close releases background resources. The posting store is owned by the
// caller.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
