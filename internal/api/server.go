package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/storage"
)

// Server exposes metrics, health and the latest run summary while the
// discovery loop runs in interval mode.
type Server struct {
	addr       string
	router     http.Handler
	httpServer *http.Server
	pgStore    *storage.PostgresStore // may be nil
	redisStore *storage.RedisStore    // may be nil
	logger     *zap.Logger

	mu      sync.RWMutex
	lastRun *domain.RunSummary
}

func NewServer(addr string, ps *storage.PostgresStore, rs *storage.RedisStore, l *zap.Logger) *Server {
	s := &Server{
		addr:       addr,
		pgStore:    ps,
		redisStore: rs,
		logger:     l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/health", s.handleHealthCheck)
	r.Get("/api/lastrun", s.handleLastRun)

	return r
}

// SetLastRun records the most recent run summary for /api/lastrun.
func (s *Server) SetLastRun(sum domain.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &sum
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
