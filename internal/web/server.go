package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/paepae/kucoin-lendingbot/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router   *http.ServeMux
	server   *http.Server
	runner   *usecase.Runner
	statuses domain.StatusRepository
	hub      *LogHub
	logger   *zap.Logger
}

func NewServer(port int, runner *usecase.Runner, statuses domain.StatusRepository, logger *zap.Logger) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		runner:   runner,
		statuses: statuses,
		hub:      NewLogHub(logger),
		logger:   logger,
	}
	s.routes()
	runner.OnCycle(s.hub.Broadcast)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Health
	s.router.HandleFunc("GET /{$}", s.handleHealth)

	// Lending cycle trigger (dry run unless execute=1)
	s.router.HandleFunc("GET /run", s.handleRun)
	s.router.HandleFunc("POST /run", s.handleRun)

	// Status history
	s.router.HandleFunc("GET /api/status", s.handleStatusHistory)

	// Live cycle transcripts
	s.router.HandleFunc("GET /ws/logs", s.handleLogStream)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
