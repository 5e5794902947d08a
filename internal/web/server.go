package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
	"github.com/vitos/token_swap_level/internal/usecase"
)

type Server struct {
	router   *http.ServeMux
	server   *http.Server
	bot      *usecase.CycleController
	tokens   *usecase.TokenService
	executor *usecase.SwapExecutor
	backend  domain.SwapBackend
	repo     domain.TokenRepository
	hub      *Hub
	notifier domain.Notifier
	apiKey   string
	logger   *zap.Logger
}

func NewServer(
	port int,
	apiKey string,
	bot *usecase.CycleController,
	tokens *usecase.TokenService,
	executor *usecase.SwapExecutor,
	backend domain.SwapBackend,
	repo domain.TokenRepository,
	hub *Hub,
	notifier domain.Notifier,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		bot:      bot,
		tokens:   tokens,
		executor: executor,
		backend:  backend,
		repo:     repo,
		hub:      hub,
		notifier: notifier,
		apiKey:   apiKey,
		logger:   logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Health and the event stream are open; everything else needs the key.
	s.router.HandleFunc("GET /system/health", s.handleHealth)
	s.router.Handle("GET /ws", s.hub)

	s.router.HandleFunc("POST /system/start", s.auth(s.handleStart))
	s.router.HandleFunc("POST /system/stop", s.auth(s.handleStop))

	s.router.HandleFunc("GET /tokens", s.auth(s.handleListTokens))
	s.router.HandleFunc("GET /tokens/active", s.auth(s.handleActiveTokens))
	s.router.HandleFunc("POST /tokens/add-token", s.auth(s.handleAddToken))
	s.router.HandleFunc("POST /tokens/update-token", s.auth(s.handleUpdateTokens))
	s.router.HandleFunc("POST /tokens/toggle-token", s.auth(s.handleToggleToken))
	s.router.HandleFunc("GET /tokens/balance", s.auth(s.handleBalance))

	s.router.HandleFunc("POST /trade/swap", s.auth(s.handleManualSwap))
	s.router.HandleFunc("GET /trade/swaps", s.auth(s.handleListSwaps))
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
