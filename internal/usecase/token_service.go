package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
)

// TokenService is the validated gateway to the token registry. Every
// mutation passes the schema contract before touching the repository, and
// writes to a single token are serialized through a per-token lock so a
// trade advancement cannot race a manual toggle.
type TokenService struct {
	repo   domain.TokenRepository
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // keyed by token address
}

func NewTokenService(repo domain.TokenRepository, logger *zap.Logger) *TokenService {
	return &TokenService{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *TokenService) lockFor(address string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[address]
	if !ok {
		l = &sync.Mutex{}
		s.locks[address] = l
	}
	return l
}

func (s *TokenService) ActiveTokens(ctx context.Context) ([]*domain.Token, error) {
	return s.repo.ListActiveTokens(ctx)
}

func (s *TokenService) AllTokens(ctx context.Context) ([]*domain.Token, error) {
	return s.repo.ListTokens(ctx)
}

func (s *TokenService) GetToken(ctx context.Context, address string) (*domain.Token, error) {
	return s.repo.GetToken(ctx, address)
}

// AddToken validates and stores a new token. An empty id is filled in;
// a duplicate address is rejected before anything is written.
func (s *TokenService) AddToken(ctx context.Context, t *domain.Token) error {
	if t.ID == "" {
		t.ID = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	if err := t.Validate(); err != nil {
		return err
	}
	if existing, err := s.repo.GetToken(ctx, t.Address); err == nil && existing != nil {
		return &domain.ConfigError{Reason: fmt.Sprintf("token %s already exists", t.Address)}
	}

	if err := s.repo.SaveToken(ctx, t); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	s.logger.Info("token added", zap.String("ticker", t.Ticker), zap.String("address", t.Address))
	return nil
}

// ReplaceTokens swaps the whole token set atomically. The full set is
// validated first so a bad entry causes no partial mutation.
func (s *TokenService) ReplaceTokens(ctx context.Context, tokens []*domain.Token) error {
	now := time.Now()
	for _, t := range tokens {
		if t.ID == "" {
			t.ID = fmt.Sprintf("%d", now.UnixNano())
			now = now.Add(time.Nanosecond)
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
	}
	if err := domain.ValidateTokens(tokens); err != nil {
		return err
	}
	if err := s.repo.ReplaceTokens(ctx, tokens); err != nil {
		return fmt.Errorf("failed to replace tokens: %w", err)
	}
	s.logger.Info("token set replaced", zap.Int("count", len(tokens)))
	return nil
}

// ToggleToken flips the active flag of the token with the given ticker.
func (s *TokenService) ToggleToken(ctx context.Context, ticker string) (*domain.Token, error) {
	t, err := s.repo.GetTokenByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(t.Address)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: an in-flight trade may have just advanced it.
	t, err = s.repo.GetToken(ctx, t.Address)
	if err != nil {
		return nil, err
	}
	t.IsActive = !t.IsActive
	t.UpdatedAt = time.Now()
	if err := s.repo.UpdateToken(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update token: %w", err)
	}
	s.logger.Info("token toggled", zap.String("ticker", t.Ticker), zap.Bool("isActive", t.IsActive))
	return t, nil
}

// ApplyTrade reloads the token under its lock, applies fn to the fresh
// state and persists the result. This is the only path by which the
// trading core mutates registry state.
func (s *TokenService) ApplyTrade(ctx context.Context, address string, fn func(*domain.Token) error) (*domain.Token, error) {
	lock := s.lockFor(address)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.repo.GetToken(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateToken(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	return t, nil
}
