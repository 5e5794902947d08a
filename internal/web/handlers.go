package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
	"github.com/vitos/token_swap_level/internal/usecase"
)

var startedAt = time.Now()

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case domain.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBotRunning), errors.Is(err, domain.ErrBotNotRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"running": s.bot.Running(),
		"uptime":  time.Since(startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Start(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Stop(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.tokens.AllTokens(r.Context())
	if err != nil {
		s.logger.Error("Failed to list tokens", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleActiveTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.tokens.ActiveTokens(r.Context())
	if err != nil {
		s.logger.Error("Failed to list active tokens", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleAddToken(w http.ResponseWriter, r *http.Request) {
	var t domain.Token
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid token payload")
		return
	}
	if err := s.tokens.AddToken(r.Context(), &t); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, &t)
}

// handleUpdateTokens replaces the whole tracked set atomically.
func (s *Server) handleUpdateTokens(w http.ResponseWriter, r *http.Request) {
	var tokens []*domain.Token
	if err := json.NewDecoder(r.Body).Decode(&tokens); err != nil {
		writeError(w, http.StatusBadRequest, "invalid token list payload")
		return
	}
	if err := s.tokens.ReplaceTokens(r.Context(), tokens); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleToggleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string `json:"ticker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	t, err := s.tokens.ToggleToken(r.Context(), req.Ticker)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleBalance returns RON plus one token balance when an address is
// given, or just the account RON balance otherwise.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		bal, err := s.backend.AccountBalance(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"account": s.backend.AccountAddress(),
			"ron":     bal,
		})
		return
	}

	balances, err := s.backend.Balances(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

type manualSwapRequest struct {
	TokenAddress string  `json:"tokenAddress"`
	Direction    int     `json:"direction"` // 1=buy, 2=sell
	Amount       float64 `json:"amount"`
	Slippage     float64 `json:"slippage"`
}

// handleManualSwap executes one operator-initiated swap. A buy acquires
// an exact token amount for at most the slippage-bounded RON input; a
// sell spends an exact token amount.
func (s *Server) handleManualSwap(w http.ResponseWriter, r *http.Request) {
	var req manualSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid swap payload")
		return
	}
	if !domain.ValidAddress(req.TokenAddress) {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	var sreq usecase.SwapRequest
	switch domain.Direction(req.Direction) {
	case domain.DirectionBuy:
		sreq = usecase.SwapRequest{
			TokenAddress: req.TokenAddress,
			Direction:    domain.DirectionBuy,
			Mode:         domain.ExactOutput,
			Amount:       decimal.NewFromFloat(req.Amount),
			Slippage:     req.Slippage,
		}
	case domain.DirectionSell:
		sreq = usecase.SwapRequest{
			TokenAddress: req.TokenAddress,
			Direction:    domain.DirectionSell,
			Mode:         domain.ExactInput,
			Amount:       decimal.NewFromFloat(req.Amount),
			Slippage:     req.Slippage,
		}
	default:
		writeError(w, http.StatusBadRequest, "direction must be 1 (buy) or 2 (sell)")
		return
	}

	s.logger.Info("manual swap requested",
		zap.String("token", req.TokenAddress), zap.Int("direction", req.Direction),
		zap.Float64("amount", req.Amount))

	outcome := s.executor.Execute(r.Context(), sreq)
	s.recordManualSwap(r.Context(), sreq, outcome)
	if !outcome.Success {
		writeJSON(w, http.StatusInternalServerError, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// recordManualSwap puts operator-initiated swaps through the same audit
// trail and notification channel as autonomous ones.
func (s *Server) recordManualSwap(ctx context.Context, req usecase.SwapRequest, outcome *domain.SwapOutcome) {
	ticker := ""
	if t, err := s.tokens.GetToken(ctx, req.TokenAddress); err == nil {
		ticker = t.Ticker
	}
	amount, _ := req.Amount.Float64()
	rec := &domain.SwapRecord{
		TokenAddress: req.TokenAddress,
		Ticker:       ticker,
		Direction:    req.Direction,
		Amount:       amount,
		Success:      outcome.Success,
		TxHash:       outcome.TxHash,
		Error:        outcome.Error,
		CreatedAt:    time.Now(),
	}
	if outcome.Success {
		rec.GasCost = outcome.GasCost.String()
	}
	if err := s.repo.SaveSwap(ctx, rec); err != nil {
		s.logger.Error("failed to record manual swap", zap.Error(err))
	}

	if outcome.Success {
		s.notifier.Send(fmt.Sprintf("manual %s of %s %s confirmed, tx %s, gas %s RON",
			req.Direction, req.Amount, req.TokenAddress, outcome.TxHash, outcome.GasCost))
	} else {
		s.notifier.Send(fmt.Sprintf("manual %s of %s %s failed: %s",
			req.Direction, req.Amount, req.TokenAddress, outcome.Error))
	}
}

func (s *Server) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	recs, err := s.repo.ListSwaps(r.Context(), 100)
	if err != nil {
		s.logger.Error("Failed to list swaps", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list swaps")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
