package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
)

// boundScale is the decimal precision at which slippage bounds are
// truncated; matches the 18-decimal base asset.
const boundScale = 18

// ExecutorConfig bounds a single economically meaningful swap attempt.
type ExecutorConfig struct {
	Slippage float64       // fractional, e.g. 0.005 = 0.5%
	Attempts int           // total attempt budget including the first try
	Deadline time.Duration // validity window passed to the backend
}

func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Slippage: 0.005,
		Attempts: 2,
		Deadline: 20 * time.Minute,
	}
}

// SwapRequest describes one decided trade. A zero Slippage falls back to
// the executor default.
type SwapRequest struct {
	TokenAddress string
	Direction    domain.Direction
	Mode         domain.AmountMode
	Amount       decimal.Decimal
	Slippage     float64
}

// SwapExecutor turns a decided action into at most one settled exchange
// operation. Backend faults never propagate: every failure path is
// converted into a SwapOutcome with Error set, and only the terminal
// outcome of the retry budget is reported upward.
type SwapExecutor struct {
	backend domain.SwapBackend
	cfg     ExecutorConfig
	logger  *zap.Logger
}

func NewSwapExecutor(backend domain.SwapBackend, cfg ExecutorConfig, logger *zap.Logger) *SwapExecutor {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultExecutorConfig().Deadline
	}
	return &SwapExecutor{backend: backend, cfg: cfg, logger: logger}
}

// Execute runs the swap protocol with the configured retry budget.
// Intermediate failures are logged; the caller sees the terminal outcome.
func (e *SwapExecutor) Execute(ctx context.Context, req SwapRequest) *domain.SwapOutcome {
	slippage := req.Slippage
	if slippage == 0 {
		slippage = e.cfg.Slippage
	}

	var outcome *domain.SwapOutcome
	for attempt := 1; attempt <= e.cfg.Attempts; attempt++ {
		outcome = e.attempt(ctx, req, slippage)
		if outcome.Success {
			return outcome
		}
		e.logger.Warn("swap attempt failed",
			zap.String("token", req.TokenAddress),
			zap.String("direction", req.Direction.String()),
			zap.Int("attempt", attempt),
			zap.Int("budget", e.cfg.Attempts),
			zap.String("error", outcome.Error))
		if ctx.Err() != nil {
			break
		}
	}
	return outcome
}

func (e *SwapExecutor) attempt(ctx context.Context, req SwapRequest, slippage float64) (outcome *domain.SwapOutcome) {
	// A backend fault must surface as a failed outcome, never as a panic
	// crossing the component boundary.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("swap attempt panicked", zap.Any("panic", r))
			outcome = &domain.SwapOutcome{Success: false, Error: fmt.Sprintf("swap fault: %v", r)}
		}
	}()

	before, err := e.backend.Balances(ctx, req.TokenAddress)
	if err != nil {
		return &domain.SwapOutcome{Success: false, Error: fmt.Sprintf("balance check: %v", err)}
	}

	var bound decimal.Decimal
	switch req.Mode {
	case domain.ExactInput:
		quoted, err := e.backend.QuoteOutput(ctx, req.TokenAddress, req.Amount, req.Direction)
		if err != nil {
			return &domain.SwapOutcome{Success: false, Error: fmt.Sprintf("quote: %v", err)}
		}
		bound = MinOutput(quoted, slippage)
	case domain.ExactOutput:
		quoted, err := e.backend.QuoteInput(ctx, req.TokenAddress, req.Amount, req.Direction)
		if err != nil {
			return &domain.SwapOutcome{Success: false, Error: fmt.Sprintf("quote: %v", err)}
		}
		bound = MaxInput(quoted, slippage)
	default:
		return &domain.SwapOutcome{Success: false, Error: fmt.Sprintf("unknown amount mode %d", req.Mode)}
	}

	settlement, err := e.backend.ExecuteSwap(ctx, domain.SwapOrder{
		TokenAddress: req.TokenAddress,
		Direction:    req.Direction,
		Mode:         req.Mode,
		Amount:       req.Amount,
		Bound:        bound,
		Deadline:     time.Now().Add(e.cfg.Deadline),
	})
	if err != nil {
		return &domain.SwapOutcome{Success: false, Error: err.Error()}
	}

	after, err := e.backend.Balances(ctx, req.TokenAddress)
	if err != nil {
		// The swap settled; a failed follow-up read only costs the receipt.
		e.logger.Warn("post-swap balance check failed", zap.Error(err))
		after = nil
	}

	return &domain.SwapOutcome{
		Success:       true,
		TxHash:        settlement.TxHash,
		GasCost:       settlement.GasCost,
		BalanceBefore: before,
		BalanceAfter:  after,
	}
}

// MinOutput returns quoted*(1-slippage) truncated so the bound is never
// more permissive than the nominal slippage.
func MinOutput(quoted decimal.Decimal, slippage float64) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippage))
	return quoted.Mul(factor).RoundDown(boundScale)
}

// MaxInput returns quoted*(1+slippage) rounded up, the protective side
// for exact-output swaps.
func MaxInput(quoted decimal.Decimal, slippage float64) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(slippage))
	return quoted.Mul(factor).RoundUp(boundScale)
}
