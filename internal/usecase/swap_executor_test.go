package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
)

func testExecutor(b *fakeBackend, cfg ExecutorConfig) *SwapExecutor {
	return NewSwapExecutor(b, cfg, zap.NewNop())
}

func TestExecuteAppliesSlippageBound(t *testing.T) {
	backend := &fakeBackend{quoteOut: decimal.NewFromInt(100)}
	e := testExecutor(backend, ExecutorConfig{Slippage: 0.005, Attempts: 1, Deadline: 20 * time.Minute})

	outcome := e.Execute(context.Background(), SwapRequest{
		TokenAddress: addrA,
		Direction:    domain.DirectionBuy,
		Mode:         domain.ExactInput,
		Amount:       decimal.NewFromInt(10),
	})

	require.True(t, outcome.Success)
	// 100 quoted at 0.5% slippage gives a minimum output of 99.5.
	assert.True(t, backend.lastOrder.Bound.Equal(decimal.RequireFromString("99.5")),
		"bound = %s", backend.lastOrder.Bound)
	assert.Equal(t, domain.ExactInput, backend.lastOrder.Mode)
	assert.NotEmpty(t, outcome.TxHash)
	require.NotNil(t, outcome.BalanceBefore)
	require.NotNil(t, outcome.BalanceAfter)
}

func TestExecuteExactOutputBoundsInput(t *testing.T) {
	backend := &fakeBackend{quoteIn: decimal.NewFromInt(200)}
	e := testExecutor(backend, ExecutorConfig{Slippage: 0.01, Attempts: 1, Deadline: time.Minute})

	outcome := e.Execute(context.Background(), SwapRequest{
		TokenAddress: addrA,
		Direction:    domain.DirectionBuy,
		Mode:         domain.ExactOutput,
		Amount:       decimal.NewFromInt(50),
	})

	require.True(t, outcome.Success)
	assert.True(t, backend.lastOrder.Bound.Equal(decimal.NewFromInt(202)),
		"bound = %s", backend.lastOrder.Bound)
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	backend := &fakeBackend{quoteOut: decimal.NewFromInt(100), failTimes: 1}
	e := testExecutor(backend, ExecutorConfig{Slippage: 0.005, Attempts: 2, Deadline: time.Minute})

	outcome := e.Execute(context.Background(), SwapRequest{
		TokenAddress: addrA,
		Direction:    domain.DirectionSell,
		Mode:         domain.ExactInput,
		Amount:       decimal.NewFromInt(10),
	})

	require.True(t, outcome.Success)
	assert.Equal(t, 2, backend.ExecCalls())
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	backend := &fakeBackend{quoteOut: decimal.NewFromInt(100), failTimes: 10}
	e := testExecutor(backend, ExecutorConfig{Slippage: 0.005, Attempts: 3, Deadline: time.Minute})

	outcome := e.Execute(context.Background(), SwapRequest{
		TokenAddress: addrA,
		Direction:    domain.DirectionBuy,
		Mode:         domain.ExactInput,
		Amount:       decimal.NewFromInt(10),
	})

	require.False(t, outcome.Success)
	assert.Equal(t, 3, backend.ExecCalls())
	assert.Contains(t, outcome.Error, "reverted")
	assert.Empty(t, outcome.TxHash)
}

func TestExecuteConvertsPanicToFailure(t *testing.T) {
	backend := &fakeBackend{quoteOut: decimal.NewFromInt(100), panicExec: true}
	e := testExecutor(backend, ExecutorConfig{Slippage: 0.005, Attempts: 2, Deadline: time.Minute})

	outcome := e.Execute(context.Background(), SwapRequest{
		TokenAddress: addrA,
		Direction:    domain.DirectionBuy,
		Mode:         domain.ExactInput,
		Amount:       decimal.NewFromInt(10),
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "swap fault")
}

func TestExecuteQuoteFailureIsTerminalPerAttempt(t *testing.T) {
	backend := &fakeBackend{quoteErr: assert.AnError}
	e := testExecutor(backend, ExecutorConfig{Slippage: 0.005, Attempts: 2, Deadline: time.Minute})

	outcome := e.Execute(context.Background(), SwapRequest{
		TokenAddress: addrA,
		Direction:    domain.DirectionBuy,
		Mode:         domain.ExactInput,
		Amount:       decimal.NewFromInt(10),
	})

	require.False(t, outcome.Success)
	assert.Equal(t, 0, backend.ExecCalls(), "no order may be submitted without a quote")
}

func TestMinOutputTruncates(t *testing.T) {
	// The protective side must never round in the caller's favor.
	bound := MinOutput(decimal.RequireFromString("0.0000000000000000031"), 0.5)
	assert.True(t, bound.Equal(decimal.RequireFromString("0.000000000000000001")), "bound = %s", bound)
}
