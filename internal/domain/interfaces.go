package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceFeed supplies current prices for a batch of token addresses.
// The returned map is keyed by lowercase address; entries may be missing
// when the feed has no price for a token.
type PriceFeed interface {
	TokenPrices(ctx context.Context, addresses []string) (map[string]float64, error)
}

// SwapBackend executes on-chain exchange operations against the router
// for a single acting account. Implementations must serialize transaction
// submission so concurrent callers cannot produce nonce conflicts.
type SwapBackend interface {
	// QuoteOutput returns the expected output amount for a fixed input.
	QuoteOutput(ctx context.Context, tokenAddress string, amountIn decimal.Decimal, dir Direction) (decimal.Decimal, error)
	// QuoteInput returns the required input amount for a fixed output.
	QuoteInput(ctx context.Context, tokenAddress string, amountOut decimal.Decimal, dir Direction) (decimal.Decimal, error)
	// ExecuteSwap submits the order and blocks until it is mined or the
	// order deadline passes.
	ExecuteSwap(ctx context.Context, order SwapOrder) (*Settlement, error)
	// Balances returns the account's base-asset and token-asset balances.
	Balances(ctx context.Context, tokenAddress string) (*Balances, error)
	// AccountBalance returns the account's base-asset balance.
	AccountBalance(ctx context.Context) (decimal.Decimal, error)
	AccountAddress() string
}

// TokenRepository persists the token registry and the swap audit trail.
type TokenRepository interface {
	SaveToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, address string) (*Token, error)
	GetTokenByTicker(ctx context.Context, ticker string) (*Token, error)
	ListTokens(ctx context.Context) ([]*Token, error)
	ListActiveTokens(ctx context.Context) ([]*Token, error)
	UpdateToken(ctx context.Context, t *Token) error
	DeleteToken(ctx context.Context, address string) error
	ReplaceTokens(ctx context.Context, tokens []*Token) error

	SaveSwap(ctx context.Context, rec *SwapRecord) error
	ListSwaps(ctx context.Context, limit int) ([]*SwapRecord, error)
}

// Notifier receives human-readable status lines. Best effort: no core
// logic may depend on delivery.
type Notifier interface {
	Send(text string)
}
