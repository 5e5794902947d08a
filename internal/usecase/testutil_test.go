package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vitos/token_swap_level/internal/domain"
)

// memRepo is an in-memory TokenRepository. It hands out copies, like the
// real store, so un-persisted mutations are not visible to readers.
type memRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.Token
	swaps  []*domain.SwapRecord
}

func newMemRepo(tokens ...*domain.Token) *memRepo {
	r := &memRepo{tokens: make(map[string]*domain.Token)}
	for _, t := range tokens {
		r.tokens[t.Address] = cloneToken(t)
	}
	return r
}

func cloneToken(t *domain.Token) *domain.Token {
	c := *t
	c.PriceLevels = append([]float64(nil), t.PriceLevels...)
	if t.NextBuy != nil {
		c.NextBuy = domain.Float(*t.NextBuy)
	}
	if t.NextSell != nil {
		c.NextSell = domain.Float(*t.NextSell)
	}
	return &c
}

func (r *memRepo) SaveToken(_ context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Address] = cloneToken(t)
	return nil
}

func (r *memRepo) GetToken(_ context.Context, address string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[address]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return cloneToken(t), nil
}

func (r *memRepo) GetTokenByTicker(_ context.Context, ticker string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Ticker == ticker {
			return cloneToken(t), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *memRepo) ListTokens(_ context.Context) ([]*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Token
	for _, t := range r.tokens {
		out = append(out, cloneToken(t))
	}
	return out, nil
}

func (r *memRepo) ListActiveTokens(ctx context.Context) ([]*domain.Token, error) {
	all, _ := r.ListTokens(ctx)
	var out []*domain.Token
	for _, t := range all {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateToken(_ context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.Address]; !ok {
		return domain.ErrTokenNotFound
	}
	r.tokens[t.Address] = cloneToken(t)
	return nil
}

func (r *memRepo) DeleteToken(_ context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[address]; !ok {
		return domain.ErrTokenNotFound
	}
	delete(r.tokens, address)
	return nil
}

func (r *memRepo) ReplaceTokens(_ context.Context, tokens []*domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = make(map[string]*domain.Token)
	for _, t := range tokens {
		r.tokens[t.Address] = cloneToken(t)
	}
	return nil
}

func (r *memRepo) SaveSwap(_ context.Context, rec *domain.SwapRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swaps = append(r.swaps, rec)
	return nil
}

func (r *memRepo) ListSwaps(_ context.Context, limit int) ([]*domain.SwapRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.swaps) {
		limit = len(r.swaps)
	}
	return r.swaps[len(r.swaps)-limit:], nil
}

// fakeBackend scripts quote and execution behavior per test.
type fakeBackend struct {
	mu        sync.Mutex
	quoteOut  decimal.Decimal
	quoteIn   decimal.Decimal
	quoteErr  error
	execErr   error
	failTimes int // fail the first N ExecuteSwap calls
	panicExec bool

	execCalls  int
	lastOrder  domain.SwapOrder
	quoteCalls int
}

func (b *fakeBackend) QuoteOutput(context.Context, string, decimal.Decimal, domain.Direction) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quoteCalls++
	return b.quoteOut, b.quoteErr
}

func (b *fakeBackend) QuoteInput(context.Context, string, decimal.Decimal, domain.Direction) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quoteCalls++
	return b.quoteIn, b.quoteErr
}

func (b *fakeBackend) ExecuteSwap(_ context.Context, order domain.SwapOrder) (*domain.Settlement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.execCalls++
	b.lastOrder = order
	if b.panicExec {
		panic("backend exploded")
	}
	if b.failTimes > 0 {
		b.failTimes--
		return nil, fmt.Errorf("execution reverted")
	}
	if b.execErr != nil {
		return nil, b.execErr
	}
	return &domain.Settlement{
		TxHash:  fmt.Sprintf("0xtx%d", b.execCalls),
		GasCost: decimal.RequireFromString("0.002"),
	}, nil
}

func (b *fakeBackend) Balances(context.Context, string) (*domain.Balances, error) {
	return &domain.Balances{
		Base:  decimal.NewFromInt(100),
		Token: decimal.NewFromInt(500),
	}, nil
}

func (b *fakeBackend) AccountBalance(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func (b *fakeBackend) AccountAddress() string { return "0x00000000000000000000000000000000000000aa" }

func (b *fakeBackend) ExecCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.execCalls
}

// fakeFeed returns a fixed price map.
type fakeFeed struct {
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakeFeed) TokenPrices(context.Context, []string) (map[string]float64, error) {
	f.calls++
	return f.prices, f.err
}

// recordNotifier collects messages for assertions.
type recordNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordNotifier) Send(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
}

func (n *recordNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

const (
	addrA = "0x00000000000000000000000000000000000000a1"
	addrB = "0x00000000000000000000000000000000000000b2"
)

func testToken(algo domain.AlgoType, levels []float64, nextBuy, nextSell *float64) *domain.Token {
	return &domain.Token{
		ID:          "tok-1",
		Address:     addrA,
		Ticker:      "AXS",
		IsActive:    true,
		PriceLevels: levels,
		NextBuy:     nextBuy,
		NextSell:    nextSell,
		SwapAmount:  10,
		AlgoType:    algo,
	}
}
