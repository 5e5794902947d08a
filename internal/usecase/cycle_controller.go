package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
)

// ControllerConfig tunes the polling cycle.
type ControllerConfig struct {
	Interval      time.Duration // time between cycle starts
	Concurrency   int           // per-token workers per cycle
	StableAddress string        // scaling-out target token
	Slippage      float64       // forwarded to the executor per trade
}

// CycleController drives the recurring poll-evaluate-execute loop.
// It is IDLE until Start and returns to IDLE after Stop; only one cycle
// is ever in flight, and Stop waits for the in-flight cycle to finish
// before reporting stopped.
type CycleController struct {
	tokens    *TokenService
	feed      domain.PriceFeed
	evaluator *TriggerEvaluator
	executor  *SwapExecutor
	advancer  *LevelAdvancer
	repo      domain.TokenRepository
	notifier  domain.Notifier
	logger    *zap.Logger
	cfg       ControllerConfig

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}
}

func NewCycleController(
	tokens *TokenService,
	feed domain.PriceFeed,
	executor *SwapExecutor,
	repo domain.TokenRepository,
	notifier domain.Notifier,
	logger *zap.Logger,
	cfg ControllerConfig,
) *CycleController {
	if cfg.Interval <= 0 {
		cfg.Interval = 282 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &CycleController{
		tokens:    tokens,
		feed:      feed,
		evaluator: NewTriggerEvaluator(),
		executor:  executor,
		advancer:  NewLevelAdvancer(),
		repo:      repo,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start begins the cycle loop. Fails if the bot is already running.
func (c *CycleController) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return domain.ErrBotRunning
	}
	c.quit = make(chan struct{})
	c.done = make(chan struct{})
	c.running = true
	go c.run(c.quit, c.done)
	c.logger.Info("bot started", zap.Duration("interval", c.cfg.Interval))
	return nil
}

// Stop prevents new cycles and waits for the in-flight one to complete.
// Fails if the bot is not running. The mutex is held across the wait so
// a concurrent Start is rejected until the old loop has fully drained;
// the loop itself never takes the mutex, so this cannot deadlock.
func (c *CycleController) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return domain.ErrBotNotRunning
	}

	close(c.quit)
	<-c.done
	c.running = false
	c.logger.Info("bot stopped")
	return nil
}

// Running reports whether the cycle loop is active.
func (c *CycleController) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *CycleController) run(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		// A stop must not abort in-flight work, so cycles run on their
		// own context; individual calls carry their own timeouts.
		if err := c.RunCycle(context.Background()); err != nil {
			c.logger.Error("cycle aborted", zap.Error(err))
		}
		select {
		case <-quit:
			return
		case <-ticker.C:
		}
	}
}

// RunCycle executes one full poll-evaluate-execute pass. Exported so the
// loop and tests share the exact same path.
func (c *CycleController) RunCycle(ctx context.Context) error {
	tokens, err := c.tokens.ActiveTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active tokens: %w", err)
	}
	if len(tokens) == 0 {
		c.logger.Info("no active tokens, skipping cycle")
		return nil
	}

	// Schema violations abort the whole batch before any state changes.
	if err := domain.ValidateTokens(tokens); err != nil {
		return fmt.Errorf("token set rejected: %w", err)
	}

	addresses := make([]string, len(tokens))
	for i, t := range tokens {
		addresses[i] = t.Address
	}
	prices, err := c.feed.TokenPrices(ctx, addresses)
	if err != nil {
		return fmt.Errorf("price fetch failed: %w", err)
	}
	if len(prices) == 0 {
		return fmt.Errorf("price feed returned no data")
	}

	sem := make(chan struct{}, c.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, t := range tokens {
		price, ok := prices[strings.ToLower(t.Address)]
		if !ok {
			c.logger.Warn("no price for token, skipping",
				zap.String("ticker", t.Ticker), zap.String("address", t.Address))
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(t *domain.Token, price float64) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				// One token's fault must not take down the cycle.
				if r := recover(); r != nil {
					c.logger.Error("token worker panicked",
						zap.String("ticker", t.Ticker), zap.Any("panic", r))
				}
			}()
			c.processToken(ctx, t, price)
		}(t, price)
	}
	wg.Wait()
	return nil
}

func (c *CycleController) processToken(ctx context.Context, t *domain.Token, price float64) {
	decision, err := c.evaluator.Evaluate(t, price)
	if err != nil {
		c.logger.Error("token rejected by evaluator",
			zap.String("ticker", t.Ticker), zap.Error(err))
		c.notifier.Send(fmt.Sprintf("%s: %v", t.Ticker, err))
		return
	}
	if decision.Reason != "" {
		c.logger.Warn("trigger configuration signal",
			zap.String("ticker", t.Ticker), zap.String("reason", decision.Reason))
		c.notifier.Send("⚠️ " + decision.Reason)
		return
	}
	if decision.Alert {
		msg := fmt.Sprintf("🚨 %s is around the price of $%g", t.Ticker, price)
		c.logger.Info("proximity alert", zap.String("ticker", t.Ticker), zap.Float64("price", price))
		c.notifier.Send(msg)
		return
	}
	if decision.Action == domain.ActionHold {
		c.logger.Debug("hold", zap.String("ticker", t.Ticker), zap.Float64("price", price))
		return
	}

	arrow := "🔺"
	if decision.Action == domain.ActionSell {
		arrow = "🔻"
	}
	c.logger.Info("trigger fired",
		zap.String("ticker", t.Ticker),
		zap.String("action", decision.Action.String()),
		zap.Float64("price", price))
	c.notifier.Send(fmt.Sprintf("%s: %s %s @ %g", t.Ticker, arrow, decision.Action, price))

	req := c.buildRequest(t, decision.Action)
	outcome := c.executor.Execute(ctx, req)
	c.recordSwap(ctx, t, req, price, outcome)

	if !outcome.Success {
		// A trade that did not happen must never advance trigger state.
		c.logger.Error("swap failed",
			zap.String("ticker", t.Ticker), zap.String("error", outcome.Error))
		c.notifier.Send(fmt.Sprintf("%s: swap failed: %s", t.Ticker, outcome.Error))
		return
	}

	updated, err := c.tokens.ApplyTrade(ctx, t.Address, func(cur *domain.Token) error {
		return c.advancer.Advance(cur, decision.Action)
	})
	if err != nil {
		c.logger.Error("level advancement failed",
			zap.String("ticker", t.Ticker), zap.Error(err))
		c.notifier.Send(fmt.Sprintf("%s: swap settled but level advancement failed: %v", t.Ticker, err))
		return
	}

	c.notifier.Send(swapSummary(updated, outcome))
	c.logger.Info("trade completed",
		zap.String("ticker", updated.Ticker),
		zap.String("tx", outcome.TxHash),
		zap.String("nextBuy", fmtTrigger(updated.NextBuy)),
		zap.String("nextSell", fmtTrigger(updated.NextSell)),
		zap.Bool("isActive", updated.IsActive))
}

// buildRequest maps a decided action to a bounded swap. Autonomous buys
// spend a fixed RON amount, sells a fixed token amount; the scaling-out
// policy instead buys an exact amount of the stable asset with RON.
func (c *CycleController) buildRequest(t *domain.Token, action domain.Action) SwapRequest {
	if t.AlgoType == domain.AlgoScalingOut {
		return SwapRequest{
			TokenAddress: c.cfg.StableAddress,
			Direction:    domain.DirectionBuy,
			Mode:         domain.ExactOutput,
			Amount:       decimal.NewFromFloat(t.SwapAmount),
			Slippage:     c.cfg.Slippage,
		}
	}
	dir := domain.DirectionBuy
	if action == domain.ActionSell {
		dir = domain.DirectionSell
	}
	return SwapRequest{
		TokenAddress: t.Address,
		Direction:    dir,
		Mode:         domain.ExactInput,
		Amount:       decimal.NewFromFloat(t.SwapAmount),
		Slippage:     c.cfg.Slippage,
	}
}

func (c *CycleController) recordSwap(ctx context.Context, t *domain.Token, req SwapRequest, price float64, outcome *domain.SwapOutcome) {
	amount, _ := req.Amount.Float64()
	rec := &domain.SwapRecord{
		TokenAddress: req.TokenAddress,
		Ticker:       t.Ticker,
		Direction:    req.Direction,
		Amount:       amount,
		Price:        price,
		Success:      outcome.Success,
		TxHash:       outcome.TxHash,
		Error:        outcome.Error,
		CreatedAt:    time.Now(),
	}
	if outcome.Success {
		rec.GasCost = outcome.GasCost.String()
	}
	if err := c.repo.SaveSwap(ctx, rec); err != nil {
		c.logger.Error("failed to record swap", zap.Error(err))
	}
}

func swapSummary(t *domain.Token, outcome *domain.SwapOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: swap confirmed, tx %s, gas %s RON", t.Ticker, outcome.TxHash, outcome.GasCost)
	if outcome.BalanceBefore != nil && outcome.BalanceAfter != nil {
		fmt.Fprintf(&b, "\nRON %s -> %s, %s %s -> %s",
			outcome.BalanceBefore.Base, outcome.BalanceAfter.Base,
			t.Ticker, outcome.BalanceBefore.Token, outcome.BalanceAfter.Token)
	}
	if t.AlgoType == domain.AlgoSimpleLimit {
		fmt.Fprintf(&b, "\n%s: deactivated after one-shot fill", t.Ticker)
	} else {
		fmt.Fprintf(&b, "\n%s: Next Buy: %s, Next Sell: %s", t.Ticker, fmtTrigger(t.NextBuy), fmtTrigger(t.NextSell))
	}
	return b.String()
}

func fmtTrigger(v *float64) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%g", *v)
}
