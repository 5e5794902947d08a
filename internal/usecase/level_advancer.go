package usecase

import (
	"fmt"
	"time"

	"github.com/vitos/token_swap_level/internal/domain"
)

// LevelAdvancer mutates a token's trigger pair after a successful swap.
// It must run exactly once per successful swap; the controller guarantees
// it never runs for a failed one.
type LevelAdvancer struct{}

func NewLevelAdvancer() *LevelAdvancer {
	return &LevelAdvancer{}
}

// Advance moves the trigger pair one band in the direction of the trade.
// Ratchet policies move a (nextSell, nextBuy) window along the ladder:
// after a buy at ladder index i the pair becomes (L[i], L[i+1]); after a
// sell at index j it becomes (L[j-1], L[j]). Running off either end
// leaves that side unset, which halts autonomous trading for the token
// until the operator reconfigures it. One-shot policies deactivate the
// token instead, leaving the levels untouched.
func (a *LevelAdvancer) Advance(t *domain.Token, action domain.Action) error {
	switch t.AlgoType {
	case domain.AlgoPyramid, domain.AlgoScalingStop:
		if err := a.advanceRatchet(t, action); err != nil {
			return err
		}
	case domain.AlgoSimpleLimit:
		t.IsActive = false
	case domain.AlgoScalingOut:
		if action != domain.ActionSell {
			return fmt.Errorf("scaling-out cannot advance after %s", action)
		}
		if err := a.advanceScalingOut(t); err != nil {
			return err
		}
	default:
		return fmt.Errorf("algo %q does not advance levels", t.AlgoType)
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (a *LevelAdvancer) advanceRatchet(t *domain.Token, action domain.Action) error {
	ladder := Ladder(t.PriceLevels)

	switch action {
	case domain.ActionBuy:
		if t.NextBuy == nil {
			return &domain.ConfigError{Reason: fmt.Sprintf("%s: buy side is unset, token needs reconfiguration", t.Ticker)}
		}
		i, found := ladder.IndexOf(*t.NextBuy)
		if !found {
			return &domain.ConfigError{Reason: fmt.Sprintf("%s: nextBuy %g is not a ladder level", t.Ticker, *t.NextBuy)}
		}
		t.NextSell = domain.Float(ladder[i])
		if up, ok := ladder.StepUp(i); ok {
			t.NextBuy = domain.Float(up)
		} else {
			t.NextBuy = nil
		}
	case domain.ActionSell:
		if t.NextSell == nil {
			return &domain.ConfigError{Reason: fmt.Sprintf("%s: sell side is unset, token needs reconfiguration", t.Ticker)}
		}
		j, found := ladder.IndexOf(*t.NextSell)
		if !found {
			return &domain.ConfigError{Reason: fmt.Sprintf("%s: nextSell %g is not a ladder level", t.Ticker, *t.NextSell)}
		}
		t.NextBuy = domain.Float(ladder[j])
		if down, ok := ladder.StepDown(j); ok {
			t.NextSell = domain.Float(down)
		} else {
			t.NextSell = nil
		}
	default:
		return fmt.Errorf("cannot advance ratchet after %s", action)
	}
	return nil
}

// advanceScalingOut moves only the sell trigger, one band upward.
func (a *LevelAdvancer) advanceScalingOut(t *domain.Token) error {
	ladder := Ladder(t.PriceLevels)
	j, found := ladder.IndexOf(*t.NextSell)
	if !found {
		return &domain.ConfigError{Reason: fmt.Sprintf("%s: nextSell %g is not a ladder level", t.Ticker, *t.NextSell)}
	}
	if up, ok := ladder.StepUp(j); ok {
		t.NextSell = domain.Float(up)
	} else {
		t.NextSell = nil
	}
	return nil
}
