package usecase

import (
	"fmt"
	"math"

	"github.com/vitos/token_swap_level/internal/domain"
)

// alertProximity is the relative distance to a trigger below which the
// alert policy fires a notification.
const alertProximity = 0.05

// Decision is the evaluator verdict for one token at one price.
// Reason is set when the verdict doubles as a configuration signal
// (e.g. both ratchet triggers matched at once).
type Decision struct {
	Action domain.Action
	Alert  bool
	Reason string
}

// triggerPolicy maps a price and the token's trigger pair to a Decision.
// Implementations are pure and total: every price yields exactly one of
// HOLD, BUY or SELL.
type triggerPolicy interface {
	Evaluate(price float64, t *domain.Token) Decision
}

// TriggerEvaluator dispatches to the policy selected by the token's
// algo type, after checking the trigger pair the policy requires.
type TriggerEvaluator struct {
	policies map[domain.AlgoType]triggerPolicy
}

func NewTriggerEvaluator() *TriggerEvaluator {
	return &TriggerEvaluator{
		policies: map[domain.AlgoType]triggerPolicy{
			domain.AlgoPyramid:     pyramidPolicy{},
			domain.AlgoScalingStop: scalingStopPolicy{},
			domain.AlgoSimpleLimit: simpleLimitPolicy{},
			domain.AlgoScalingOut:  scalingOutPolicy{},
			domain.AlgoAlert:       alertPolicy{},
		},
	}
}

// Evaluate returns the policy verdict for the token at price. A missing
// required trigger is a configuration error, not a crash: the token needs
// operator reconfiguration before it can trade in that direction again.
func (e *TriggerEvaluator) Evaluate(t *domain.Token, price float64) (Decision, error) {
	policy, ok := e.policies[t.AlgoType]
	if !ok {
		return Decision{}, &domain.ConfigError{Reason: fmt.Sprintf("%s: unknown algo type %q", t.Ticker, t.AlgoType)}
	}

	switch t.AlgoType {
	case domain.AlgoPyramid, domain.AlgoScalingStop, domain.AlgoSimpleLimit:
		if t.NextBuy == nil || t.NextSell == nil {
			return Decision{}, &domain.ConfigError{Reason: fmt.Sprintf("%s: nextBuy/nextSell is not set", t.Ticker)}
		}
	case domain.AlgoScalingOut:
		if t.NextSell == nil {
			return Decision{}, &domain.ConfigError{Reason: fmt.Sprintf("%s: nextSell is not set", t.Ticker)}
		}
	}

	return policy.Evaluate(price, t), nil
}

// pyramidPolicy is the symmetric ratchet: buy when price reaches nextBuy,
// sell when it falls to nextSell. With a strictly increasing ladder and
// nextBuy > nextSell both conditions cannot hold at once, so a
// simultaneous match is surfaced as a configuration signal and not traded.
type pyramidPolicy struct{}

func (pyramidPolicy) Evaluate(price float64, t *domain.Token) Decision {
	buy := price >= *t.NextBuy
	sell := price <= *t.NextSell
	switch {
	case buy && sell:
		return Decision{
			Action: domain.ActionHold,
			Reason: fmt.Sprintf("%s: price %g matches both nextBuy %g and nextSell %g, levels are misconfigured", t.Ticker, price, *t.NextBuy, *t.NextSell),
		}
	case buy:
		return Decision{Action: domain.ActionBuy}
	case sell:
		return Decision{Action: domain.ActionSell}
	}
	return Decision{Action: domain.ActionHold}
}

// scalingStopPolicy buys on the ratchet's buy condition. The sell side
// is suppressed: the policy accumulates on the way up and never exits.
type scalingStopPolicy struct{}

func (scalingStopPolicy) Evaluate(price float64, t *domain.Token) Decision {
	if price >= *t.NextBuy {
		return Decision{Action: domain.ActionBuy}
	}
	return Decision{Action: domain.ActionHold}
}

// simpleLimitPolicy is a one-shot limit order pair: buy below nextBuy,
// sell above nextSell. A threshold of exactly 0 means that side is
// disabled, guarding default-initialized tokens. Buy is checked first.
type simpleLimitPolicy struct{}

func (simpleLimitPolicy) Evaluate(price float64, t *domain.Token) Decision {
	if *t.NextBuy != 0 && price <= *t.NextBuy {
		return Decision{Action: domain.ActionBuy}
	}
	if *t.NextSell != 0 && price >= *t.NextSell {
		return Decision{Action: domain.ActionSell}
	}
	return Decision{Action: domain.ActionHold}
}

// scalingOutPolicy sells the base asset into a stable asset as price
// rises through nextSell. The buy side does not exist for this policy.
type scalingOutPolicy struct{}

func (scalingOutPolicy) Evaluate(price float64, t *domain.Token) Decision {
	if price >= *t.NextSell {
		return Decision{Action: domain.ActionSell}
	}
	return Decision{Action: domain.ActionHold}
}

// alertPolicy never trades; it flags prices within alertProximity of
// either trigger so the operator can act manually.
type alertPolicy struct{}

func (alertPolicy) Evaluate(price float64, t *domain.Token) Decision {
	near := func(trigger *float64) bool {
		if trigger == nil || price == 0 {
			return false
		}
		return math.Abs(price-*trigger)/price < alertProximity
	}
	return Decision{Action: domain.ActionHold, Alert: near(t.NextBuy) || near(t.NextSell)}
}
