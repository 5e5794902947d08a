package domain

import (
	"fmt"
	"regexp"
	"time"
)

// AlgoType selects the trigger policy governing a token.
type AlgoType string

const (
	AlgoPyramid     AlgoType = "pyramid"
	AlgoScalingStop AlgoType = "scaling-stop"
	AlgoSimpleLimit AlgoType = "simple-limit"
	AlgoScalingOut  AlgoType = "scaling-out"
	AlgoAlert       AlgoType = "alert"
)

// Ratcheting reports whether successful trades move the trigger pair
// along the price ladder, which requires a ladder of at least two levels.
func (a AlgoType) Ratcheting() bool {
	return a == AlgoPyramid || a == AlgoScalingStop || a == AlgoScalingOut
}

func (a AlgoType) valid() bool {
	switch a {
	case AlgoPyramid, AlgoScalingStop, AlgoSimpleLimit, AlgoScalingOut, AlgoAlert:
		return true
	}
	return false
}

var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidAddress reports whether s is a well-formed 0x token address.
func ValidAddress(s string) bool {
	return addressRe.MatchString(s)
}

// Token is a tracked on-chain token with its mutable trigger state.
// NextBuy/NextSell are nil when a trigger side is unset: a ratchet that
// ran off the ladder, or a single-sided policy that never uses the side.
type Token struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Ticker      string    `json:"ticker"`
	IsActive    bool      `json:"isActive"`
	PriceLevels []float64 `json:"priceLevels"`
	NextBuy     *float64  `json:"nextBuy"`
	NextSell    *float64  `json:"nextSell"`
	SwapAmount  float64   `json:"swapAmount"`
	AlgoType    AlgoType  `json:"algoType"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the token schema contract. It does not enforce ladder
// membership of the trigger pair; that interpretation belongs to the policy.
func (t *Token) Validate() error {
	if t.ID == "" {
		return &ConfigError{Reason: "token id is empty"}
	}
	if !addressRe.MatchString(t.Address) {
		return &ConfigError{Reason: fmt.Sprintf("invalid token address %q", t.Address)}
	}
	if t.Ticker == "" {
		return &ConfigError{Reason: fmt.Sprintf("token %s has no ticker", t.Address)}
	}
	if !t.AlgoType.valid() {
		return &ConfigError{Reason: fmt.Sprintf("%s: unknown algo type %q", t.Ticker, t.AlgoType)}
	}
	if t.SwapAmount <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("%s: swap amount must be positive", t.Ticker)}
	}
	if t.AlgoType.Ratcheting() && len(t.PriceLevels) < 2 {
		return &ConfigError{Reason: fmt.Sprintf("%s: ratcheting policy needs at least 2 price levels", t.Ticker)}
	}
	for i, lvl := range t.PriceLevels {
		if lvl <= 0 {
			return &ConfigError{Reason: fmt.Sprintf("%s: price level %f is not positive", t.Ticker, lvl)}
		}
		if i > 0 && lvl <= t.PriceLevels[i-1] {
			return &ConfigError{Reason: fmt.Sprintf("%s: price levels must be strictly increasing", t.Ticker)}
		}
	}
	return nil
}

// ValidateTokens applies Validate to every token and rejects duplicate
// ids and addresses. Used by the controller before each cycle and by the
// registry before any mutation is applied.
func ValidateTokens(tokens []*Token) error {
	seenID := make(map[string]bool, len(tokens))
	seenAddr := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if err := t.Validate(); err != nil {
			return err
		}
		if seenID[t.ID] {
			return &ConfigError{Reason: fmt.Sprintf("duplicate token id %q", t.ID)}
		}
		if seenAddr[t.Address] {
			return &ConfigError{Reason: fmt.Sprintf("duplicate token address %q", t.Address)}
		}
		seenID[t.ID] = true
		seenAddr[t.Address] = true
	}
	return nil
}

// Float is a convenience for building optional trigger values.
func Float(v float64) *float64 {
	return &v
}
