package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the trigger evaluator verdict for one token at one price.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Direction of a swap relative to the base asset:
// buy spends RON for tokens, sell spends tokens for RON.
// The wire values match the manual swap API (1=buy, 2=sell).
type Direction int

const (
	DirectionBuy  Direction = 1
	DirectionSell Direction = 2
)

func (d Direction) String() string {
	if d == DirectionSell {
		return "sell"
	}
	return "buy"
}

// AmountMode fixes one side of a swap; the other side is bounded by slippage.
type AmountMode int

const (
	ExactInput AmountMode = iota
	ExactOutput
)

// Balances is a (base asset, token asset) pair for the acting account.
type Balances struct {
	Base  decimal.Decimal `json:"ron"`
	Token decimal.Decimal `json:"token"`
}

// SwapOrder is a fully bounded exchange operation handed to the backend.
// Amount is the fixed side in human units; Bound is the protective limit
// for the floating side (minimum output for ExactInput, maximum input for
// ExactOutput). The backend must reject rather than execute past Deadline.
type SwapOrder struct {
	TokenAddress string
	Direction    Direction
	Mode         AmountMode
	Amount       decimal.Decimal
	Bound        decimal.Decimal
	Deadline     time.Time
}

// Settlement holds the on-chain facts of a mined swap.
type Settlement struct {
	TxHash  string
	GasCost decimal.Decimal
}

// SwapOutcome is the terminal result of one executor run.
// Settlement facts are present only on success, Error only on failure.
type SwapOutcome struct {
	Success       bool            `json:"success"`
	TxHash        string          `json:"txHash,omitempty"`
	GasCost       decimal.Decimal `json:"gasCost"`
	BalanceBefore *Balances       `json:"initialBalance,omitempty"`
	BalanceAfter  *Balances       `json:"finalBalance,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// SwapRecord is the persisted audit row for one executor run.
type SwapRecord struct {
	ID           int64     `json:"id"`
	TokenAddress string    `json:"tokenAddress"`
	Ticker       string    `json:"ticker"`
	Direction    Direction `json:"direction"`
	Amount       float64   `json:"amount"`
	Price        float64   `json:"price"`
	Success      bool      `json:"success"`
	TxHash       string    `json:"txHash,omitempty"`
	GasCost      string    `json:"gasCost,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
