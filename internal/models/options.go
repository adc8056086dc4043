package models

import (
	"math"
	"strings"
)

// OptionType is the right conveyed by an option contract.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts call/put in any case, plus the C/P shorthand.
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, true
	case "put", "p":
		return Put, true
	}
	return "", false
}

// Action is the direction of a leg.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// ParseAction accepts buy/sell and long/short in any case.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long", "b":
		return Buy, true
	case "sell", "short", "s":
		return Sell, true
	}
	return "", false
}

// Direction returns +1 for a bought leg and -1 for a sold one.
func (a Action) Direction() float64 {
	if a == Sell {
		return -1
	}
	return 1
}

// ExpiryRef identifies a settlement date. It is either an ISO date
// ("2026-02-04") or an exchange contract code ("202602", "202602W1", "202602F2").
// An empty ref means the session's global expiry applies.
type ExpiryRef string

// Leg represents one option position.
type Leg struct {
	ID       string     `json:"id"`
	Action   Action     `json:"action"`
	Type     OptionType `json:"type"`
	Strike   float64    `json:"strike"`
	Premium  float64    `json:"premium"`
	Quantity float64    `json:"quantity"`
	Expiry   ExpiryRef  `json:"expiry,omitempty"`
}

// IsShort reports whether the leg was sold.
func (l Leg) IsShort() bool {
	return l.Action == Sell
}

// Intrinsic returns the exercise value of the leg at the given underlying price.
func (l Leg) Intrinsic(price float64) float64 {
	if l.Type == Call {
		return math.Max(0, price-l.Strike)
	}
	return math.Max(0, l.Strike-price)
}

// Contribution returns the P&L in points of the leg when its option is valued at value.
func (l Leg) Contribution(value float64) float64 {
	if l.Action == Buy {
		return (value - l.Premium) * l.Quantity
	}
	return (l.Premium - value) * l.Quantity
}

// MarketSnapshot holds the market inputs for pricing. Rates are in percent.
type MarketSnapshot struct {
	Spot                float64 `json:"spot"`
	RiskFreeRatePercent float64 `json:"risk_free_rate_percent"`
	VolatilityPercent   float64 `json:"volatility_percent"`
}

// Rate returns the risk-free rate as a decimal.
func (m MarketSnapshot) Rate() float64 {
	return m.RiskFreeRatePercent / 100
}

// Sigma returns the volatility proxy as a decimal.
func (m MarketSnapshot) Sigma() float64 {
	return m.VolatilityPercent / 100
}

// Greeks represents option sensitivities.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// PricingResult is a fair value with its Greeks.
type PricingResult struct {
	Price float64 `json:"price"`
	Greeks
}

// Mode selects how legs are valued inside the P&L function.
type Mode string

const (
	// ModeExpiry values every leg at its settlement intrinsic value.
	ModeExpiry Mode = "expiry"
	// ModeTheoretical values legs at their T+0 Black-Scholes fair value.
	ModeTheoretical Mode = "theoretical"
)

// ParseMode returns the mode for s, defaulting to ModeExpiry.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeTheoretical)) {
		return ModeTheoretical
	}
	return ModeExpiry
}

// PayoffFunc maps an underlying price to P&L in points.
type PayoffFunc func(price float64) float64

// StrategyResult is the risk/reward summary of a strategy.
// MaxProfitPoints and MaxLossPoints may be +Inf.
type StrategyResult struct {
	MaxProfitPoints float64    `json:"max_profit_points"`
	MaxLossPoints   float64    `json:"max_loss_points"`
	BreakEvens      []float64  `json:"break_evens"`
	Payoff          PayoffFunc `json:"-"`
	EstimatedMargin float64    `json:"estimated_margin"`
}

// NeutralResult is returned when a calculation could not complete.
func NeutralResult() StrategyResult {
	return StrategyResult{
		BreakEvens: []float64{},
		Payoff:     func(float64) float64 { return 0 },
	}
}
