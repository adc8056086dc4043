// Package strategy defines option strategies and evaluates them into
// risk/reward summaries.
//
// Fixed structures (single legs, verticals, straddles, condors) have closed
// form results. Portfolio strategies sweep arbitrary leg sets numerically.
package strategy

import (
	"time"

	"txo-strategist/internal/calendar"
	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
)

// Strategy groups.
const (
	GroupSingle     = "single"
	GroupVertical   = "vertical"
	GroupVolatility = "volatility"
	GroupPortfolio  = "portfolio"
)

// InputField is one numeric parameter a strategy reads from Parameters.Values.
type InputField struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Default float64 `json:"default"`
}

// Details is descriptive guidance shown alongside a strategy.
type Details struct {
	When     string   `json:"when"`
	Features []string `json:"features"`
	Pros     []string `json:"pros"`
	Cons     []string `json:"cons"`
}

// Info identifies and describes a strategy.
type Info struct {
	ID          string       `json:"id"`
	Group       string       `json:"group"`
	Name        string       `json:"name"`
	Sentiment   string       `json:"sentiment"`
	Description string       `json:"description"`
	Inputs      []InputField `json:"inputs,omitempty"`
	Details     Details      `json:"details"`
}

// IsPortfolio reports whether the strategy evaluates user-entered legs.
func (i Info) IsPortfolio() bool {
	return i.Group == GroupPortfolio
}

// Parameters are the caller-owned inputs to a strategy.
type Parameters struct {
	// Values holds closed-form inputs keyed by InputField.ID.
	Values map[string]float64
	// Legs is the leg set of a portfolio strategy.
	Legs []models.Leg
	Mode models.Mode
	Now  time.Time
	// DefaultExpiry applies to legs without an expiry of their own.
	DefaultExpiry models.ExpiryRef
}

// Value returns the named input, or 0 when absent.
func (p Parameters) Value(key string) float64 {
	return p.Values[key]
}

// Definition is implemented by every strategy shape.
type Definition interface {
	Info() Info
	// Legs returns the canonical leg list. Portfolio strategies expand
	// quantities into unit legs.
	Legs(p Parameters) []models.Leg
	Calculate(p Parameters, snap models.MarketSnapshot) models.StrategyResult
}

// Env holds what strategies need beyond their parameters.
type Env struct {
	Margin   payoff.MarginParams
	Sweep    payoff.Range
	Calendar *calendar.Calendar
}

// DefaultEnv returns TXO margin parameters, the standard sweep and a
// calendar without holidays.
func DefaultEnv() Env {
	return Env{
		Margin:   payoff.DefaultMarginParams(),
		Sweep:    payoff.DefaultRange(),
		Calendar: calendar.New(),
	}
}

// DefaultValues returns every closed-form input at its default.
func DefaultValues(defs []Definition) map[string]float64 {
	out := make(map[string]float64)
	for _, d := range defs {
		for _, in := range d.Info().Inputs {
			out[in.ID] = in.Default
		}
	}
	return out
}

// Strikes returns the positive strikes of legs.
func Strikes(legs []models.Leg) []float64 {
	out := make([]float64, 0, len(legs))
	for _, l := range legs {
		if l.Strike > 0 {
			out = append(out, l.Strike)
		}
	}
	return out
}
