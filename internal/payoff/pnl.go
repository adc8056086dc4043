// Package payoff aggregates option legs into a P&L curve, locates
// breakevens on a sampled sweep, estimates exchange margin and samples the
// curve for charting.
package payoff

import (
	"time"

	"txo-strategist/internal/calendar"
	"txo-strategist/internal/models"
	"txo-strategist/internal/pricing"
)

// MinTimeYears is the time-to-expiry at or below which theoretical mode
// values a leg at intrinsic.
const MinTimeYears = 0.001

// Options controls how NewPnL values each leg.
type Options struct {
	Mode     models.Mode
	Snapshot models.MarketSnapshot
	Calendar *calendar.Calendar
	Now      time.Time
	// DefaultExpiry applies to legs without their own expiry.
	DefaultExpiry models.ExpiryRef
}

// NewPnL returns the aggregate P&L in points of legs as a function of the
// underlying price. The legs are copied; later changes to the slice do not
// affect the returned function.
func NewPnL(legs []models.Leg, opts Options) models.PayoffFunc {
	frozen := make([]models.Leg, len(legs))
	copy(frozen, legs)

	theoretical := opts.Mode == models.ModeTheoretical && opts.Calendar != nil
	years := make([]float64, len(frozen))
	if theoretical {
		for i, leg := range frozen {
			years[i] = LegTimeYears(opts.Calendar, leg, opts.DefaultExpiry, opts.Now)
		}
	}
	rate, sigma := opts.Snapshot.Rate(), opts.Snapshot.Sigma()

	return func(price float64) float64 {
		total := 0.0
		for i, leg := range frozen {
			value := leg.Intrinsic(price)
			if theoretical && years[i] > MinTimeYears {
				value = pricing.Price(price, leg.Strike, years[i], rate, sigma, leg.Type)
			}
			total += leg.Contribution(value)
		}
		return total
	}
}

// LegTimeYears converts the leg's remaining trading hours into years.
func LegTimeYears(cal *calendar.Calendar, leg models.Leg, fallback models.ExpiryRef, now time.Time) float64 {
	ref := leg.Expiry
	if ref == "" {
		ref = fallback
	}
	hours := cal.RemainingTradingHours(ref, now)
	if hours < 0 {
		hours = 0
	}
	return calendar.TradingHoursToYears(hours)
}
