// Package portfolio computes position-level risk: aggregate Greeks, a
// per-leg valuation table, the expected move and a rule-based diagnosis.
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"txo-strategist/internal/calendar"
	"txo-strategist/internal/models"
	"txo-strategist/internal/pricing"
)

// AggregateGreeks sums per-leg Greeks priced with one shared time to
// expiry, signed by direction and weighted by quantity. Individual leg
// expiries are ignored here, unlike payoff.NewPnL which prices each leg to
// its own expiry.
func AggregateGreeks(legs []models.Leg, snap models.MarketSnapshot, sharedTimeYears float64) models.Greeks {
	var total models.Greeks
	rate, sigma := snap.Rate(), snap.Sigma()

	for _, leg := range legs {
		g := pricing.PriceAndGreeks(snap.Spot, leg.Strike, sharedTimeYears, rate, sigma, leg.Type)
		w := leg.Action.Direction() * leg.Quantity
		total.Delta += g.Delta * w
		total.Gamma += g.Gamma * w
		total.Theta += g.Theta * w
		total.Vega += g.Vega * w
	}
	return total
}

// minLegDays floors a leg's time to expiry when pricing its table row.
const minLegDays = 0.001

// LegRow is the live valuation of one leg.
type LegRow struct {
	Leg              models.Leg    `json:"leg"`
	Hours            float64       `json:"hours"`
	Days             float64       `json:"days"`
	TheoreticalPrice float64       `json:"theoretical_price"`
	Intrinsic        float64       `json:"intrinsic"`
	TimeValue        float64       `json:"time_value"`
	UnitPnL          float64       `json:"unit_pnl"`
	LegPnL           float64       `json:"leg_pnl"`
	PremiumDeviation float64       `json:"premium_deviation"`
	Greeks           models.Greeks `json:"greeks"`
}

// LegTable is the per-leg analysis with position totals.
type LegTable struct {
	Rows     []LegRow      `json:"rows"`
	Greeks   models.Greeks `json:"greeks"`
	TotalPnL float64       `json:"total_pnl"`
}

// AnalysisInput holds what AnalyzeLegs needs besides the legs.
type AnalysisInput struct {
	Snapshot      models.MarketSnapshot
	Calendar      *calendar.Calendar
	Now           time.Time
	DefaultExpiry models.ExpiryRef
	Multiplier    float64
}

// AnalyzeLegs values every leg at the current spot, each to its own
// expiry. Rows are sorted by days to expiry, then strike, calls first.
// LegPnL and TotalPnL are in currency units.
func AnalyzeLegs(legs []models.Leg, in AnalysisInput) LegTable {
	rate, sigma := in.Snapshot.Rate(), in.Snapshot.Sigma()
	spot := in.Snapshot.Spot

	rows := make([]LegRow, 0, len(legs))
	for _, leg := range legs {
		ref := leg.Expiry
		if ref == "" {
			ref = in.DefaultExpiry
		}
		hours := in.Calendar.RemainingTradingHours(ref, in.Now)
		days := hours / calendar.HoursPerTradingDay
		t := math.Max(days, minLegDays) / 365

		res := pricing.PriceAndGreeks(spot, leg.Strike, t, rate, sigma, leg.Type)
		intrinsic := pricing.Intrinsic(spot, leg.Strike, leg.Type)

		settle := res.Price
		if days <= 0 {
			settle = intrinsic
		}
		unit := (settle - leg.Premium) * leg.Action.Direction()

		deviation := 0.0
		if res.Price > 0 {
			deviation = (leg.Premium - res.Price) / res.Price
		}

		rows = append(rows, LegRow{
			Leg:              leg,
			Hours:            hours,
			Days:             days,
			TheoreticalPrice: res.Price,
			Intrinsic:        intrinsic,
			TimeValue:        math.Max(0, res.Price-intrinsic),
			UnitPnL:          unit,
			LegPnL:           unit * leg.Quantity * in.Multiplier,
			PremiumDeviation: deviation,
			Greeks:           res.Greeks,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Days != b.Days {
			return a.Days < b.Days
		}
		if a.Leg.Strike != b.Leg.Strike {
			return a.Leg.Strike < b.Leg.Strike
		}
		return a.Leg.Type == models.Call && b.Leg.Type != models.Call
	})

	table := LegTable{Rows: rows}
	total := decimal.Zero
	for _, r := range rows {
		w := r.Leg.Action.Direction() * r.Leg.Quantity
		table.Greeks.Delta += r.Greeks.Delta * w
		table.Greeks.Gamma += r.Greeks.Gamma * w
		table.Greeks.Theta += r.Greeks.Theta * w
		table.Greeks.Vega += r.Greeks.Vega * w
		total = total.Add(decimal.NewFromFloat(r.LegPnL))
	}
	table.TotalPnL, _ = total.Float64()
	return table
}
