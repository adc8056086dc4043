package payoff

import (
	"math"

	"github.com/shopspring/decimal"

	"txo-strategist/internal/models"
)

// MarginParams are the exchange's published margin inputs. ConstantA and
// ConstantB change periodically and come from configuration.
type MarginParams struct {
	Multiplier float64 `mapstructure:"multiplier" json:"multiplier"`
	ConstantA  float64 `mapstructure:"constant_a" json:"constant_a"`
	ConstantB  float64 `mapstructure:"constant_b" json:"constant_b"`
}

// DefaultMarginParams returns TXO's point value and the A/B values in
// effect when this was written.
func DefaultMarginParams() MarginParams {
	return MarginParams{
		Multiplier: 50,
		ConstantA:  50000,
		ConstantB:  25000,
	}
}

// ShortLegMargin is the exchange margin estimate for one unit of a short
// option: premium market value plus max(A - OTM value, B).
func ShortLegMargin(typ models.OptionType, strike, premium, spot float64, p MarginParams) float64 {
	var otm float64
	if typ == models.Call {
		otm = math.Max(0, strike-spot)
	} else {
		otm = math.Max(0, spot-strike)
	}
	marketValue := premium * p.Multiplier
	return marketValue + math.Max(p.ConstantA-otm*p.Multiplier, p.ConstantB)
}

// EstimateMargin sums ShortLegMargin over every sold leg, weighted by
// quantity. Bought legs need no margin.
func EstimateMargin(legs []models.Leg, spot float64, p MarginParams) float64 {
	total := decimal.Zero
	for _, leg := range legs {
		if !leg.IsShort() {
			continue
		}
		unit := decimal.NewFromFloat(ShortLegMargin(leg.Type, leg.Strike, leg.Premium, spot, p))
		total = total.Add(unit.Mul(decimal.NewFromFloat(leg.Quantity)))
	}
	f, _ := total.Float64()
	return f
}

// SpreadMargin is the margin of a defined-risk spread: width times the
// point value.
func SpreadMargin(width float64, p MarginParams) float64 {
	f, _ := decimal.NewFromFloat(width).Mul(decimal.NewFromFloat(p.Multiplier)).Float64()
	return f
}
