package pricing

import (
	"math"

	"txo-strategist/internal/models"
)

// daysPerYear converts annual theta into per-calendar-day decay.
const daysPerYear = 365

// Intrinsic returns the immediate exercise value.
func Intrinsic(spot, strike float64, typ models.OptionType) float64 {
	if typ == models.Call {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

// PriceAndGreeks returns the Black-Scholes fair value and Greeks of a European option.
//
// t is in years, rate and sigma are decimals. When t <= 0 the price is the
// intrinsic value and all Greeks are zero. Inputs are not validated: a zero
// sigma or non-positive spot/strike yields NaN or Inf.
//
// Theta is per calendar day and vega per one volatility point.
func PriceAndGreeks(spot, strike, t, rate, sigma float64, typ models.OptionType) models.PricingResult {
	if t <= 0 {
		return models.PricingResult{Price: Intrinsic(spot, strike, typ)}
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := strike * math.Exp(-rate*t)
	density := PDF(d1)
	decay := -(spot * sigma * density) / (2 * sqrtT)

	var res models.PricingResult
	if typ == models.Call {
		res.Price = spot*CDF(d1) - discount*CDF(d2)
		res.Delta = CDF(d1)
		res.Theta = (decay - rate*discount*CDF(d2)) / daysPerYear
	} else {
		res.Price = discount*CDF(-d2) - spot*CDF(-d1)
		res.Delta = CDF(d1) - 1
		res.Theta = (decay + rate*discount*(1-CDF(d2))) / daysPerYear
	}
	res.Gamma = density / (spot * sigma * sqrtT)
	res.Vega = spot * sqrtT * density / 100
	return res
}

// Price returns only the fair value.
func Price(spot, strike, t, rate, sigma float64, typ models.OptionType) float64 {
	return PriceAndGreeks(spot, strike, t, rate, sigma, typ).Price
}
