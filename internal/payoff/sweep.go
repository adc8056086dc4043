package payoff

import (
	"math"

	"txo-strategist/internal/models"
)

// Default sweep domain around the spot, in index points.
const (
	DefaultSweepWidth = 4000.0
	DefaultSweepStep  = 10.0

	minSlope       = 1e-4
	dedupeDistance = 1.0
)

// Range is a sweep domain of [center-Width, center+Width] sampled every Step.
type Range struct {
	Width float64
	Step  float64
}

// DefaultRange returns the standard +/-4000 point sweep at 10 point steps.
func DefaultRange() Range {
	return Range{Width: DefaultSweepWidth, Step: DefaultSweepStep}
}

// SweepResult holds extrema and breakevens read off a sampled P&L curve.
type SweepResult struct {
	MaxProfit  float64   `json:"max_profit"`
	MaxLoss    float64   `json:"max_loss"`
	BreakEvens []float64 `json:"break_evens"`
	Samples    int       `json:"samples"`
}

// Sweep samples pnl across the range and finds zero crossings by linear
// interpolation between consecutive samples. Crossings with a slope at or
// below 1e-4 are skipped, a crossing within one point of the previous one
// is dropped, and results are rounded to whole points. Crossings closer
// together than the step can be missed.
func Sweep(pnl models.PayoffFunc, center float64, r Range) SweepResult {
	if r.Step <= 0 {
		r.Step = DefaultSweepStep
	}
	if r.Width < 0 {
		r.Width = -r.Width
	}

	start := center - r.Width
	n := int(math.Floor(2*r.Width/r.Step + 1e-9))

	prev := pnl(start)
	maxP, minP := prev, prev
	breakEvens := []float64{}

	for i := 1; i <= n; i++ {
		price := start + float64(i)*r.Step
		cur := pnl(price)
		if cur > maxP {
			maxP = cur
		}
		if cur < minP {
			minP = cur
		}

		if (prev < 0 && cur >= 0) || (prev > 0 && cur <= 0) {
			slope := cur - prev
			if math.Abs(slope) > minSlope {
				exact := price - r.Step + (0-prev)*r.Step/slope
				if len(breakEvens) == 0 || math.Abs(exact-breakEvens[len(breakEvens)-1]) > dedupeDistance {
					breakEvens = append(breakEvens, math.Round(exact))
				}
			}
		}
		prev = cur
	}

	return SweepResult{
		MaxProfit:  maxP,
		MaxLoss:    math.Max(0, -minP),
		BreakEvens: breakEvens,
		Samples:    n + 1,
	}
}
