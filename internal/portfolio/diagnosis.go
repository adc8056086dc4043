package portfolio

import (
	"math"

	"txo-strategist/internal/models"
	"txo-strategist/internal/strategy"
)

// annualTradingHoursRoot is sqrt(19 * 252), the trading hours in a year.
const annualTradingHoursRoot = 69.2

// Amplitude is the expected move of the index over the remaining hours.
type Amplitude struct {
	Points  float64 `json:"points"`
	Percent float64 `json:"percent"`
}

// ExpectedMove scales the volatility index to the remaining trading hours
// and applies a correction factor (both in percent).
func ExpectedMove(spot, volPercent, correctionPercent, hours float64) Amplitude {
	frac := math.Sqrt(math.Max(hours, 0)) * (volPercent / annualTradingHoursRoot / 100) * (correctionPercent / 100)
	return Amplitude{Points: spot * frac, Percent: frac * 100}
}

// Verdicts, from best to worst.
const (
	VerdictExcellent = "excellent"
	VerdictGood      = "good"
	VerdictFair      = "fair"
	VerdictPoor      = "not recommended"
	VerdictHighRisk  = "high risk"
)

// Diagnosis is a 0-100 score of a strategy's risk profile with notes.
type Diagnosis struct {
	Score   int      `json:"score"`
	Verdict string   `json:"verdict"`
	Advice  []string `json:"advice"`
}

const (
	baseScore          = 70
	neutralDeltaBand   = 0.15
	lowVolatilityLevel = 13.0
	excellentPayoff    = 3.0
	goodPayoff         = 1.5
	poorPayoff         = 0.5
)

// Diagnose scores a strategy result. Greeks may be nil when the position
// has no legs to price.
func Diagnose(res models.StrategyResult, greeks *models.Greeks, group string, volPercent float64) Diagnosis {
	d := Diagnosis{Score: baseScore, Verdict: VerdictFair, Advice: []string{}}

	profit, loss := res.MaxProfitPoints, res.MaxLossPoints
	unlimitedRisk := math.IsInf(loss, 1)
	ratio := 0.0
	if !unlimitedRisk && loss != 0 {
		ratio = profit / loss
	}

	if unlimitedRisk {
		d.Score -= 25
		d.Verdict = VerdictHighRisk
		d.Advice = append(d.Advice, "Unlimited risk: an extreme move can cause a very large loss.")
	} else {
		d.Score += 10
		d.Advice = append(d.Advice, "Limited risk: the maximum loss is locked in.")
	}

	if !unlimitedRisk && !math.IsInf(profit, 1) {
		switch {
		case ratio >= excellentPayoff:
			d.Score += 15
			d.Verdict = VerdictExcellent
			d.Advice = append(d.Advice, "Excellent payoff ratio (better than 3:1).")
		case ratio >= goodPayoff:
			d.Score += 5
			d.Verdict = VerdictGood
			d.Advice = append(d.Advice, "Good payoff ratio.")
		case ratio < poorPayoff:
			d.Score -= 10
			d.Verdict = VerdictPoor
			d.Advice = append(d.Advice, "Payoff ratio is too low.")
		}
	}

	if greeks != nil {
		if group == strategy.GroupVolatility {
			if math.Abs(greeks.Delta) < neutralDeltaBand {
				d.Score += 5
				d.Advice = append(d.Advice, "Delta is close to neutral, as the strategy intends.")
			} else {
				d.Advice = append(d.Advice, "The position has drifted directional (delta is not neutral).")
			}
		}

		switch {
		case greeks.Theta > 0:
			d.Score += 5
			d.Advice = append(d.Advice, "Positive theta: time decay works for you every day.")
		case greeks.Theta < 0:
			d.Advice = append(d.Advice, "Negative theta: the position loses value if the market stands still.")
		}

		if volPercent < lowVolatilityLevel && greeks.Vega > 0 {
			d.Score += 5
			d.Advice = append(d.Advice, "Volatility is low; long vega benefits if it expands.")
		}
	}

	if d.Score < 0 {
		d.Score = 0
	}
	if d.Score > 100 {
		d.Score = 100
	}
	return d
}
