package payoff

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"txo-strategist/internal/models"
)

// Chart sampling defaults.
const (
	DefaultChartSteps = 150

	minChartSpread   = 600.0
	maxChartPadding  = 2000.0
	chartPadFraction = 0.4
	chartRounding    = 100.0
	minPlausiblePx   = 5000.0
	keyPriceTolerant = 1.0
)

// Point is one sample of the P&L curve.
type Point struct {
	Price     float64  `json:"price"`
	PnLPoints float64  `json:"pnl_points"`
	PnLMoney  float64  `json:"pnl_money"`
	Benchmark *float64 `json:"benchmark_pnl,omitempty"`
}

// KeyPrices are the prices worth marking on a chart.
type KeyPrices struct {
	Current       float64   `json:"current"`
	Strikes       []float64 `json:"strikes"`
	BreakEvens    []float64 `json:"break_evens"`
	ProfitStrikes []float64 `json:"profit_strikes"`
	LossStrikes   []float64 `json:"loss_strikes"`
}

// ChartInput describes what to sample.
type ChartInput struct {
	Spot       float64
	Strikes    []float64
	BreakEvens []float64
	MaxProfit  float64
	MaxLoss    float64
	Steps      int
	Multiplier float64
	// Benchmark is an earlier curve to overlay, typically a saved Chart's Points.
	Benchmark []Point
}

// Chart is a sampled P&L curve with its plotting bounds.
type Chart struct {
	Points    []Point    `json:"points"`
	MinPrice  float64    `json:"min_price"`
	MaxPrice  float64    `json:"max_price"`
	KeyPrices KeyPrices  `json:"key_prices"`
	PnLDomain [2]float64 `json:"pnl_domain"`
}

// BuildChart samples pnl over a range padded around the spot, strikes and
// breakevens. The spread between the extreme prices is at least 600 points;
// padding is 40% of it capped at 2000, and the bounds are rounded outwards
// to 100.
func BuildChart(pnl models.PayoffFunc, in ChartInput) Chart {
	steps := in.Steps
	if steps <= 0 {
		steps = DefaultChartSteps
	}

	strikes := positive(in.Strikes)
	breakEvens := finite(in.BreakEvens)

	valid := make([]float64, 0, 1+len(strikes)+len(breakEvens))
	for _, v := range append(append([]float64{in.Spot}, strikes...), breakEvens...) {
		if v > minPlausiblePx {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, in.Spot)
	}

	lo, hi := floats.Min(valid), floats.Max(valid)
	spread := math.Max(hi-lo, minChartSpread)
	padding := math.Min(spread*chartPadFraction, maxChartPadding)
	rangeMin := math.Floor((lo-padding)/chartRounding) * chartRounding
	rangeMax := math.Ceil((hi+padding)/chartRounding) * chartRounding
	stepSize := (rangeMax - rangeMin) / float64(steps)

	points := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		price := math.Round(rangeMin + float64(i)*stepSize)
		v := pnl(price)
		if math.IsNaN(v) {
			continue
		}
		points = append(points, Point{Price: price, PnLPoints: v, PnLMoney: v * in.Multiplier})
	}

	chart := Chart{
		Points:   points,
		MinPrice: rangeMin,
		MaxPrice: rangeMax,
		KeyPrices: KeyPrices{
			Current:       in.Spot,
			Strikes:       unique(strikes),
			BreakEvens:    breakEvens,
			ProfitStrikes: []float64{},
			LossStrikes:   []float64{},
		},
	}

	pnls := make([]float64, 0, len(points)+len(in.Benchmark))
	for _, p := range points {
		pnls = append(pnls, p.PnLPoints)
	}

	if len(in.Benchmark) > 0 {
		for i := range chart.Points {
			for _, b := range in.Benchmark {
				if math.Abs(b.Price-chart.Points[i].Price) < stepSize/2 {
					v := b.PnLPoints
					chart.Points[i].Benchmark = &v
					break
				}
			}
		}
		for _, b := range in.Benchmark {
			pnls = append(pnls, b.PnLPoints)
		}
	}
	if len(pnls) > 0 {
		chart.PnLDomain = [2]float64{floats.Min(pnls), floats.Max(pnls)}
	}

	if !math.IsInf(in.MaxProfit, 1) {
		for _, k := range strikes {
			if math.Abs(pnl(k)-in.MaxProfit) < keyPriceTolerant {
				chart.KeyPrices.ProfitStrikes = append(chart.KeyPrices.ProfitStrikes, k)
			}
		}
		chart.KeyPrices.ProfitStrikes = unique(chart.KeyPrices.ProfitStrikes)
	}
	if !math.IsInf(in.MaxLoss, 1) {
		for _, k := range strikes {
			if math.Abs(pnl(k)+in.MaxLoss) < keyPriceTolerant {
				chart.KeyPrices.LossStrikes = append(chart.KeyPrices.LossStrikes, k)
			}
		}
		chart.KeyPrices.LossStrikes = unique(chart.KeyPrices.LossStrikes)
	}

	return chart
}

// BenchmarkFrom strips a chart down to the price/P&L pairs kept as a
// benchmark overlay.
func BenchmarkFrom(c Chart) []Point {
	out := make([]Point, len(c.Points))
	for i, p := range c.Points {
		out[i] = Point{Price: p.Price, PnLPoints: p.PnLPoints}
	}
	return out
}

func positive(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func unique(vs []float64) []float64 {
	seen := make(map[float64]bool, len(vs))
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
