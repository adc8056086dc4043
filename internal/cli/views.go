package cli

import (
	"math"
	"strconv"
	"time"

	"txo-strategist/internal/analyzer"
	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
	"txo-strategist/internal/portfolio"
	"txo-strategist/internal/strategy"
	"txo-strategist/pkg/utils"
)

// Amount is a float that encodes +Inf as "unlimited" and NaN as null,
// which encoding/json cannot represent.
type Amount float64

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	f := float64(a)
	switch {
	case math.IsNaN(f):
		return []byte("null"), nil
	case math.IsInf(f, 1):
		return []byte(`"` + utils.Unlimited + `"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-` + utils.Unlimited + `"`), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// ResultView is the JSON form of a strategy result.
type ResultView struct {
	MaxProfitPoints Amount    `json:"max_profit_points"`
	MaxLossPoints   Amount    `json:"max_loss_points"`
	MaxProfitMoney  Amount    `json:"max_profit_money"`
	MaxLossMoney    Amount    `json:"max_loss_money"`
	BreakEvens      []float64 `json:"break_evens"`
	EstimatedMargin Amount    `json:"estimated_margin"`
}

func newResultView(r models.StrategyResult, multiplier float64) ResultView {
	be := r.BreakEvens
	if be == nil {
		be = []float64{}
	}
	return ResultView{
		MaxProfitPoints: Amount(r.MaxProfitPoints),
		MaxLossPoints:   Amount(r.MaxLossPoints),
		MaxProfitMoney:  Amount(r.MaxProfitPoints * multiplier),
		MaxLossMoney:    Amount(r.MaxLossPoints * multiplier),
		BreakEvens:      be,
		EstimatedMargin: Amount(r.EstimatedMargin),
	}
}

// GreeksView is the JSON form of Greeks.
type GreeksView struct {
	Delta Amount `json:"delta"`
	Gamma Amount `json:"gamma"`
	Theta Amount `json:"theta"`
	Vega  Amount `json:"vega"`
}

func newGreeksView(g *models.Greeks) *GreeksView {
	if g == nil {
		return nil
	}
	return &GreeksView{
		Delta: Amount(g.Delta),
		Gamma: Amount(g.Gamma),
		Theta: Amount(g.Theta),
		Vega:  Amount(g.Vega),
	}
}

// ChartView is the JSON form of a P&L chart.
type ChartView struct {
	MinPrice  float64          `json:"min_price"`
	MaxPrice  float64          `json:"max_price"`
	KeyPrices payoff.KeyPrices `json:"key_prices"`
	PnLDomain [2]float64       `json:"pnl_domain"`
	Points    []payoff.Point   `json:"points,omitempty"`
}

func newChartView(c payoff.Chart, withPoints bool) ChartView {
	v := ChartView{
		MinPrice:  c.MinPrice,
		MaxPrice:  c.MaxPrice,
		KeyPrices: c.KeyPrices,
		PnLDomain: c.PnLDomain,
	}
	if withPoints {
		v.Points = c.Points
	}
	return v
}

// ReportView is the JSON form of an analysis report.
type ReportView struct {
	Strategy       strategy.Info         `json:"strategy"`
	Snapshot       models.MarketSnapshot `json:"snapshot"`
	Mode           models.Mode           `json:"mode"`
	Expiry         models.ExpiryRef      `json:"expiry"`
	RemainingHours float64               `json:"remaining_hours"`
	Result         ResultView            `json:"result"`
	Legs           []models.Leg          `json:"legs"`
	Greeks         *GreeksView           `json:"greeks,omitempty"`
	Chart          ChartView             `json:"chart"`
	LegTable       *portfolio.LegTable   `json:"leg_table,omitempty"`
	Amplitude      portfolio.Amplitude   `json:"amplitude"`
	Diagnosis      portfolio.Diagnosis   `json:"diagnosis"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

func newReportView(rep analyzer.Report, multiplier float64, withPoints bool) ReportView {
	legs := rep.Legs
	if legs == nil {
		legs = []models.Leg{}
	}
	return ReportView{
		Strategy:       rep.Strategy,
		Snapshot:       rep.Snapshot,
		Mode:           rep.Mode,
		Expiry:         rep.Expiry,
		RemainingHours: rep.RemainingHours,
		Result:         newResultView(rep.Result, multiplier),
		Legs:           legs,
		Greeks:         newGreeksView(rep.Greeks),
		Chart:          newChartView(rep.Chart, withPoints),
		LegTable:       rep.LegTable,
		Amplitude:      rep.Amplitude,
		Diagnosis:      rep.Diagnosis,
		GeneratedAt:    rep.GeneratedAt,
	}
}
