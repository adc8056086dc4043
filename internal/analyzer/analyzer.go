// Package analyzer runs one complete analysis of the session state: the
// strategy result, aggregate Greeks, the P&L chart, the per-leg table, the
// expected move and a diagnosis.
package analyzer

import (
	"time"

	"github.com/rs/zerolog"

	"txo-strategist/internal/calendar"
	"txo-strategist/internal/logging"
	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
	"txo-strategist/internal/portfolio"
	"txo-strategist/internal/state"
	"txo-strategist/internal/strategy"
)

// Report is the outcome of one analysis run.
type Report struct {
	Strategy       strategy.Info         `json:"strategy"`
	Snapshot       models.MarketSnapshot `json:"snapshot"`
	Mode           models.Mode           `json:"mode"`
	Expiry         models.ExpiryRef      `json:"expiry"`
	RemainingHours float64               `json:"remaining_hours"`
	TimeYears      float64               `json:"time_years"`
	Result         models.StrategyResult `json:"result"`
	Legs           []models.Leg          `json:"legs"`
	// Greeks is nil when the strategy has no legs.
	Greeks *models.Greeks `json:"greeks,omitempty"`
	Chart  payoff.Chart   `json:"chart"`
	// LegTable is set for portfolio strategies only.
	LegTable    *portfolio.LegTable `json:"leg_table,omitempty"`
	Amplitude   portfolio.Amplitude `json:"amplitude"`
	Diagnosis   portfolio.Diagnosis `json:"diagnosis"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Config holds the analyzer settings that do not live in the state.
type Config struct {
	Margin     payoff.MarginParams
	ChartSteps int
}

// Analyzer wires the engine, calendar and portfolio analytics together.
type Analyzer struct {
	engine *strategy.Engine
	cal    *calendar.Calendar
	cfg    Config
	logger zerolog.Logger
}

// New creates an analyzer.
func New(engine *strategy.Engine, cal *calendar.Calendar, cfg Config, logger zerolog.Logger) *Analyzer {
	if cfg.Margin.Multiplier <= 0 {
		cfg.Margin = payoff.DefaultMarginParams()
	}
	return &Analyzer{
		engine: engine,
		cal:    cal,
		cfg:    cfg,
		logger: logging.WithOperation(logger, "analyze"),
	}
}

// Run analyzes the selected strategy of st at now. An unknown strategy is
// reported as an error together with a report built on the neutral result.
func (a *Analyzer) Run(st *state.AppState, now time.Time) (Report, error) {
	id := st.SelectedStrategy
	params := st.Parameters(now)
	snap := st.Snapshot()
	expiry := st.EffectiveExpiry()

	hours := a.cal.RemainingTradingHours(expiry, now)
	years := calendar.TradingHoursToYears(hours)

	rep := Report{
		Snapshot:       snap,
		Mode:           params.Mode,
		Expiry:         expiry,
		RemainingHours: hours,
		TimeYears:      years,
		Legs:           []models.Leg{},
		GeneratedAt:    now,
	}

	res, err := a.engine.Evaluate(id, params, snap)
	rep.Result = res
	if def, ok := a.engine.Registry().Get(id); ok {
		rep.Strategy = def.Info()
		if legs, lerr := a.engine.Legs(id, params); lerr == nil {
			rep.Legs = legs
		}
	} else {
		rep.Strategy = strategy.Info{ID: id}
	}

	// Portfolio Greeks weight the entered legs by their exact quantity
	// rather than the expanded unit legs.
	greekLegs := rep.Legs
	if rep.Strategy.IsPortfolio() {
		greekLegs = params.Legs
	}
	if len(greekLegs) > 0 {
		g := portfolio.AggregateGreeks(greekLegs, snap, years)
		rep.Greeks = &g
	}

	if rep.Strategy.IsPortfolio() {
		table := portfolio.AnalyzeLegs(params.Legs, portfolio.AnalysisInput{
			Snapshot:      snap,
			Calendar:      a.cal,
			Now:           now,
			DefaultExpiry: params.DefaultExpiry,
			Multiplier:    a.cfg.Margin.Multiplier,
		})
		rep.LegTable = &table
	}

	rep.Chart = payoff.BuildChart(res.Payoff, payoff.ChartInput{
		Spot:       snap.Spot,
		Strikes:    strategy.Strikes(rep.Legs),
		BreakEvens: res.BreakEvens,
		MaxProfit:  res.MaxProfitPoints,
		MaxLoss:    res.MaxLossPoints,
		Steps:      a.cfg.ChartSteps,
		Multiplier: a.cfg.Margin.Multiplier,
		Benchmark:  st.Benchmark,
	})

	rep.Amplitude = portfolio.ExpectedMove(snap.Spot, snap.VolatilityPercent, st.Inputs.VolCorrectionPercent, hours)
	rep.Diagnosis = portfolio.Diagnose(res, rep.Greeks, rep.Strategy.Group, snap.VolatilityPercent)

	a.logger.Debug().
		Str("strategy", id).
		Float64("hours", hours).
		Int("points", len(rep.Chart.Points)).
		Int("score", rep.Diagnosis.Score).
		Msg("analysis complete")

	return rep, err
}
