package analyzer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"txo-strategist/internal/calendar"
	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
	"txo-strategist/internal/portfolio"
	"txo-strategist/internal/state"
	"txo-strategist/internal/strategy"
)

type fixture struct {
	analyzer *Analyzer
	state    *state.AppState
	cal      *calendar.Calendar
	now      time.Time
}

func newFixture() fixture {
	env := strategy.DefaultEnv()
	registry := strategy.NewRegistry(env)
	engine := strategy.NewEngine(registry, zerolog.Nop())
	cal := env.Calendar
	now := time.Date(2026, time.February, 2, 10, 0, 0, 0, cal.Location())
	return fixture{
		analyzer: New(engine, cal, Config{}, zerolog.Nop()),
		state:    state.Default(state.DefaultDefaults(registry), cal, now),
		cal:      cal,
		now:      now,
	}
}

func TestRunIronCondor(t *testing.T) {
	f := newFixture()

	rep, err := f.analyzer.Run(f.state, f.now)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if rep.Strategy.ID != "ironCondor" || rep.Strategy.Group != strategy.GroupVolatility {
		t.Errorf("Strategy = %+v", rep.Strategy)
	}
	if rep.Result.MaxProfitPoints != 160 || rep.Result.MaxLossPoints != 40 {
		t.Errorf("profit/loss = %v/%v, want 160/40", rep.Result.MaxProfitPoints, rep.Result.MaxLossPoints)
	}
	if len(rep.Legs) != 4 {
		t.Errorf("len(Legs) = %d, want 4", len(rep.Legs))
	}
	if rep.Expiry != "2026-02-04" {
		t.Errorf("Expiry = %q", rep.Expiry)
	}

	wantHours := f.cal.RemainingTradingHours("2026-02-04", f.now)
	if rep.RemainingHours != wantHours || rep.TimeYears != calendar.TradingHoursToYears(wantHours) {
		t.Errorf("hours/years = %v/%v", rep.RemainingHours, rep.TimeYears)
	}

	if rep.Greeks == nil {
		t.Fatal("Greeks = nil, want aggregate Greeks")
	}
	want := portfolio.AggregateGreeks(rep.Legs, rep.Snapshot, rep.TimeYears)
	if *rep.Greeks != want {
		t.Errorf("Greeks = %+v, want %+v", *rep.Greeks, want)
	}
	if rep.Greeks.Theta <= 0 {
		t.Errorf("short condor theta = %v, want positive", rep.Greeks.Theta)
	}

	if len(rep.Chart.Points) != payoff.DefaultChartSteps+1 {
		t.Errorf("chart points = %d, want %d", len(rep.Chart.Points), payoff.DefaultChartSteps+1)
	}
	if rep.LegTable != nil {
		t.Error("closed-form strategy should have no leg table")
	}
	if rep.Amplitude.Points <= 0 {
		t.Errorf("Amplitude = %+v", rep.Amplitude)
	}
	if rep.Diagnosis.Verdict != portfolio.VerdictExcellent || rep.Diagnosis.Score != 100 {
		t.Errorf("Diagnosis = %+v", rep.Diagnosis)
	}
}

func TestRunPortfolio(t *testing.T) {
	f := newFixture()
	f.state.SelectedStrategy = strategy.CustomID
	f.state.AddLeg(strategy.CustomID, models.Leg{Action: models.Sell, Type: models.Call, Strike: 32400, Premium: 60, Quantity: 2, Expiry: "202602W2"})

	rep, err := f.analyzer.Run(f.state, f.now)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rep.LegTable == nil || len(rep.LegTable.Rows) != 2 {
		t.Fatalf("LegTable = %+v, want 2 rows", rep.LegTable)
	}
	// Quantity 2 expands into two unit legs.
	if len(rep.Legs) != 3 {
		t.Errorf("len(Legs) = %d, want 3", len(rep.Legs))
	}
	if rep.Result.EstimatedMargin <= 0 {
		t.Errorf("EstimatedMargin = %v, want positive for a short call", rep.Result.EstimatedMargin)
	}
}

func TestRunPortfolioGreeksUseExactQuantity(t *testing.T) {
	f := newFixture()
	f.state.SelectedStrategy = strategy.SimulationCID
	if _, err := f.state.AddLeg(strategy.SimulationCID, models.Leg{Action: models.Sell, Type: models.Put, Strike: 31800, Premium: 88.5, Quantity: 1.5, Expiry: "202602W2"}); err != nil {
		t.Fatalf("AddLeg() error: %v", err)
	}

	rep, err := f.analyzer.Run(f.state, f.now)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rep.Greeks == nil {
		t.Fatal("Greeks = nil")
	}
	// Two unit legs are listed, but the Greeks carry 1.5 lots.
	if len(rep.Legs) != 2 {
		t.Errorf("len(Legs) = %d, want 2", len(rep.Legs))
	}
	unit := portfolio.AggregateGreeks([]models.Leg{{Action: models.Sell, Type: models.Put, Strike: 31800, Premium: 88.5, Quantity: 1}}, rep.Snapshot, rep.TimeYears)
	if math.Abs(rep.Greeks.Delta-1.5*unit.Delta) > 1e-9 || math.Abs(rep.Greeks.Vega-1.5*unit.Vega) > 1e-9 {
		t.Errorf("Greeks = %+v, want 1.5 x %+v", *rep.Greeks, unit)
	}
}

func TestRunFilteredExpiry(t *testing.T) {
	f := newFixture()
	f.state.SelectedStrategy = strategy.SimulationAID
	f.state.AddLeg(strategy.SimulationAID, models.Leg{Action: models.Buy, Type: models.Put, Strike: 31800, Premium: 90, Quantity: 1, Expiry: "202602W2"})
	f.state.AddLeg(strategy.SimulationAID, models.Leg{Action: models.Buy, Type: models.Call, Strike: 32200, Premium: 90, Quantity: 1, Expiry: "202603"})
	f.state.FilterExpiry = "202602W2"

	rep, err := f.analyzer.Run(f.state, f.now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Legs) != 1 || rep.Legs[0].Type != models.Put {
		t.Errorf("Legs = %+v, want only the filtered put", rep.Legs)
	}
	if rep.Expiry != "202602W2" {
		t.Errorf("Expiry = %q, want the filtered expiry", rep.Expiry)
	}
	if rep.RemainingHours != f.cal.RemainingTradingHours("202602W2", f.now) {
		t.Errorf("RemainingHours = %v", rep.RemainingHours)
	}
}

func TestRunEmptyPortfolio(t *testing.T) {
	f := newFixture()
	f.state.SelectedStrategy = strategy.SimulationBID

	rep, err := f.analyzer.Run(f.state, f.now)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Greeks != nil {
		t.Errorf("Greeks = %+v, want nil without legs", rep.Greeks)
	}
	if rep.Result.MaxProfitPoints != 0 || rep.Result.MaxLossPoints != 0 || len(rep.Result.BreakEvens) != 0 {
		t.Errorf("Result = %+v, want flat", rep.Result)
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	f := newFixture()
	f.state.SelectedStrategy = "calendarSpread"

	rep, err := f.analyzer.Run(f.state, f.now)
	if !errors.Is(err, apperrors.ErrStrategyNotFound) {
		t.Errorf("Run() error = %v, want ErrStrategyNotFound", err)
	}
	if rep.Strategy.ID != "calendarSpread" || len(rep.Chart.Points) == 0 {
		t.Errorf("report = %+v, want a neutral report", rep.Strategy)
	}
}

func TestRunBenchmarkOverlay(t *testing.T) {
	f := newFixture()
	first, err := f.analyzer.Run(f.state, f.now)
	if err != nil {
		t.Fatal(err)
	}
	f.state.Benchmark = payoff.BenchmarkFrom(first.Chart)

	second, err := f.analyzer.Run(f.state, f.now)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range second.Chart.Points {
		if p.Benchmark == nil || *p.Benchmark != p.PnLPoints {
			t.Fatalf("point %+v should carry its own benchmark value", p)
		}
	}
}
