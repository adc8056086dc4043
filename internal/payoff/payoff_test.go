package payoff

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"txo-strategist/internal/calendar"
	"txo-strategist/internal/models"
	"txo-strategist/internal/pricing"
)

func leg(action models.Action, typ models.OptionType, strike, premium, qty float64) models.Leg {
	return models.Leg{Action: action, Type: typ, Strike: strike, Premium: premium, Quantity: qty}
}

func ironCondorLegs() []models.Leg {
	return []models.Leg{
		leg(models.Buy, models.Put, 31600, 40, 1),
		leg(models.Sell, models.Put, 31800, 120, 1),
		leg(models.Sell, models.Call, 32200, 110, 1),
		leg(models.Buy, models.Call, 32400, 30, 1),
	}
}

func TestNewPnLExpiry(t *testing.T) {
	pnl := NewPnL([]models.Leg{leg(models.Buy, models.Call, 32000, 350, 1)}, Options{Mode: models.ModeExpiry})

	tests := []struct {
		price float64
		want  float64
	}{
		{31000, -350},
		{32000, -350},
		{32350, 0},
		{33000, 650},
	}
	for _, tt := range tests {
		if got := pnl(tt.price); got != tt.want {
			t.Errorf("pnl(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestNewPnLQuantityAndDirection(t *testing.T) {
	legs := []models.Leg{
		leg(models.Sell, models.Put, 31800, 120, 3),
		leg(models.Buy, models.Put, 31600, 40, 2),
	}
	pnl := NewPnL(legs, Options{Mode: models.ModeExpiry})

	// 31500: short put loses (300-120)*3, long put gains (100-40)*2
	if got, want := pnl(31500), -540.0+120.0; got != want {
		t.Errorf("pnl(31500) = %v, want %v", got, want)
	}
}

func TestNewPnLDoesNotTrackInputSlice(t *testing.T) {
	legs := []models.Leg{leg(models.Buy, models.Call, 32000, 350, 1)}
	pnl := NewPnL(legs, Options{Mode: models.ModeExpiry})
	before := pnl(33000)

	legs[0].Strike = 30000
	if after := pnl(33000); after != before {
		t.Errorf("pnl changed after mutating input legs: %v -> %v", before, after)
	}
}

func TestNewPnLTheoretical(t *testing.T) {
	cal := calendar.New()
	now := time.Date(2026, time.February, 2, 10, 0, 0, 0, cal.Location())
	snap := models.MarketSnapshot{Spot: 32000, RiskFreeRatePercent: 2, VolatilityPercent: 16}

	legs := []models.Leg{
		{Action: models.Buy, Type: models.Call, Strike: 32000, Premium: 300, Quantity: 1, Expiry: "202602W1"},
		{Action: models.Sell, Type: models.Put, Strike: 31800, Premium: 150, Quantity: 2},
	}
	pnl := NewPnL(legs, Options{
		Mode:          models.ModeTheoretical,
		Snapshot:      snap,
		Calendar:      cal,
		Now:           now,
		DefaultExpiry: "2026-02-11",
	})

	tCall := calendar.TradingHoursToYears(cal.RemainingTradingHours("202602W1", now))
	tPut := calendar.TradingHoursToYears(cal.RemainingTradingHours("2026-02-11", now))
	call := pricing.Price(32000, 32000, tCall, 0.02, 0.16, models.Call)
	put := pricing.Price(32000, 31800, tPut, 0.02, 0.16, models.Put)
	want := (call - 300) + (150-put)*2

	if got := pnl(32000); math.Abs(got-want) > 1e-9 {
		t.Errorf("theoretical pnl(32000) = %v, want %v", got, want)
	}
	if call <= 0 || put <= 0 {
		t.Errorf("expected positive time value, got call=%v put=%v", call, put)
	}
}

func TestNewPnLTheoreticalExpiredFallsBackToIntrinsic(t *testing.T) {
	cal := calendar.New()
	now := time.Date(2026, time.February, 4, 14, 0, 0, 0, cal.Location())
	legs := []models.Leg{{Action: models.Buy, Type: models.Call, Strike: 32000, Premium: 100, Quantity: 1, Expiry: "2026-02-04"}}

	pnl := NewPnL(legs, Options{
		Mode:     models.ModeTheoretical,
		Snapshot: models.MarketSnapshot{Spot: 32000, RiskFreeRatePercent: 2, VolatilityPercent: 16},
		Calendar: cal,
		Now:      now,
	})
	if got := pnl(32500); got != 400 {
		t.Errorf("expired leg pnl(32500) = %v, want 400", got)
	}
}

func TestSweepIronCondor(t *testing.T) {
	pnl := NewPnL(ironCondorLegs(), Options{Mode: models.ModeExpiry})
	res := Sweep(pnl, 32000, DefaultRange())

	if res.MaxProfit != 160 {
		t.Errorf("MaxProfit = %v, want 160", res.MaxProfit)
	}
	if res.MaxLoss != 40 {
		t.Errorf("MaxLoss = %v, want 40", res.MaxLoss)
	}
	if want := []float64{31640, 32360}; !reflect.DeepEqual(res.BreakEvens, want) {
		t.Errorf("BreakEvens = %v, want %v", res.BreakEvens, want)
	}
	if res.Samples != 801 {
		t.Errorf("Samples = %d, want 801", res.Samples)
	}
}

func TestSweepInterpolatesBetweenSamples(t *testing.T) {
	pnl := NewPnL([]models.Leg{leg(models.Buy, models.Call, 32000, 355, 1)}, Options{Mode: models.ModeExpiry})
	res := Sweep(pnl, 32000, DefaultRange())

	// crossing at 32355 rounds to 32355 even though samples fall on 32350/32360
	if want := []float64{32355}; !reflect.DeepEqual(res.BreakEvens, want) {
		t.Errorf("BreakEvens = %v, want %v", res.BreakEvens, want)
	}
	if res.MaxLoss != 355 {
		t.Errorf("MaxLoss = %v, want 355", res.MaxLoss)
	}
}

func TestSweepNoCrossings(t *testing.T) {
	res := Sweep(func(float64) float64 { return 25 }, 32000, Range{Width: 100, Step: 0})

	if len(res.BreakEvens) != 0 {
		t.Errorf("BreakEvens = %v, want none", res.BreakEvens)
	}
	if res.MaxLoss != 0 || res.MaxProfit != 25 {
		t.Errorf("extrema = %v/%v, want 25/0", res.MaxProfit, res.MaxLoss)
	}
	if res.Samples != 21 {
		t.Errorf("Samples = %d, want 21 with default step", res.Samples)
	}
}

func TestSweepDeterministic(t *testing.T) {
	pnl := NewPnL(ironCondorLegs(), Options{Mode: models.ModeExpiry})
	first := Sweep(pnl, 32000, DefaultRange())
	second := Sweep(pnl, 32000, DefaultRange())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("sweeps differ: %+v vs %+v", first, second)
	}
}

func TestEstimateMargin(t *testing.T) {
	p := DefaultMarginParams()

	tests := []struct {
		name string
		legs []models.Leg
		want float64
	}{
		{"otm short call", []models.Leg{leg(models.Sell, models.Call, 32500, 100, 1)}, 5000 + 25000},
		{"near short put", []models.Leg{leg(models.Sell, models.Put, 31900, 80, 1)}, 4000 + 45000},
		{"itm short put", []models.Leg{leg(models.Sell, models.Put, 33000, 1100, 1)}, 55000 + 50000},
		{"quantity", []models.Leg{leg(models.Sell, models.Call, 32500, 100, 2)}, 60000},
		{"long legs free", []models.Leg{leg(models.Buy, models.Call, 32000, 350, 5)}, 0},
		{"mixed", ironCondorLegs(), (6000 + 40000) + (5500 + 40000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateMargin(tt.legs, 32000, p); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("EstimateMargin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpreadMargin(t *testing.T) {
	if got := SpreadMargin(200, DefaultMarginParams()); got != 10000 {
		t.Errorf("SpreadMargin(200) = %v, want 10000", got)
	}
}

// Property: every short leg carries at least ConstantB per unit.
func TestProperty_MarginFloor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	p := DefaultMarginParams()

	properties.Property("margin >= B x quantity", prop.ForAll(
		func(strike, premium, spot float64, qty int, isCall bool) bool {
			typ := models.Put
			if isCall {
				typ = models.Call
			}
			legs := []models.Leg{leg(models.Sell, typ, strike, premium, float64(qty))}
			return EstimateMargin(legs, spot, p) >= p.ConstantB*float64(qty)-1e-6
		},
		gen.Float64Range(20000, 40000),
		gen.Float64Range(0, 2000),
		gen.Float64Range(20000, 40000),
		gen.IntRange(1, 20),
		gen.Bool(),
	))

	properties.Property("sweep breakevens are sorted and spaced", prop.ForAll(
		func(strike, premium float64) bool {
			legs := []models.Leg{
				leg(models.Buy, models.Call, strike, premium, 1),
				leg(models.Buy, models.Put, strike, premium, 1),
			}
			res := Sweep(NewPnL(legs, Options{Mode: models.ModeExpiry}), 32000, DefaultRange())
			for i := 1; i < len(res.BreakEvens); i++ {
				if res.BreakEvens[i]-res.BreakEvens[i-1] <= dedupeDistance {
					return false
				}
			}
			return len(res.BreakEvens) == 2
		},
		gen.Float64Range(31000, 33000),
		gen.Float64Range(50, 500),
	))

	properties.TestingRun(t)
}

func TestBuildChart(t *testing.T) {
	legs := []models.Leg{
		leg(models.Buy, models.Call, 31800, 200, 1),
		leg(models.Sell, models.Call, 32200, 80, 1),
	}
	pnl := NewPnL(legs, Options{Mode: models.ModeExpiry})

	chart := BuildChart(pnl, ChartInput{
		Spot:       32000,
		Strikes:    []float64{31800, 32200, 0},
		BreakEvens: []float64{31920},
		MaxProfit:  280,
		MaxLoss:    120,
		Multiplier: 50,
	})

	if chart.MinPrice != 31500 || chart.MaxPrice != 32500 {
		t.Errorf("range = [%v, %v], want [31500, 32500]", chart.MinPrice, chart.MaxPrice)
	}
	if len(chart.Points) != DefaultChartSteps+1 {
		t.Fatalf("len(Points) = %d, want %d", len(chart.Points), DefaultChartSteps+1)
	}
	if chart.Points[0].Price != 31500 || chart.Points[len(chart.Points)-1].Price != 32500 {
		t.Errorf("endpoints = %v..%v", chart.Points[0].Price, chart.Points[len(chart.Points)-1].Price)
	}
	for _, p := range chart.Points {
		if p.PnLMoney != p.PnLPoints*50 {
			t.Fatalf("PnLMoney = %v at %v, want %v", p.PnLMoney, p.Price, p.PnLPoints*50)
		}
	}
	if chart.PnLDomain != [2]float64{-120, 280} {
		t.Errorf("PnLDomain = %v, want [-120 280]", chart.PnLDomain)
	}
	if !reflect.DeepEqual(chart.KeyPrices.Strikes, []float64{31800, 32200}) {
		t.Errorf("Strikes = %v", chart.KeyPrices.Strikes)
	}
	if !reflect.DeepEqual(chart.KeyPrices.ProfitStrikes, []float64{32200}) {
		t.Errorf("ProfitStrikes = %v, want [32200]", chart.KeyPrices.ProfitStrikes)
	}
	if !reflect.DeepEqual(chart.KeyPrices.LossStrikes, []float64{31800}) {
		t.Errorf("LossStrikes = %v, want [31800]", chart.KeyPrices.LossStrikes)
	}
}

func TestBuildChartBenchmarkOverlay(t *testing.T) {
	pnl := NewPnL(ironCondorLegs(), Options{Mode: models.ModeExpiry})
	in := ChartInput{Spot: 32000, Strikes: []float64{31600, 31800, 32200, 32400}, Multiplier: 50}

	base := BuildChart(pnl, in)
	in.Benchmark = BenchmarkFrom(base)
	shifted := BuildChart(func(p float64) float64 { return pnl(p) + 1000 }, in)

	for i, p := range shifted.Points {
		if p.Benchmark == nil {
			t.Fatalf("point %d at %v has no benchmark", i, p.Price)
		}
		if *p.Benchmark != base.Points[i].PnLPoints {
			t.Errorf("benchmark at %v = %v, want %v", p.Price, *p.Benchmark, base.Points[i].PnLPoints)
		}
	}
	if shifted.PnLDomain[0] != -40 {
		t.Errorf("PnLDomain min = %v, want benchmark min -40", shifted.PnLDomain[0])
	}
}

func TestBuildChartIgnoresImplausiblePrices(t *testing.T) {
	chart := BuildChart(func(float64) float64 { return 0 }, ChartInput{Spot: 100, Steps: 10})
	if chart.MinPrice != -200 || chart.MaxPrice != 400 {
		t.Errorf("range = [%v, %v], want [-200, 400]", chart.MinPrice, chart.MaxPrice)
	}
	if len(chart.Points) != 11 {
		t.Errorf("len(Points) = %d, want 11", len(chart.Points))
	}
}
