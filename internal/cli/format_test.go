package cli

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
)

func TestAmountMarshalJSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{160, "160"},
		{-40.5, "-40.5"},
		{math.Inf(1), `"unlimited"`},
		{math.Inf(-1), `"-unlimited"`},
		{math.NaN(), "null"},
	}
	for _, tt := range tests {
		b, err := json.Marshal(Amount(tt.in))
		if err != nil {
			t.Fatalf("Marshal(%v) error: %v", tt.in, err)
		}
		if string(b) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.in, b, tt.want)
		}
	}
}

func TestNewResultViewMoney(t *testing.T) {
	v := newResultView(models.StrategyResult{MaxProfitPoints: math.Inf(1), MaxLossPoints: 350}, 50)
	if !math.IsInf(float64(v.MaxProfitMoney), 1) || v.MaxLossMoney != 17500 {
		t.Errorf("money = %v/%v", v.MaxProfitMoney, v.MaxLossMoney)
	}
	if v.BreakEvens == nil {
		t.Error("BreakEvens should encode as [] not null")
	}
}

func TestFormatLeg(t *testing.T) {
	leg := models.Leg{Action: models.Sell, Type: models.Call, Strike: 32400, Premium: 60, Quantity: 2, Expiry: "202602W2"}
	if got, want := FormatLeg(leg), "Sell 2 × 32400 Call @ 60 [202602W2]"; got != want {
		t.Errorf("FormatLeg() = %q, want %q", got, want)
	}
	leg.Expiry = ""
	leg.Action = models.Buy
	if got, want := FormatLeg(leg), "Buy 2 × 32400 Call @ 60"; got != want {
		t.Errorf("FormatLeg() = %q, want %q", got, want)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatBreakEvens(nil); got != "-" {
		t.Errorf("FormatBreakEvens(nil) = %q", got)
	}
	if got := FormatBreakEvens([]float64{31640, 32360}); got != "31640, 32360" {
		t.Errorf("FormatBreakEvens() = %q", got)
	}
	if got := FormatRatio(160, 40); got != "4.00:1" {
		t.Errorf("FormatRatio(160, 40) = %q", got)
	}
	if got := FormatRatio(math.Inf(1), 350); got != "unlimited" {
		t.Errorf("FormatRatio(+Inf, 350) = %q", got)
	}
	if got := FormatHours(0); got != "expired" {
		t.Errorf("FormatHours(0) = %q", got)
	}
	if got := FormatDateTime(time.Time{}, nil); got != "never" {
		t.Errorf("FormatDateTime(zero) = %q", got)
	}
	if got := TitleCase("put"); got != "Put" {
		t.Errorf("TitleCase(put) = %q", got)
	}
	if !math.IsNaN(parseFloatArg("strike")) || parseFloatArg("32,150") != 32150 {
		t.Error("parseFloatArg mismatch")
	}
}

func TestRenderChart(t *testing.T) {
	c := payoff.BuildChart(func(x float64) float64 { return math.Max(0, x-32000) - 350 }, payoff.ChartInput{
		Spot:       32000,
		Strikes:    []float64{32000},
		BreakEvens: []float64{32350},
		MaxLoss:    350,
		MaxProfit:  math.Inf(1),
		Multiplier: 50,
	})

	lines := RenderChart(c, 60, 12)
	if len(lines) != 14 {
		t.Fatalf("len(lines) = %d, want 12 rows plus axis and labels", len(lines))
	}
	for i, l := range lines[:12] {
		if !strings.Contains(l, "┤") {
			t.Errorf("row %d lacks the axis: %q", i, l)
		}
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"*", "-", "|", FormatStrike(c.MinPrice), FormatStrike(c.MaxPrice)} {
		if !strings.Contains(joined, want) {
			t.Errorf("chart lacks %q:\n%s", want, joined)
		}
	}

	if got := RenderChart(payoff.Chart{}, 60, 12); len(got) != 1 {
		t.Errorf("empty chart = %q", got)
	}
}

func TestOutputTable(t *testing.T) {
	app, _ := newTestCLI(t)
	out := mustExecute(t, app, "strategy", "list", "--group", "vertical")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want header, separator and 4 spreads:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "---") {
		t.Errorf("separator = %q", lines[1])
	}
}

func TestProperty_AmountRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	properties.Property("finite amounts encode as plain numbers", prop.ForAll(
		func(v float64) bool {
			b, err := json.Marshal(Amount(v))
			if err != nil {
				return false
			}
			back, err := strconv.ParseFloat(string(b), 64)
			return err == nil && back == v
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}

func TestProperty_TruncateString(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	properties.Property("truncated strings fit and keep their prefix", prop.ForAll(
		func(s string, n int) bool {
			got := []rune(TruncateString(s, n))
			src := []rune(s)
			if len(src) <= n {
				return string(got) == s
			}
			if len(got) != n {
				return false
			}
			keep := n
			if n > 3 {
				keep = n - 3
			}
			return string(got[:keep]) == string(src[:keep])
		},
		gen.AnyString(),
		gen.IntRange(0, 40),
	))

	properties.Property("chart columns stay in range", prop.ForAll(
		func(price float64, width int) bool {
			x := column(price, 30000, 34000, width)
			return x >= 0 && x < width
		},
		gen.Float64Range(20000, 44000),
		gen.IntRange(2, 200),
	))

	properties.TestingRun(t)
}
