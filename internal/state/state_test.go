package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"txo-strategist/internal/calendar"
	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/models"
	"txo-strategist/internal/strategy"
)

func fixture() (*strategy.Registry, Defaults, *calendar.Calendar, time.Time) {
	registry := strategy.NewRegistry(strategy.DefaultEnv())
	cal := calendar.New()
	// Monday 2026-02-02 10:00 Taipei.
	now := time.Date(2026, time.February, 2, 10, 0, 0, 0, cal.Location())
	return registry, DefaultDefaults(registry), cal, now
}

func TestDefault(t *testing.T) {
	_, d, cal, now := fixture()
	s := Default(d, cal, now)

	if s.SelectedStrategy != DefaultStrategyID {
		t.Errorf("SelectedStrategy = %q, want %q", s.SelectedStrategy, DefaultStrategyID)
	}
	if s.ExpiryDate != "2026-02-04" {
		t.Errorf("ExpiryDate = %q, want 2026-02-04", s.ExpiryDate)
	}
	if s.FilterExpiry != FilterAll || s.Mode != models.ModeExpiry {
		t.Errorf("FilterExpiry/Mode = %q/%q", s.FilterExpiry, s.Mode)
	}
	if got := s.Inputs.Values["putK1"]; got != 31600 {
		t.Errorf("putK1 = %v, want 31600", got)
	}
	if legs := s.LegSets[strategy.CustomID]; len(legs) != 1 || legs[0].ID == "" || legs[0].Strike != 32000 {
		t.Errorf("custom legs = %+v, want one call at 32000 with an id", legs)
	}
	for _, id := range []string{strategy.SimulationAID, strategy.SimulationBID, strategy.SimulationCID} {
		if legs, ok := s.LegSets[id]; !ok || len(legs) != 0 {
			t.Errorf("LegSets[%s] = %v, want empty", id, legs)
		}
	}
}

func TestDefaultDoesNotAliasDefaults(t *testing.T) {
	_, d, cal, now := fixture()
	s := Default(d, cal, now)
	s.SetValue("strike", 1)
	if d.Values["strike"] == 1 {
		t.Error("SetValue modified the shared defaults")
	}
}

func TestResetKeepsLegSets(t *testing.T) {
	_, d, cal, now := fixture()
	s := Default(d, cal, now)

	leg, err := s.AddLeg(strategy.SimulationAID, models.Leg{Action: models.Sell, Type: models.Put, Strike: 31500, Premium: 90, Quantity: 2})
	if err != nil {
		t.Fatalf("AddLeg() error: %v", err)
	}
	s.Inputs.Spot = 33000
	s.SetValue("strike", 33000)
	s.FilterExpiry = "202602W2"
	s.ExpiryDate = "2026-03-18"

	later := now.Add(48 * time.Hour)
	s.Reset(d, cal, later)

	if s.Inputs.Spot != d.Spot || s.Inputs.Values["strike"] != 32000 {
		t.Errorf("inputs not restored: spot %v strike %v", s.Inputs.Spot, s.Inputs.Values["strike"])
	}
	if s.SelectedStrategy != strategy.CustomID {
		t.Errorf("SelectedStrategy = %q, want custom", s.SelectedStrategy)
	}
	if s.ExpiryDate != "2026-02-04" || s.FilterExpiry != FilterAll {
		t.Errorf("ExpiryDate/FilterExpiry = %q/%q", s.ExpiryDate, s.FilterExpiry)
	}
	legs := s.LegSets[strategy.SimulationAID]
	if len(legs) != 1 || legs[0] != leg {
		t.Errorf("simulationA legs = %+v, want [%+v]", legs, leg)
	}
	if len(s.LegSets[strategy.CustomID]) != 1 {
		t.Errorf("custom legs were dropped")
	}
}

func TestShiftStrikes(t *testing.T) {
	_, d, cal, now := fixture()
	s := Default(d, cal, now)
	before := s.Legs(strategy.CustomID)

	tests := []struct {
		diff, want float64
	}{
		{24, 0},
		{26, 50},
		{-126, -150},
		{210, 200},
	}
	for _, tt := range tests {
		strike := s.Inputs.Values["strike"]
		putK1 := s.Inputs.Values["putK1"]
		premium := s.Inputs.Values["premium"]

		if got := s.ShiftStrikes(tt.diff); got != tt.want {
			t.Errorf("ShiftStrikes(%v) = %v, want %v", tt.diff, got, tt.want)
		}
		if s.Inputs.Values["strike"] != strike+tt.want || s.Inputs.Values["putK1"] != putK1+tt.want {
			t.Errorf("ShiftStrikes(%v) did not move strikes by %v", tt.diff, tt.want)
		}
		if s.Inputs.Values["premium"] != premium {
			t.Errorf("ShiftStrikes(%v) moved a premium", tt.diff)
		}
	}
	if !reflect.DeepEqual(before, s.Legs(strategy.CustomID)) {
		t.Error("ShiftStrikes touched a leg set")
	}
}

func TestApplyQuote(t *testing.T) {
	_, d, cal, now := fixture()

	t.Run("partial", func(t *testing.T) {
		s := Default(d, cal, now)
		s.ExpiryDate = "2026-02-11"
		shift := s.ApplyQuote(Quote{Spot: 32180, VolatilityPercent: 18.5}, false, cal, now)
		if shift != 0 || s.Inputs.Values["strike"] != 32000 {
			t.Errorf("partial update shifted strikes by %v", shift)
		}
		if s.Inputs.Spot != 32180 || s.Inputs.VolatilityPercent != 18.5 || s.Inputs.RiskFreeRatePercent != 2 {
			t.Errorf("inputs = %+v", s.Inputs)
		}
		if s.ExpiryDate != "2026-02-11" {
			t.Errorf("partial update changed the expiry to %q", s.ExpiryDate)
		}
	})

	t.Run("full", func(t *testing.T) {
		s := Default(d, cal, now)
		s.ExpiryDate = "2026-02-11"
		shift := s.ApplyQuote(Quote{Spot: 32180, VolatilityPercent: 18.5, RiskFreeRatePercent: 1.725}, true, cal, now)
		if shift != 200 {
			t.Errorf("shift = %v, want 200", shift)
		}
		if s.Inputs.Values["callK4"] != 32600 {
			t.Errorf("callK4 = %v, want 32600", s.Inputs.Values["callK4"])
		}
		if s.Inputs.RiskFreeRatePercent != 1.725 {
			t.Errorf("rate = %v", s.Inputs.RiskFreeRatePercent)
		}
		if s.ExpiryDate != "2026-02-04" {
			t.Errorf("ExpiryDate = %q, want default 2026-02-04", s.ExpiryDate)
		}
	})
}

func TestRollExpiry(t *testing.T) {
	_, d, cal, now := fixture()
	s := Default(d, cal, now)

	s.ExpiryDate = "2026-02-04"
	if s.RollExpiry(cal, now) {
		t.Error("RollExpiry rolled a future expiry")
	}

	settled := time.Date(2026, time.February, 4, 14, 0, 0, 0, cal.Location())
	if !s.RollExpiry(cal, settled) {
		t.Fatal("RollExpiry did not roll a settled expiry")
	}
	if s.ExpiryDate != "2026-02-11" {
		t.Errorf("ExpiryDate = %q, want 2026-02-11", s.ExpiryDate)
	}
}

func TestLegSets(t *testing.T) {
	registry, d, cal, now := fixture()
	s := Default(d, cal, now)

	if err := s.Select(registry, "nope"); !errors.Is(err, apperrors.ErrStrategyNotFound) {
		t.Errorf("Select(nope) = %v, want ErrStrategyNotFound", err)
	}
	if err := s.Select(registry, strategy.SimulationBID); err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if got := s.ActiveLegsKey(); got != strategy.SimulationBID {
		t.Errorf("ActiveLegsKey() = %q", got)
	}

	a, _ := s.AddLeg(strategy.SimulationBID, models.Leg{Action: models.Buy, Type: models.Call, Strike: 32000, Premium: 100, Quantity: 1, Expiry: "202602W2"})
	b, _ := s.AddLeg(strategy.SimulationBID, models.Leg{Action: models.Sell, Type: models.Call, Strike: 32400, Premium: 30, Quantity: 1})
	c, _ := s.AddLeg(strategy.SimulationBID, models.Leg{Action: models.Buy, Type: models.Put, Strike: 31600, Premium: 50, Quantity: 1, Expiry: "202603"})

	wantExp := []models.ExpiryRef{"2026-02-04", "202602W2", "202603"}
	if got := s.AvailableExpiries(cal, now); !reflect.DeepEqual(got, wantExp) {
		t.Errorf("AvailableExpiries() = %v, want %v", got, wantExp)
	}

	s.FilterExpiry = "202602W2"
	if got := s.FilteredLegs(); len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("FilteredLegs(202602W2) = %+v", got)
	}
	if got := s.EffectiveExpiry(); got != "202602W2" {
		t.Errorf("EffectiveExpiry() = %q", got)
	}
	s.FilterExpiry = "2026-02-04"
	if got := s.FilteredLegs(); len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("FilteredLegs(global) = %+v", got)
	}
	s.FilterExpiry = FilterAll
	if got := s.FilteredLegs(); len(got) != 3 {
		t.Errorf("FilteredLegs(ALL) = %d legs, want 3", len(got))
	}
	if len(s.LegSets[strategy.SimulationBID]) != 3 {
		t.Error("FilteredLegs modified the stored leg set")
	}

	if err := s.RemoveLeg(strategy.SimulationBID, c.ID); err != nil {
		t.Errorf("RemoveLeg() error: %v", err)
	}
	if err := s.RemoveLeg(strategy.SimulationBID, c.ID); !errors.Is(err, apperrors.ErrLegNotFound) {
		t.Errorf("RemoveLeg(twice) = %v, want ErrLegNotFound", err)
	}
	if err := s.ClearLegs(strategy.SimulationBID); err != nil || len(s.LegSets[strategy.SimulationBID]) != 0 {
		t.Errorf("ClearLegs() = %v, legs %v", err, s.LegSets[strategy.SimulationBID])
	}

	if err := s.Select(registry, "ironCondor"); err != nil {
		t.Fatal(err)
	}
	if s.ActiveLegsKey() != "" || s.FilteredLegs() != nil {
		t.Error("closed-form strategy should have no active leg set")
	}
}

func TestAddLegValidation(t *testing.T) {
	_, d, cal, now := fixture()
	s := Default(d, cal, now)

	bad := []models.Leg{
		{Action: "hold", Type: models.Call, Strike: 1, Quantity: 1},
		{Action: models.Buy, Type: "future", Strike: 1, Quantity: 1},
		{Action: models.Buy, Type: models.Call, Strike: 0, Quantity: 1},
		{Action: models.Buy, Type: models.Call, Strike: 32000, Quantity: 0},
		{Action: models.Buy, Type: models.Call, Strike: 32000, Quantity: 1, Premium: -1},
	}
	for _, leg := range bad {
		_, err := s.AddLeg(strategy.CustomID, leg)
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) || !errors.Is(err, apperrors.ErrInputValidation) || !errors.Is(err, apperrors.ErrInvalidLeg) {
			t.Errorf("AddLeg(%+v) = %v, want ValidationError", leg, err)
		}
	}
	if _, err := s.AddLeg("ironCondor", models.Leg{Action: models.Buy, Type: models.Call, Strike: 1, Quantity: 1}); err == nil {
		t.Error("AddLeg to a closed-form strategy should fail")
	}
}

func TestNormalize(t *testing.T) {
	_, d, cal, now := fixture()
	s := &AppState{Inputs: Inputs{Spot: 31000, Values: map[string]float64{"strike": 31000}}}
	s.Normalize(d, cal, now)

	if s.Inputs.Values["strike"] != 31000 {
		t.Error("Normalize overwrote a stored value")
	}
	if s.Inputs.Values["callK4"] != 32400 {
		t.Errorf("callK4 = %v, want default 32400", s.Inputs.Values["callK4"])
	}
	if s.SelectedStrategy != DefaultStrategyID || s.FilterExpiry != FilterAll || s.ExpiryDate != "2026-02-04" {
		t.Errorf("Normalize() = %+v", s)
	}
	if len(s.LegSetNames()) != len(strategy.PortfolioIDs) {
		t.Errorf("LegSetNames() = %v", s.LegSetNames())
	}
}

// Property: a strike shift is always a multiple of the strike step and
// never more than half a step away from the requested move.
func TestProperty_ShiftStrikesRounding(t *testing.T) {
	_, d, cal, now := fixture()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("shift is a rounded multiple of 50", prop.ForAll(
		func(diff float64) bool {
			s := Default(d, cal, now)
			before := s.Inputs.Values["lowerPutK"]
			shift := s.ShiftStrikes(diff)
			q := shift / StrikeStep
			if q != float64(int64(q)) {
				return false
			}
			if shift-diff > StrikeStep/2 || diff-shift > StrikeStep/2 {
				return false
			}
			return s.Inputs.Values["lowerPutK"] == before+shift
		},
		gen.Float64Range(-3000, 3000),
	))

	properties.TestingRun(t)
}
