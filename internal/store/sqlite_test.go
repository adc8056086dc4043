package store

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"txo-strategist/internal/calendar"
	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
	"txo-strategist/internal/state"
	"txo-strategist/internal/strategy"
)

func newTestStore(t *testing.T, dbPath string) *SQLiteStore {
	t.Helper()
	os.Remove(dbPath)
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func sampleState() *state.AppState {
	registry := strategy.NewRegistry(strategy.DefaultEnv())
	cal := calendar.New()
	now := time.Date(2026, time.February, 2, 10, 0, 0, 0, cal.Location())
	s := state.Default(state.DefaultDefaults(registry), cal, now)
	s.AddLeg(strategy.SimulationAID, models.Leg{Action: models.Sell, Type: models.Put, Strike: 31500, Premium: 88.5, Quantity: 3, Expiry: "202602W2"})
	s.Mode = models.ModeTheoretical
	bench := 120.0
	s.Benchmark = []payoff.Point{{Price: 32000, PnLPoints: 120, PnLMoney: 6000, Benchmark: &bench}}
	return s
}

func TestStateRoundTrip(t *testing.T) {
	dbPath := "test_state.db"
	defer os.Remove(dbPath)

	store := newTestStore(t, dbPath)
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, apperrors.ErrStateNotFound) {
		t.Fatalf("Load() on empty store = %v, want ErrStateNotFound", err)
	}

	want := sampleState()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
	got.UpdatedAt = want.UpdatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v\nwant %+v", got, want)
	}
}

func TestSaveOverwrites(t *testing.T) {
	dbPath := "test_state_overwrite.db"
	defer os.Remove(dbPath)

	store := newTestStore(t, dbPath)
	defer store.Close()
	ctx := context.Background()

	s := sampleState()
	if err := store.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	s.SelectedStrategy = strategy.SimulationCID
	if err := store.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.SelectedStrategy != strategy.SimulationCID {
		t.Errorf("SelectedStrategy = %q, want %q", got.SelectedStrategy, strategy.SimulationCID)
	}
	keys, err := store.Keys(ctx)
	if err != nil || !reflect.DeepEqual(keys, []string{StateKey}) {
		t.Errorf("Keys() = %v, %v", keys, err)
	}
}

func TestKeyValue(t *testing.T) {
	dbPath := "test_kv.db"
	defer os.Remove(dbPath)

	store := newTestStore(t, dbPath)
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "holidays", []string{"2026-02-16", "2026-02-17"}); err != nil {
		t.Fatal(err)
	}
	var got []string
	if err := store.Get(ctx, "holidays", &got); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"2026-02-16", "2026-02-17"}) {
		t.Errorf("Get() = %v", got)
	}

	var n int
	if err := store.Get(ctx, "holidays", &n); err == nil {
		t.Error("Get() into the wrong type should fail")
	} else {
		var derr *apperrors.DataError
		if !errors.As(err, &derr) || derr.Key != "holidays" {
			t.Errorf("Get() error = %v, want DataError for holidays", err)
		}
	}

	if err := store.Delete(ctx, "holidays"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "holidays"); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
	if err := store.Get(ctx, "holidays", &got); !errors.Is(err, apperrors.ErrStateNotFound) {
		t.Errorf("Get(deleted) = %v, want ErrStateNotFound", err)
	}
}

func TestQuotesAndSync(t *testing.T) {
	dbPath := "test_quotes.db"
	defer os.Remove(dbPath)

	store := newTestStore(t, dbPath)
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2026, time.February, 2, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		q := QuoteRecord{
			Source:              "http",
			Spot:                32000 + float64(i)*10,
			VolatilityPercent:   16,
			RiskFreeRatePercent: 1.725,
			FetchedAt:           base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveQuote(ctx, q); err != nil {
			t.Fatalf("SaveQuote() error: %v", err)
		}
	}

	got, err := store.RecentQuotes(ctx, 2)
	if err != nil {
		t.Fatalf("RecentQuotes() error: %v", err)
	}
	if len(got) != 2 || got[0].Spot != 32020 || got[1].Spot != 32010 {
		t.Errorf("RecentQuotes(2) = %+v, want newest two", got)
	}
	if !got[0].FetchedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("FetchedAt = %v", got[0].FetchedAt)
	}

	if !store.GetLastSync("market").IsZero() {
		t.Error("GetLastSync() should be zero before any sync")
	}
	if err := store.SetLastSync("market", base); err != nil {
		t.Fatal(err)
	}
	if !store.GetLastSync("market").Equal(base) {
		t.Errorf("GetLastSync() = %v, want %v", store.GetLastSync("market"), base)
	}
}

// Property: any closed-form input map survives a save and load.
func TestProperty_StateValuesRoundTrip(t *testing.T) {
	dbPath := "test_state_property.db"
	defer os.Remove(dbPath)

	store := newTestStore(t, dbPath)
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("save then load preserves inputs", prop.ForAll(
		func(spot, vol, strike float64, selected string) bool {
			ctx := context.Background()
			s := sampleState()
			s.Inputs.Spot = spot
			s.Inputs.VolatilityPercent = vol
			s.SetValue("strike", strike)
			s.SelectedStrategy = selected

			if err := store.Save(ctx, s); err != nil {
				t.Logf("Save() error: %v", err)
				return false
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Logf("Load() error: %v", err)
				return false
			}
			return reflect.DeepEqual(got.Inputs, s.Inputs) && got.SelectedStrategy == selected
		},
		gen.Float64Range(10000, 40000),
		gen.Float64Range(5, 80),
		gen.Float64Range(10000, 40000),
		gen.OneConstOf("ironCondor", "custom", "simulationA", "longCall"),
	))

	properties.TestingRun(t)
}
