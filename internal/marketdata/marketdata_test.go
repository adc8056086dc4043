package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/pkg/utils"
)

var fixedNow = time.Date(2026, time.February, 2, 2, 0, 0, 0, time.UTC)

func fastRetry() utils.RetryConfig {
	return utils.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func newSource(url string) *HTTPSource {
	return NewHTTPSource(url, time.Second, WithRetry(fastRetry()), WithClock(func() time.Time { return fixedNow }))
}

func TestHTTPSourceFetch(t *testing.T) {
	var gotT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotT = r.URL.Query().Get("t")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","price":"32,180.5","vix":18.25,"meta":{"raw_rate":0.017254}}`))
	}))
	defer srv.Close()

	q, err := newSource(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if q.Spot != 32180.5 || q.VolatilityPercent != 18.25 {
		t.Errorf("spot/vol = %v/%v", q.Spot, q.VolatilityPercent)
	}
	if q.RiskFreeRatePercent != 1.725 {
		t.Errorf("rate = %v, want 1.725", q.RiskFreeRatePercent)
	}
	if !q.FetchedAt.Equal(fixedNow) || q.Source != "http" {
		t.Errorf("FetchedAt/Source = %v/%q", q.FetchedAt, q.Source)
	}
	if gotT != "1769997600000" {
		t.Errorf("cache buster t = %q", gotT)
	}
}

func TestHTTPSourceMissingRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","price":32000,"vix":16}`))
	}))
	defer srv.Close()

	q, err := newSource(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if q.RiskFreeRatePercent != 0 {
		t.Errorf("rate = %v, want 0 when the service omits it", q.RiskFreeRatePercent)
	}
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"success","price":32000,"vix":16}`))
	}))
	defer srv.Close()

	if _, err := newSource(srv.URL).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestHTTPSourceFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"service error status", http.StatusOK, `{"status":"error"}`, 1},
		{"bad json", http.StatusOK, `not json`, 1},
		{"missing price", http.StatusOK, `{"status":"success","vix":16}`, 1},
		{"not found", http.StatusNotFound, ``, 1},
		{"server down", http.StatusServiceUnavailable, ``, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newSource(srv.URL).Fetch(context.Background())
			if !errors.Is(err, apperrors.ErrMarketData) {
				t.Errorf("Fetch() error = %v, want ErrMarketData", err)
			}
			if atomic.LoadInt32(&calls) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestHTTPSourceNoEndpoint(t *testing.T) {
	if _, err := NewHTTPSource("", 0).Fetch(context.Background()); !errors.Is(err, apperrors.ErrMarketData) {
		t.Errorf("Fetch() error = %v, want ErrMarketData", err)
	}
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{Quote: Quote{Spot: 31950, VolatilityPercent: 15}}
	q, err := src.Fetch(context.Background())
	if err != nil || q.Spot != 31950 || q.Source != "static" || q.FetchedAt.IsZero() {
		t.Errorf("Fetch() = %+v, %v", q, err)
	}

	boom := errors.New("boom")
	if _, err := (StaticSource{Err: boom}).Fetch(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Fetch() error = %v, want boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch(canceled) = %v", err)
	}
}
