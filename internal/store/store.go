// Package store provides persistence for the analyzer session.
package store

import (
	"context"
	"time"

	"txo-strategist/internal/state"
)

// StateKey is the key the session state is saved under.
const StateKey = "app_state"

// StateStore loads and saves the application state.
type StateStore interface {
	// Load returns the saved state. It returns an error wrapping
	// errors.ErrStateNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*state.AppState, error)
	Save(ctx context.Context, s *state.AppState) error
	Close() error
}

// KVStore is a string key-value store with JSON-encoded values.
type KVStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// QuoteRecord is one market refresh kept in the quote history.
type QuoteRecord struct {
	Source              string    `json:"source"`
	Spot                float64   `json:"spot"`
	VolatilityPercent   float64   `json:"volatility_percent"`
	RiskFreeRatePercent float64   `json:"risk_free_rate_percent"`
	FetchedAt           time.Time `json:"fetched_at"`
}

// QuoteLog records market refreshes.
type QuoteLog interface {
	SaveQuote(ctx context.Context, q QuoteRecord) error
	RecentQuotes(ctx context.Context, limit int) ([]QuoteRecord, error)
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error
}
