package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/state"
)

// MemoryStore keeps everything in process memory. Values are stored as
// JSON so callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	quotes []QuoteRecord
	syncs  map[string]time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		syncs:  make(map[string]time.Time),
	}
}

// Get decodes the value stored under key into dest.
func (m *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return apperrors.Wrapf(apperrors.ErrStateNotFound, "key %q", key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperrors.NewDataError("kv", key, "invalid JSON", err)
	}
	return nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.Wrapf(err, "encode %q", key)
	}
	m.mu.Lock()
	m.values[key] = raw
	m.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

// Keys lists the stored keys in order.
func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Load returns the saved session state.
func (m *MemoryStore) Load(ctx context.Context) (*state.AppState, error) {
	var st state.AppState
	if err := m.Get(ctx, StateKey, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Save stores the session state.
func (m *MemoryStore) Save(ctx context.Context, st *state.AppState) error {
	return m.Set(ctx, StateKey, st)
}

// SaveQuote appends a market refresh to the history.
func (m *MemoryStore) SaveQuote(_ context.Context, q QuoteRecord) error {
	m.mu.Lock()
	m.quotes = append(m.quotes, q)
	m.mu.Unlock()
	return nil
}

// RecentQuotes returns up to limit quotes, newest first.
func (m *MemoryStore) RecentQuotes(_ context.Context, limit int) ([]QuoteRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	out := make([]QuoteRecord, len(m.quotes))
	copy(out, m.quotes)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].FetchedAt.After(out[j].FetchedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetLastSync returns the last sync time for a data type.
func (m *MemoryStore) GetLastSync(dataType string) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncs[dataType]
}

// SetLastSync sets the last sync time for a data type.
func (m *MemoryStore) SetLastSync(dataType string, t time.Time) error {
	m.mu.Lock()
	m.syncs[dataType] = t
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

var (
	_ StateStore = (*MemoryStore)(nil)
	_ KVStore    = (*MemoryStore)(nil)
	_ QuoteLog   = (*MemoryStore)(nil)
)
