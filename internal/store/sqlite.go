package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/state"
)

// SQLiteStore implements StateStore, KVStore and QuoteLog on SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Key-value table for session state
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Market refresh history
	CREATE TABLE IF NOT EXISTS quotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		spot REAL NOT NULL,
		volatility REAL NOT NULL,
		rate REAL NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_quotes_fetched_at ON quotes(fetched_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Key-Value Methods
// ============================================================================

// Get decodes the value stored under key into dest.
func (s *SQLiteStore) Get(ctx context.Context, key string, dest interface{}) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrapf(apperrors.ErrStateNotFound, "key %q", key)
	}
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "get %q: %v", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return apperrors.NewDataError("kv", key, "invalid JSON", err)
	}
	return nil
}

// Set stores value under key as JSON.
func (s *SQLiteStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	`, key, string(raw), time.Now())
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "set %q: %v", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "delete %q: %v", key, err)
	}
	return nil
}

// Keys lists the stored keys in order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ============================================================================
// State Methods
// ============================================================================

// Load returns the saved session state.
func (s *SQLiteStore) Load(ctx context.Context) (*state.AppState, error) {
	var st state.AppState
	if err := s.Get(ctx, StateKey, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Save stores the session state.
func (s *SQLiteStore) Save(ctx context.Context, st *state.AppState) error {
	if st == nil {
		return fmt.Errorf("failed to save state: nil state")
	}
	return s.Set(ctx, StateKey, st)
}

// ============================================================================
// Quote Methods
// ============================================================================

// SaveQuote appends a market refresh to the history.
func (s *SQLiteStore) SaveQuote(ctx context.Context, q QuoteRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (source, spot, volatility, rate, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`, q.Source, q.Spot, q.VolatilityPercent, q.RiskFreeRatePercent, q.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

// RecentQuotes returns up to limit quotes, newest first.
func (s *SQLiteStore) RecentQuotes(ctx context.Context, limit int) ([]QuoteRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, spot, volatility, rate, fetched_at
		FROM quotes ORDER BY fetched_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	var out []QuoteRecord
	for rows.Next() {
		var q QuoteRecord
		if err := rows.Scan(&q.Source, &q.Spot, &q.VolatilityPercent, &q.RiskFreeRatePercent, &q.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}

var (
	_ StateStore = (*SQLiteStore)(nil)
	_ KVStore    = (*SQLiteStore)(nil)
	_ QuoteLog   = (*SQLiteStore)(nil)
)
