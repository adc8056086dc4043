// Package marketdata fetches the underlying price, volatility index and
// risk-free rate from an external quote service.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/logging"
	"txo-strategist/pkg/utils"
)

// Quote is one market snapshot. A zero RiskFreeRatePercent means the
// service did not report a rate and the caller keeps its own.
type Quote struct {
	Source              string    `json:"source"`
	Spot                float64   `json:"spot"`
	VolatilityPercent   float64   `json:"volatility_percent"`
	RiskFreeRatePercent float64   `json:"risk_free_rate_percent"`
	FetchedAt           time.Time `json:"fetched_at"`
}

// Source provides quotes.
type Source interface {
	Fetch(ctx context.Context) (Quote, error)
}

// errTransient marks failures worth retrying.
var errTransient = errors.New("transient")

// quoteResponse is the quote service payload. Numbers may arrive as
// strings.
type quoteResponse struct {
	Status string      `json:"status"`
	Price  interface{} `json:"price"`
	Vix    interface{} `json:"vix"`
	Meta   struct {
		RawRate interface{} `json:"raw_rate"`
	} `json:"meta"`
}

// HTTPSource polls a JSON quote endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
	retry  utils.RetryConfig
	log    zerolog.Logger
	now    func() time.Time
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.client = c }
}

// WithRetry sets the retry policy.
func WithRetry(cfg utils.RetryConfig) HTTPOption {
	return func(s *HTTPSource) { s.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(s *HTTPSource) { s.log = l }
}

// WithClock sets the clock used to stamp quotes and bust caches.
func WithClock(now func() time.Time) HTTPOption {
	return func(s *HTTPSource) { s.now = now }
}

// NewHTTPSource returns a source for endpoint.
func NewHTTPSource(endpoint string, timeout time.Duration, opts ...HTTPOption) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &HTTPSource{
		url:    endpoint,
		client: &http.Client{Timeout: timeout},
		retry:  utils.DefaultRetryConfig(),
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry.RetryableErrors = []error{errTransient}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
			s.log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("quote fetch failed, retrying")
		}
	}
	return s
}

// Fetch requests a quote, retrying network failures and server errors.
func (s *HTTPSource) Fetch(ctx context.Context) (Quote, error) {
	if strings.TrimSpace(s.url) == "" {
		return Quote{}, apperrors.Wrap(apperrors.ErrMarketData, "no quote endpoint configured")
	}

	q, err := utils.RetryWithResult(ctx, s.retry, func() (Quote, error) {
		return s.fetchOnce(ctx)
	})
	if err != nil {
		logging.LogMarketUpdate(s.log, "http", 0, 0, 0, err)
		if errors.Is(err, apperrors.ErrMarketData) {
			return Quote{}, err
		}
		return Quote{}, fmt.Errorf("%w: %v", apperrors.ErrMarketData, err)
	}
	logging.LogMarketUpdate(s.log, "http", q.Spot, q.VolatilityPercent, q.RiskFreeRatePercent, nil)
	return q, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) (Quote, error) {
	now := s.now()
	endpoint, err := cacheBusted(s.url, now)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: bad endpoint: %v", apperrors.ErrMarketData, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: http do: %v", errTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return Quote{}, fmt.Errorf("%w: unexpected status %d", errTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("%w: unexpected status %d", apperrors.ErrMarketData, resp.StatusCode)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("%w: decode response: %v", apperrors.ErrMarketData, err)
	}
	return payload.quote(now)
}

func (r quoteResponse) quote(now time.Time) (Quote, error) {
	if r.Status != "success" {
		return Quote{}, fmt.Errorf("%w: service status %q", apperrors.ErrMarketData, r.Status)
	}
	q := Quote{
		Source:            "http",
		Spot:              utils.SafeFloat(r.Price, 0),
		VolatilityPercent: utils.SafeFloat(r.Vix, 0),
		FetchedAt:         now,
	}
	if q.Spot <= 0 {
		return Quote{}, fmt.Errorf("%w: missing price", apperrors.ErrMarketData)
	}
	if raw := utils.SafeFloat(r.Meta.RawRate, 0); raw != 0 {
		q.RiskFreeRatePercent = math.Round(raw*100*1000) / 1000
	}
	return q, nil
}

// cacheBusted appends a millisecond timestamp so intermediaries do not
// serve a stale quote.
func cacheBusted(endpoint string, now time.Time) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// StaticSource returns a fixed quote. It serves offline use and tests.
type StaticSource struct {
	Quote Quote
	Err   error
}

// Fetch returns the configured quote stamped with the current time.
func (s StaticSource) Fetch(ctx context.Context) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	if s.Err != nil {
		return Quote{}, s.Err
	}
	q := s.Quote
	if q.Source == "" {
		q.Source = "static"
	}
	if q.FetchedAt.IsZero() {
		q.FetchedAt = time.Now()
	}
	return q, nil
}
