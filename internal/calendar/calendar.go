// Package calendar converts wall-clock time into the trading-hour and
// trading-day figures used by the pricer, and resolves exchange contract
// codes to settlement dates.
//
// Every operation takes "now" as an explicit argument; nothing in this
// package reads the system clock.
package calendar

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/logging"
	"txo-strategist/internal/models"
)

// DefaultTimezone is the exchange's local timezone.
const DefaultTimezone = "Asia/Taipei"

const dateLayout = "2006-01-02"

// inputDateLayout also accepts unpadded month and day, as in 2026-2-4.
const inputDateLayout = "2006-1-2"

// Calendar holds the exchange timezone and holiday set.
type Calendar struct {
	location *time.Location
	holidays map[string]bool // "2006-01-02" -> holiday
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithLocation sets the exchange timezone.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithHolidays adds ISO dates (YYYY-MM-DD) to the holiday set.
// Malformed entries are logged and skipped.
func WithHolidays(dates ...string) Option {
	return func(c *Calendar) {
		for _, d := range dates {
			t, err := time.ParseInLocation(inputDateLayout, strings.TrimSpace(d), c.location)
			if err != nil {
				logging.LogFallback(c.logger, "holiday", d, "ignored")
				continue
			}
			c.holidays[t.Format(dateLayout)] = true
		}
	}
}

// WithLogger sets the logger that receives fail-open diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Calendar) {
		c.logger = logger
	}
}

// New creates a calendar. Options are applied in order, so WithLocation and
// WithLogger should precede WithHolidays.
func New(opts ...Option) *Calendar {
	c := &Calendar{
		location: LoadLocation(DefaultTimezone),
		holidays: make(map[string]bool),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadLocation loads a timezone, falling back to UTC+8 when the tz database
// is unavailable.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// Location returns the exchange timezone.
func (c *Calendar) Location() *time.Location {
	return c.location
}

// AddHoliday adds a market holiday.
func (c *Calendar) AddHoliday(date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holidays[date.In(c.location).Format(dateLayout)] = true
}

// IsHoliday checks if a date is a market holiday.
func (c *Calendar) IsHoliday(date time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.holidays[date.In(c.location).Format(dateLayout)]
}

// Holidays returns the holiday set as sorted ISO dates.
func (c *Calendar) Holidays() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.holidays))
	for d := range c.holidays {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsTradingDay reports whether date is a weekday outside the holiday set.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	return !isWeekend(date.In(c.location)) && !c.IsHoliday(date)
}

// ParseDate parses a YYYY-MM-DD date in exchange time. Month and day may
// be written without the leading zero.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(inputDateLayout, strings.TrimSpace(s), c.location)
	if err != nil {
		return time.Time{}, apperrors.NewParseError("expiry date", s, err)
	}
	return t, nil
}

// Resolve maps an expiry reference to its calendar date (midnight, exchange
// time). ISO dates are taken literally; anything starting with four digits is
// treated as a contract code. Unusable input falls back to now's date.
func (c *Calendar) Resolve(ref models.ExpiryRef, now time.Time) time.Time {
	s := strings.TrimSpace(string(ref))
	now = now.In(c.location)

	if strings.Contains(s, "-") {
		if t, err := c.ParseDate(s); err == nil {
			return t
		}
		logging.LogFallback(c.logger, "expiry_date", s, now.Format(dateLayout))
		return midnight(now)
	}
	if looksLikeCode(s) {
		return midnight(c.ParseContractCode(s, now))
	}
	if s != "" {
		logging.LogFallback(c.logger, "expiry_ref", s, now.Format(dateLayout))
	}
	return midnight(now)
}

// DefaultExpiryDate returns the next weekly settlement Wednesday as an ISO
// date. On a Wednesday it is today until 13:00 and next week afterwards.
func (c *Calendar) DefaultExpiryDate(now time.Time) string {
	now = now.In(c.location)
	days := (int(time.Wednesday) - int(now.Weekday()) + 7) % 7
	if days == 0 && now.Hour() >= 13 {
		days = 7
	}
	return now.AddDate(0, 0, days).Format(dateLayout)
}

// SortExpiries returns the distinct non-empty refs ordered by time to
// settlement. Refs settling within 0.1 day of each other sort by text.
func (c *Calendar) SortExpiries(refs []models.ExpiryRef, now time.Time) []models.ExpiryRef {
	seen := make(map[models.ExpiryRef]bool)
	out := make([]models.ExpiryRef, 0, len(refs))
	days := make(map[models.ExpiryRef]float64)
	for _, r := range refs {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
		days[r] = c.DaysUntilExpiry(r, now)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := days[out[i]], days[out[j]]
		if diff := di - dj; diff > -0.1 && diff < 0.1 {
			return out[i] < out[j]
		}
		return di < dj
	})
	return out
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atClock(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

func sameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// hourOfDay returns the local clock time as a fractional hour.
func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}
