package calendar

import (
	"regexp"
	"strconv"
	"time"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/logging"
)

// Contract codes are YYYYMM with an optional W<n> (n-th weekly Wednesday)
// or F<n> (n-th Wednesday plus two days) suffix. No suffix is the monthly
// contract on the third Wednesday.
var contractCodePattern = regexp.MustCompile(`^(\d{4})(\d{2})([WF]\d)?$`)

var leadingYearPattern = regexp.MustCompile(`^\d{4}`)

// Settlement clock times. Remaining-hours math settles at 13:30; ordering
// and day counts use the 13:45 close.
const (
	settleHour     = 13
	settleMinute   = 30
	closeHour      = 13
	closeMinute    = 45
	monthlyWeekIdx = 2
)

func looksLikeCode(s string) bool {
	return leadingYearPattern.MatchString(s)
}

// ParseContractCodeStrict resolves a contract code to its settlement
// timestamp at 13:45 exchange time.
func (c *Calendar) ParseContractCodeStrict(code string) (time.Time, error) {
	m := contractCodePattern.FindStringSubmatch(code)
	if m == nil {
		return time.Time{}, apperrors.NewParseError("contract code", code, apperrors.ErrInvalidContractCode)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return time.Time{}, apperrors.NewParseError("contract code", code, apperrors.ErrInvalidContractCode)
	}

	wednesdays := wednesdaysOf(year, time.Month(month), c.location)
	var target time.Time

	suffix := m[3]
	if suffix == "" {
		target = pick(wednesdays, monthlyWeekIdx)
	} else {
		n, _ := strconv.Atoi(suffix[1:])
		target = pick(wednesdays, n-1)
		if suffix[0] == 'F' {
			target = target.AddDate(0, 0, 2)
		}
	}

	return atClock(target, closeHour, closeMinute), nil
}

// ParseContractCode is ParseContractCodeStrict that fails open: an
// unparseable code resolves to now and a warning is logged.
func (c *Calendar) ParseContractCode(code string, now time.Time) time.Time {
	t, err := c.ParseContractCodeStrict(code)
	if err != nil {
		logging.LogFallback(c.logger, "contract_code", code, now.Format(time.RFC3339))
		return now.In(c.location)
	}
	return t
}

// wednesdaysOf lists every Wednesday of the month. Every month has at
// least four.
func wednesdaysOf(year int, month time.Month, loc *time.Location) []time.Time {
	var out []time.Time
	for d := time.Date(year, month, 1, 0, 0, 0, 0, loc); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Wednesday {
			out = append(out, d)
		}
	}
	return out
}

// pick returns the idx-th entry, or the last one when idx is out of range.
func pick(days []time.Time, idx int) time.Time {
	if idx >= 0 && idx < len(days) {
		return days[idx]
	}
	return days[len(days)-1]
}
