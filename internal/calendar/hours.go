package calendar

import (
	"math"
	"time"

	"txo-strategist/internal/models"
)

// Exchange session schedule, in local clock hours. A trading day is the
// 08:45-13:45 day session plus the 15:00-05:00 night session.
const (
	HoursPerTradingDay = 19.0
	LastDayHours       = 4.75 // 08:45 -> 13:30 on settlement day

	dayOpen          = 8.75
	dayClose         = 13.75
	nightOpen        = 15.0
	nightSession     = 14.0
	nightCloseHour   = 29.0 // 05:00 next day
	settleHourOfDay  = 13.5
	hoursInCalendarD = 24.0
)

// RemainingTradingHours converts an expiry ref into the trading hours left
// before settlement at 13:30 exchange time. It is zero at or after
// settlement.
func (c *Calendar) RemainingTradingHours(ref models.ExpiryRef, now time.Time) float64 {
	now = now.In(c.location)
	settle := atClock(c.Resolve(ref, now), settleHour, settleMinute)

	if !now.Before(settle) {
		return 0
	}

	current := hourOfDay(now)
	if sameDay(now, settle) {
		return math.Max(0, settleHourOfDay-current)
	}

	fullDays := 0
	end := midnight(settle)
	for d := midnight(now).AddDate(0, 0, 1); d.Before(end); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			fullDays++
		}
	}

	var today float64
	switch {
	case current < dayOpen:
		today = HoursPerTradingDay
	case current < dayClose:
		today = dayClose - current + nightSession
	case current < nightOpen:
		today = nightSession
	default:
		today = nightCloseHour - current
	}

	return math.Max(0, float64(fullDays)*HoursPerTradingDay+today+LastDayHours)
}

// TradingDaysUntil counts weekdays in (today, expiry date]. The holiday set
// is not consulted. The settlement day itself counts 0.5 and past dates 0.
func (c *Calendar) TradingDaysUntil(ref models.ExpiryRef, now time.Time) float64 {
	now = now.In(c.location)
	start := midnight(now)
	end := midnight(c.Resolve(ref, now))

	if end.Before(start) {
		return 0
	}
	if end.Equal(start) {
		return 0.5
	}

	count := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			count++
		}
	}
	return float64(count)
}

// DaysUntilExpiry returns the fractional calendar days from now to the
// 13:45 close on the expiry date. Expired refs yield negative values.
func (c *Calendar) DaysUntilExpiry(ref models.ExpiryRef, now time.Time) float64 {
	now = now.In(c.location)
	target := atClock(c.Resolve(ref, now), closeHour, closeMinute)
	return target.Sub(now).Hours() / hoursInCalendarD
}

// TradingHoursToYears converts trading hours into the year fraction the
// pricer expects.
func TradingHoursToYears(hours float64) float64 {
	return hours / HoursPerTradingDay / 365
}
