// Package cli provides the command-line interface for the strategy analyzer.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"txo-strategist/internal/models"
	"txo-strategist/pkg/utils"
)

// FormatPoints formats index points; +Inf renders as "unlimited".
func FormatPoints(points float64) string {
	return utils.FormatPoints(points)
}

// FormatSignedPoints formats a P&L in points with sign.
func FormatSignedPoints(points float64) string {
	s := utils.FormatPoints(points)
	if points > 0 {
		return "+" + s
	}
	return s
}

// FormatMoney formats an NT$ amount.
func FormatMoney(amount float64) string {
	return utils.FormatCurrency(amount)
}

// FormatMoneyPnL formats an NT$ P&L with sign.
func FormatMoneyPnL(amount float64) string {
	return utils.FormatPnL(amount)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	return utils.FormatPercent(value)
}

// FormatStrike formats a strike without decimals when it is whole.
func FormatStrike(k float64) string {
	return strconv.FormatFloat(k, 'f', -1, 64)
}

// FormatPrice formats an option price.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatBreakEvens joins breakeven prices, or "-" when there are none.
func FormatBreakEvens(bes []float64) string {
	if len(bes) == 0 {
		return "-"
	}
	parts := make([]string, len(bes))
	for i, b := range bes {
		parts[i] = FormatStrike(b)
	}
	return strings.Join(parts, ", ")
}

// FormatFixed formats v with the given number of decimals.
func FormatFixed(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatGreeks formats option Greeks.
func FormatGreeks(g models.Greeks) string {
	return fmt.Sprintf("Δ: %.4f  Γ: %.6f  Θ: %.2f  ν: %.2f", g.Delta, g.Gamma, g.Theta, g.Vega)
}

// FormatLeg renders a leg as "Sell 2 × 32400 Call @ 60 [202602W2]".
func FormatLeg(l models.Leg) string {
	side := "Buy"
	if l.IsShort() {
		side = "Sell"
	}
	typ := "Call"
	if l.Type == models.Put {
		typ = "Put"
	}
	s := fmt.Sprintf("%s %s × %s %s @ %s", side, FormatStrike(l.Quantity), FormatStrike(l.Strike), typ, FormatStrike(l.Premium))
	if l.Expiry != "" {
		s += " [" + string(l.Expiry) + "]"
	}
	return s
}

// TitleCase upper-cases the first letter of s.
func TitleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// parseFloatArg parses a numeric argument, allowing thousands separators.
// Unparseable input yields NaN.
func parseFloatArg(s string) float64 {
	return utils.SafeFloat(s, math.NaN())
}

// FormatHours formats remaining trading hours.
func FormatHours(h float64) string {
	if h <= 0 {
		return "expired"
	}
	return fmt.Sprintf("%.1fh", h)
}

// FormatDateTime formats a timestamp in loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "never"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatRatio formats profit per unit of risk.
func FormatRatio(profit, loss float64) string {
	switch {
	case math.IsInf(profit, 1):
		return utils.Unlimited
	case loss == 0 || math.IsInf(loss, 1):
		return "-"
	}
	return fmt.Sprintf("%.2f:1", profit/loss)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadLeft pads a string to the left.
func PadLeft(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(" ", length-len(s)) + s
}
