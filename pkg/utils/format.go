// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unlimited is how an infinite profit or loss is displayed.
const Unlimited = "unlimited"

// SafeFloat coerces v to a float64. Strings may carry thousands
// separators; anything that does not parse yields def. It never fails.
func SafeFloat(v interface{}, def float64) float64 {
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		if math.IsNaN(x) {
			return def
		}
		return x
	case float32:
		return SafeFloat(float64(x), def)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case string:
		return parseLeadingFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", ""), def)
	case fmt.Stringer:
		return SafeFloat(x.String(), def)
	default:
		return SafeFloat(fmt.Sprint(x), def)
	}
}

// parseLeadingFloat parses the longest numeric prefix of s, so "32000pts"
// reads as 32000 and "1e3x" as 1000.
func parseLeadingFloat(s string, def float64) float64 {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits, end := 0, 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
		end = i + 1
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
			end = i + 1
		}
	}
	if digits == 0 {
		return def
	}

	// Exponent counts only when at least one digit follows.
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return def
	}
	return f
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// FormatCurrency renders an NT$ amount rounded to whole dollars with
// thousands separators.
func FormatCurrency(amount float64) string {
	switch {
	case math.IsInf(amount, 1):
		return Unlimited
	case math.IsInf(amount, -1):
		return "-" + Unlimited
	case math.IsNaN(amount):
		amount = 0
	}

	n := int64(math.Round(amount))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + "NT$ " + groupThousands(strconv.FormatInt(n, 10))
}

// FormatPoints renders index points with one decimal.
func FormatPoints(points float64) string {
	switch {
	case math.IsInf(points, 1):
		return Unlimited
	case math.IsInf(points, -1):
		return "-" + Unlimited
	case math.IsNaN(points):
		points = 0
	}
	return fmt.Sprintf("%.1f pts", points)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats a signed NT$ P&L.
func FormatPnL(pnl float64) string {
	formatted := FormatCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
