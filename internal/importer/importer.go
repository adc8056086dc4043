// Package importer parses broker position text into option legs.
//
// A position line looks like
//
//	【202602W1】 32500 Long Put 4口 (每口權利金164)
//
// The ASCII form "[202602W1] 32500 Long Put 4 lots (premium 164)" is
// accepted as well. Lines that match neither form are skipped.
package importer

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"txo-strategist/internal/models"
)

var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)【(.*?)】\s*([\d.]+)\s*(Long|Short)\s*(Call|Put)\s*([\d.]+)口\s*\(每口權利金([\d.]+)\)`),
	regexp.MustCompile(`(?i)\[(.*?)\]\s*([\d.]+)\s*(Long|Short)\s*(Call|Put)\s*([\d.]+)\s*lots?\s*\(premium\s*([\d.]+)\)`),
}

// Result holds parsed legs and the lines that could not be parsed.
type Result struct {
	Legs    []models.Leg
	Skipped []string
}

// ParseText parses every non-blank line of text. Each parsed leg gets a
// fresh id.
func ParseText(text string) Result {
	res := Result{Legs: []models.Leg{}, Skipped: []string{}}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		leg, ok := ParseLine(line)
		if !ok {
			res.Skipped = append(res.Skipped, line)
			continue
		}
		res.Legs = append(res.Legs, leg)
	}
	return res
}

// ParseLine parses a single position line.
func ParseLine(line string) (models.Leg, bool) {
	for _, re := range linePatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		strike, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return models.Leg{}, false
		}
		action, _ := models.ParseAction(m[3])
		typ, _ := models.ParseOptionType(m[4])
		qty, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			return models.Leg{}, false
		}
		premium, err := strconv.ParseFloat(m[6], 64)
		if err != nil {
			return models.Leg{}, false
		}
		return models.Leg{
			ID:       uuid.NewString(),
			Action:   action,
			Type:     typ,
			Strike:   strike,
			Premium:  premium,
			Quantity: qty,
			Expiry:   models.ExpiryRef(strings.TrimSpace(m[1])),
		}, true
	}
	return models.Leg{}, false
}

// FormatLine renders a leg in the broker position format accepted by
// ParseLine.
func FormatLine(leg models.Leg) string {
	side := "Long"
	if leg.IsShort() {
		side = "Short"
	}
	typ := "Call"
	if leg.Type == models.Put {
		typ = "Put"
	}
	return fmt.Sprintf("【%s】 %s %s %s %s口 (每口權利金%s)",
		leg.Expiry,
		strconv.FormatFloat(leg.Strike, 'f', -1, 64),
		side, typ,
		strconv.FormatFloat(leg.Quantity, 'f', -1, 64),
		strconv.FormatFloat(leg.Premium, 'f', -1, 64),
	)
}
