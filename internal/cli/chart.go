package cli

import (
	"fmt"
	"math"
	"strings"

	"txo-strategist/internal/payoff"
)

// Plot glyphs.
const (
	glyphPnL       = '*'
	glyphBenchmark = '.'
	glyphZero      = '-'
	glyphSpot      = '|'
)

// RenderChart draws a P&L chart as text, width columns by height rows plus
// a price axis. The zero line and the spot column are marked; a benchmark
// overlay is drawn beneath the current curve.
func RenderChart(c payoff.Chart, width, height int) []string {
	if len(c.Points) == 0 || width < 2 || height < 2 {
		return []string{"(no data)"}
	}

	lo, hi := math.Min(c.PnLDomain[0], 0), math.Max(c.PnLDomain[1], 0)
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}

	row := func(v float64) int {
		r := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
		if r < 0 {
			return 0
		}
		if r >= height {
			return height - 1
		}
		return r
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	zero := row(0)
	for x := 0; x < width; x++ {
		grid[zero][x] = glyphZero
	}

	if spot := c.KeyPrices.Current; spot > c.MinPrice && spot < c.MaxPrice {
		x := column(spot, c.MinPrice, c.MaxPrice, width)
		for y := 0; y < height; y++ {
			if grid[y][x] == ' ' {
				grid[y][x] = glyphSpot
			}
		}
	}

	n := len(c.Points)
	for x := 0; x < width; x++ {
		i := 0
		if n > 1 {
			i = x * (n - 1) / (width - 1)
		}
		p := c.Points[i]
		if p.Benchmark != nil {
			grid[row(*p.Benchmark)][x] = glyphBenchmark
		}
		grid[row(p.PnLPoints)][x] = glyphPnL
	}

	labels := map[int]string{
		0:          fmt.Sprintf("%.0f", hi),
		zero:       "0",
		height - 1: fmt.Sprintf("%.0f", lo),
	}
	labelWidth := 0
	for _, l := range labels {
		if len(l) > labelWidth {
			labelWidth = len(l)
		}
	}

	lines := make([]string, 0, height+2)
	for y, r := range grid {
		lines = append(lines, PadLeft(labels[y], labelWidth)+" ┤"+string(r))
	}

	axis := strings.Repeat(" ", labelWidth) + " └" + strings.Repeat("─", width)
	lines = append(lines, axis)

	minLabel := FormatStrike(c.MinPrice)
	maxLabel := FormatStrike(c.MaxPrice)
	gap := width - len(minLabel) - len(maxLabel)
	if gap < 1 {
		gap = 1
	}
	lines = append(lines, strings.Repeat(" ", labelWidth+2)+minLabel+strings.Repeat(" ", gap)+maxLabel)
	return lines
}

// column maps price to a chart column.
func column(price, minPrice, maxPrice float64, width int) int {
	x := int(math.Round((price - minPrice) / (maxPrice - minPrice) * float64(width-1)))
	if x < 0 {
		return 0
	}
	if x >= width {
		return width - 1
	}
	return x
}
