package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# TXO Strategist Configuration

[market]
# Session defaults used on first run and by "state reset"
spot = 32000.0
# Risk-free rate in percent
risk_free_rate = 2.0
# Volatility index level in percent (VIX proxy)
volatility = 16.0
# Volatility correction for the expected move, in percent
vol_correction = 50.0
# Exchange timezone
timezone = "Asia/Taipei"
# Exchange holidays (YYYY-MM-DD); skipped when counting trading hours
holidays = []

[margin]
# NT$ per index point
multiplier = 50.0
# Exchange margin constants A and B, in NT$ (updated by the exchange periodically)
constant_a = 50000.0
constant_b = 25000.0

[analysis]
# Valuation mode: "expiry" or "theoretical"
mode = "expiry"
# Strategy selected in a fresh session
default_strategy = "ironCondor"
# Numeric sweep: +/- width around the spot, sampled every step points
sweep_width = 4000.0
sweep_step = 10.0
# Samples in the P&L chart
chart_steps = 150

[marketdata]
# JSON quote endpoint returning {status, price, vix, meta.raw_rate}
url = ""
timeout = "10s"
max_attempts = 3
initial_delay = "500ms"

[storage]
# SQLite state database
path = "~/.config/txo-strategist/state.db"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
file_path = "~/.config/txo-strategist/logs/txo.log"
# Rotation: megabytes per file, files kept, days kept
max_size = 20
max_backups = 5
max_age = 30
`

// TemplatePath returns where the config template is written for configDir.
func TemplatePath(configDir string) string {
	return filepath.Join(configDir, "config.toml")
}

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := TemplatePath(configDir)
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
