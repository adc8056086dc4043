// Package config provides configuration management for the analyzer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/logging"
	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
)

// EnvPrefix prefixes environment overrides, e.g. TXO_MARKET_SPOT.
const EnvPrefix = "TXO"

// Config holds all application configuration.
type Config struct {
	Market     MarketConfig        `mapstructure:"market"`
	Margin     payoff.MarginParams `mapstructure:"margin"`
	Analysis   AnalysisConfig      `mapstructure:"analysis"`
	MarketData MarketDataConfig    `mapstructure:"marketdata"`
	Storage    StorageConfig       `mapstructure:"storage"`
	Logging    logging.LogConfig   `mapstructure:"logging"`

	// Path is the config file that was read.
	Path string `mapstructure:"-"`
}

// MarketConfig holds the session defaults and exchange calendar.
type MarketConfig struct {
	Spot                 float64  `mapstructure:"spot"`
	RiskFreeRatePercent  float64  `mapstructure:"risk_free_rate"`
	VolatilityPercent    float64  `mapstructure:"volatility"`
	VolCorrectionPercent float64  `mapstructure:"vol_correction"`
	Timezone             string   `mapstructure:"timezone"`
	Holidays             []string `mapstructure:"holidays"`
}

// AnalysisConfig holds evaluation settings.
type AnalysisConfig struct {
	Mode            string  `mapstructure:"mode"` // expiry, theoretical
	DefaultStrategy string  `mapstructure:"default_strategy"`
	SweepWidth      float64 `mapstructure:"sweep_width"`
	SweepStep       float64 `mapstructure:"sweep_step"`
	ChartSteps      int     `mapstructure:"chart_steps"`
}

// MarketDataConfig holds the quote service settings.
type MarketDataConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// StorageConfig holds the state database location.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/txo-strategist"
	}
	return filepath.Join(home, ".config", "txo-strategist")
}

// Load loads configuration from the specified directory, writing a
// template config.toml first if none exists. A .env file in the directory
// or the working directory is loaded before TXO_* overrides are applied.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	loadDotEnv(configDir)

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v, configDir)
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Path = path
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Logging.FilePath = expandHome(cfg.Logging.FilePath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func loadDotEnv(configDir string) {
	for _, p := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if _, err := os.Stat(p); err == nil {
			// Existing environment variables win.
			_ = godotenv.Load(p)
		}
	}
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("market.spot", 32000.0)
	v.SetDefault("market.risk_free_rate", 2.0)
	v.SetDefault("market.volatility", 16.0)
	v.SetDefault("market.vol_correction", 50.0)
	v.SetDefault("market.timezone", "Asia/Taipei")
	v.SetDefault("market.holidays", []string{})

	m := payoff.DefaultMarginParams()
	v.SetDefault("margin.multiplier", m.Multiplier)
	v.SetDefault("margin.constant_a", m.ConstantA)
	v.SetDefault("margin.constant_b", m.ConstantB)

	v.SetDefault("analysis.mode", string(models.ModeExpiry))
	v.SetDefault("analysis.default_strategy", "ironCondor")
	v.SetDefault("analysis.sweep_width", payoff.DefaultSweepWidth)
	v.SetDefault("analysis.sweep_step", payoff.DefaultSweepStep)
	v.SetDefault("analysis.chart_steps", payoff.DefaultChartSteps)

	v.SetDefault("marketdata.url", "")
	v.SetDefault("marketdata.timeout", 10*time.Second)
	v.SetDefault("marketdata.max_attempts", 3)
	v.SetDefault("marketdata.initial_delay", 500*time.Millisecond)

	v.SetDefault("storage.path", filepath.Join(configDir, "state.db"))

	l := logging.DefaultLogConfig()
	v.SetDefault("logging.level", l.Level)
	v.SetDefault("logging.console", l.Console)
	v.SetDefault("logging.file", l.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "txo.log"))
	v.SetDefault("logging.max_size", l.MaxSize)
	v.SetDefault("logging.max_backups", l.MaxBackups)
	v.SetDefault("logging.max_age", l.MaxAge)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, format, args...)
	}

	if c.Market.Spot <= 0 {
		return invalid("market.spot must be positive")
	}
	if c.Market.VolatilityPercent <= 0 || c.Market.VolatilityPercent > 200 {
		return invalid("market.volatility must be between 0 and 200")
	}
	if c.Market.RiskFreeRatePercent < 0 || c.Market.RiskFreeRatePercent > 100 {
		return invalid("market.risk_free_rate must be between 0 and 100")
	}
	if c.Market.VolCorrectionPercent < 0 {
		return invalid("market.vol_correction must be non-negative")
	}
	for _, h := range c.Market.Holidays {
		if _, err := time.Parse("2006-1-2", strings.TrimSpace(h)); err != nil {
			return invalid("market.holidays: %q is not a YYYY-MM-DD date", h)
		}
	}

	if c.Margin.Multiplier <= 0 {
		return invalid("margin.multiplier must be positive")
	}
	if c.Margin.ConstantA < 0 || c.Margin.ConstantB < 0 {
		return invalid("margin constants must be non-negative")
	}

	mode := strings.ToLower(c.Analysis.Mode)
	if mode != "" && mode != string(models.ModeExpiry) && mode != string(models.ModeTheoretical) {
		return invalid("invalid analysis mode: %s (must be 'expiry' or 'theoretical')", c.Analysis.Mode)
	}
	if c.Analysis.SweepWidth <= 0 || c.Analysis.SweepStep <= 0 {
		return invalid("analysis.sweep_width and analysis.sweep_step must be positive")
	}
	if c.Analysis.SweepStep > c.Analysis.SweepWidth {
		return invalid("analysis.sweep_step must not exceed analysis.sweep_width")
	}
	if c.Analysis.ChartSteps < 10 {
		return invalid("analysis.chart_steps must be at least 10")
	}

	if c.MarketData.MaxAttempts < 1 {
		return invalid("marketdata.max_attempts must be at least 1")
	}
	if c.MarketData.Timeout < 0 {
		return invalid("marketdata.timeout must be non-negative")
	}

	if strings.TrimSpace(c.Storage.Path) == "" {
		return invalid("storage.path must be set")
	}

	return nil
}

// Mode returns the configured analysis mode.
func (c *Config) Mode() models.Mode {
	return models.ParseMode(c.Analysis.Mode)
}

// SweepRange returns the numeric sweep settings.
func (c *Config) SweepRange() payoff.Range {
	return payoff.Range{Width: c.Analysis.SweepWidth, Step: c.Analysis.SweepStep}
}
