package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"txo-strategist/internal/analyzer"
	"txo-strategist/internal/calendar"
	"txo-strategist/internal/config"
	"txo-strategist/internal/logging"
	"txo-strategist/internal/marketdata"
	"txo-strategist/internal/state"
	"txo-strategist/internal/store"
	"txo-strategist/internal/strategy"
	"txo-strategist/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-02-01"
)

// Store is what the CLI needs from persistence.
type Store interface {
	store.StateStore
	store.QuoteLog
}

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Calendar *calendar.Calendar
	Registry *strategy.Registry
	Engine   *strategy.Engine
	Analyzer *analyzer.Analyzer
	Store    Store
	Source   marketdata.Source
	Now      func() time.Time
}

// NewApp builds the application from configuration. When the state
// database cannot be opened the session falls back to an in-memory store.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	app := newApp(cfg, logger)

	dataStore, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open state store, session will not be saved")
		app.Store = store.NewMemoryStore()
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Storage.Path).Msg("SQLite store initialized")
	}

	if cfg.MarketData.URL != "" {
		retry := utils.DefaultRetryConfig()
		retry.MaxAttempts = cfg.MarketData.MaxAttempts
		if cfg.MarketData.InitialDelay > 0 {
			retry.InitialDelay = cfg.MarketData.InitialDelay
		}
		app.Source = marketdata.NewHTTPSource(cfg.MarketData.URL, cfg.MarketData.Timeout,
			marketdata.WithRetry(retry),
			marketdata.WithLogger(logger),
		)
		logger.Debug().Str("url", cfg.MarketData.URL).Msg("Market data source initialized")
	}

	return app
}

// NewTestApp builds an application around the given store and quote source
// with a fixed clock.
func NewTestApp(cfg *config.Config, logger zerolog.Logger, st Store, src marketdata.Source, now func() time.Time) *App {
	app := newApp(cfg, logger)
	app.Store = st
	app.Source = src
	if now != nil {
		app.Now = now
	}
	return app
}

func newApp(cfg *config.Config, logger zerolog.Logger) *App {
	cal := calendar.New(
		calendar.WithLocation(calendar.LoadLocation(cfg.Market.Timezone)),
		calendar.WithHolidays(cfg.Market.Holidays...),
		calendar.WithLogger(logger),
	)
	env := strategy.Env{
		Margin:   cfg.Margin,
		Sweep:    cfg.SweepRange(),
		Calendar: cal,
	}
	registry := strategy.NewRegistry(env)
	engine := strategy.NewEngine(registry, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Calendar: cal,
		Registry: registry,
		Engine:   engine,
		Analyzer: analyzer.New(engine, cal, analyzer.Config{
			Margin:     cfg.Margin,
			ChartSteps: cfg.Analysis.ChartSteps,
		}, logger),
		Now: time.Now,
	}
}

// Close releases the state store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return NewRootCmdWithApp(NewApp(cfg, logger))
}

// NewRootCmdWithApp creates the root command around an existing App.
func NewRootCmdWithApp(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "txo",
		Short: "TXO option strategy analyzer",
		Long: `txo analyzes TAIFEX index option (TXO) strategies.

It evaluates closed-form strategies and free-form leg portfolios into
maximum profit, maximum loss, breakevens and estimated margin, prices
options with Black-Scholes, and keeps the session in a local database.

Use 'txo strategy list' to see the available strategies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithLogger(ctx, app.Logger.With().Str("command", cmd.CommandPath()).Logger()))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/txo-strategist)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addPricingCommands(rootCmd, app)
	addExpiryCommands(rootCmd, app)
	addLegCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addStateCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("txo-strategist v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := app.Config.Path
			if path == "" {
				path = config.TemplatePath(config.DefaultConfigDir())
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Market")
	output.Printf("  Spot:            %s\n", FormatStrike(cfg.Market.Spot))
	output.Printf("  Risk-free rate:  %.2f%%\n", cfg.Market.RiskFreeRatePercent)
	output.Printf("  Volatility:      %.2f%%\n", cfg.Market.VolatilityPercent)
	output.Printf("  Vol correction:  %.0f%%\n", cfg.Market.VolCorrectionPercent)
	output.Printf("  Timezone:        %s\n", cfg.Market.Timezone)
	holidays := "-"
	if len(cfg.Market.Holidays) > 0 {
		holidays = strings.Join(cfg.Market.Holidays, ", ")
	}
	output.Printf("  Holidays:        %s\n", holidays)
	output.Println()

	output.Bold("Margin")
	output.Printf("  Multiplier:      %s per point\n", FormatMoney(cfg.Margin.Multiplier))
	output.Printf("  Constant A:      %s\n", FormatMoney(cfg.Margin.ConstantA))
	output.Printf("  Constant B:      %s\n", FormatMoney(cfg.Margin.ConstantB))
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Mode:            %s\n", cfg.Mode())
	output.Printf("  Default:         %s\n", cfg.Analysis.DefaultStrategy)
	output.Printf("  Sweep:           ±%s every %s\n", FormatStrike(cfg.Analysis.SweepWidth), FormatStrike(cfg.Analysis.SweepStep))
	output.Printf("  Chart steps:     %d\n", cfg.Analysis.ChartSteps)
	output.Println()

	output.Bold("Market data")
	url := cfg.MarketData.URL
	if url == "" {
		url = "(not configured)"
	}
	output.Printf("  URL:             %s\n", url)
	output.Printf("  Timeout:         %s\n", cfg.MarketData.Timeout)
	output.Printf("  Attempts:        %d\n", cfg.MarketData.MaxAttempts)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Path:            %s\n", cfg.Storage.Path)
	output.Printf("  Log level:       %s\n", cfg.Logging.Level)
}

// commandContext returns a context bounded for one CLI command.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// requireArgsIn validates that args[0] is one of allowed.
func requireArgsIn(allowed ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("accepts 1 arg, received %d", len(args))
		}
		for _, a := range allowed {
			if strings.EqualFold(a, args[0]) {
				return nil
			}
		}
		return fmt.Errorf("invalid argument %q (must be one of %s)", args[0], strings.Join(allowed, ", "))
	}
}

// sessionDefaults returns the fresh-session inputs from configuration.
func (a *App) sessionDefaults() state.Defaults {
	d := state.DefaultDefaults(a.Registry)
	d.Spot = a.Config.Market.Spot
	d.RiskFreeRatePercent = a.Config.Market.RiskFreeRatePercent
	d.VolatilityPercent = a.Config.Market.VolatilityPercent
	d.VolCorrectionPercent = a.Config.Market.VolCorrectionPercent
	d.Mode = a.Config.Mode()
	return d
}
