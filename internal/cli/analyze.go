package cli

import (
	"time"

	"github.com/spf13/cobra"

	"txo-strategist/internal/analyzer"
	"txo-strategist/internal/payoff"
	"txo-strategist/internal/state"
)

// addAnalysisCommands adds analysis, chart and benchmark commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newChartCmd(app))
	rootCmd.AddCommand(newBenchmarkCmd(app))
}

// runAnalysis loads the session and analyzes the selected strategy.
func runAnalysis(cmd *cobra.Command, app *App) (*state.AppState, analyzer.Report, error) {
	ctx, cancel := commandContext(cmd, 30*time.Second)
	defer cancel()

	st, err := app.loadState(ctx)
	if err != nil {
		return nil, analyzer.Report{}, err
	}
	rep, err := app.Analyzer.Run(st, app.Now())
	return st, rep, err
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Full analysis of the selected strategy",
		Long: `Analyze the selected strategy with the session inputs:
- Maximum profit and loss, breakevens and estimated margin
- Aggregate Greeks
- Per-leg valuation for portfolios
- Expected move until expiry
- A risk diagnosis with advice`,
		Example: `  txo analyze
  txo analyze --chart
  txo analyze --json --points`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			withChart, _ := cmd.Flags().GetBool("chart")
			withPoints, _ := cmd.Flags().GetBool("points")

			st, rep, err := runAnalysis(cmd, app)
			if err != nil {
				return err
			}
			mult := app.Config.Margin.Multiplier

			if output.IsJSON() {
				return output.JSON(newReportView(rep, mult, withPoints))
			}

			output.Bold("%s", rep.Strategy.Name)
			output.Dim("Spot %s · vol %.2f%% · rate %.2f%% · %s mode · %s to %s",
				FormatStrike(rep.Snapshot.Spot), rep.Snapshot.VolatilityPercent, rep.Snapshot.RiskFreeRatePercent,
				rep.Mode, FormatHours(rep.RemainingHours), rep.Expiry)
			output.Println()
			printResult(output, rep.Result, mult)

			if rep.Greeks != nil {
				output.Printf("  Greeks:       %s\n", FormatGreeks(*rep.Greeks))
			}

			if rep.LegTable != nil && len(rep.LegTable.Rows) > 0 {
				output.Println()
				table := NewTable(output, "Leg", "Days", "Theo", "Intrinsic", "Time val", "Deviation", "P&L")
				for _, r := range rep.LegTable.Rows {
					table.AddRow(
						FormatLeg(r.Leg),
						FormatFixed(r.Days, 2),
						FormatPrice(r.TheoreticalPrice),
						FormatPrice(r.Intrinsic),
						FormatPrice(r.TimeValue),
						FormatPrice(r.PremiumDeviation),
						output.Money(r.LegPnL),
					)
				}
				table.Render()
				output.Printf("  Total P&L at spot: %s\n", output.Money(rep.LegTable.TotalPnL))
			}

			output.Println()
			amp := rep.Amplitude
			output.Printf("  Expected move: ±%s (%.2f%%)  →  %s – %s\n",
				FormatFixed(amp.Points, 0), amp.Percent,
				FormatFixed(rep.Snapshot.Spot-amp.Points, 0), FormatFixed(rep.Snapshot.Spot+amp.Points, 0))

			output.Println()
			output.Printf("  Diagnosis: %s (%d/100)\n", output.Verdict(rep.Diagnosis.Verdict), rep.Diagnosis.Score)
			for _, a := range rep.Diagnosis.Advice {
				output.Printf("    • %s\n", a)
			}

			if withChart {
				output.Println()
				for _, line := range RenderChart(rep.Chart, 72, 16) {
					output.Println(line)
				}
			}
			if len(st.Benchmark) > 0 {
				output.Dim("Benchmark overlay active ('txo benchmark clear' to remove)")
			}
			return nil
		},
	}
	cmd.Flags().Bool("chart", false, "draw the P&L chart")
	cmd.Flags().Bool("points", false, "include chart points in JSON output")
	return cmd
}

func newChartCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Draw the P&L chart of the selected strategy",
		Long: `Draw the P&L at expiry (or theoretical P&L in theoretical mode) over a
price range around the spot, strikes and breakevens. '*' is the current
strategy, '.' the saved benchmark, '|' the spot and '-' zero P&L.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")

			_, rep, err := runAnalysis(cmd, app)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(newChartView(rep.Chart, true))
			}

			output.Bold("%s", rep.Strategy.Name)
			for _, line := range RenderChart(rep.Chart, width, height) {
				output.Println(line)
			}
			kp := rep.Chart.KeyPrices
			output.Dim("Strikes: %s · Breakevens: %s", FormatBreakEvens(kp.Strikes), FormatBreakEvens(kp.BreakEvens))
			return nil
		},
	}
	cmd.Flags().Int("width", 72, "chart width in columns")
	cmd.Flags().Int("height", 16, "chart height in rows")
	return cmd
}

func newBenchmarkCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Save or clear a P&L curve to compare against",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Save the current strategy's P&L curve as the benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 30*time.Second)
			defer cancel()

			var points int
			_, err := app.updateState(ctx, func(st *state.AppState) error {
				rep, err := app.Analyzer.Run(st, app.Now())
				if err != nil {
					return err
				}
				st.Benchmark = payoff.BenchmarkFrom(rep.Chart)
				points = len(st.Benchmark)
				return nil
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]int{"points": points})
			}
			output.Success("✓ Benchmark saved (%d points)", points)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the benchmark overlay",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			_, err := app.updateState(ctx, func(st *state.AppState) error {
				st.Benchmark = nil
				return nil
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]bool{"cleared": true})
			}
			output.Success("✓ Benchmark cleared")
			return nil
		},
	})

	return cmd
}
