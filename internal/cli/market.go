package cli

import (
	"time"

	"github.com/spf13/cobra"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/marketdata"
	"txo-strategist/internal/state"
	"txo-strategist/internal/store"
)

// syncMarket is the sync-status key of market refreshes.
const syncMarket = "market"

// addMarketCommands adds market data commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Market data",
	}
	cmd.AddCommand(newMarketRefreshCmd(app))
	cmd.AddCommand(newMarketHistoryCmd(app))
	cmd.AddCommand(newMarketStatusCmd(app))
	rootCmd.AddCommand(cmd)
}

// RefreshView is the JSON form of a market refresh.
type RefreshView struct {
	Quote       marketdata.Quote `json:"quote"`
	Full        bool             `json:"full"`
	StrikeShift float64          `json:"strike_shift"`
	ExpiryDate  string           `json:"expiry_date"`
}

func newMarketRefreshCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Update spot, volatility and rate from the quote service",
		Long: `Fetch the index price, volatility index and risk-free rate and store
them in the session. With --full the strike inputs of the closed-form
strategies are shifted by the spot change (rounded to 50 points) and the
expiry is reset to the nearest settlement.

Pass --spot (and optionally --vol, --rate) to set the market by hand
instead of calling the service.`,
		Example: `  txo market refresh
  txo market refresh --full
  txo market refresh --spot 32150 --vol 17.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 60*time.Second)
			defer cancel()

			full, _ := cmd.Flags().GetBool("full")
			src, err := quoteSource(cmd, app)
			if err != nil {
				return err
			}

			q, err := src.Fetch(ctx)
			if err != nil {
				output.Error("Failed to fetch market data: %v", err)
				return err
			}

			now := app.Now()
			var shift float64
			st, err := app.updateState(ctx, func(st *state.AppState) error {
				shift = st.ApplyQuote(state.Quote{
					Spot:                q.Spot,
					VolatilityPercent:   q.VolatilityPercent,
					RiskFreeRatePercent: q.RiskFreeRatePercent,
				}, full, app.Calendar, now)
				return nil
			})
			if err != nil {
				return err
			}

			if err := app.Store.SaveQuote(ctx, store.QuoteRecord{
				Source:              q.Source,
				Spot:                q.Spot,
				VolatilityPercent:   q.VolatilityPercent,
				RiskFreeRatePercent: q.RiskFreeRatePercent,
				FetchedAt:           q.FetchedAt,
			}); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to record quote")
			}
			if err := app.Store.SetLastSync(syncMarket, now); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to update sync status")
			}

			app.Logger.Info().
				Str("source", q.Source).
				Float64("spot", st.Inputs.Spot).
				Float64("shift", shift).
				Bool("full", full).
				Msg("Market refreshed")

			if output.IsJSON() {
				return output.JSON(RefreshView{
					Quote:       q,
					Full:        full,
					StrikeShift: shift,
					ExpiryDate:  st.ExpiryDate,
				})
			}

			output.Success("✓ Market updated from %s", q.Source)
			output.Printf("  Spot:        %s\n", FormatStrike(st.Inputs.Spot))
			output.Printf("  Volatility:  %.2f%%\n", st.Inputs.VolatilityPercent)
			output.Printf("  Rate:        %.3f%%\n", st.Inputs.RiskFreeRatePercent)
			if full {
				output.Printf("  Strikes:     shifted %s\n", FormatSignedPoints(shift))
				output.Printf("  Expiry:      %s\n", st.ExpiryDate)
			}
			return nil
		},
	}
	cmd.Flags().Bool("full", false, "also shift strikes and reset the expiry")
	cmd.Flags().Float64("spot", 0, "set the spot by hand")
	cmd.Flags().Float64("vol", 0, "set the volatility in percent by hand")
	cmd.Flags().Float64("rate", 0, "set the risk-free rate in percent by hand")
	return cmd
}

// quoteSource picks a manual quote when --spot is given, the configured
// service otherwise.
func quoteSource(cmd *cobra.Command, app *App) (marketdata.Source, error) {
	spot, _ := cmd.Flags().GetFloat64("spot")
	if spot > 0 {
		vol, _ := cmd.Flags().GetFloat64("vol")
		rate, _ := cmd.Flags().GetFloat64("rate")
		return marketdata.StaticSource{Quote: marketdata.Quote{
			Source:              "manual",
			Spot:                spot,
			VolatilityPercent:   vol,
			RiskFreeRatePercent: rate,
			FetchedAt:           app.Now(),
		}}, nil
	}
	if app.Source == nil {
		return nil, apperrors.Wrap(apperrors.ErrMarketData, "no quote service configured (set [marketdata] url or pass --spot)")
	}
	return app.Source, nil
}

func newMarketHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent market refreshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			limit, _ := cmd.Flags().GetInt("limit")
			quotes, err := app.Store.RecentQuotes(ctx, limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}
			if len(quotes) == 0 {
				output.Dim("No market refreshes yet.")
				return nil
			}

			loc := app.Calendar.Location()
			table := NewTable(output, "Time", "Source", "Spot", "Vol", "Rate")
			for _, q := range quotes {
				table.AddRow(
					FormatDateTime(q.FetchedAt, loc),
					q.Source,
					FormatStrike(q.Spot),
					FormatFixed(q.VolatilityPercent, 2),
					FormatFixed(q.RiskFreeRatePercent, 3),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "number of refreshes to show")
	return cmd
}

func newMarketStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show when the market was last refreshed",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			last := app.Store.GetLastSync(syncMarket)
			if output.IsJSON() {
				view := map[string]interface{}{"configured": app.Source != nil}
				if !last.IsZero() {
					view["last_refresh"] = last
				}
				return output.JSON(view)
			}
			output.Printf("Last refresh: %s\n", FormatDateTime(last, app.Calendar.Location()))
			if app.Source == nil {
				output.Dim("No quote service configured.")
			}
			return nil
		},
	}
}
