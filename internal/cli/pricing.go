package cli

import (
	"time"

	"github.com/spf13/cobra"

	"txo-strategist/internal/calendar"
	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/models"
	"txo-strategist/internal/pricing"
)

// addPricingCommands adds the option pricer and Greeks commands.
func addPricingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
}

// PriceView is the JSON form of a single option valuation.
type PriceView struct {
	Type       models.OptionType `json:"type"`
	Spot       float64           `json:"spot"`
	Strike     float64           `json:"strike"`
	Expiry     models.ExpiryRef  `json:"expiry"`
	Hours      float64           `json:"hours"`
	TimeYears  float64           `json:"time_years"`
	Rate       float64           `json:"rate_percent"`
	Volatility float64           `json:"volatility_percent"`
	Price      Amount            `json:"price"`
	Intrinsic  float64           `json:"intrinsic"`
	TimeValue  Amount            `json:"time_value"`
	Greeks     GreeksView        `json:"greeks"`
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price <strike>",
		Short: "Black-Scholes price and Greeks of one option",
		Long: `Price a European option with Black-Scholes. Spot, volatility and rate
default to the session inputs; time to expiry is counted in trading hours
to the session expiry unless --expiry or --hours is given.`,
		Example: `  txo price 32000
  txo price 31500 --type put --expiry 202603
  txo price 32400 --vol 18 --hours 12.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			strike := parseFloatArg(args[0])
			if !(strike > 0) {
				return apperrors.NewValidationError("strike", args[0], "must be positive")
			}
			typeStr, _ := cmd.Flags().GetString("type")
			typ, ok := models.ParseOptionType(typeStr)
			if !ok {
				return apperrors.NewValidationError("type", typeStr, "must be call or put")
			}

			st, err := app.loadState(ctx)
			if err != nil {
				return err
			}
			snap := st.Snapshot()
			if v, _ := cmd.Flags().GetFloat64("spot"); v > 0 {
				snap.Spot = v
			}
			if v, _ := cmd.Flags().GetFloat64("vol"); v > 0 {
				snap.VolatilityPercent = v
			}
			if cmd.Flags().Changed("rate") {
				snap.RiskFreeRatePercent, _ = cmd.Flags().GetFloat64("rate")
			}

			now := app.Now()
			expiry := models.ExpiryRef(st.ExpiryDate)
			if e, _ := cmd.Flags().GetString("expiry"); e != "" {
				expiry = models.ExpiryRef(e)
			}
			hours := app.Calendar.RemainingTradingHours(expiry, now)
			if cmd.Flags().Changed("hours") {
				hours, _ = cmd.Flags().GetFloat64("hours")
			}
			years := calendar.TradingHoursToYears(hours)

			res := pricing.PriceAndGreeks(snap.Spot, strike, years, snap.Rate(), snap.Sigma(), typ)
			intrinsic := pricing.Intrinsic(snap.Spot, strike, typ)

			view := PriceView{
				Type:       typ,
				Spot:       snap.Spot,
				Strike:     strike,
				Expiry:     expiry,
				Hours:      hours,
				TimeYears:  years,
				Rate:       snap.RiskFreeRatePercent,
				Volatility: snap.VolatilityPercent,
				Price:      Amount(res.Price),
				Intrinsic:  intrinsic,
				TimeValue:  Amount(res.Price - intrinsic),
				Greeks:     *newGreeksView(&res.Greeks),
			}
			if output.IsJSON() {
				return output.JSON(view)
			}

			output.Bold("%s %s", FormatStrike(strike), TitleCase(string(typ)))
			output.Dim("Spot %s · vol %.2f%% · rate %.2f%% · %s to %s",
				FormatStrike(snap.Spot), snap.VolatilityPercent, snap.RiskFreeRatePercent, FormatHours(hours), expiry)
			output.Println()
			output.Printf("  Price:       %s\n", FormatPrice(res.Price))
			output.Printf("  Intrinsic:   %s\n", FormatPrice(intrinsic))
			output.Printf("  Time value:  %s\n", FormatPrice(res.Price-intrinsic))
			output.Printf("  Value:       %s per lot\n", FormatMoney(res.Price*app.Config.Margin.Multiplier))
			output.Printf("  Greeks:      %s\n", FormatGreeks(res.Greeks))
			return nil
		},
	}
	cmd.Flags().String("type", "call", "option type: call or put")
	cmd.Flags().Float64("spot", 0, "underlying price (default: session spot)")
	cmd.Flags().Float64("vol", 0, "volatility in percent (default: session volatility)")
	cmd.Flags().Float64("rate", 0, "risk-free rate in percent (default: session rate)")
	cmd.Flags().String("expiry", "", "expiry date or contract code (default: session expiry)")
	cmd.Flags().Float64("hours", 0, "remaining trading hours, overriding --expiry")
	return cmd
}

func newGreeksCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "greeks",
		Short: "Aggregate Greeks of the selected strategy",
		Long: `Sum Delta, Gamma, Theta and Vega over the legs of the selected
strategy, each weighted by quantity and direction. Every leg is priced with
the time to the session expiry (or the filtered expiry).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			st, err := app.loadState(ctx)
			if err != nil {
				return err
			}
			rep, err := app.Analyzer.Run(st, app.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"strategy":        rep.Strategy.ID,
					"legs":            len(rep.Legs),
					"remaining_hours": rep.RemainingHours,
					"greeks":          newGreeksView(rep.Greeks),
				})
			}

			output.Bold("%s", rep.Strategy.Name)
			if rep.Greeks == nil {
				output.Warning("No legs to price.")
				return nil
			}
			g := *rep.Greeks
			output.Dim("%d legs · %s to %s", len(rep.Legs), FormatHours(rep.RemainingHours), rep.Expiry)
			output.Println()
			output.Printf("  Delta:  %s\n", output.ColoredString(output.PnLColor(g.Delta), FormatFixed(g.Delta, 4)))
			output.Printf("  Gamma:  %s\n", FormatFixed(g.Gamma, 6))
			output.Printf("  Theta:  %s /day  (%s)\n", output.ColoredString(output.PnLColor(g.Theta), FormatFixed(g.Theta, 2)), FormatMoneyPnL(g.Theta*app.Config.Margin.Multiplier))
			output.Printf("  Vega:   %s /vol pt\n", FormatFixed(g.Vega, 2))
			return nil
		},
	}
}
