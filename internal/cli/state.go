package cli

import (
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/models"
	"txo-strategist/internal/state"
)

// addStateCommands adds session state commands.
func addStateCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "View and change the session",
		Long: `The session holds the market inputs, strategy inputs, leg sets, selected
strategy, expiry, valuation mode and expiry filter. It is saved after every
change.`,
	}
	cmd.AddCommand(newStateShowCmd(app))
	cmd.AddCommand(newStateResetCmd(app))
	cmd.AddCommand(newStateSelectCmd(app))
	cmd.AddCommand(newStateModeCmd(app))
	cmd.AddCommand(newStateExpiryCmd(app))
	cmd.AddCommand(newStateFilterCmd(app))
	cmd.AddCommand(newStateSetCmd(app))
	rootCmd.AddCommand(cmd)
}

func newStateShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			st, err := app.loadState(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(st)
			}

			name := st.SelectedStrategy
			if def, ok := app.Registry.Get(name); ok {
				name = def.Info().Name + " (" + st.SelectedStrategy + ")"
			}
			in := st.Inputs
			output.Bold("Session")
			output.Printf("  Strategy:        %s\n", name)
			output.Printf("  Spot:            %s\n", FormatStrike(in.Spot))
			output.Printf("  Volatility:      %.2f%%\n", in.VolatilityPercent)
			output.Printf("  Rate:            %.3f%%\n", in.RiskFreeRatePercent)
			output.Printf("  Vol correction:  %.0f%%\n", in.VolCorrectionPercent)
			output.Printf("  Expiry:          %s\n", st.ExpiryDate)
			output.Printf("  Mode:            %s\n", st.Mode)
			output.Printf("  Filter:          %s\n", st.FilterExpiry)
			output.Printf("  Updated:         %s\n", FormatDateTime(st.UpdatedAt, app.Calendar.Location()))

			sets := make([]string, 0, len(st.LegSets))
			for _, set := range st.LegSetNames() {
				sets = append(sets, set+"="+FormatStrike(float64(len(st.LegSets[set]))))
			}
			output.Printf("  Leg sets:        %s\n", strings.Join(sets, ", "))

			if def, ok := app.Registry.Get(st.SelectedStrategy); ok && len(def.Info().Inputs) > 0 {
				output.Println()
				table := NewTable(output, "Input", "Label", "Value")
				for _, f := range def.Info().Inputs {
					table.AddRow(f.ID, f.Label, FormatStrike(in.Values[f.ID]))
				}
				table.Render()
			}
			return nil
		},
	}
}

func newStateResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore default inputs and select the custom portfolio",
		Long: `Restore the configured market and strategy inputs and the default
expiry, select the custom portfolio and clear the expiry filter. Leg sets
are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			st, err := app.updateState(ctx, func(st *state.AppState) error {
				st.Reset(app.sessionDefaults(), app.Calendar, app.Now())
				return nil
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(st)
			}
			output.Success("✓ Session reset (expiry %s)", st.ExpiryDate)
			return nil
		},
	}
}

func newStateSelectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "select <strategy>",
		Short: "Select the active strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			_, err := app.updateState(ctx, func(st *state.AppState) error {
				return st.Select(app.Registry, args[0])
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"selected": args[0]})
			}
			output.Success("✓ Selected %s", args[0])
			return nil
		},
	}
}

func newStateModeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mode <expiry|theoretical>",
		Short: "Set how portfolio legs are valued",
		Args:  requireArgsIn(string(models.ModeExpiry), string(models.ModeTheoretical)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			mode := models.ParseMode(args[0])
			_, err := app.updateState(ctx, func(st *state.AppState) error {
				st.Mode = mode
				return nil
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]models.Mode{"mode": mode})
			}
			output.Success("✓ Mode set to %s", mode)
			return nil
		},
	}
}

func newStateExpiryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "expiry <date|code>",
		Short: "Set the global expiry",
		Long: `Set the expiry used by legs without their own and by the closed-form
strategies. Accepts YYYY-MM-DD or a contract code, which is resolved to
its settlement date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			date, err := resolveExpiryDate(app, args[0])
			if err != nil {
				return err
			}
			_, err = app.updateState(ctx, func(st *state.AppState) error {
				st.ExpiryDate = date
				return nil
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"expiry_date": date})
			}
			output.Success("✓ Expiry set to %s", date)
			return nil
		},
	}
}

// resolveExpiryDate validates an ISO date or contract code and returns the
// ISO settlement date.
func resolveExpiryDate(app *App, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "-") {
		t, err := app.Calendar.ParseDate(arg)
		if err != nil {
			return "", err
		}
		return t.Format("2006-01-02"), nil
	}
	t, err := app.Calendar.ParseContractCodeStrict(arg)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// legExpiryRef validates a leg expiry. Dates are stored zero-padded and
// contract codes as given; empty means the session expiry.
func legExpiryRef(app *App, arg string) (models.ExpiryRef, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", nil
	}
	date, err := resolveExpiryDate(app, arg)
	if err != nil {
		return "", apperrors.NewValidationError("expiry", arg, err.Error())
	}
	if strings.Contains(arg, "-") {
		return models.ExpiryRef(date), nil
	}
	return models.ExpiryRef(arg), nil
}

func newStateFilterCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [expiry|ALL]",
		Short: "Restrict portfolio analysis to one expiry",
		Long: `Restrict the legs of the selected portfolio to one expiry. Without an
argument the expiries present in the portfolio are listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			if len(args) == 0 {
				st, err := app.loadState(ctx)
				if err != nil {
					return err
				}
				available := st.AvailableExpiries(app.Calendar, app.Now())
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{
						"filter":    st.FilterExpiry,
						"available": available,
					})
				}
				output.Printf("Filter: %s\n", st.FilterExpiry)
				for _, ref := range available {
					output.Printf("  %s  %s\n", ref, FormatHours(app.Calendar.RemainingTradingHours(ref, app.Now())))
				}
				return nil
			}

			filter := args[0]
			if strings.EqualFold(filter, state.FilterAll) {
				filter = state.FilterAll
			}
			_, err := app.updateState(ctx, func(st *state.AppState) error {
				st.FilterExpiry = filter
				return nil
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"filter": filter})
			}
			output.Success("✓ Filter set to %s", filter)
			return nil
		},
	}
}

// sessionFields are the market inputs "state set" accepts besides
// strategy inputs.
var sessionFields = map[string]func(in *state.Inputs, v float64){
	"spot":          func(in *state.Inputs, v float64) { in.Spot = v },
	"vol":           func(in *state.Inputs, v float64) { in.VolatilityPercent = v },
	"rate":          func(in *state.Inputs, v float64) { in.RiskFreeRatePercent = v },
	"volCorrection": func(in *state.Inputs, v float64) { in.VolCorrectionPercent = v },
}

func newStateSetCmd(app *App) *cobra.Command {
	known := make([]string, 0, len(sessionFields))
	for k := range sessionFields {
		known = append(known, k)
	}
	sort.Strings(known)

	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a market or strategy input",
		Long: "Set one input. Market keys: " + strings.Join(known, ", ") + `.
Any strategy input id (see 'txo strategy show <id>') is accepted too.`,
		Example: `  txo state set spot 32150
  txo state set vol 18.5
  txo state set putK1 31500`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			key := args[0]
			v := parseFloatArg(args[1])
			if !(v >= 0) {
				return apperrors.NewValidationError(key, args[1], "must be a non-negative number")
			}

			_, err := app.updateState(ctx, func(st *state.AppState) error {
				if set, ok := sessionFields[key]; ok {
					if key == "spot" && v == 0 {
						return apperrors.NewValidationError(key, args[1], "must be positive")
					}
					set(&st.Inputs, v)
					return nil
				}
				if _, ok := st.Inputs.Values[key]; !ok {
					return apperrors.NewValidationError(key, args[1], "unknown input")
				}
				st.SetValue(key, v)
				return nil
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]float64{key: v})
			}
			output.Success("✓ %s = %s", key, FormatStrike(v))
			return nil
		},
	}
}
