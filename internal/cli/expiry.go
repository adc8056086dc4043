package cli

import (
	"time"

	"github.com/spf13/cobra"

	"txo-strategist/internal/models"
)

// addExpiryCommands adds settlement calendar commands.
func addExpiryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "expiry",
		Short: "TXO settlement calendar",
		Long: `Resolve contract codes and count time to settlement.

Contract codes: YYYYMM is the monthly contract (third Wednesday),
YYYYMMWn the weekly contract on the n-th Wednesday (W0 is the last one)
and YYYYMMFn the Friday contract two days after it.
Plain YYYY-MM-DD dates are accepted everywhere a code is.`,
	}
	cmd.AddCommand(newExpiryParseCmd(app))
	cmd.AddCommand(newExpiryHoursCmd(app))
	cmd.AddCommand(newExpiryDaysCmd(app))
	cmd.AddCommand(newExpiryDefaultCmd(app))
	rootCmd.AddCommand(cmd)
}

func newExpiryParseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <code>",
		Short: "Resolve a contract code to its settlement date",
		Example: `  txo expiry parse 202603
  txo expiry parse 202602W2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			date, err := app.Calendar.ParseContractCodeStrict(args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"code":       args[0],
					"settlement": date.Format("2006-01-02"),
					"weekday":    date.Weekday().String(),
				})
			}
			output.Printf("%s → %s (%s)\n", args[0], date.Format("2006-01-02"), date.Weekday())
			return nil
		},
	}
}

// expiryArg returns the reference named in args, or the session expiry.
func expiryArg(cmd *cobra.Command, app *App, args []string) (models.ExpiryRef, error) {
	if len(args) == 1 {
		return models.ExpiryRef(args[0]), nil
	}
	ctx, cancel := commandContext(cmd, 10*time.Second)
	defer cancel()
	st, err := app.loadState(ctx)
	if err != nil {
		return "", err
	}
	return models.ExpiryRef(st.ExpiryDate), nil
}

func newExpiryHoursCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "hours [ref]",
		Short: "Trading hours left until settlement",
		Long: `Count the trading hours left until the 13:30 settlement of ref,
skipping weekends and holidays. The day session runs 08:45-13:45 and the
night session 15:00-05:00. Defaults to the session expiry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ref, err := expiryArg(cmd, app, args)
			if err != nil {
				return err
			}
			now := app.Now()
			hours := app.Calendar.RemainingTradingHours(ref, now)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"expiry":       ref,
					"settlement":   app.Calendar.Resolve(ref, now).Format("2006-01-02"),
					"hours":        hours,
					"trading_days": app.Calendar.TradingDaysUntil(ref, now),
				})
			}
			output.Printf("%s: %s (%.1f trading days)\n", ref, FormatHours(hours), app.Calendar.TradingDaysUntil(ref, now))
			return nil
		},
	}
}

func newExpiryDaysCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "days [ref]",
		Short: "Calendar days left until the 13:45 close on the expiry date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ref, err := expiryArg(cmd, app, args)
			if err != nil {
				return err
			}
			days := app.Calendar.DaysUntilExpiry(ref, app.Now())
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"expiry": ref,
					"days":   days,
				})
			}
			if days < 0 {
				output.Warning("%s has expired", ref)
				return nil
			}
			output.Printf("%s: %.2f days\n", ref, days)
			return nil
		},
	}
}

func newExpiryDefaultCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Show the nearest tradable Wednesday settlement",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			date := app.Calendar.DefaultExpiryDate(app.Now())
			if output.IsJSON() {
				return output.JSON(map[string]string{"expiry": date})
			}
			output.Println(date)
			return nil
		},
	}
}
