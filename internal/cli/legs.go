package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/importer"
	"txo-strategist/internal/models"
	"txo-strategist/internal/state"
	"txo-strategist/internal/strategy"
)

// addLegCommands adds leg set management commands.
func addLegCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "legs",
		Short: "Manage portfolio leg sets",
		Long: `Manage the legs of the custom portfolio and the three simulation
portfolios. Commands act on the selected portfolio, or on the custom
portfolio when a closed-form strategy is selected; use --portfolio to pick
another set.`,
	}
	cmd.PersistentFlags().StringP("portfolio", "p", "", "leg set: custom, simulationA, simulationB, simulationC")

	cmd.AddCommand(newLegsListCmd(app))
	cmd.AddCommand(newLegsAddCmd(app))
	cmd.AddCommand(newLegsRemoveCmd(app))
	cmd.AddCommand(newLegsClearCmd(app))
	cmd.AddCommand(newLegsImportCmd(app))
	cmd.AddCommand(newLegsExportCmd(app))
	rootCmd.AddCommand(cmd)
}

// legSet returns the leg set a command acts on.
func legSet(cmd *cobra.Command, st *state.AppState) string {
	if set, _ := cmd.Flags().GetString("portfolio"); set != "" {
		return set
	}
	if key := st.ActiveLegsKey(); key != "" {
		return key
	}
	return strategy.CustomID
}

func newLegsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the legs of a portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			st, err := app.loadState(ctx)
			if err != nil {
				return err
			}
			set := legSet(cmd, st)
			legs := st.Legs(set)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"portfolio": set,
					"legs":      legs,
				})
			}

			output.Bold("%s (%d legs)", set, len(legs))
			if len(legs) == 0 {
				output.Dim("No legs. Add one with 'txo legs add buy call 32000 --premium 120'.")
				return nil
			}
			printLegs(output, legs, st.ExpiryDate)
			return nil
		},
	}
}

func printLegs(output *Output, legs []models.Leg, globalExpiry string) {
	table := NewTable(output, "ID", "Side", "Type", "Strike", "Premium", "Qty", "Expiry")
	for _, l := range legs {
		side := output.Green("Buy")
		if l.IsShort() {
			side = output.Red("Sell")
		}
		expiry := string(l.Expiry)
		if expiry == "" {
			expiry = output.DimText(globalExpiry)
		}
		table.AddRow(
			TruncateString(l.ID, 8),
			side,
			TitleCase(string(l.Type)),
			FormatStrike(l.Strike),
			FormatStrike(l.Premium),
			FormatStrike(l.Quantity),
			expiry,
		)
	}
	table.Render()
}

func newLegsAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <buy|sell> <call|put> <strike>",
		Short: "Add a leg to a portfolio",
		Example: `  txo legs add buy call 32000 --premium 350
  txo legs add sell put 31500 --premium 85 --qty 2 --expiry 202602W2
  txo legs add sell call 32500 --premium 60 -p simulationA`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			leg, err := legFromArgs(cmd, app, args)
			if err != nil {
				return err
			}

			var added models.Leg
			var set string
			_, err = app.updateState(ctx, func(st *state.AppState) error {
				set = legSet(cmd, st)
				var addErr error
				added, addErr = st.AddLeg(set, leg)
				return addErr
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"portfolio": set,
					"leg":       added,
				})
			}
			output.Success("✓ Added to %s: %s", set, FormatLeg(added))
			output.Dim("id %s", added.ID)
			return nil
		},
	}
	cmd.Flags().Float64("premium", 0, "premium paid or received per unit, in points")
	cmd.Flags().Float64("qty", 1, "number of lots")
	cmd.Flags().String("expiry", "", "expiry date or contract code (default: session expiry)")
	return cmd
}

// legFromArgs builds and validates a leg from "add" arguments and flags.
func legFromArgs(cmd *cobra.Command, app *App, args []string) (models.Leg, error) {
	action, ok := models.ParseAction(args[0])
	if !ok {
		return models.Leg{}, apperrors.NewValidationError("action", args[0], "must be buy or sell")
	}
	typ, ok := models.ParseOptionType(args[1])
	if !ok {
		return models.Leg{}, apperrors.NewValidationError("type", args[1], "must be call or put")
	}
	premium, _ := cmd.Flags().GetFloat64("premium")
	qty, _ := cmd.Flags().GetFloat64("qty")
	rawExpiry, _ := cmd.Flags().GetString("expiry")
	expiry, err := legExpiryRef(app, rawExpiry)
	if err != nil {
		return models.Leg{}, err
	}

	leg := models.Leg{
		Action:   action,
		Type:     typ,
		Strike:   parseFloatArg(args[2]),
		Premium:  premium,
		Quantity: qty,
		Expiry:   expiry,
	}
	if err := state.ValidateLeg(leg); err != nil {
		return models.Leg{}, err
	}
	return leg, nil
}

func newLegsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a leg by id or id prefix",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			var removed string
			_, err := app.updateState(ctx, func(st *state.AppState) error {
				set := legSet(cmd, st)
				id, err := matchLegID(st.Legs(set), args[0])
				if err != nil {
					return apperrors.Wrapf(err, "in %q", set)
				}
				removed = id
				return st.RemoveLeg(set, id)
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": removed})
			}
			output.Success("✓ Removed leg %s", TruncateString(removed, 8))
			return nil
		},
	}
}

// matchLegID resolves a full id or a unique id prefix.
func matchLegID(legs []models.Leg, prefix string) (string, error) {
	var found []string
	for _, l := range legs {
		if l.ID == prefix {
			return l.ID, nil
		}
		if strings.HasPrefix(l.ID, prefix) {
			found = append(found, l.ID)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", apperrors.Wrapf(apperrors.ErrLegNotFound, "leg %q", prefix)
	default:
		return "", apperrors.NewValidationError("id", prefix, "matches more than one leg")
	}
}

func newLegsClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every leg of a portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			var set string
			_, err := app.updateState(ctx, func(st *state.AppState) error {
				set = legSet(cmd, st)
				return st.ClearLegs(set)
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"cleared": set})
			}
			output.Success("✓ Cleared %s", set)
			return nil
		},
	}
}

func newLegsImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import legs from broker position text",
		Long: `Import legs from position lines such as

  【202602W1】 32500 Long Put 4口 (每口權利金164)
  [202602W2] 32000 Short Call 1 lots (premium 120)

Reads the file, or standard input when no file or "-" is given. Lines in
any other form are skipped and reported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			parsed := importer.ParseText(text)
			replace, _ := cmd.Flags().GetBool("replace")

			var set string
			_, err = app.updateState(ctx, func(st *state.AppState) error {
				set = legSet(cmd, st)
				if replace {
					if err := st.ClearLegs(set); err != nil {
						return err
					}
				}
				for _, l := range parsed.Legs {
					if _, err := st.AddLeg(set, l); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			app.Logger.Info().
				Str("portfolio", set).
				Int("imported", len(parsed.Legs)).
				Int("skipped", len(parsed.Skipped)).
				Msg("Legs imported")

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"portfolio": set,
					"imported":  parsed.Legs,
					"skipped":   parsed.Skipped,
				})
			}
			output.Success("✓ Imported %d legs into %s", len(parsed.Legs), set)
			for _, line := range parsed.Skipped {
				output.Warning("skipped: %s", line)
			}
			return nil
		},
	}
	cmd.Flags().Bool("replace", false, "clear the portfolio before importing")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", apperrors.Wrap(err, "reading stdin")
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", apperrors.Wrapf(err, "reading %s", args[0])
	}
	return string(b), nil
}

func newLegsExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print legs as importable position lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			st, err := app.loadState(ctx)
			if err != nil {
				return err
			}
			legs := st.Legs(legSet(cmd, st))
			lines := make([]string, 0, len(legs))
			for _, l := range legs {
				if l.Expiry == "" {
					l.Expiry = models.ExpiryRef(st.ExpiryDate)
				}
				lines = append(lines, importer.FormatLine(l))
			}
			if output.IsJSON() {
				return output.JSON(lines)
			}
			for _, line := range lines {
				output.Println(line)
			}
			return nil
		},
	}
}
