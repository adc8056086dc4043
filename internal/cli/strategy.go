package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/models"
	"txo-strategist/internal/strategy"
	"txo-strategist/pkg/utils"
)

// addStrategyCommands adds strategy catalogue and evaluation commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStrategyCmd(app))
	rootCmd.AddCommand(newSuggestCmd())
}

func newStrategyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "strategy",
		Aliases: []string{"strategies"},
		Short:   "Browse and evaluate strategies",
	}
	cmd.AddCommand(newStrategyListCmd(app))
	cmd.AddCommand(newStrategyShowCmd(app))
	cmd.AddCommand(newStrategyEvalCmd(app))
	return cmd
}

func newStrategyListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available strategies",
		Example: `  txo strategy list
  txo strategy list --group vertical`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			group, _ := cmd.Flags().GetString("group")

			infos := make([]strategy.Info, 0)
			for _, def := range app.Registry.List() {
				info := def.Info()
				if group != "" && !strings.EqualFold(info.Group, group) {
					continue
				}
				infos = append(infos, info)
			}

			if output.IsJSON() {
				return output.JSON(infos)
			}

			table := NewTable(output, "ID", "Group", "Name", "Sentiment")
			for _, info := range infos {
				table.AddRow(info.ID, info.Group, info.Name, info.Sentiment)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("group", "", "filter by group (single, vertical, volatility, portfolio)")
	return cmd
}

func newStrategyShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a strategy's description and inputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			def, ok := app.Registry.Get(args[0])
			if !ok {
				return apperrors.Wrapf(apperrors.ErrStrategyNotFound, "%q", args[0])
			}
			info := def.Info()
			if output.IsJSON() {
				return output.JSON(info)
			}

			output.Bold("%s (%s)", info.Name, info.ID)
			output.Dim("%s · %s", info.Group, info.Sentiment)
			output.Println()
			output.Println(info.Description)
			if info.Details.When != "" {
				output.Println()
				output.Printf("When: %s\n", info.Details.When)
			}
			printList(output, "Features", info.Details.Features)
			printList(output, "Pros", info.Details.Pros)
			printList(output, "Cons", info.Details.Cons)

			if len(info.Inputs) > 0 {
				output.Println()
				table := NewTable(output, "Input", "Label", "Default")
				for _, in := range info.Inputs {
					table.AddRow(in.ID, in.Label, FormatStrike(in.Default))
				}
				table.Render()
			}
			return nil
		},
	}
}

func printList(output *Output, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.Println()
	output.Printf("%s:\n", title)
	for _, it := range items {
		output.Printf("  • %s\n", it)
	}
}

func newStrategyEvalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval [id]",
		Short: "Evaluate a strategy against the session inputs",
		Long: `Evaluate a strategy with the current session inputs. Input values can
be overridden for this run with --set; the session is not changed.`,
		Example: `  txo strategy eval
  txo strategy eval bullCallSpread --set lowerStrike=31800 --set higherStrike=32200
  txo strategy eval custom --mode theoretical`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			st, err := app.loadState(ctx)
			if err != nil {
				return err
			}

			id := st.SelectedStrategy
			if len(args) == 1 {
				id = args[0]
			}
			if err := st.Select(app.Registry, id); err != nil {
				return err
			}

			sets, _ := cmd.Flags().GetStringArray("set")
			for _, kv := range sets {
				key, value, err := parseAssignment(kv)
				if err != nil {
					return err
				}
				st.SetValue(key, value)
			}
			if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
				st.Mode = models.ParseMode(mode)
			}

			now := app.Now()
			params := st.Parameters(now)
			res, err := app.Engine.Evaluate(id, params, st.Snapshot())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"strategy": id,
					"mode":     st.Mode,
					"result":   newResultView(res, app.Config.Margin.Multiplier),
				})
			}

			def, _ := app.Registry.Get(id)
			output.Bold("%s", def.Info().Name)
			printResult(output, res, app.Config.Margin.Multiplier)
			return nil
		},
	}
	cmd.Flags().StringArray("set", nil, "override an input as key=value (repeatable)")
	cmd.Flags().String("mode", "", "valuation mode for portfolios: expiry or theoretical")
	return cmd
}

// parseAssignment splits "key=value" with a numeric value.
func parseAssignment(s string) (string, float64, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", 0, apperrors.NewValidationError("set", s, "expected key=value")
	}
	v := utils.SafeFloat(strings.TrimSpace(raw), -1)
	if v < 0 {
		return "", 0, apperrors.NewValidationError(key, raw, "must be a non-negative number")
	}
	return key, v, nil
}

func printResult(output *Output, res models.StrategyResult, multiplier float64) {
	output.Printf("  Max profit:   %s  (%s)\n", output.Green(FormatPoints(res.MaxProfitPoints)), FormatMoney(res.MaxProfitPoints*multiplier))
	output.Printf("  Max loss:     %s  (%s)\n", output.Red(FormatPoints(res.MaxLossPoints)), FormatMoney(res.MaxLossPoints*multiplier))
	output.Printf("  Reward/risk:  %s\n", FormatRatio(res.MaxProfitPoints, res.MaxLossPoints))
	output.Printf("  Breakevens:   %s\n", FormatBreakEvens(res.BreakEvens))
	output.Printf("  Est. margin:  %s\n", FormatMoney(res.EstimatedMargin))
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <market view>",
		Short: "Suggest strategies for a market view",
		Example: `  txo suggest "I think the market stays range bound"
  txo suggest 大漲`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s := strategy.Suggest(strings.Join(args, " "))
			if output.IsJSON() {
				return output.JSON(s)
			}
			output.Println(s.Reply)
			if len(s.Strategies) > 0 {
				output.Println()
				output.Info("Try: %s", strings.Join(s.Strategies, ", "))
				output.Dim("txo state select %s", s.Strategies[0])
			}
			return nil
		},
	}
}
