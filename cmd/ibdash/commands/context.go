package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

// contextCmd represents the context command
var contextCmd = &cobra.Command{
	Use:   "context [pair]",
	Short: "Show the risk context for a currency pair",
	Long: `Prints drawdown, exposure, strategy flags and the assistant tip for a pair.

Example:
  go run ./cmd/ibdash context EURUSD`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	pc := a.risk.PairContext(cmd.Context(), strings.ToUpper(args[0]))
	return printJSON(cmd.OutOrStdout(), pc)
}
