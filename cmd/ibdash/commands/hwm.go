package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/ibdash/internal/account"
)

// hwmCmd represents the hwm command
var hwmCmd = &cobra.Command{
	Use:   "hwm",
	Short: "Inspect the net-liquidation high-water mark",
	Long: `The high-water mark only ever rises. Drawdown is measured against it.

Subcommands:
  show     - print the stored mark and current drawdown
  ratchet  - read net liquidation now and raise the mark if exceeded`,
}

var (
	hwmShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the stored high-water mark",
		RunE:  runHWMShow,
	}

	hwmRatchetCmd = &cobra.Command{
		Use:   "ratchet",
		Short: "Raise the high-water mark from current net liquidation",
		RunE:  runHWMRatchet,
	}
)

func init() {
	rootCmd.AddCommand(hwmCmd)
	hwmCmd.AddCommand(hwmShowCmd)
	hwmCmd.AddCommand(hwmRatchetCmd)
}

func runHWMShow(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	mark, err := a.store.Read(cmd.Context())
	if err != nil {
		return err
	}
	PrintKeyValue("High-water mark", fmt.Sprintf("%.2f", mark), 16)
	return nil
}

func runHWMRatchet(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	nlv, mark, err := a.provider.Ratchet(cmd.Context())
	if err != nil {
		return err
	}
	PrintKeyValue("Net liquidation", fmt.Sprintf("%.2f", nlv), 16)
	PrintKeyValue("High-water mark", fmt.Sprintf("%.2f", mark), 16)
	PrintKeyValue("Drawdown %", fmt.Sprintf("%.2f", account.Drawdown(nlv, mark)), 16)
	return nil
}
