package commands

import (
	"fmt"

	"linkchain/pkg/exporter"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the chain from genesis to HEAD",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := LC.OpenLedger(cmd.Context())
		if err != nil {
			return err
		}
		entries, err := l.Entries(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No links yet.")
			return nil
		}
		exporter.PrintLog(entries, cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
