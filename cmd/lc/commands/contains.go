package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var containsCmd = &cobra.Command{
	Use:   "contains [text]",
	Short: "Report whether a payload is on the chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := LC.OpenLedger(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), l.Contains([]byte(args[0])))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(containsCmd)
}
