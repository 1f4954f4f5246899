package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"linkchain/pkg/types"

	"github.com/spf13/cobra"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List every chain in the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := LC.Repository.ListChains(cmd.Context())
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No chains yet.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "CHAIN\tLENGTH\tHEAD\tUPDATED\n")
		for _, r := range refs {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Chain, r.Length, types.Hash(r.HeadHash).Short(), r.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}
