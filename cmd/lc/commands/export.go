package commands

import (
	"fmt"

	"linkchain/pkg/exporter"
	"linkchain/pkg/types"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write every payload of the chain into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		l, err := LC.OpenLedger(ctx)
		if err != nil {
			return err
		}
		entries, err := l.Entries(ctx)
		if err != nil {
			return err
		}
		hashes := make([]types.Hash, len(entries))
		for i, e := range entries {
			hashes[i] = e.Hash
		}

		exp := exporter.NewExporter(LC.Store)
		err = exp.ExportChain(ctx, hashes, args[0], func(path string, _ types.Hash, size int64) {
			fmt.Fprintf(out, "%s (%d bytes)\n", path, size)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d payloads to %s\n", len(hashes), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
