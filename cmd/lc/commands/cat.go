package commands

import (
	"fmt"

	"linkchain/pkg/exporter"
	"linkchain/pkg/types"

	"github.com/spf13/cobra"
)

var catRaw bool

var catCmd = &cobra.Command{
	Use:   "cat [hash]",
	Short: "Show a link by hash (short prefixes allowed)",
	Long: `Show a stored link record. With --raw only the payload is written,
so binary payloads can be redirected to a file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		hash, err := LC.Store.ExpandHash(ctx, types.HashPrefix(args[0]))
		if err != nil {
			return fmt.Errorf("invalid hash argument '%s': %w", args[0], err)
		}

		exp := exporter.NewExporter(LC.Store)
		if catRaw {
			return exp.ExportPayload(ctx, hash, cmd.OutOrStdout())
		}
		return exp.PrintObject(ctx, hash, cmd.OutOrStdout())
	},
}

func init() {
	catCmd.Flags().BoolVar(&catRaw, "raw", false, "write only the raw payload")
	rootCmd.AddCommand(catCmd)
}
