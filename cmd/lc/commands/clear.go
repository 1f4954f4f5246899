package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"linkchain/pkg/ledger"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every link of the current chain",
	Long: `Remove every link of the current chain; the next append starts a new genesis.
Stored records are content addressed and may be shared, so they are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to clear without --yes")
		}
		ctx := cmd.Context()
		l, err := LC.OpenLedger(ctx)
		if errors.Is(err, ledger.ErrCorrupted) {
			// 损坏的链无法加载，直接删除索引
			name := LC.LedgerConfig().Name
			slog.Warn("clearing a corrupted chain", slog.String("chain", name), slog.Any("err", err))
			if err := LC.Repository.ClearChain(ctx, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared corrupted chain %s\n", name)
			return nil
		}
		if err != nil {
			return err
		}
		n := l.Count()
		if err := l.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d links from %s\n", n, l.Name())
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm")
	rootCmd.AddCommand(clearCmd)
}
