package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"linkchain/pkg/ignore"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [dir]",
	Short: "Append every file under a directory",
	Long: `Walk the directory in lexical order and append one link per file.
Paths matched by .lcignore (and the built-in rules) are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		root := args[0]
		start := time.Now()

		matcher, err := ignore.NewMatcher(root)
		if err != nil {
			return fmt.Errorf("failed to load ignore rules: %w", err)
		}
		files, err := matcher.Files(root)
		if err != nil {
			return fmt.Errorf("walk failed: %w", err)
		}
		if len(files) == 0 {
			fmt.Fprintln(out, "No files added.")
			return nil
		}

		l, err := LC.OpenLedger(ctx)
		if err != nil {
			return err
		}

		var totalSize int64
		for _, rel := range files {
			data, err := os.ReadFile(filepath.Join(root, rel))
			if err != nil {
				return err
			}
			meta := baseMeta()
			meta["source"] = filepath.ToSlash(rel)
			entry, err := l.Append(ctx, data, meta)
			if err != nil {
				return fmt.Errorf("failed to append %s: %w", rel, err)
			}
			totalSize += entry.Size
			fmt.Fprintf(out, "%6d %s %s\n", entry.Position, entry.Hash.Short(), rel)
		}

		fmt.Fprintf(out, "Added %d files (%d bytes) in %s\n", len(files), totalSize, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
