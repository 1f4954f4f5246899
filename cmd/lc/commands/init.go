package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"linkchain/pkg/config"
	"linkchain/pkg/hashing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var initHash string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a linkchain repository",
	Long: `Create an empty linkchain repository in ./.lc.
The hash algorithm is pinned in .lc/config.yaml: a chain can only be opened
with the algorithm it was built with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if _, err := hashing.Lookup(initHash); err != nil {
			return err
		}
		if !hashing.IsCryptographic(initHash) {
			fmt.Fprintf(out, "warning: %s only detects accidental corruption, not deliberate tampering\n", initHash)
		}

		repoPath := viper.GetString("repo.path")
		if repoPath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			repoPath = filepath.Join(wd, config.RepoDir)
		}

		if _, err := os.Stat(repoPath); err == nil {
			fmt.Fprintf(out, "linkchain repository already exists in %s\n", repoPath)
			return nil
		}

		if err := os.MkdirAll(filepath.Join(repoPath, "objects"), 0755); err != nil {
			return fmt.Errorf("failed to create repo directory: %w", err)
		}

		content := fmt.Sprintf("hash:\n  algorithm: %s\n", initHash)
		if err := os.WriteFile(filepath.Join(repoPath, "config.yaml"), []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Fprintf(out, "Initialized empty linkchain repository in %s (%s)\n", repoPath, initHash)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initHash, "hash", hashing.AlgSHA256, fmt.Sprintf("hash algorithm %v", hashing.Names()))
	rootCmd.AddCommand(initCmd)
}
