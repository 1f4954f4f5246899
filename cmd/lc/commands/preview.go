package commands

import (
	"fmt"
	"iter"
	"os"

	"linkchain/pkg/chain"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview [files...]",
	Short: "Print the chain a list of files would form, without storing anything",
	Long: `Hash the files, in the given order, as a fresh chain and print each link.
Files are read one at a time, only when the next link is requested.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		var readErr error
		stream, err := chain.NewStream(readFiles(args, &readErr), LC.Strategy)
		if err != nil {
			return err
		}
		defer stream.Close()

		i := 0
		for stream.Next() {
			link := stream.Link()
			fmt.Fprintf(out, "%6d %s %s\n", i, link.Hash(), args[i])
			i++
		}
		if readErr != nil {
			return readErr
		}
		return stream.Err()
	},
}

// readFiles 惰性地读取文件，出错时记录错误并结束序列
func readFiles(paths []string, errp *error) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				*errp = err
				return
			}
			if !yield(data) {
				return
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
