package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	appendFile string
	appendMeta map[string]string
)

var appendCmd = &cobra.Command{
	Use:   "append [text]",
	Short: "Append a payload to the chain",
	Long:  `Append the given text, or the content of a file (-f), as the next link.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			payload []byte
			meta    = baseMeta()
		)
		switch {
		case appendFile != "" && len(args) > 0:
			return errors.New("use either [text] or --file, not both")
		case appendFile != "":
			data, err := os.ReadFile(appendFile)
			if err != nil {
				return err
			}
			payload = data
			meta["source"] = appendFile
		case len(args) == 1:
			payload = []byte(args[0])
		default:
			return errors.New("nothing to append (give [text] or --file)")
		}
		for k, v := range appendMeta {
			meta[k] = v
		}

		l, err := LC.OpenLedger(cmd.Context())
		if err != nil {
			return err
		}
		entry, err := l.Append(cmd.Context(), payload, meta)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "[%s %d] %s\n", l.Name(), entry.Position, entry.Hash)
		return nil
	},
}

// baseMeta 返回每个新节点都带的元数据
func baseMeta() map[string]any {
	meta := map[string]any{}
	if author := viper.GetString("user.name"); author != "" {
		meta["author"] = author
	}
	return meta
}

func init() {
	appendCmd.Flags().StringVarP(&appendFile, "file", "f", "", "append the content of a file")
	appendCmd.Flags().StringToStringVar(&appendMeta, "meta", nil, "extra metadata key=value pairs")
	rootCmd.AddCommand(appendCmd)
}
