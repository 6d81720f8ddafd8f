package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List archive entries",
	Long: `List the entries of an archive, optionally filtered by path prefix.

Example:
  packfile -a game.pack list db/`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		var prefix string
		if len(args) == 1 {
			prefix = args[0]
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SIZE\tSTORED\tFLAGS\tPATH")
		for _, info := range a.List() {
			if !strings.HasPrefix(info.Path, prefix) {
				continue
			}
			flags := "-"
			if info.Compressed {
				flags = "z"
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", info.Size, info.StoredSize, flags, info.Path)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
