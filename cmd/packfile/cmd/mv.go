package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// mvCmd represents the mv command.
var mvCmd = &cobra.Command{
	Use:   "mv <old> <new>",
	Short: "Rename an entry",
	Long: `Rename an entry. Renames are metadata-only until the save: the
payload bytes are copied verbatim without decompression.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Rename(args[0], args[1]); err != nil {
			return err
		}
		if err := a.Save(archivePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mvCmd)
}
