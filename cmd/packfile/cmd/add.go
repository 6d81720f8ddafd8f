package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// addCmd represents the add command.
var addCmd = &cobra.Command{
	Use:   "add <entry> <file>",
	Short: "Add or replace an entry from a local file",
	Long: `Add a new entry at the given path with the contents of a local
file, or replace the payload of an existing entry. The archive is
rewritten in place atomically.

Example:
  packfile -a game.pack add db/units/main ./units.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Contains(args[0]) {
			err = a.Write(args[0], data)
		} else {
			err = a.Add(args[0], data)
		}
		if err != nil {
			return err
		}
		if err := a.Save(archivePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%d bytes)\n", args[0], len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
