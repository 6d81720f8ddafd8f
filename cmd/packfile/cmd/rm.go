package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rmCmd represents the rm command.
var rmCmd = &cobra.Command{
	Use:   "rm <entry>...",
	Short: "Remove entries from the archive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			if err := a.Delete(path); err != nil {
				return err
			}
		}
		if err := a.Save(archivePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", len(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
