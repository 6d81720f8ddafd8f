package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show archive header information",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		var size, stored uint64
		for _, info := range a.List() {
			size += uint64(info.Size)
			stored += uint64(info.StoredSize)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "revision:     %d\n", a.Revision())
		fmt.Fprintf(out, "entries:      %d\n", a.Len())
		fmt.Fprintf(out, "total size:   %d\n", size)
		fmt.Fprintf(out, "stored size:  %d\n", stored)
		if ts := a.Timestamp(); !ts.IsZero() {
			fmt.Fprintf(out, "timestamp:    %s\n", ts.UTC().Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
