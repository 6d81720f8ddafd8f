package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var extractOut string

// extractCmd represents the extract command.
var extractCmd = &cobra.Command{
	Use:   "extract <entry>",
	Short: "Extract one entry's payload",
	Long: `Extract an entry, decompressing and decrypting as needed. With no
--out flag the payload goes to stdout.

Example:
  packfile -a game.pack extract db/units/main --out units.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.Read(args[0])
		if err != nil {
			return err
		}
		if extractOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.MkdirAll(filepath.Dir(extractOut), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(extractOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), extractOut)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(extractCmd)
}
