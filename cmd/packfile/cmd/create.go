package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strategos/packfile"
)

var (
	createRevision   uint32
	createTimestamps bool
	createCompress   bool
	createEncrypt    bool
)

// createCmd represents the create command.
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new empty archive",
	Long: `Create a new empty archive at the --archive path.

Example:
  packfile -a new.pack create --revision 4 --compress`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var flags uint32
		if createTimestamps {
			flags |= packfile.FlagTimestamps
		}
		if createCompress {
			flags |= packfile.FlagCompressible
		}
		if createEncrypt {
			flags |= packfile.FlagEncrypted
		}

		opts, err := sessionOptions()
		if err != nil {
			return err
		}
		a, err := packfile.New(createRevision, flags, opts...)
		if err != nil {
			return err
		}
		if err := a.Save(archivePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (revision %d)\n", archivePath, createRevision)
		return a.Close()
	},
}

func init() {
	createCmd.Flags().Uint32Var(&createRevision, "revision", packfile.Revision4, "Format revision (2-5)")
	createCmd.Flags().BoolVar(&createTimestamps, "timestamps", false, "Carry per-entry timestamps (revision 3+)")
	createCmd.Flags().BoolVar(&createCompress, "compress", false, "Allow per-entry compression (revision 4+)")
	createCmd.Flags().BoolVar(&createEncrypt, "encrypt", false, "Encrypt the archive (revision 5 only)")
	rootCmd.AddCommand(createCmd)
}
