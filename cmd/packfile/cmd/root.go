package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/strategos/packfile"
	"github.com/strategos/packfile/schema"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "packfile",
	Short: "Inspect and edit PackFile game archives",
	Long: `packfile reads and writes PackFile archives: listing entries,
extracting payloads, adding and removing files, and dumping db tables
through a schema registry. Payloads load lazily, so listing a
multi-gigabyte archive reads only its header and directory.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	archivePath string
	schemasPath string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&archivePath, "archive", "a", "", "Path to the archive file")
	rootCmd.PersistentFlags().StringVarP(&schemasPath, "schemas", "s", "", "Path to a schema registry YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log open, save, and resolution events")
	_ = rootCmd.MarkPersistentFlagRequired("archive")
}

// sessionOptions builds the archive options from the persistent flags.
func sessionOptions() ([]packfile.Option, error) {
	var opts []packfile.Option
	if verbose {
		opts = append(opts, packfile.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	if schemasPath != "" {
		reg, err := schema.Load(schemasPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, packfile.WithSchemas(reg))
	}
	return opts, nil
}

// openArchive opens the session for the --archive flag.
func openArchive() (*packfile.Archive, error) {
	opts, err := sessionOptions()
	if err != nil {
		return nil, err
	}
	return packfile.Open(archivePath, opts...)
}
