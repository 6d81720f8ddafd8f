package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strategos/packfile/table"
)

var dumpLoc bool

// dumpCmd represents the dump command.
var dumpCmd = &cobra.Command{
	Use:   "dump <entry>",
	Short: "Decode a db table or loc entry and print its rows",
	Long: `Decode a table payload through the schema registry and print it as
a text table. Requires --schemas for db tables; loc entries decode with
the builtin definition.

Example:
  packfile -a game.pack -s schemas.yaml dump db/units/main`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		var rows []table.Row
		if dumpLoc {
			loc, err := a.ReadLoc(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loc version %d, %d rows\n", loc.Version, len(loc.Rows))
			rows = loc.Rows
		} else {
			tbl, err := a.ReadTable(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s version %d, %d rows\n", tbl.Name, tbl.Version, len(tbl.Rows))
			rows = tbl.Rows
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = c.String()
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		return w.Flush()
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpLoc, "loc", false, "Decode as a localisation table")
	rootCmd.AddCommand(dumpCmd)
}
