package cli

import (
	"maps"
	"slices"
	"strconv"

	"github.com/GeeQuery/geequery-orm/dialect/profile"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <connection-url>",
		Short: "Parse a JDBC URL or driver DSN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := profile.ParseURL(args[0])
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Field", "Value"})
			t.AppendRows([]table.Row{
				{"dialect", info.Profile},
				{"host", info.Host},
				{"port", strconv.Itoa(info.Port)},
				{"database", info.Database},
				{"user", info.User},
			})
			for _, k := range slices.Sorted(maps.Keys(info.Params)) {
				t.AppendRow(table.Row{"param " + k, info.Params[k]})
			}
			t.Render()
			return nil
		},
	}
}
