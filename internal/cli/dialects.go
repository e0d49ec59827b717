package cli

import (
	"strings"

	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/profile"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List dialect profiles and their features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			header := table.Row{"Dialect", "Aliases", "Placeholder", "Quote"}
			for _, f := range dialect.Features() {
				header = append(header, f.String())
			}
			t.AppendHeader(header)
			for _, v := range profile.All() {
				row := table.Row{v.Name(), strings.Join(v.Aliases(), ","), v.Placeholder(1), v.QuoteIdent("select")}
				for _, f := range dialect.Features() {
					mark := ""
					if v.Has(f) {
						mark = "x"
					}
					row = append(row, mark)
				}
				t.AppendRow(row)
			}
			t.Render()
			return nil
		},
	}
}
