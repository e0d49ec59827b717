package cli

import (
	"github.com/GeeQuery/geequery-orm/dialect/profile"
	"github.com/GeeQuery/geequery-orm/dialect/sql"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// sampleQuery exercises the emulated date functions and paging.
func sampleQuery(hours int64) *ast.Select {
	return &ast.Select{
		Items: []ast.SelectItem{
			{Expr: ast.Col("id")},
			{Expr: ast.Func("datediff", ast.Col("due"), ast.Col("created")), Alias: "days"},
		},
		From: []ast.Table{{Name: "orders"}},
		Where: ast.Binary(ast.OpLT, ast.Col("created"),
			ast.Func("dateadd", ast.String("2024-01-01"), ast.NewInterval(ast.Int(hours), ast.Hour))),
		OrderBy: []ast.OrderItem{{Expr: ast.Col("created"), Desc: true}},
		Offset:  20,
		Limit:   10,
	}
}

func newRenderCmd() *cobra.Command {
	var hours int64
	cmd := &cobra.Command{
		Use:   "render [dialect...]",
		Short: "Render a sample query for each dialect",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			vendors := profile.All()
			switch {
			case len(args) > 0:
				vendors = vendors[:0:0]
				for _, name := range args {
					v, ok := profile.Lookup(name)
					if !ok {
						return unknownDialect(name)
					}
					vendors = append(vendors, v)
				}
			case a.cfg.Dialect != "":
				vendors = []*profile.Vendor{profile.MustLookup(a.cfg.Dialect)}
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dialect", "SQL"})
			stmt := sampleQuery(hours)
			for _, v := range vendors {
				q, _, err := sql.Render(stmt, v)
				if err != nil {
					a.log.Debug("render failed", "dialect", v.Name(), "error", err)
					q = "error: " + err.Error()
				}
				t.AppendRow(table.Row{v.Name(), q})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().Int64Var(&hours, "hours", -3, "hours added by dateadd")
	return cmd
}
