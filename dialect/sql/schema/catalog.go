package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
)

// catalog builds the query returning the default of one column. The
// schema may be empty.
type catalog struct {
	fold  func(string) string
	query func(schema, table, column string) ast.Statement
}

func same(s string) string { return s }

var catalogs = map[string]catalog{
	dialect.Postgres: {
		fold: strings.ToLower,
		query: func(schema, table, column string) ast.Statement {
			where := ast.And(
				ast.EQ(ast.Col("table_name"), ast.Arg(table)),
				ast.EQ(ast.Col("column_name"), ast.Arg(column)),
			)
			if schema != "" {
				where = ast.And(where, ast.EQ(ast.Col("table_schema"), ast.Arg(schema)))
			} else {
				where = ast.And(where, ast.EQ(ast.Col("table_schema"), ast.Func("current_schema")))
			}
			return &ast.Select{
				Items: []ast.SelectItem{{Expr: ast.Col("column_default")}},
				From:  []ast.Table{{Schema: "information_schema", Name: "columns"}},
				Where: where,
			}
		},
	},
	dialect.MySQL: {
		fold: same,
		query: func(schema, table, column string) ast.Statement {
			var owner ast.Expr = ast.Func("DATABASE")
			if schema != "" {
				owner = ast.Arg(schema)
			}
			return &ast.Select{
				Items: []ast.SelectItem{{Expr: ast.Col("column_default")}},
				From:  []ast.Table{{Schema: "information_schema", Name: "columns"}},
				Where: ast.And(ast.And(
					ast.EQ(ast.Col("table_schema"), owner),
					ast.EQ(ast.Col("table_name"), ast.Arg(table))),
					ast.EQ(ast.Col("column_name"), ast.Arg(column)),
				),
			}
		},
	},
	dialect.Oracle: {
		fold: strings.ToUpper,
		query: func(schema, table, column string) ast.Statement {
			var owner ast.Expr = ast.Keyword("USER")
			if schema != "" {
				owner = ast.Arg(schema)
			}
			return &ast.Select{
				Items: []ast.SelectItem{{Expr: ast.Col("data_default")}},
				From:  []ast.Table{{Name: "all_tab_columns"}},
				Where: ast.And(ast.And(
					ast.EQ(ast.Col("owner"), owner),
					ast.EQ(ast.Col("table_name"), ast.Arg(table))),
					ast.EQ(ast.Col("column_name"), ast.Arg(column)),
				),
			}
		},
	},
	dialect.Derby: {
		fold: strings.ToUpper,
		query: func(schema, table, column string) ast.Statement {
			where := ast.And(
				ast.EQ(ast.QualifiedCol("t", "tablename"), ast.Arg(table)),
				ast.EQ(ast.QualifiedCol("c", "columnname"), ast.Arg(column)),
			)
			joins := []ast.Join{{
				Kind:  ast.InnerJoin,
				Table: ast.Table{Schema: "sys", Name: "systables", Alias: "t"},
				On:    ast.EQ(ast.QualifiedCol("c", "referenceid"), ast.QualifiedCol("t", "tableid")),
			}}
			if schema != "" {
				joins = append(joins, ast.Join{
					Kind:  ast.InnerJoin,
					Table: ast.Table{Schema: "sys", Name: "sysschemas", Alias: "s"},
					On:    ast.EQ(ast.QualifiedCol("t", "schemaid"), ast.QualifiedCol("s", "schemaid")),
				})
				where = ast.And(where, ast.EQ(ast.QualifiedCol("s", "schemaname"), ast.Arg(schema)))
			}
			return &ast.Select{
				Items: []ast.SelectItem{{Expr: ast.QualifiedCol("c", "columndefault")}},
				From:  []ast.Table{{Schema: "sys", Name: "syscolumns", Alias: "c"}},
				Joins: joins,
				Where: where,
			}
		},
	},
	dialect.DB2: {
		fold: strings.ToUpper,
		query: func(schema, table, column string) ast.Statement {
			var owner ast.Expr = ast.Keyword("CURRENT SCHEMA")
			if schema != "" {
				owner = ast.Arg(schema)
			}
			return &ast.Select{
				Items: []ast.SelectItem{{Expr: ast.Col("default")}},
				From:  []ast.Table{{Schema: "syscat", Name: "columns"}},
				Where: ast.And(ast.And(
					ast.EQ(ast.Col("tabschema"), owner),
					ast.EQ(ast.Col("tabname"), ast.Arg(table))),
					ast.EQ(ast.Col("colname"), ast.Arg(column)),
				),
			}
		},
	},
}

// sqlitePragma reads column defaults through the table_info pragma, which
// has no schema-qualified catalog table.
const sqlitePragma = "SELECT dflt_value FROM pragma_table_info(?) WHERE name = ?"

// InformationSchemaProbe queries the vendor catalog for column defaults.
type InformationSchemaProbe struct {
	db dialect.ExecQuerier
	p  dialect.Profile
}

// NewInformationSchemaProbe returns a probe running catalog queries of p
// on db.
func NewInformationSchemaProbe(db dialect.ExecQuerier, p dialect.Profile) (*InformationSchemaProbe, error) {
	if _, ok := catalogs[p.Name()]; !ok && p.Name() != dialect.SQLite {
		return nil, geequery.NewUnsupportedError(p.Name(), "catalog probe")
	}
	return &InformationSchemaProbe{db: db, p: p}, nil
}

// Query returns the catalog query and its arguments for a column.
func (c *InformationSchemaProbe) Query(table, column string) (string, []any, error) {
	schema, table := SplitTable(table)
	if c.p.Name() == dialect.SQLite {
		return sqlitePragma, []any{table, column}, nil
	}
	cat := catalogs[c.p.Name()]
	if schema != "" {
		schema = cat.fold(schema)
	}
	return sql.Render(cat.query(schema, cat.fold(table), cat.fold(column)), c.p)
}

// ColumnDefault implements Probe.
func (c *InformationSchemaProbe) ColumnDefault(ctx context.Context, table, column string) (string, bool, error) {
	query, args, err := c.Query(table, column)
	if err != nil {
		return "", false, err
	}
	rows := &sql.Rows{}
	if err := c.db.Query(ctx, query, args, rows); err != nil {
		return "", false, fmt.Errorf("schema: column default of %s.%s: %w", table, column, err)
	}
	defer rows.Close()
	def, ok, err := sql.ScanString(rows)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, geequery.NewNotFoundError(fmt.Sprintf("column %s.%s", table, column))
	case err != nil:
		return "", false, fmt.Errorf("schema: column default of %s.%s: %w", table, column, err)
	}
	return strings.TrimSpace(def), ok && strings.TrimSpace(def) != "", nil
}

var _ Probe = (*InformationSchemaProbe)(nil)
