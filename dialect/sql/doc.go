// Package sql renders vendor-neutral statements for a database profile and
// executes them through database/sql.
//
// Statements are built as ast trees and turned into SQL text plus bound
// arguments by Render. Function calls are routed through the profile's
// emulation registry, identifiers are folded to the vendor's case and
// paging is applied with the vendor's LIMIT spelling:
//
//	stmt := &ast.Select{
//	    Items: []ast.SelectItem{{Expr: ast.Func("datediff", ast.Col("due"), ast.Col("created"))}},
//	    From:  []ast.Table{{Name: "orders"}},
//	    Where: sql.Field[int]("status").In(1, 2),
//	    Limit: 10,
//	}
//	q, args, err := sql.Render(stmt, profile.Oracle)
//
// # Drivers
//
// A Driver binds a *sql.DB to the profile registered for its driver name,
// so "pgx", "sqlite" and "godror" resolve to the postgres, sqlite3 and
// oracle profiles:
//
//	drv, err := sql.Open("pgx", dsn)
//	err = sql.ExecStatement(ctx, drv, drv.Profile(), stmt, nil)
//
// StatsDriver counts statements by kind, so key fetch round trips show up
// separately from inserts. DebugDriver logs every statement through slog.
//
// WithSchema runs the statements of a context in another schema, which is
// how a mapped schema is applied to unqualified names:
//
//	ctx = sql.WithSchema(ctx, cfg.MapSchema("app"))
//
// # Predicates
//
// Field and StringField build typed predicates whose values are always
// bound as parameters:
//
//	sql.Field[int]("age").GTE(18)            // age >= $1
//	sql.StringField("email").HasPrefix("a")  // email LIKE $1
//	sql.Field[string]("deleted").IsNull()    // deleted IS NULL
package sql
