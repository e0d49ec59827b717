// Package ast defines the vendor-neutral SQL expression and statement tree.
//
// Nodes are immutable once built and may be shared between goroutines. The
// node set is closed: Expr and Statement carry unexported marker methods, so
// visitors can rely on handling every kind.
//
// Every node writes a dialect-agnostic form of itself through AppendTo.
// Dialect-specific text is produced by the renderer in dialect/sql, which
// drives the tree through Accept:
//
//	e := ast.Func("dateadd", ast.String("2024-01-01"), ast.NewInterval(ast.Int(-3), ast.Hour))
//	fmt.Println(ast.Sprint(e)) // dateadd('2024-01-01', INTERVAL -3 HOUR)
//
// Literal values keep the text they were parsed from. ParseLiteral is the
// inverse of Value.AppendTo for every literal kind.
package ast
