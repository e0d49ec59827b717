package ast

import (
	"strings"
)

// Expr is a SQL expression node. The set of implementations is closed:
// only types in this package satisfy it.
type Expr interface {
	// AppendTo writes the dialect-agnostic text form of the node.
	AppendTo(b *strings.Builder)
	// Accept dispatches to the visitor method matching the node kind.
	Accept(v Visitor) error
	expr()
}

// Statement is a top-level SQL statement.
type Statement interface {
	// AppendTo writes the dialect-agnostic text form of the statement.
	AppendTo(b *strings.Builder)
	// Accept dispatches to the visitor method matching the statement kind.
	Accept(v StatementVisitor) error
	stmt()
}

// Visitor has one method per expression kind.
type Visitor interface {
	VisitValue(*Value) error
	VisitColumn(*Column) error
	VisitBinary(*BinaryOp) error
	VisitUnary(*UnaryOp) error
	VisitFunction(*Function) error
	VisitList(*ExpressionList) error
	VisitInterval(*Interval) error
	VisitExists(*Exists) error
	VisitTemplate(*Template) error
	VisitParam(*Param) error
	VisitRaw(*Raw) error
	VisitParen(*Paren) error
}

// StatementVisitor has one method per statement kind.
type StatementVisitor interface {
	VisitSelect(*Select) error
	VisitInsert(*Insert) error
	VisitUpdate(*Update) error
	VisitDelete(*Delete) error
	VisitReplace(*Replace) error
	VisitDrop(*Drop) error
	VisitTruncate(*Truncate) error
	VisitCreateTable(*CreateTable) error
}

// Sprint returns the dialect-agnostic text of an expression.
func Sprint(e Expr) string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	e.AppendTo(&b)
	return b.String()
}

// SprintStatement returns the dialect-agnostic text of a statement.
func SprintStatement(s Statement) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	s.AppendTo(&b)
	return b.String()
}

// Inspect traverses the expression tree in depth-first order, calling fn for
// every node. If fn returns false, the children of that node are skipped.
// Nil template arguments are not visited.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *BinaryOp:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *UnaryOp:
		Inspect(n.Operand, fn)
	case *Function:
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	case *ExpressionList:
		for _, it := range n.Items {
			Inspect(it, fn)
		}
	case *Interval:
		Inspect(n.Value, fn)
	case *Template:
		for _, a := range n.Args {
			if a != nil {
				Inspect(a, fn)
			}
		}
	case *Paren:
		Inspect(n.X, fn)
	case *Exists:
		if n.Select != nil {
			n.Select.inspect(fn)
		}
	}
}

func appendList(b *strings.Builder, items []Expr, sep string) {
	for i, it := range items {
		if i > 0 {
			b.WriteString(sep)
		}
		if it == nil {
			b.WriteString("NULL")
			continue
		}
		it.AppendTo(b)
	}
}
