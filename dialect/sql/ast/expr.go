package ast

import (
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"
)

// Operator is a binary operator.
type Operator uint8

// Binary operators.
const (
	OpEQ Operator = iota + 1
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpLike
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
)

var operators = [...]struct {
	text string
	prec int
}{
	OpOr:   {"OR", 1},
	OpAnd:  {"AND", 2},
	OpEQ:   {"=", 3},
	OpNEQ:  {"<>", 3},
	OpLT:   {"<", 3},
	OpLTE:  {"<=", 3},
	OpGT:   {">", 3},
	OpGTE:  {">=", 3},
	OpLike: {"LIKE", 3},
	OpAdd:  {"+", 4},
	OpSub:  {"-", 4},
	OpMul:  {"*", 5},
	OpDiv:  {"/", 5},
}

// String returns the SQL spelling of the operator.
func (o Operator) String() string {
	if int(o) < len(operators) && operators[o].text != "" {
		return operators[o].text
	}
	return "?op"
}

func (o Operator) precedence() int {
	if int(o) < len(operators) {
		return operators[o].prec
	}
	return 0
}

// UnaryOperator is a prefix operator.
type UnaryOperator uint8

// Unary operators.
const (
	OpNeg UnaryOperator = iota + 1
	OpNot
)

// Column is a column reference, optionally qualified by a table alias.
type Column struct {
	Table string
	Name  string
}

// Col returns an unqualified column reference.
func Col(name string) *Column { return &Column{Name: name} }

// QualifiedCol returns a column reference qualified by a table or alias.
func QualifiedCol(table, name string) *Column { return &Column{Table: table, Name: name} }

// AppendTo implements Expr.
func (c *Column) AppendTo(b *strings.Builder) {
	if c.Table != "" {
		b.WriteString(c.Table)
		b.WriteByte('.')
	}
	b.WriteString(c.Name)
}

// Accept implements Expr.
func (c *Column) Accept(v Visitor) error { return v.VisitColumn(c) }

func (*Column) expr() {}

// BinaryOp is an infix operation.
type BinaryOp struct {
	Op          Operator
	Left, Right Expr
}

// Binary returns a binary operation node.
func Binary(op Operator, left, right Expr) *BinaryOp {
	return &BinaryOp{Op: op, Left: left, Right: right}
}

// EQ returns left = right.
func EQ(left, right Expr) *BinaryOp { return Binary(OpEQ, left, right) }

// And returns left AND right.
func And(left, right Expr) *BinaryOp { return Binary(OpAnd, left, right) }

// Or returns left OR right.
func Or(left, right Expr) *BinaryOp { return Binary(OpOr, left, right) }

// Add returns left + right.
func Add(left, right Expr) *BinaryOp { return Binary(OpAdd, left, right) }

// Sub returns left - right.
func Sub(left, right Expr) *BinaryOp { return Binary(OpSub, left, right) }

// Mul returns left * right.
func Mul(left, right Expr) *BinaryOp { return Binary(OpMul, left, right) }

// Div returns left / right.
func Div(left, right Expr) *BinaryOp { return Binary(OpDiv, left, right) }

// NeedsParens reports whether child must be parenthesized as the left
// (right=false) or right operand of op.
func NeedsParens(op Operator, child Expr, right bool) bool {
	c, ok := child.(*BinaryOp)
	if !ok {
		return false
	}
	cp, pp := c.Op.precedence(), op.precedence()
	if cp != pp {
		return cp < pp
	}
	// a - (b - c) and a / (b / c) are not associative.
	return right && (op == OpSub || op == OpDiv)
}

// AppendTo implements Expr.
func (e *BinaryOp) AppendTo(b *strings.Builder) {
	appendOperand(b, e.Left, NeedsParens(e.Op, e.Left, false))
	b.WriteByte(' ')
	b.WriteString(e.Op.String())
	b.WriteByte(' ')
	appendOperand(b, e.Right, NeedsParens(e.Op, e.Right, true))
}

func appendOperand(b *strings.Builder, e Expr, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	if e == nil {
		b.WriteString("NULL")
	} else {
		e.AppendTo(b)
	}
	if paren {
		b.WriteByte(')')
	}
}

// Accept implements Expr.
func (e *BinaryOp) Accept(v Visitor) error { return v.VisitBinary(e) }

func (*BinaryOp) expr() {}

// UnaryOp is a prefix operation.
type UnaryOp struct {
	Op      UnaryOperator
	Operand Expr
}

// Neg returns -x.
func Neg(x Expr) *UnaryOp { return &UnaryOp{Op: OpNeg, Operand: x} }

// Not returns NOT x.
func Not(x Expr) *UnaryOp { return &UnaryOp{Op: OpNot, Operand: x} }

// Compound reports whether the operand must be parenthesized.
func (e *UnaryOp) Compound() bool {
	_, ok := e.Operand.(*BinaryOp)
	return ok
}

// AppendTo implements Expr.
func (e *UnaryOp) AppendTo(b *strings.Builder) {
	if e.Op == OpNot {
		b.WriteString("NOT ")
	} else {
		b.WriteByte('-')
	}
	appendOperand(b, e.Operand, e.Compound())
}

// Accept implements Expr.
func (e *UnaryOp) Accept(v Visitor) error { return v.VisitUnary(e) }

func (*UnaryOp) expr() {}

// Negate returns the arithmetic negation of e, folding numeric literals and
// double negation.
func Negate(e Expr) Expr {
	switch x := e.(type) {
	case *Value:
		if x.kind == KindInteger || x.kind == KindDouble {
			return x.Negate()
		}
	case *UnaryOp:
		if x.Op == OpNeg {
			return x.Operand
		}
	}
	return Neg(e)
}

// Function is a function call. Name is kept as written; lookups in
// emulation registries use the lower-cased name.
type Function struct {
	Name    string
	Args    []Expr
	Escaped bool
}

// Func returns a function call node.
func Func(name string, args ...Expr) *Function {
	return &Function{Name: name, Args: args}
}

// EscapedFunc returns a function call rendered with the {fn ...} escape.
func EscapedFunc(name string, args ...Expr) *Function {
	return &Function{Name: name, Args: args, Escaped: true}
}

// AppendTo implements Expr.
func (f *Function) AppendTo(b *strings.Builder) {
	if f.Escaped {
		b.WriteString("{fn ")
	}
	b.WriteString(f.Name)
	b.WriteByte('(')
	appendList(b, f.Args, ", ")
	b.WriteByte(')')
	if f.Escaped {
		b.WriteByte('}')
	}
}

// Accept implements Expr.
func (f *Function) Accept(v Visitor) error { return v.VisitFunction(f) }

func (*Function) expr() {}

// ExpressionList is a separated sequence of expressions.
type ExpressionList struct {
	Items     []Expr
	Separator string // "," when empty
	Wrap      bool   // surround with parentheses
}

// List returns a comma separated list.
func List(items ...Expr) *ExpressionList { return &ExpressionList{Items: items} }

// Tuple returns a parenthesized comma separated list, as used by IN.
func Tuple(items ...Expr) *ExpressionList { return &ExpressionList{Items: items, Wrap: true} }

// Sep returns the effective separator.
func (l *ExpressionList) Sep() string {
	if l.Separator == "" {
		return ","
	}
	return l.Separator
}

// AppendTo implements Expr.
func (l *ExpressionList) AppendTo(b *strings.Builder) {
	if l.Wrap {
		b.WriteByte('(')
	}
	appendList(b, l.Items, l.Sep())
	if l.Wrap {
		b.WriteByte(')')
	}
}

// Accept implements Expr.
func (l *ExpressionList) Accept(v Visitor) error { return v.VisitList(l) }

func (*ExpressionList) expr() {}

// Unit is an interval unit.
type Unit string

// Interval units.
const (
	Day     Unit = "DAY"
	Hour    Unit = "HOUR"
	Minute  Unit = "MINUTE"
	Second  Unit = "SECOND"
	Month   Unit = "MONTH"
	Quarter Unit = "QUARTER"
	Year    Unit = "YEAR"
)

// ParseUnit parses an interval unit, case-insensitively.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToUpper(strings.TrimSpace(s))); u {
	case Day, Hour, Minute, Second, Month, Quarter, Year:
		return u, nil
	}
	return "", geequery.NewUnsupportedUnitError("", "interval", s)
}

// Interval is an INTERVAL literal.
type Interval struct {
	Value Expr
	Unit  Unit
}

// NewInterval returns an interval node.
func NewInterval(value Expr, unit Unit) *Interval {
	return &Interval{Value: value, Unit: unit}
}

// Amount returns the interval amount as a numeric expression. Quoted
// amounts ('3') are converted to numbers when they parse as one.
func (i *Interval) Amount() Expr {
	if v, ok := i.Value.(*Value); ok && v.kind == KindString {
		if n, err := ParseLiteral(v.text); err == nil && (n.kind == KindInteger || n.kind == KindDouble) {
			return n
		}
	}
	return i.Value
}

// AppendTo implements Expr.
func (i *Interval) AppendTo(b *strings.Builder) {
	b.WriteString("INTERVAL ")
	appendOperand(b, i.Value, false)
	b.WriteByte(' ')
	b.WriteString(string(i.Unit))
}

// Accept implements Expr.
func (i *Interval) Accept(v Visitor) error { return v.VisitInterval(i) }

func (*Interval) expr() {}

// Exists is an EXISTS subquery predicate.
type Exists struct {
	Select *Select
	Not    bool
}

// AppendTo implements Expr.
func (e *Exists) AppendTo(b *strings.Builder) {
	if e.Not {
		b.WriteString("NOT ")
	}
	b.WriteString("EXISTS (")
	if e.Select != nil {
		e.Select.AppendTo(b)
	}
	b.WriteByte(')')
}

// Accept implements Expr.
func (e *Exists) Accept(v Visitor) error { return v.VisitExists(e) }

func (*Exists) expr() {}

// Param is a bound parameter. It renders as the dialect placeholder and
// contributes Value to the argument list.
type Param struct {
	Value any
}

// Arg returns a bound parameter node.
func Arg(v any) *Param { return &Param{Value: v} }

// AppendTo implements Expr.
func (*Param) AppendTo(b *strings.Builder) { b.WriteByte('?') }

// Accept implements Expr.
func (p *Param) Accept(v Visitor) error { return v.VisitParam(p) }

func (*Param) expr() {}

// Raw is SQL text emitted verbatim.
type Raw struct {
	SQL string
}

// Keyword returns a verbatim node such as DEFAULT or seq.nextval.
func Keyword(sql string) *Raw { return &Raw{SQL: sql} }

// AppendTo implements Expr.
func (r *Raw) AppendTo(b *strings.Builder) { b.WriteString(r.SQL) }

// Accept implements Expr.
func (r *Raw) Accept(v Visitor) error { return v.VisitRaw(r) }

func (*Raw) expr() {}

// Paren is an explicitly parenthesized expression.
type Paren struct {
	X Expr
}

// Parens wraps x in parentheses.
func Parens(x Expr) *Paren { return &Paren{X: x} }

// AppendTo implements Expr.
func (p *Paren) AppendTo(b *strings.Builder) { appendOperand(b, p.X, true) }

// Accept implements Expr.
func (p *Paren) Accept(v Visitor) error { return v.VisitParen(p) }

func (*Paren) expr() {}
