package sql

import (
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
)

// maxRewriteDepth bounds nested function emulation. A rule whose output
// keeps triggering other rules past this depth is reported as unsupported.
const maxRewriteDepth = 16

// Render renders a statement for the given dialect. It returns the SQL text
// and the bound arguments in placeholder order.
//
//	query, args, err := sql.Render(&ast.Select{
//	    From:  []ast.Table{{Name: "users"}},
//	    Where: ast.EQ(ast.Col("id"), ast.Arg(1)),
//	}, profile.Postgres)
//	// SELECT * FROM users WHERE id = $1, [1]
func Render(stmt ast.Statement, p dialect.Profile) (string, []any, error) {
	r := newRenderer(p)
	if err := stmt.Accept(r); err != nil {
		return "", nil, err
	}
	return r.b.String(), r.args, nil
}

// RenderExpr renders a single expression for the given dialect.
func RenderExpr(e ast.Expr, p dialect.Profile) (string, []any, error) {
	r := newRenderer(p)
	if err := r.expr(e); err != nil {
		return "", nil, err
	}
	return r.b.String(), r.args, nil
}

// renderer is created per call and owns the output buffer and the argument
// list. It never mutates the tree.
type renderer struct {
	p     dialect.Profile
	b     *strings.Builder
	args  []any
	depth int

	// inOperand is set while a function is rendered as the operand of an
	// operator, where a compound rewrite must keep its own grouping.
	inOperand bool
}

func newRenderer(p dialect.Profile) *renderer {
	return &renderer{p: p, b: &strings.Builder{}}
}

func (r *renderer) expr(e ast.Expr) error {
	if e == nil {
		r.b.WriteString("NULL")
		return nil
	}
	return e.Accept(r)
}

func (r *renderer) operand(e ast.Expr, paren bool) error {
	if !paren {
		if _, ok := e.(*ast.Function); ok {
			r.inOperand = true
		}
		return r.expr(e)
	}
	r.b.WriteByte('(')
	if err := r.expr(e); err != nil {
		return err
	}
	r.b.WriteByte(')')
	return nil
}

func (r *renderer) join(items []ast.Expr, sep string) error {
	for i, it := range items {
		if i > 0 {
			r.b.WriteString(sep)
		}
		if err := r.expr(it); err != nil {
			return err
		}
	}
	return nil
}

// capture renders fn into a fresh buffer and returns its text. Arguments
// are still appended to the shared list.
func (r *renderer) capture(fn func() error) (string, error) {
	saved := r.b
	r.b = &strings.Builder{}
	err := fn()
	out := r.b.String()
	r.b = saved
	return out, err
}

func (r *renderer) unsupported(feature string) error {
	return geequery.NewUnsupportedError(r.p.Name(), feature)
}

// VisitValue renders a literal in the dialect's spelling.
func (r *renderer) VisitValue(v *ast.Value) error {
	switch v.Kind() {
	case ast.KindString:
		r.b.WriteString(r.p.QuoteString(v.Text()))
	case ast.KindDate:
		r.b.WriteString(r.p.DateLiteral(v.Time(), v.IsTimestamp()))
	case ast.KindNull:
		r.b.WriteString("NULL")
	default:
		r.b.WriteString(v.Text())
	}
	return nil
}

// VisitColumn renders a possibly qualified column name.
func (r *renderer) VisitColumn(c *ast.Column) error {
	if c.Table != "" {
		r.b.WriteString(r.p.ColumnName(c.Table))
		r.b.WriteByte('.')
	}
	r.b.WriteString(r.p.ColumnName(c.Name))
	return nil
}

// VisitBinary renders an infix operation.
func (r *renderer) VisitBinary(e *ast.BinaryOp) error {
	if err := r.operand(e.Left, ast.NeedsParens(e.Op, e.Left, false)); err != nil {
		return err
	}
	r.b.WriteByte(' ')
	r.b.WriteString(e.Op.String())
	r.b.WriteByte(' ')
	return r.operand(e.Right, ast.NeedsParens(e.Op, e.Right, true))
}

// VisitUnary renders negation and NOT.
func (r *renderer) VisitUnary(e *ast.UnaryOp) error {
	if e.Op == ast.OpNot {
		r.b.WriteString("NOT ")
	} else {
		r.b.WriteByte('-')
	}
	return r.operand(e.Operand, e.Compound())
}

// VisitFunction renders a call, rewriting it first when the dialect has an
// emulation rule for it.
func (r *renderer) VisitFunction(f *ast.Function) error {
	return r.function(f, "")
}

func (r *renderer) function(f *ast.Function, skip string) error {
	nested := r.inOperand
	r.inOperand = false
	name := strings.ToLower(f.Name)
	if name != skip {
		if rule, ok := r.p.Function(name); ok {
			return r.rewrite(name, rule, f.Args, nested)
		}
	}
	escaped := f.Escaped && r.p.Has(dialect.FunctionEscape)
	if escaped {
		r.b.WriteString("{fn ")
	}
	r.b.WriteString(f.Name)
	r.b.WriteByte('(')
	if err := r.join(f.Args, ", "); err != nil {
		return err
	}
	r.b.WriteByte(')')
	if escaped {
		r.b.WriteByte('}')
	}
	return nil
}

func (r *renderer) rewrite(name string, rule dialect.EmulateFunc, args []ast.Expr, nested bool) error {
	if r.depth >= maxRewriteDepth {
		return r.unsupported("function " + name + " (rewrite depth exceeded)")
	}
	r.depth++
	defer func() { r.depth-- }()
	out, err := rule(r.p, args)
	if err != nil {
		return err
	}
	// A rule may return the same function under a new spelling; do not
	// feed it back into its own rule.
	if f, ok := out.(*ast.Function); ok {
		r.inOperand = nested
		return r.function(f, name)
	}
	return r.operand(out, nested && compound(out))
}

// compound reports whether a rewritten expression needs parentheses when
// it replaces a function call inside an operator.
func compound(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.BinaryOp, *ast.UnaryOp:
		return true
	case *ast.Template:
		return !enclosed(e.Format)
	}
	return false
}

// enclosed reports whether format is wrapped in one pair of parentheses
// spanning the whole text.
func enclosed(format string) bool {
	if len(format) < 2 || format[0] != '(' || format[len(format)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i < len(format)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// VisitList renders a separated list.
func (r *renderer) VisitList(l *ast.ExpressionList) error {
	if l.Wrap {
		r.b.WriteByte('(')
	}
	if err := r.join(l.Items, l.Sep()); err != nil {
		return err
	}
	if l.Wrap {
		r.b.WriteByte(')')
	}
	return nil
}

// VisitInterval renders an INTERVAL literal.
func (r *renderer) VisitInterval(i *ast.Interval) error {
	r.b.WriteString("INTERVAL ")
	if err := r.expr(i.Amount()); err != nil {
		return err
	}
	r.b.WriteByte(' ')
	r.b.WriteString(string(i.Unit))
	return nil
}

// VisitExists renders an EXISTS subquery.
func (r *renderer) VisitExists(e *ast.Exists) error {
	if e.Not {
		r.b.WriteString("NOT ")
	}
	r.b.WriteString("EXISTS (")
	if e.Select != nil {
		if err := r.VisitSelect(e.Select); err != nil {
			return err
		}
	}
	r.b.WriteByte(')')
	return nil
}

// VisitTemplate renders the arguments in output order so bound parameters
// stay aligned with their placeholders.
func (r *renderer) VisitTemplate(t *ast.Template) error {
	segs, err := t.Segments()
	if err != nil {
		return err
	}
	for _, s := range segs {
		if s.Arg < 0 {
			r.b.WriteString(s.Text)
			continue
		}
		if err := r.expr(t.Args[s.Arg]); err != nil {
			return err
		}
	}
	return nil
}

// VisitParam renders a placeholder and records its argument.
func (r *renderer) VisitParam(p *ast.Param) error {
	r.args = append(r.args, p.Value)
	r.b.WriteString(r.p.Placeholder(len(r.args)))
	return nil
}

// VisitRaw writes verbatim text.
func (r *renderer) VisitRaw(raw *ast.Raw) error {
	r.b.WriteString(raw.SQL)
	return nil
}

// VisitParen renders a parenthesized expression.
func (r *renderer) VisitParen(p *ast.Paren) error {
	return r.operand(p.X, true)
}

func (r *renderer) table(t ast.Table) {
	if t.Schema != "" {
		r.b.WriteString(r.p.ColumnName(t.Schema))
		r.b.WriteByte('.')
	}
	r.b.WriteString(r.p.ColumnName(t.Name))
	if t.Alias != "" {
		r.b.WriteByte(' ')
		r.b.WriteString(r.p.ColumnName(t.Alias))
	}
}

func (r *renderer) where(e ast.Expr) error {
	if e == nil {
		return nil
	}
	r.b.WriteString(" WHERE ")
	return r.expr(e)
}

// VisitSelect renders a SELECT and applies the dialect limit handler.
func (r *renderer) VisitSelect(s *ast.Select) error {
	query, err := r.capture(func() error { return r.selectBody(s) })
	if err != nil {
		return err
	}
	if s.Limit > 0 || s.Offset > 0 {
		if query, err = r.p.Limit(query, s.Offset, s.Limit); err != nil {
			return err
		}
	}
	r.b.WriteString(query)
	return nil
}

func (r *renderer) selectBody(s *ast.Select) error {
	r.b.WriteString("SELECT ")
	if s.Distinct {
		r.b.WriteString("DISTINCT ")
	}
	if len(s.Items) == 0 {
		r.b.WriteByte('*')
	}
	for i, it := range s.Items {
		if i > 0 {
			r.b.WriteString(", ")
		}
		if err := r.expr(it.Expr); err != nil {
			return err
		}
		if it.Alias != "" {
			r.b.WriteString(" AS ")
			r.b.WriteString(r.p.ColumnName(it.Alias))
		}
	}
	if len(s.From) > 0 {
		r.b.WriteString(" FROM ")
		for i, t := range s.From {
			if i > 0 {
				r.b.WriteString(", ")
			}
			r.table(t)
		}
	}
	for _, j := range s.Joins {
		r.b.WriteByte(' ')
		r.b.WriteString(string(j.Kind))
		r.b.WriteByte(' ')
		r.table(j.Table)
		if j.On != nil {
			r.b.WriteString(" ON ")
			if err := r.expr(j.On); err != nil {
				return err
			}
		}
	}
	if err := r.where(s.Where); err != nil {
		return err
	}
	if len(s.GroupBy) > 0 {
		r.b.WriteString(" GROUP BY ")
		if err := r.join(s.GroupBy, ", "); err != nil {
			return err
		}
	}
	if s.Having != nil {
		r.b.WriteString(" HAVING ")
		if err := r.expr(s.Having); err != nil {
			return err
		}
	}
	for i, o := range s.OrderBy {
		if i == 0 {
			r.b.WriteString(" ORDER BY ")
		} else {
			r.b.WriteString(", ")
		}
		if err := r.expr(o.Expr); err != nil {
			return err
		}
		if o.Desc {
			r.b.WriteString(" DESC")
		}
	}
	return nil
}

func (r *renderer) values(cols, values []ast.Expr) error {
	if len(cols) > 0 {
		r.b.WriteString(" (")
		if err := r.join(cols, ", "); err != nil {
			return err
		}
		r.b.WriteByte(')')
	}
	if len(values) == 0 {
		if r.p.Name() == dialect.MySQL {
			r.b.WriteString(" () VALUES ()")
		} else {
			r.b.WriteString(" DEFAULT VALUES")
		}
		return nil
	}
	r.b.WriteString(" VALUES (")
	if err := r.join(values, ", "); err != nil {
		return err
	}
	r.b.WriteByte(')')
	return nil
}

// VisitInsert renders an INSERT, with RETURNING where requested.
func (r *renderer) VisitInsert(s *ast.Insert) error {
	if len(s.Returning) > 0 && !r.p.Has(dialect.SupportsReturning) {
		return r.unsupported("INSERT ... RETURNING")
	}
	r.b.WriteString("INSERT INTO ")
	r.table(s.Table)
	if s.Query != nil {
		if len(s.Columns) > 0 {
			r.b.WriteString(" (")
			if err := r.join(s.Columns, ", "); err != nil {
				return err
			}
			r.b.WriteByte(')')
		}
		r.b.WriteByte(' ')
		if err := r.VisitSelect(s.Query); err != nil {
			return err
		}
	} else if err := r.values(s.Columns, s.Values); err != nil {
		return err
	}
	for i, c := range s.Returning {
		if i == 0 {
			r.b.WriteString(" RETURNING ")
		} else {
			r.b.WriteString(", ")
		}
		r.b.WriteString(r.p.ColumnName(c))
	}
	return nil
}

// VisitReplace renders REPLACE INTO. Only MySQL and SQLite accept it.
func (r *renderer) VisitReplace(s *ast.Replace) error {
	switch r.p.Name() {
	case dialect.MySQL, dialect.SQLite:
	default:
		return r.unsupported("REPLACE")
	}
	r.b.WriteString("REPLACE INTO ")
	r.table(s.Table)
	return r.values(s.Columns, s.Values)
}

// VisitUpdate renders an UPDATE.
func (r *renderer) VisitUpdate(s *ast.Update) error {
	r.b.WriteString("UPDATE ")
	r.table(s.Table)
	r.b.WriteString(" SET ")
	for i, a := range s.Set {
		if i > 0 {
			r.b.WriteString(", ")
		}
		if err := r.expr(a.Column); err != nil {
			return err
		}
		r.b.WriteString(" = ")
		if err := r.expr(a.Value); err != nil {
			return err
		}
	}
	return r.where(s.Where)
}

// VisitDelete renders a DELETE.
func (r *renderer) VisitDelete(s *ast.Delete) error {
	r.b.WriteString("DELETE FROM ")
	r.table(s.Table)
	return r.where(s.Where)
}

// VisitDrop renders a DROP statement.
func (r *renderer) VisitDrop(s *ast.Drop) error {
	if s.Kind == ast.DropSequence && !r.p.Has(dialect.SupportsSequence) {
		return r.unsupported("DROP SEQUENCE")
	}
	r.b.WriteString("DROP ")
	r.b.WriteString(string(s.Kind))
	if s.IfExists {
		r.b.WriteString(" IF EXISTS")
	}
	r.b.WriteByte(' ')
	r.table(s.Name)
	if s.Cascade {
		r.b.WriteString(" CASCADE")
	}
	return nil
}

// VisitTruncate renders TRUNCATE TABLE, or an unconditional DELETE on
// SQLite which has no TRUNCATE.
func (r *renderer) VisitTruncate(s *ast.Truncate) error {
	if r.p.Name() == dialect.SQLite {
		r.b.WriteString("DELETE FROM ")
	} else {
		r.b.WriteString("TRUNCATE TABLE ")
	}
	r.table(s.Table)
	return nil
}

// VisitCreateTable renders CREATE TABLE.
func (r *renderer) VisitCreateTable(s *ast.CreateTable) error {
	r.b.WriteString("CREATE TABLE ")
	if s.IfNotExists {
		r.b.WriteString("IF NOT EXISTS ")
	}
	r.table(s.Table)
	r.b.WriteString(" (")
	for i, c := range s.Columns {
		if i > 0 {
			r.b.WriteString(", ")
		}
		r.b.WriteString(r.p.ColumnName(c.Name))
		r.b.WriteByte(' ')
		r.b.WriteString(c.Type)
		if c.NotNull {
			r.b.WriteString(" NOT NULL")
		}
		if c.Default != nil {
			r.b.WriteString(" DEFAULT ")
			if err := r.expr(c.Default); err != nil {
				return err
			}
		}
		if c.PrimaryKey {
			r.b.WriteString(" PRIMARY KEY")
		}
	}
	r.b.WriteByte(')')
	return nil
}

// Ensure the renderer handles every node kind.
var (
	_ ast.Visitor          = (*renderer)(nil)
	_ ast.StatementVisitor = (*renderer)(nil)
)
