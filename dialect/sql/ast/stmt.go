package ast

import (
	"strconv"
	"strings"
)

// Table references a table, optionally schema-qualified and aliased.
type Table struct {
	Schema string
	Name   string
	Alias  string
}

// AppendTo writes schema.name [alias].
func (t Table) AppendTo(b *strings.Builder) {
	if t.Schema != "" {
		b.WriteString(t.Schema)
		b.WriteByte('.')
	}
	b.WriteString(t.Name)
	if t.Alias != "" {
		b.WriteByte(' ')
		b.WriteString(t.Alias)
	}
}

// SelectItem is a projected expression.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// OrderItem is an ORDER BY term.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// JoinKind is the kind of a join.
type JoinKind string

// Join kinds.
const (
	InnerJoin JoinKind = "JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
	CrossJoin JoinKind = "CROSS JOIN"
)

// Join is a joined table.
type Join struct {
	Kind  JoinKind
	Table Table
	On    Expr
}

// Select is a SELECT statement. Zero Limit means no limit.
type Select struct {
	Distinct bool
	Items    []SelectItem
	From     []Table
	Joins    []Join
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Offset   int64
	Limit    int64
}

// AppendTo implements Statement.
func (s *Select) AppendTo(b *strings.Builder) {
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.Items) == 0 {
		b.WriteByte('*')
	}
	for i, it := range s.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		appendOperand(b, it.Expr, false)
		if it.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(it.Alias)
		}
	}
	if len(s.From) > 0 {
		b.WriteString(" FROM ")
		for i, t := range s.From {
			if i > 0 {
				b.WriteString(", ")
			}
			t.AppendTo(b)
		}
	}
	for _, j := range s.Joins {
		b.WriteByte(' ')
		b.WriteString(string(j.Kind))
		b.WriteByte(' ')
		j.Table.AppendTo(b)
		if j.On != nil {
			b.WriteString(" ON ")
			j.On.AppendTo(b)
		}
	}
	appendWhere(b, s.Where)
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		appendList(b, s.GroupBy, ", ")
	}
	if s.Having != nil {
		b.WriteString(" HAVING ")
		s.Having.AppendTo(b)
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			appendOperand(b, o.Expr, false)
			if o.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	if s.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatInt(s.Limit, 10))
	}
	if s.Offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.FormatInt(s.Offset, 10))
	}
}

func (s *Select) inspect(fn func(Expr) bool) {
	for _, it := range s.Items {
		Inspect(it.Expr, fn)
	}
	for _, j := range s.Joins {
		Inspect(j.On, fn)
	}
	Inspect(s.Where, fn)
	for _, g := range s.GroupBy {
		Inspect(g, fn)
	}
	Inspect(s.Having, fn)
	for _, o := range s.OrderBy {
		Inspect(o.Expr, fn)
	}
}

// Accept implements Statement.
func (s *Select) Accept(v StatementVisitor) error { return v.VisitSelect(s) }

func (*Select) stmt() {}

// Insert is an INSERT statement. Values and Query are mutually exclusive.
// Columns hold column references or pre-escaped names (Raw).
type Insert struct {
	Table     Table
	Columns   []Expr
	Values    []Expr
	Query     *Select
	Returning []string
}

// AppendTo implements Statement.
func (s *Insert) AppendTo(b *strings.Builder) {
	b.WriteString("INSERT INTO ")
	s.Table.AppendTo(b)
	appendInsertBody(b, s.Columns, s.Values, s.Query)
	if len(s.Returning) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(strings.Join(s.Returning, ", "))
	}
}

func appendInsertBody(b *strings.Builder, cols, values []Expr, q *Select) {
	if len(cols) > 0 {
		b.WriteString(" (")
		appendList(b, cols, ", ")
		b.WriteByte(')')
	}
	if q != nil {
		b.WriteByte(' ')
		q.AppendTo(b)
		return
	}
	if len(values) == 0 {
		b.WriteString(" DEFAULT VALUES")
		return
	}
	b.WriteString(" VALUES (")
	appendList(b, values, ", ")
	b.WriteByte(')')
}

// Accept implements Statement.
func (s *Insert) Accept(v StatementVisitor) error { return v.VisitInsert(s) }

func (*Insert) stmt() {}

// Replace is a REPLACE (insert-or-overwrite) statement.
type Replace struct {
	Table   Table
	Columns []Expr
	Values  []Expr
}

// AppendTo implements Statement.
func (s *Replace) AppendTo(b *strings.Builder) {
	b.WriteString("REPLACE INTO ")
	s.Table.AppendTo(b)
	appendInsertBody(b, s.Columns, s.Values, nil)
}

// Accept implements Statement.
func (s *Replace) Accept(v StatementVisitor) error { return v.VisitReplace(s) }

func (*Replace) stmt() {}

// Assignment is a SET item of an UPDATE.
type Assignment struct {
	Column Expr
	Value  Expr
}

// Update is an UPDATE statement.
type Update struct {
	Table Table
	Set   []Assignment
	Where Expr
}

// AppendTo implements Statement.
func (s *Update) AppendTo(b *strings.Builder) {
	b.WriteString("UPDATE ")
	s.Table.AppendTo(b)
	b.WriteString(" SET ")
	for i, a := range s.Set {
		if i > 0 {
			b.WriteString(", ")
		}
		appendOperand(b, a.Column, false)
		b.WriteString(" = ")
		appendOperand(b, a.Value, false)
	}
	appendWhere(b, s.Where)
}

// Accept implements Statement.
func (s *Update) Accept(v StatementVisitor) error { return v.VisitUpdate(s) }

func (*Update) stmt() {}

// Delete is a DELETE statement.
type Delete struct {
	Table Table
	Where Expr
}

// AppendTo implements Statement.
func (s *Delete) AppendTo(b *strings.Builder) {
	b.WriteString("DELETE FROM ")
	s.Table.AppendTo(b)
	appendWhere(b, s.Where)
}

// Accept implements Statement.
func (s *Delete) Accept(v StatementVisitor) error { return v.VisitDelete(s) }

func (*Delete) stmt() {}

// ObjectKind is the kind of object a DROP removes.
type ObjectKind string

// Droppable objects.
const (
	DropTable    ObjectKind = "TABLE"
	DropSequence ObjectKind = "SEQUENCE"
	DropView     ObjectKind = "VIEW"
	DropIndex    ObjectKind = "INDEX"
)

// Drop is a DROP statement.
type Drop struct {
	Kind     ObjectKind
	Name     Table
	IfExists bool
	Cascade  bool
}

// AppendTo implements Statement.
func (s *Drop) AppendTo(b *strings.Builder) {
	b.WriteString("DROP ")
	b.WriteString(string(s.Kind))
	if s.IfExists {
		b.WriteString(" IF EXISTS")
	}
	b.WriteByte(' ')
	s.Name.AppendTo(b)
	if s.Cascade {
		b.WriteString(" CASCADE")
	}
}

// Accept implements Statement.
func (s *Drop) Accept(v StatementVisitor) error { return v.VisitDrop(s) }

func (*Drop) stmt() {}

// Truncate is a TRUNCATE TABLE statement.
type Truncate struct {
	Table Table
}

// AppendTo implements Statement.
func (s *Truncate) AppendTo(b *strings.Builder) {
	b.WriteString("TRUNCATE TABLE ")
	s.Table.AppendTo(b)
}

// Accept implements Statement.
func (s *Truncate) Accept(v StatementVisitor) error { return v.VisitTruncate(s) }

func (*Truncate) stmt() {}

// ColumnDef is a column definition of CREATE TABLE.
type ColumnDef struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
	Default    Expr
}

// CreateTable is a CREATE TABLE statement.
type CreateTable struct {
	Table       Table
	Columns     []ColumnDef
	IfNotExists bool
}

// AppendTo implements Statement.
func (s *CreateTable) AppendTo(b *strings.Builder) {
	b.WriteString("CREATE TABLE ")
	if s.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	s.Table.AppendTo(b)
	b.WriteString(" (")
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(c.Type)
		appendColumnConstraints(b, c)
	}
	b.WriteByte(')')
}

func appendColumnConstraints(b *strings.Builder, c ColumnDef) {
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		c.Default.AppendTo(b)
	}
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
}

// Accept implements Statement.
func (s *CreateTable) Accept(v StatementVisitor) error { return v.VisitCreateTable(s) }

func (*CreateTable) stmt() {}

func appendWhere(b *strings.Builder, where Expr) {
	if where != nil {
		b.WriteString(" WHERE ")
		where.AppendTo(b)
	}
}
