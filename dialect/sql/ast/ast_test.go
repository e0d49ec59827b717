package ast

import (
	"testing"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 10, 10, 30, 5, 0, time.UTC)
	values := []*Value{
		Int(42),
		Int(-7),
		Double(1.5),
		Double(3),
		Double(-2.25e-10),
		String("plain"),
		String("it's"),
		String(""),
		Date(ts),
		Timestamp(ts),
		Timestamp(ts.Add(123 * time.Millisecond)),
		Null(),
	}
	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			got, err := ParseLiteral(v.String())
			require.NoError(t, err)
			assert.True(t, got.Equal(v), "%s reparsed as %s", v, got)
			assert.Equal(t, v.Kind(), got.Kind())
		})
	}
}

func TestValueAppendTo(t *testing.T) {
	ts := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		v    *Value
		want string
	}{
		{Int(1), "1"},
		{Double(3), "3.0"},
		{String("it's"), "'it''s'"},
		{Date(ts), "DATE '2024-01-10'"},
		{Timestamp(ts), "TIMESTAMP '2024-01-10 10:00:00'"},
		{Null(), "NULL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.String())
	}
}

func TestParseNumbers(t *testing.T) {
	v, err := ParseInteger("+15")
	require.NoError(t, err)
	assert.Equal(t, "15", v.Text())
	assert.Equal(t, int64(15), v.Int64())

	v, err = ParseDouble("+1.50")
	require.NoError(t, err)
	assert.Equal(t, "1.50", v.Text(), "original text is kept")
	assert.Equal(t, 1.5, v.Float64())

	v, err = ParseLiteral("1e3")
	require.NoError(t, err)
	assert.Equal(t, KindDouble, v.Kind())

	for _, bad := range []string{"abc", "1.2.3", "12a", ""} {
		_, err := ParseLiteral(bad)
		require.Error(t, err, bad)
		assert.True(t, geequery.IsFormatError(err), bad)
	}
	_, err = ParseDouble("NaN")
	assert.True(t, geequery.IsFormatError(err))
}

func TestParseDate(t *testing.T) {
	v, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.False(t, v.IsTimestamp())
	assert.Equal(t, time.February, v.Time().Month())

	v, err = ParseDate("2024-02-29T08:00:00Z")
	require.NoError(t, err)
	assert.True(t, v.IsTimestamp())
	assert.Equal(t, "2024-02-29 08:00:00", v.Text())

	_, err = ParseDate("29/02/2024")
	require.Error(t, err)
	assert.ErrorIs(t, err, geequery.ErrMalformedLiteral)

	_, err = ParseLiteral("'unterminated")
	assert.True(t, geequery.IsFormatError(err))
}

func TestExpressionText(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"or list", &ExpressionList{Items: []Expr{Col("item1"), Col("item2"), Col("item3")}, Separator: " OR "}, "item1 OR item2 OR item3"},
		{"default separator", List(Int(1), Int(2)), "1,2"},
		{"tuple", Tuple(String("a"), String("b")), "('a','b')"},
		{"negate compound", Neg(Mul(Col("a"), Int(3))), "-(a * 3)"},
		{"negate simple", Neg(Col("a")), "-a"},
		{"not", Not(EQ(Col("a"), Int(1))), "NOT (a = 1)"},
		{"precedence", Mul(Add(Col("a"), Int(1)), Int(2)), "(a + 1) * 2"},
		{"right assoc", Sub(Col("a"), Sub(Col("b"), Col("c"))), "a - (b - c)"},
		{"left assoc", Sub(Sub(Col("a"), Col("b")), Col("c")), "a - b - c"},
		{"function", Func("coalesce", Col("a"), Null()), "coalesce(a, NULL)"},
		{"escaped", EscapedFunc("timestampdiff", Keyword("SQL_TSI_DAY"), Col("b"), Col("a")), "{fn timestampdiff(SQL_TSI_DAY, b, a)}"},
		{"interval", NewInterval(Int(-3), Hour), "INTERVAL -3 HOUR"},
		{"qualified", QualifiedCol("t", "id"), "t.id"},
		{"param", EQ(Col("id"), Arg(1)), "id = ?"},
		{"paren", Parens(Col("x")), "(x)"},
		{"exists", &Exists{Not: true, Select: &Select{From: []Table{{Name: "t"}}}}, "NOT EXISTS (SELECT * FROM t)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sprint(tt.e))
		})
	}
}

func TestTemplate(t *testing.T) {
	tm := Tmpl("DATE_ADD(%1$s, %2$s)", Col("d"), NewInterval(Int(1), Day))
	assert.Equal(t, "DATE_ADD(d, INTERVAL 1 DAY)", Sprint(tm))

	tm = Tmpl("%2$s - %1$s", Col("a"), Col("b"))
	assert.Equal(t, "b - a", Sprint(tm))

	tm = Tmpl("f(%s, %s) is 100%%", Col("a"), nil)
	assert.Equal(t, "f(a, NULL) is 100%", Sprint(tm))

	var seen []string
	Inspect(tm, func(e Expr) bool {
		seen = append(seen, Sprint(e))
		return true
	})
	assert.Equal(t, []string{"f(a, NULL) is 100%", "a"}, seen, "nil arguments are skipped")

	for _, bad := range []string{"%d", "%3$s", "%1$x", "trailing %"} {
		_, err := Tmpl(bad, Col("a")).Segments()
		assert.Error(t, err, bad)
	}
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("quarter")
	require.NoError(t, err)
	assert.Equal(t, Quarter, u)

	_, err = ParseUnit("WEEK")
	require.Error(t, err)
	var ue *geequery.UnsupportedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "WEEK", ue.Unit)
}

func TestNegate(t *testing.T) {
	assert.Equal(t, "3", Sprint(Negate(Int(-3))))
	assert.Equal(t, "-1.5", Sprint(Negate(Double(1.5))))
	assert.Equal(t, "a", Sprint(Negate(Neg(Col("a")))))
	assert.Equal(t, "-(a + 1)", Sprint(Negate(Add(Col("a"), Int(1)))))
}

func TestIntervalAmount(t *testing.T) {
	assert.True(t, Int(3).Equal(NewInterval(String("3"), Hour).Amount().(*Value)))
	assert.Equal(t, "c", Sprint(NewInterval(Col("c"), Day).Amount()))
	assert.Equal(t, "'x'", Sprint(NewInterval(String("x"), Day).Amount()))
}

func TestStatementText(t *testing.T) {
	tests := []struct {
		name string
		s    Statement
		want string
	}{
		{
			"select",
			&Select{
				Items:   []SelectItem{{Expr: Col("id")}, {Expr: Func("count", Col("x")), Alias: "n"}},
				From:    []Table{{Name: "users", Alias: "u"}},
				Joins:   []Join{{Kind: LeftJoin, Table: Table{Name: "pets", Alias: "p"}, On: EQ(QualifiedCol("p", "owner"), QualifiedCol("u", "id"))}},
				Where:   EQ(Col("name"), Arg("a")),
				GroupBy: []Expr{Col("id")},
				OrderBy: []OrderItem{{Expr: Col("id"), Desc: true}},
				Limit:   10,
				Offset:  5,
			},
			"SELECT id, count(x) AS n FROM users u LEFT JOIN pets p ON p.owner = u.id WHERE name = ? GROUP BY id ORDER BY id DESC LIMIT 10 OFFSET 5",
		},
		{
			"insert",
			&Insert{Table: Table{Name: "users"}, Columns: []Expr{Col("id"), Col("name")}, Values: []Expr{Keyword("DEFAULT"), Arg("a")}, Returning: []string{"id"}},
			"INSERT INTO users (id, name) VALUES (DEFAULT, ?) RETURNING id",
		},
		{"insert defaults", &Insert{Table: Table{Name: "t"}}, "INSERT INTO t DEFAULT VALUES"},
		{"replace", &Replace{Table: Table{Name: "t"}, Columns: []Expr{Col("a")}, Values: []Expr{Int(1)}}, "REPLACE INTO t (a) VALUES (1)"},
		{"update", &Update{Table: Table{Name: "t"}, Set: []Assignment{{Column: Col("a"), Value: Int(1)}}, Where: EQ(Col("id"), Int(2))}, "UPDATE t SET a = 1 WHERE id = 2"},
		{"delete", &Delete{Table: Table{Schema: "s", Name: "t"}}, "DELETE FROM s.t"},
		{"drop", &Drop{Kind: DropSequence, Name: Table{Name: "S_USERS"}, IfExists: true}, "DROP SEQUENCE IF EXISTS S_USERS"},
		{"truncate", &Truncate{Table: Table{Name: "t"}}, "TRUNCATE TABLE t"},
		{"create", &CreateTable{Table: Table{Name: "t"}, IfNotExists: true, Columns: []ColumnDef{{Name: "id", Type: "INTEGER", PrimaryKey: true}, {Name: "n", Type: "VARCHAR(10)", NotNull: true, Default: String("x")}}}, "CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, n VARCHAR(10) NOT NULL DEFAULT 'x')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SprintStatement(tt.s))
		})
	}
}

// countingVisitor records the visitor method each node dispatched to.
type countingVisitor struct{ calls []string }

func (c *countingVisitor) VisitValue(*Value) error { return c.hit("value") }
func (c *countingVisitor) VisitColumn(*Column) error { return c.hit("column") }
func (c *countingVisitor) VisitBinary(*BinaryOp) error { return c.hit("binary") }
func (c *countingVisitor) VisitUnary(*UnaryOp) error { return c.hit("unary") }
func (c *countingVisitor) VisitFunction(*Function) error { return c.hit("function") }
func (c *countingVisitor) VisitList(*ExpressionList) error { return c.hit("list") }
func (c *countingVisitor) VisitInterval(*Interval) error { return c.hit("interval") }
func (c *countingVisitor) VisitExists(*Exists) error { return c.hit("exists") }
func (c *countingVisitor) VisitTemplate(*Template) error { return c.hit("template") }
func (c *countingVisitor) VisitParam(*Param) error { return c.hit("param") }
func (c *countingVisitor) VisitRaw(*Raw) error { return c.hit("raw") }
func (c *countingVisitor) VisitParen(*Paren) error { return c.hit("paren") }
func (c *countingVisitor) hit(name string) error {
	c.calls = append(c.calls, name)
	return nil
}

func TestAcceptDispatch(t *testing.T) {
	v := &countingVisitor{}
	nodes := []Expr{
		Int(1), Col("a"), EQ(Col("a"), Int(1)), Neg(Col("a")), Func("f"), List(),
		NewInterval(Int(1), Day), &Exists{}, Tmpl("x"), Arg(1), Keyword("DEFAULT"), Parens(Col("a")),
	}
	for _, n := range nodes {
		require.NoError(t, n.Accept(v))
	}
	assert.Equal(t, []string{
		"value", "column", "binary", "unary", "function", "list",
		"interval", "exists", "template", "param", "raw", "paren",
	}, v.calls)
}
