package profile

import (
	"testing"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := map[string]*Vendor{
		"postgres":   Postgres,
		"PostgreSQL": Postgres,
		"pgx":        Postgres,
		"mysql":      MySQL,
		"mariadb":    MySQL,
		"sqlite":     SQLite,
		"sqlite3":    SQLite,
		"oracle":     Oracle,
		"godror":     Oracle,
		"derby":      Derby,
		" db2 ":      DB2,
	}
	for name, want := range tests {
		got, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Same(t, want, got, name)
	}
	_, ok := Lookup("mssql")
	assert.False(t, ok)
	assert.Panics(t, func() { MustLookup("mssql") })
}

func TestFeatures(t *testing.T) {
	assert.True(t, Postgres.Has(dialect.AIToSequenceWithoutDefault))
	assert.True(t, Postgres.Has(dialect.SupportsReturning))
	assert.False(t, Postgres.Has(dialect.NotSupportKeywordDefault))

	assert.True(t, SQLite.Has(dialect.NotSupportKeywordDefault))
	assert.False(t, SQLite.Has(dialect.SupportsSequence))

	assert.True(t, MySQL.Has(dialect.SupportsLastInsertID))
	assert.False(t, MySQL.Has(dialect.SupportsReturning))

	assert.True(t, Oracle.Has(dialect.SupportsSequence))
	assert.False(t, Oracle.Has(dialect.SupportsIdentity))

	assert.True(t, Derby.Has(dialect.FunctionEscape))
	assert.False(t, DB2.Has(dialect.FunctionEscape))
}

func TestQuoting(t *testing.T) {
	tests := []struct {
		p     *Vendor
		ident string
		quote string
		col   string
	}{
		{Postgres, "name", "name", "name"},
		{Postgres, "userId", `"userId"`, "userid"},
		{Postgres, "user", `"user"`, `"user"`},
		{Postgres, `we"ird`, `"we""ird"`, `"we""ird"`},
		{MySQL, "order", "`order`", "`order`"},
		{MySQL, "userId", "userId", "userId"},
		{SQLite, "my col", `"my col"`, `"my col"`},
		{Oracle, "name", `"name"`, "NAME"},
		{Oracle, "ROWNUM", `"ROWNUM"`, `"ROWNUM"`},
		{Derby, "id", `"id"`, "ID"},
		{DB2, "ID", "ID", "ID"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.quote, tt.p.QuoteIdent(tt.ident), "%s QuoteIdent(%s)", tt.p, tt.ident)
		assert.Equal(t, tt.col, tt.p.ColumnName(tt.ident), "%s ColumnName(%s)", tt.p, tt.ident)
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$3", Postgres.Placeholder(3))
	assert.Equal(t, ":2", Oracle.Placeholder(2))
	for _, p := range []*Vendor{MySQL, SQLite, Derby, DB2} {
		assert.Equal(t, "?", p.Placeholder(9), p.Name())
	}
}

func TestDateLiterals(t *testing.T) {
	ts := time.Date(2024, 3, 1, 13, 4, 5, 0, time.UTC)
	tests := []struct {
		p        *Vendor
		date, tm string
	}{
		{Postgres, "DATE '2024-03-01'", "TIMESTAMP '2024-03-01 13:04:05'"},
		{MySQL, "DATE '2024-03-01'", "TIMESTAMP '2024-03-01 13:04:05'"},
		{SQLite, "'2024-03-01'", "'2024-03-01 13:04:05'"},
		{Oracle, "to_date('2024-03-01', 'YYYY-MM-DD')", "to_timestamp('2024-03-01 13:04:05', 'YYYY-MM-DD HH24:MI:SS')"},
		{Derby, "DATE('2024-03-01')", "TIMESTAMP('2024-03-01 13:04:05')"},
		{DB2, "DATE('2024-03-01')", "TIMESTAMP('2024-03-01-13.04.05')"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.date, tt.p.DateLiteral(ts, false), tt.p.Name())
		assert.Equal(t, tt.tm, tt.p.DateLiteral(ts, true), tt.p.Name())
	}
}

func TestToDate(t *testing.T) {
	assert.Equal(t, "to_date('2024-01-01', 'YYYY-MM-DD')", ast.Sprint(Oracle.ToDate(ast.String("2024-01-01"))))
	assert.Equal(t, "to_date('2024-01-01 10:00:00', 'YYYY-MM-DD HH24:MI:SS')", ast.Sprint(Oracle.ToDate(ast.String("2024-01-01 10:00:00"))))
	assert.Equal(t, "date('2024-01-01')", ast.Sprint(SQLite.ToDate(ast.String("2024-01-01"))))
	assert.Equal(t, "str_to_date('2024-01-01', '%Y-%m-%d')", ast.Sprint(MySQL.ToDate(ast.String("2024-01-01"))))
}

func TestSequences(t *testing.T) {
	tests := []struct {
		p       *Vendor
		nextVal string
		query   string
	}{
		{Postgres, "nextval('S_USERS')", "SELECT nextval('S_USERS')"},
		{Oracle, "S_USERS.nextval", "SELECT S_USERS.nextval FROM dual"},
		{Derby, "NEXT VALUE FOR S_USERS", "VALUES NEXT VALUE FOR S_USERS"},
		{DB2, "NEXT VALUE FOR S_USERS", "SELECT NEXT VALUE FOR S_USERS FROM sysibm.sysdummy1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.nextVal, tt.p.SequenceNextVal("S_USERS"))
		q, err := tt.p.SequenceQuery("S_USERS")
		require.NoError(t, err)
		assert.Equal(t, tt.query, q)
	}
	for _, p := range []*Vendor{MySQL, SQLite} {
		assert.Empty(t, p.SequenceNextVal("S"))
		_, err := p.SequenceQuery("S")
		assert.True(t, geequery.IsUnsupported(err), p.Name())
	}
}

func TestLimitHandlers(t *testing.T) {
	q, err := MySQL.Limit("SELECT 1", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 LIMIT 5, 18446744073709551615", q)

	q, err = Postgres.Limit("SELECT 1", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 OFFSET 5", q)

	q, err = Oracle.Limit("SELECT 1 FROM dual", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT t__.*, ROWNUM rn__ FROM (SELECT 1 FROM dual) t__) WHERE rn__ > 5", q)

	q, err = Derby.Limit("SELECT 1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FETCH NEXT 2 ROWS ONLY", q)

	_, err = DB2.Limit("SELECT 1", 0, 1)
	var ue *geequery.UnsupportedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, dialect.DB2, ue.Profile)
}

func TestFunctionRegistry(t *testing.T) {
	_, ok := Oracle.Function("DATEADD")
	assert.True(t, ok, "lookups ignore case")
	_, ok = MySQL.Function("datediff")
	assert.False(t, ok, "mysql has a native datediff")
	assert.Equal(t, []string{"dateadd", "datediff", "nvl"}, Derby.Functions().Names())
}
