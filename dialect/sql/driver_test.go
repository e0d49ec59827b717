package sql

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/profile"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockDriver(t *testing.T, name string) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(name, db), mock
}

func TestNewDriverAliases(t *testing.T) {
	tests := map[string]string{
		"pgx":      dialect.Postgres,
		"postgres": dialect.Postgres,
		"sqlite":   dialect.SQLite,
		"sqlite3":  dialect.SQLite,
		"mysql":    dialect.MySQL,
		"mariadb":  dialect.MySQL,
		"godror":   dialect.Oracle,
	}
	for alias, want := range tests {
		t.Run(alias, func(t *testing.T) {
			drv, err := NewDriver(alias, Conn{})
			require.NoError(t, err)
			assert.Equal(t, want, drv.Dialect())
			assert.Equal(t, want, drv.Profile().Name())
		})
	}

	_, err := NewDriver("mongo", Conn{})
	require.Error(t, err)
	assert.True(t, geequery.IsUnsupported(err))
	assert.Panics(t, func() { OpenDB("mongo", nil) })
}

func TestExecStatement(t *testing.T) {
	drv, mock := mockDriver(t, "pgx")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET age = $1 WHERE id = $2")).
		WithArgs(30, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var res Result
	err := ExecStatement(context.Background(), drv, drv.Profile(), &ast.Update{
		Table: ast.Table{Name: "users"},
		Set:   []ast.Assignment{{Column: ast.Col("age"), Value: ast.Arg(30)}},
		Where: ast.EQ(ast.Col("id"), ast.Arg(7)),
	}, &res)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryStatement(t *testing.T) {
	drv, mock := mockDriver(t, "postgres")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM users WHERE age > $1")).
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM users WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow(nil))

	ctx := context.Background()
	rows := &Rows{}
	err := QueryStatement(ctx, drv, drv.Profile(), &ast.Select{
		Items: []ast.SelectItem{{Expr: ast.Func("count", ast.Keyword("*"))}},
		From:  []ast.Table{{Name: "users"}},
		Where: Field[int]("age").GT(18),
	}, rows)
	require.NoError(t, err)
	n, err := ScanInt64(rows)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, rows.Close())

	err = QueryStatement(ctx, drv, drv.Profile(), &ast.Select{
		Items: []ast.SelectItem{{Expr: ast.Col("name")}},
		From:  []ast.Table{{Name: "users"}},
		Where: Field[int]("id").EQ(1),
	}, rows)
	require.NoError(t, err)
	s, ok, err := ScanString(rows)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanOne(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}))
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2))
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(nil))

	rows, err := db.Query("SELECT n")
	require.NoError(t, err)
	_, err = ScanInt64(rows)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	rows, err = db.Query("SELECT n")
	require.NoError(t, err)
	_, err = ScanInt64(rows)
	assert.ErrorContains(t, err, "exactly one row")
	rows.Close()

	rows, err = db.Query("SELECT n")
	require.NoError(t, err)
	_, err = ScanInt64(rows)
	assert.ErrorContains(t, err, "NULL")
}

func TestRenderFailureSkipsDatabase(t *testing.T) {
	drv, mock := mockDriver(t, "sqlite")
	err := ExecStatement(context.Background(), drv, drv.Profile(), &ast.Select{
		Items: []ast.SelectItem{{Expr: ast.Func("dateadd", ast.Col("d"), ast.NewInterval(ast.Int(1), ast.Day))}},
		From:  []ast.Table{{Name: "t"}},
	}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVars(t *testing.T) {
	drv, mock := mockDriver(t, "postgres")
	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET foo = 'baz'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := WithVar(context.Background(), "foo", "bar")
	ctx = WithVar(ctx, "foo", "baz")
	v, ok := VarFromContext(ctx, "foo")
	require.True(t, ok)
	assert.Equal(t, "bar", v, "first value wins on lookup")

	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close(), "close resets the session")
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec(regexp.QuoteMeta(`SET foo = 'it''s'`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO users DEFAULT VALUES").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	ctx = WithVar(context.Background(), "foo", "it's")
	require.NoError(t, drv.Exec(ctx, "INSERT INTO users DEFAULT VALUES", []any{}, nil))
	require.NoError(t, mock.ExpectationsWereMet())

	err := drv.Exec(WithVar(context.Background(), "foo; DROP TABLE users", "x"), "SELECT 1", []any{}, nil)
	assert.ErrorContains(t, err, "invalid session variable name")
}

func TestWithVarsUnsupported(t *testing.T) {
	for _, name := range []string{dialect.Oracle, dialect.Derby, dialect.DB2} {
		t.Run(name, func(t *testing.T) {
			drv, mock := mockDriver(t, name)
			err := drv.Exec(WithIntVar(context.Background(), "fetch_size", 10), "SELECT 1", []any{}, nil)
			require.Error(t, err)
			assert.True(t, geequery.IsUnsupported(err))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConnArgumentTypes(t *testing.T) {
	drv, _ := mockDriver(t, "mysql")
	ctx := context.Background()
	assert.ErrorContains(t, drv.Exec(ctx, "SELECT 1", "x", nil), "expect []any")
	assert.ErrorContains(t, drv.Exec(ctx, "SELECT 1", []any{}, new(int)), "expect *sql.Result")
	assert.ErrorContains(t, drv.Query(ctx, "SELECT 1", []any{}, new(int)), "expect *sql.Rows")
}

func TestDriverTx(t *testing.T) {
	drv, mock := mockDriver(t, "mysql")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name) VALUES (?)")).
		WithArgs("a8m").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	err = ExecStatement(ctx, tx, drv.Profile(), &ast.Insert{
		Table:   ast.Table{Name: "users"},
		Columns: []ast.Expr{ast.Col("name")},
		Values:  []ast.Expr{ast.Arg("a8m")},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyStatement(t *testing.T) {
	tests := map[string]StatementKind{
		"SELECT id FROM orders":                             SelectStatement,
		"  with t as (select 1) select * from t":            SelectStatement,
		"INSERT INTO orders (code) VALUES ($1)":             InsertStatement,
		"UPDATE orders SET code = ?":                        UpdateStatement,
		"DELETE FROM orders":                                DeleteStatement,
		"SELECT nextval('orders_id_seq')":                   KeyFetchStatement,
		"SELECT S_ORDERS.nextval FROM DUAL":                 KeyFetchStatement,
		"VALUES NEXT VALUE FOR S_ORDERS":                    KeyFetchStatement,
		"VALUES IDENTITY_VAL_LOCAL()":                       KeyFetchStatement,
		"SELECT IDENTITY_VAL_LOCAL() FROM SYSIBM.SYSDUMMY1": KeyFetchStatement,
		"CREATE TABLE t (id INT)":                           DDLStatement,
		"SET search_path TO app":                            OtherStatement,
	}
	for q, want := range tests {
		assert.Equal(t, want, ClassifyStatement(q), q)
	}
	assert.Equal(t, "key_fetch", KeyFetchStatement.String())
	assert.Equal(t, "other", StatementKind(99).String())
}

func TestStatsDriver(t *testing.T) {
	drv, mock := mockDriver(t, "postgres")
	var slow []string
	sd := NewStatsDriver(drv,
		WithSlowThreshold(time.Nanosecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT 1").WillDelayFor(time.Millisecond).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('s')")).WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(5))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, ExecStatement(ctx, sd, profile.Postgres, &ast.Delete{Table: ast.Table{Name: "users"}}, nil))
	rows := &Rows{}
	require.NoError(t, sd.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	tx, err := sd.Tx(ctx)
	require.NoError(t, err)
	rows = &Rows{}
	require.NoError(t, tx.Query(ctx, "SELECT nextval('s')", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Commit())

	s := sd.QueryStats().Stats()
	assert.Equal(t, int64(2), s.TotalQueries)
	assert.Equal(t, int64(1), s.TotalExecs)
	assert.Equal(t, int64(1), s.KeyFetches())
	assert.Equal(t, int64(1), s.ByKind[DeleteStatement])
	assert.Contains(t, s.String(), "key_fetch=1")
	assert.NotEmpty(t, slow)

	sd.SetSlowThreshold(0)
	assert.Zero(t, sd.SlowThreshold())
	sd.QueryStats().Reset()
	assert.Zero(t, sd.QueryStats().Stats().TotalQueries)
	assert.Empty(t, sd.QueryStats().Stats().ByKind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebugDriver(t *testing.T) {
	drv, mock := mockDriver(t, "sqlite3")
	var buf bytes.Buffer
	dd := NewDebugDriver(drv, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, dd.Exec(context.Background(), "DELETE FROM t", []any{}, nil))
	assert.Contains(t, buf.String(), "DELETE FROM t")
	assert.Contains(t, buf.String(), "kind=delete")
	assert.Contains(t, buf.String(), "dialect=sqlite3")

	buf.Reset()
	quiet := NewDebugDriver(drv, slog.New(slog.NewTextHandler(&buf, nil)))
	mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, quiet.Exec(context.Background(), "DELETE FROM t", []any{}, nil))
	assert.Empty(t, buf.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteSessionValue(t *testing.T) {
	tests := []struct {
		dialect, in, want string
	}{
		{dialect.Postgres, "plain", "'plain'"},
		{dialect.Postgres, "it's", "'it''s'"},
		{dialect.Postgres, `back\slash`, `'back\slash'`},
		{dialect.MySQL, `back\slash`, `'back\\slash'`},
		{dialect.MySQL, `\'`, `'\\'''`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteSessionValue(tt.dialect, tt.in), tt.dialect+" "+tt.in)
	}
	assert.True(t, isValidIdentifier("search_path"))
	assert.True(t, isValidIdentifier("app.tenant"))
	assert.False(t, isValidIdentifier("1abc"))
	assert.False(t, isValidIdentifier(""))
}

func TestWithSchema(t *testing.T) {
	tests := []struct {
		dialect, set, reset string
	}{
		{dialect.Postgres, "SET search_path TO prod", "RESET search_path"},
		{dialect.Derby, "SET SCHEMA prod", "SET SCHEMA USER"},
		{dialect.DB2, "SET SCHEMA prod", "SET SCHEMA USER"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			drv, mock := mockDriver(t, tt.dialect)
			mock.ExpectExec(regexp.QuoteMeta(tt.set)).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(regexp.QuoteMeta(tt.reset)).WillReturnResult(sqlmock.NewResult(0, 0))

			ctx := WithSchema(context.Background(), "prod")
			_, ok := VarFromContext(ctx, "")
			assert.False(t, ok, "schema is not a variable")
			require.NoError(t, drv.Exec(ctx, "INSERT INTO orders DEFAULT VALUES", []any{}, nil))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Oracle} {
			drv, mock := mockDriver(t, name)
			err := drv.Exec(WithSchema(context.Background(), "prod"), "SELECT 1", []any{}, nil)
			assert.True(t, geequery.IsUnsupported(err), name)
			require.NoError(t, mock.ExpectationsWereMet())
		}
	})

	t.Run("InvalidName", func(t *testing.T) {
		drv, _ := mockDriver(t, dialect.Postgres)
		err := drv.Exec(WithSchema(context.Background(), "prod; DROP TABLE x"), "SELECT 1", []any{}, nil)
		assert.ErrorContains(t, err, "invalid schema name")
	})

	t.Run("InsideTx", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.Postgres)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SET search_path TO prod")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM orders").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
		ctx := context.Background()
		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Exec(WithSchema(ctx, "prod"), "DELETE FROM orders", []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
