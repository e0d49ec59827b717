package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/profile"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
)

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && identRe.MatchString(s)
}

// quoteSessionValue renders v as a string literal for a SET statement.
// Only MySQL treats backslash as an escape character inside literals.
func quoteSessionValue(name, v string) string {
	if name == dialect.MySQL {
		v = strings.ReplaceAll(v, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// Driver is a dialect.Driver implementation for SQL based databases. It
// renders statements with the profile of its dialect.
type Driver struct {
	Conn
	profile *profile.Vendor
}

// NewDriver creates a new Driver with the given Conn. The dialect is a
// profile name or a driver alias such as "pgx" or "sqlite".
func NewDriver(name string, c Conn) (*Driver, error) {
	p, ok := profile.Lookup(name)
	if !ok {
		return nil, geequery.NewUnsupportedError(name, "database driver")
	}
	c.dialect = p.Name()
	return &Driver{Conn: c, profile: p}, nil
}

// Open wraps the database/sql.Open method and returns a Driver for the
// profile registered under driverName.
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	drv, err := NewDriver(driverName, Conn{ExecQuerier: db})
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return drv, nil
}

// OpenDB wraps the given database/sql.DB method with a Driver. It panics
// if name is not a known profile.
func OpenDB(name string, db *sql.DB) *Driver {
	drv, err := NewDriver(name, Conn{ExecQuerier: db})
	if err != nil {
		panic(err)
	}
	return drv
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Dialect method.
func (d Driver) Dialect() string {
	return d.profile.Name()
}

// Profile returns the dialect profile of the driver.
func (d Driver) Profile() *profile.Vendor {
	return d.profile
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// ExecStatement renders stmt for p and executes it on ex.
func ExecStatement(ctx context.Context, ex dialect.ExecQuerier, p dialect.Profile, stmt ast.Statement, v any) error {
	query, args, err := Render(stmt, p)
	if err != nil {
		return err
	}
	if args == nil {
		args = []any{}
	}
	return ex.Exec(ctx, query, args, v)
}

// QueryStatement renders stmt for p and runs it as a query.
func QueryStatement(ctx context.Context, ex dialect.ExecQuerier, p dialect.Profile, stmt ast.Statement, rows *Rows) error {
	query, args, err := Render(stmt, p)
	if err != nil {
		return err
	}
	if args == nil {
		args = []any{}
	}
	return ex.Query(ctx, query, args, rows)
}

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

type ctxVarsKey struct{}

// sessionVar is a setting applied on the connection before a statement
// runs. Schema entries switch the current schema instead of setting a
// named variable.
type sessionVar struct {
	name, value string
	schema      bool
}

type sessionVars struct {
	vars []sessionVar
}

func withSessionVar(ctx context.Context, v sessionVar) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	vars := make([]sessionVar, len(sv.vars), len(sv.vars)+1)
	copy(vars, sv.vars)
	return context.WithValue(ctx, ctxVarsKey{}, sessionVars{vars: append(vars, v)})
}

// WithVar returns a context whose statements first set the session
// variable name to value. Supported on postgres and mysql.
func WithVar(ctx context.Context, name, value string) context.Context {
	return withSessionVar(ctx, sessionVar{name: name, value: value})
}

// WithIntVar calls WithVar with the string representation of the value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// WithSchema returns a context whose statements run with schema as the
// current schema, so unqualified table and sequence names resolve in the
// mapped schema. The connection is switched back when the statement
// finishes. Supported on postgres, derby and db2.
func WithSchema(ctx context.Context, schema string) context.Context {
	return withSessionVar(ctx, sessionVar{value: schema, schema: true})
}

// VarFromContext returns the first value set for the session variable.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for _, s := range sv.vars {
		if !s.schema && s.name == name {
			return s.value, true
		}
	}
	return "", false
}

// sessionStatements returns the statement applying v on a connection of
// the named dialect and the one undoing it.
func sessionStatements(name string, v sessionVar) (set, reset string, err error) {
	if v.schema {
		if !isValidIdentifier(v.value) {
			return "", "", fmt.Errorf("invalid schema name: %q", v.value)
		}
		switch name {
		case dialect.Postgres:
			return "SET search_path TO " + v.value, "RESET search_path", nil
		case dialect.Derby, dialect.DB2:
			return "SET SCHEMA " + v.value, "SET SCHEMA USER", nil
		}
		return "", "", geequery.NewUnsupportedError(name, "session schema")
	}
	if !isValidIdentifier(v.name) {
		return "", "", fmt.Errorf("invalid session variable name: %q", v.name)
	}
	switch name {
	case dialect.Postgres:
		return fmt.Sprintf("SET %s = %s", v.name, quoteSessionValue(name, v.value)), "RESET " + v.name, nil
	case dialect.MySQL:
		return fmt.Sprintf("SET %s = %s", v.name, quoteSessionValue(name, v.value)), fmt.Sprintf("SET %s = NULL", v.name), nil
	}
	return "", "", geequery.NewUnsupportedError(name, "session variables")
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (rerr error) {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	switch v := v.(type) {
	case nil:
		if _, err := ex.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := ex.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, argv...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	if cf != nil {
		vr.ColumnScanner = rowsWithCloser{rows, cf}
	}
	return nil
}

// maySetVars applies the session settings carried by ctx. Outside a
// transaction they run on a dedicated connection, and the returned close
// function undoes them before the connection goes back to the pool.
func (c Conn) maySetVars(ctx context.Context) (ExecQuerier, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c, nil, nil
	}
	type stmt struct{ set, reset string }
	stmts := make([]stmt, 0, len(sv.vars))
	for _, v := range sv.vars {
		set, reset, err := sessionStatements(c.dialect, v)
		if err != nil {
			return nil, nil, err
		}
		stmts = append(stmts, stmt{set, reset})
	}

	var (
		ex ExecQuerier
		cf func() error
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, cf = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}

	var reset []string
	seen := make(map[string]bool, len(stmts))
	for _, s := range stmts {
		if !seen[s.reset] {
			seen[s.reset] = true
			reset = append(reset, s.reset)
		}
		if _, err := ex.ExecContext(ctx, s.set); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}
	// The reset must run even when ctx is already canceled.
	if cls := cf; cf != nil {
		cf = func() error {
			cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanup, q); err != nil {
					return errors.Join(err, cls())
				}
			}
			return cls()
		}
	}
	return ex, cf, nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullBool is an alias to sql.NullBool.
	NullBool = sql.NullBool
	// NullInt64 is an alias to sql.NullInt64.
	NullInt64 = sql.NullInt64
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// NullFloat64 is an alias to sql.NullFloat64.
	NullFloat64 = sql.NullFloat64
	// NullTime represents a time.Time that may be null.
	NullTime = sql.NullTime
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// NullScanner implements the sql.Scanner interface such that it
// can be used as a scan destination, similar to the types above.
type NullScanner struct {
	S     sql.Scanner
	Valid bool // Valid is true if the Scan value is not NULL.
}

// Scan implements the Scanner interface.
func (n *NullScanner) Scan(value any) error {
	n.Valid = value != nil
	if n.Valid {
		return n.S.Scan(value)
	}
	return nil
}

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// rowsWithCloser wraps the ColumnScanner interface with a custom Close hook.
type rowsWithCloser struct {
	ColumnScanner
	closer func() error
}

// Close closes the underlying ColumnScanner and calls the custom closer.
func (r rowsWithCloser) Close() error {
	err := r.ColumnScanner.Close()
	return errors.Join(err, r.closer())
}
