package dialect

import (
	"context"
	"time"

	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
)

// Dialect names for external usage.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite3"
	Oracle   = "oracle"
	Derby    = "derby"
	DB2      = "db2"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// insert and probe paths.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Feature is a capability flag of a dialect profile.
type Feature uint32

// Dialect capabilities.
const (
	// NotSupportKeywordDefault means INSERT cannot use the DEFAULT keyword
	// for a column; identity columns must be omitted instead.
	NotSupportKeywordDefault Feature = 1 << iota
	// AIToSequenceWithoutDefault means an auto-increment column may turn out
	// to be backed by a sequence with no column default, so the column
	// default has to be probed.
	AIToSequenceWithoutDefault
	SupportsSequence
	SupportsIdentity
	SupportsReturning
	SupportsLastInsertID
	// FunctionEscape means the dialect accepts {fn name(args)} escapes.
	FunctionEscape
)

var featureNames = []struct {
	f    Feature
	name string
}{
	{NotSupportKeywordDefault, "NOT_SUPPORT_KEYWORD_DEFAULT"},
	{AIToSequenceWithoutDefault, "AI_TO_SEQUENCE_WITHOUT_DEFAULT"},
	{SupportsSequence, "SUPPORT_SEQUENCE"},
	{SupportsIdentity, "SUPPORT_IDENTITY"},
	{SupportsReturning, "SUPPORT_RETURNING"},
	{SupportsLastInsertID, "SUPPORT_LAST_INSERT_ID"},
	{FunctionEscape, "FUNCTION_ESCAPE"},
}

// Features lists every known feature flag.
func Features() []Feature {
	fs := make([]Feature, len(featureNames))
	for i, n := range featureNames {
		fs[i] = n.f
	}
	return fs
}

// String returns the feature name.
func (f Feature) String() string {
	for _, n := range featureNames {
		if n.f == f {
			return n.name
		}
	}
	return "UNKNOWN_FEATURE"
}

// EmulateFunc rewrites a canonical function call into an expression the
// dialect understands. It must not mutate args.
type EmulateFunc func(p Profile, args []ast.Expr) (ast.Expr, error)

// Profile describes how a database vendor spells SQL. Profiles are
// immutable and safe for concurrent use.
type Profile interface {
	// Name returns the dialect name (one of the constants above).
	Name() string
	// Has reports whether the dialect has the given capability.
	Has(Feature) bool
	// QuoteIdent quotes an identifier if it needs quoting.
	QuoteIdent(name string) string
	// ColumnName folds an unquoted identifier to the dialect's case and
	// quotes it when needed.
	ColumnName(name string) string
	// QuoteString returns a string literal.
	QuoteString(s string) string
	// Placeholder returns the n-th (1-based) bind placeholder.
	Placeholder(n int) string
	// DateLiteral renders a date or timestamp literal.
	DateLiteral(t time.Time, withTime bool) string
	// ToDate wraps a string literal in the dialect's date constructor.
	ToDate(v *ast.Value) ast.Expr
	// Function returns the emulation rule registered for a lower-cased
	// canonical function name.
	Function(name string) (EmulateFunc, bool)
	// Limit applies offset/limit to a rendered SELECT.
	Limit(query string, offset, limit int64) (string, error)
	// SequenceNextVal returns the expression yielding the next value of a
	// sequence inside an INSERT.
	SequenceNextVal(seq string) string
	// SequenceQuery returns a standalone query fetching the next value.
	SequenceQuery(seq string) (string, error)
}

// TimeLayout is the layout used for timestamp literals.
const TimeLayout = "2006-01-02 15:04:05"
