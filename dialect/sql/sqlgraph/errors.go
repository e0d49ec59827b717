package sqlgraph

import (
	"errors"
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ConstraintKind is the kind of a violated constraint.
type ConstraintKind int

// Constraint kinds.
const (
	NoConstraint ConstraintKind = iota
	UniqueConstraint
	ForeignKeyConstraint
	CheckConstraint
)

func (k ConstraintKind) String() string {
	switch k {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign key"
	case CheckConstraint:
		return "check"
	}
	return "none"
}

// sqlStateError is implemented by drivers that expose SQLSTATE codes
// without a concrete error type this package knows about.
type sqlStateError interface {
	SQLState() string
}

// SQLSTATE codes for constraint violations (class 23).
const (
	stateUniqueViolation     = "23505"
	stateForeignKeyViolation = "23503"
	stateCheckViolation      = "23514"
	// Derby reports check violations with its own code.
	stateDerbyCheckViolation = "23513"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// Message fragments for drivers without structured errors.
var fallbacks = map[ConstraintKind][]string{
	UniqueConstraint: {
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
		"ORA-00001",                  // Oracle
		"SQL0803N",                   // DB2
	},
	ForeignKeyConstraint: {
		"Error 1451",
		"Error 1452",
		"violates foreign key constraint",
		"FOREIGN KEY constraint failed",
		"ORA-02291",
		"ORA-02292",
		"SQL0530N",
	},
	CheckConstraint: {
		"Error 3819",
		"violates check constraint",
		"CHECK constraint failed",
		"ORA-02290",
		"SQL0545N",
	},
}

// Classify reports which constraint, if any, err violated.
func Classify(err error) ConstraintKind {
	if err == nil {
		return NoConstraint
	}
	var (
		pgErr    *pgconn.PgError
		pqErr    *pq.Error
		myErr    *mysql.MySQLError
		liteErr  *sqlite.Error
		stateErr sqlStateError
	)
	switch {
	case errors.As(err, &pgErr):
		return fromState(pgErr.Code)
	case errors.As(err, &pqErr):
		return fromState(string(pqErr.Code))
	case errors.As(err, &myErr):
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return UniqueConstraint
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ForeignKeyConstraint
		case mysqlCheckConstraintViolate:
			return CheckConstraint
		}
		return NoConstraint
	case errors.As(err, &liteErr):
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return UniqueConstraint
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ForeignKeyConstraint
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return CheckConstraint
		}
	case errors.As(err, &stateErr):
		if k := fromState(stateErr.SQLState()); k != NoConstraint {
			return k
		}
	}
	msg := err.Error()
	for _, k := range []ConstraintKind{UniqueConstraint, ForeignKeyConstraint, CheckConstraint} {
		for _, sub := range fallbacks[k] {
			if strings.Contains(msg, sub) {
				return k
			}
		}
	}
	return NoConstraint
}

func fromState(code string) ConstraintKind {
	switch code {
	case stateUniqueViolation:
		return UniqueConstraint
	case stateForeignKeyViolation:
		return ForeignKeyConstraint
	case stateCheckViolation, stateDerbyCheckViolation:
		return CheckConstraint
	}
	return NoConstraint
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return geequery.IsConstraintError(err) || Classify(err) != NoConstraint
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return Classify(err) == UniqueConstraint
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return Classify(err) == ForeignKeyConstraint
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return Classify(err) == CheckConstraint
}

// wrapError turns constraint violations into geequery.ConstraintError and
// every other failure into a MutationError for table.
func wrapError(table string, err error) error {
	if err == nil {
		return nil
	}
	if k := Classify(err); k != NoConstraint {
		return geequery.NewConstraintError(k.String()+" constraint on "+table+": "+err.Error(), err)
	}
	return geequery.NewMutationError(table, "insert", err)
}
