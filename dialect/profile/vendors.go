package profile

import (
	"fmt"
	"strconv"
	"time"

	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sql/function"
)

// Built-in profiles.
var (
	Postgres = newPostgres()
	MySQL    = newMySQL()
	SQLite   = newSQLite()
	Oracle   = newOracle()
	Derby    = newDerby()
	DB2      = newDB2()
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

func questionMark(int) string { return "?" }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func words(extra ...string) map[string]struct{} {
	return reservedSet(append(append([]string(nil), sql92Reserved...), extra...)...)
}

// ansiDateLiteral renders DATE '...' and TIMESTAMP '...'.
func ansiDateLiteral(t time.Time, withTime bool) string {
	if withTime {
		return "TIMESTAMP '" + t.Format(timestampLayout) + "'"
	}
	return "DATE '" + t.Format(dateLayout) + "'"
}

// limitOffset appends LIMIT n OFFSET m. noLimit is written when only an
// offset is given and the dialect requires a LIMIT before OFFSET.
func limitOffset(noLimit string) func(string, int64, int64) (string, error) {
	return func(q string, offset, limit int64) (string, error) {
		switch {
		case limit > 0:
			q += " LIMIT " + itoa(limit)
		case noLimit != "":
			q += " LIMIT " + noLimit
		}
		if offset > 0 {
			q += " OFFSET " + itoa(offset)
		}
		return q, nil
	}
}

func newPostgres() *Vendor {
	return &Vendor{
		name:       dialect.Postgres,
		aliases:    []string{"postgresql", "pgx", "pg"},
		features:   dialect.AIToSequenceWithoutDefault | dialect.SupportsSequence | dialect.SupportsIdentity | dialect.SupportsReturning,
		quoteOpen:  `"`,
		quoteClose: `"`,
		fold:       foldLower,
		reserved:   words("ANALYSE", "ANALYZE", "LIMIT", "OFFSET", "RETURNING", "WINDOW"),
		placeholder: func(n int) string {
			return "$" + strconv.Itoa(n)
		},
		limit:       limitOffset(""),
		dateLiteral: ansiDateLiteral,
		toDate: func(v *ast.Value) ast.Expr {
			if len(v.Text()) > len(dateLayout) {
				return ast.Func("to_timestamp", v, ast.String("YYYY-MM-DD HH24:MI:SS"))
			}
			return ast.Func("to_date", v, ast.String("YYYY-MM-DD"))
		},
		nextVal: func(seq string) string { return "nextval('" + seq + "')" },
		seqQuery: func(seq string) string {
			return "SELECT nextval('" + seq + "')"
		},
		funcs: function.NewRegistry().
			Register("datediff", function.Template("(CAST(%1$s AS DATE) - CAST(%2$s AS DATE))", 2)).
			Register("dateadd", function.DateaddByIntervalProduct).
			Register("nvl", function.Rename("coalesce")).
			Register("ifnull", function.Rename("coalesce")),
	}
}

func newMySQL() *Vendor {
	return &Vendor{
		name:        dialect.MySQL,
		aliases:     []string{"mariadb"},
		features:    dialect.SupportsIdentity | dialect.SupportsLastInsertID,
		quoteOpen:   "`",
		quoteClose:  "`",
		reserved:    words("LIMIT", "KEYS", "INDEX", "RANGE", "READ", "RANK", "SCHEMA", "INTERVAL"),
		backslash:   true,
		placeholder: questionMark,
		limit: func(q string, offset, limit int64) (string, error) {
			switch {
			case offset > 0 && limit > 0:
				return q + " LIMIT " + itoa(offset) + ", " + itoa(limit), nil
			case offset > 0:
				return q + " LIMIT " + itoa(offset) + ", 18446744073709551615", nil
			default:
				return q + " LIMIT " + itoa(limit), nil
			}
		},
		dateLiteral: ansiDateLiteral,
		toDate: func(v *ast.Value) ast.Expr {
			if len(v.Text()) > len(dateLayout) {
				return ast.Func("str_to_date", v, ast.String("%Y-%m-%d %H:%i:%s"))
			}
			return ast.Func("str_to_date", v, ast.String("%Y-%m-%d"))
		},
		funcs: function.NewRegistry().
			Register("dateadd", function.Template("DATE_ADD(%1$s, %2$s)", 2)).
			Register("nvl", function.Rename("ifnull")),
	}
}

func newSQLite() *Vendor {
	return &Vendor{
		name:        dialect.SQLite,
		aliases:     []string{"sqlite"},
		features:    dialect.NotSupportKeywordDefault | dialect.SupportsIdentity | dialect.SupportsLastInsertID | dialect.SupportsReturning,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		reserved:    words("LIMIT", "OFFSET", "INDEX", "RETURNING"),
		placeholder: questionMark,
		limit:       limitOffset("-1"),
		dateLiteral: func(t time.Time, withTime bool) string {
			if withTime {
				return "'" + t.Format(timestampLayout) + "'"
			}
			return "'" + t.Format(dateLayout) + "'"
		},
		toDate: func(v *ast.Value) ast.Expr {
			if len(v.Text()) > len(dateLayout) {
				return ast.Func("datetime", v)
			}
			return ast.Func("date", v)
		},
		funcs: function.NewRegistry().
			Register("datediff", function.Template("CAST(julianday(%1$s) - julianday(%2$s) AS INTEGER)", 2)).
			Register("dateadd", function.Unsupported("dateadd")).
			Register("nvl", function.Rename("ifnull")),
	}
}

func newOracle() *Vendor {
	return &Vendor{
		name:       dialect.Oracle,
		aliases:    []string{"oci8", "godror", "ora"},
		features:   dialect.SupportsSequence,
		quoteOpen:  `"`,
		quoteClose: `"`,
		fold:       foldUpper,
		reserved:   words("LEVEL", "ROWNUM", "ROWID", "SYSDATE", "UID", "SIZE", "START", "NUMBER", "DATE", "COMMENT", "RESOURCE"),
		placeholder: func(n int) string {
			return ":" + strconv.Itoa(n)
		},
		limit: func(q string, offset, limit int64) (string, error) {
			if offset <= 0 {
				return "SELECT * FROM (" + q + ") WHERE ROWNUM <= " + itoa(limit), nil
			}
			inner := "SELECT t__.*, ROWNUM rn__ FROM (" + q + ") t__"
			if limit > 0 {
				inner += " WHERE ROWNUM <= " + itoa(offset+limit)
			}
			return "SELECT * FROM (" + inner + ") WHERE rn__ > " + itoa(offset), nil
		},
		dateLiteral: func(t time.Time, withTime bool) string {
			if withTime {
				return "to_timestamp('" + t.Format(timestampLayout) + "', 'YYYY-MM-DD HH24:MI:SS')"
			}
			return "to_date('" + t.Format(dateLayout) + "', 'YYYY-MM-DD')"
		},
		toDate: func(v *ast.Value) ast.Expr {
			if len(v.Text()) > len(dateLayout) {
				return ast.Func("to_date", v, ast.String("YYYY-MM-DD HH24:MI:SS"))
			}
			return ast.Func("to_date", v, ast.String("YYYY-MM-DD"))
		},
		nextVal: func(seq string) string { return seq + ".nextval" },
		seqQuery: func(seq string) string {
			return "SELECT " + seq + ".nextval FROM dual"
		},
		funcs: function.NewRegistry().
			Register("dateadd", function.DateaddByArithmetic).
			Register("datediff", function.Template("(trunc(%1$s) - trunc(%2$s))", 2)).
			Register("ifnull", function.Rename("nvl")),
	}
}

func newDerby() *Vendor {
	return &Vendor{
		name:        dialect.Derby,
		aliases:     []string{"javadb"},
		features:    dialect.SupportsIdentity | dialect.SupportsSequence | dialect.FunctionEscape,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		fold:        foldUpper,
		reserved:    words("FETCH", "OFFSET", "ROWS", "ONLY", "NEXT", "VALUE"),
		placeholder: questionMark,
		limit: func(q string, offset, limit int64) (string, error) {
			if offset > 0 {
				q += " OFFSET " + itoa(offset) + " ROWS"
			}
			if limit > 0 {
				q += " FETCH NEXT " + itoa(limit) + " ROWS ONLY"
			}
			return q, nil
		},
		dateLiteral: func(t time.Time, withTime bool) string {
			if withTime {
				return "TIMESTAMP('" + t.Format(timestampLayout) + "')"
			}
			return "DATE('" + t.Format(dateLayout) + "')"
		},
		toDate: func(v *ast.Value) ast.Expr {
			if len(v.Text()) > len(dateLayout) {
				return ast.Func("TIMESTAMP", v)
			}
			return ast.Func("DATE", v)
		},
		nextVal: func(seq string) string { return "NEXT VALUE FOR " + seq },
		seqQuery: func(seq string) string {
			return "VALUES NEXT VALUE FOR " + seq
		},
		funcs: function.NewRegistry().
			Register("datediff", function.DatediffByTimestampdiff).
			Register("dateadd", function.DateaddByTimestampadd).
			Register("nvl", function.Rename("coalesce")),
	}
}

func newDB2() *Vendor {
	return &Vendor{
		name:        dialect.DB2,
		aliases:     []string{"go_ibm_db", "ibmdb"},
		features:    dialect.SupportsIdentity | dialect.SupportsSequence,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		fold:        foldUpper,
		reserved:    words("FETCH", "ROWS", "ONLY", "NEXT", "VALUE", "DAYS"),
		placeholder: questionMark,
		dateLiteral: func(t time.Time, withTime bool) string {
			if withTime {
				return fmt.Sprintf("TIMESTAMP('%s')", t.Format("2006-01-02-15.04.05"))
			}
			return "DATE('" + t.Format(dateLayout) + "')"
		},
		toDate: func(v *ast.Value) ast.Expr {
			return ast.Func("DATE", v)
		},
		nextVal: func(seq string) string { return "NEXT VALUE FOR " + seq },
		seqQuery: func(seq string) string {
			return "SELECT NEXT VALUE FOR " + seq + " FROM sysibm.sysdummy1"
		},
		funcs: function.NewRegistry().
			Register("datediff", function.Template("(DAYS(%1$s) - DAYS(%2$s))", 2)).
			Register("dateadd", function.DateaddByLabeledDuration).
			Register("nvl", function.Rename("coalesce")),
	}
}
