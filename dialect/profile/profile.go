// Package profile provides the database dialect profiles: capability flags,
// quoting, literal spelling, limit handling, sequence syntax and the
// function emulation registry of each supported vendor.
package profile

import (
	"regexp"
	"strings"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sql/function"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// identRe matches identifiers that never need quoting.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// fold is the case an unquoted identifier is stored in.
type fold uint8

const (
	foldNone fold = iota
	foldUpper
	foldLower
)

// Vendor is a dialect profile. Values are built once at package
// initialization and are immutable afterwards.
type Vendor struct {
	name        string
	aliases     []string
	features    dialect.Feature
	quoteOpen   string
	quoteClose  string
	fold        fold
	reserved    map[string]struct{}
	backslash   bool // string literals also escape backslashes
	placeholder func(n int) string
	limit       func(query string, offset, limit int64) (string, error)
	dateLiteral func(t time.Time, withTime bool) string
	toDate      func(v *ast.Value) ast.Expr
	nextVal     func(seq string) string
	seqQuery    func(seq string) string
	funcs       *function.Registry
}

// Name implements dialect.Profile.
func (v *Vendor) Name() string { return v.name }

// Aliases returns the driver names the profile is also known under.
func (v *Vendor) Aliases() []string { return append([]string(nil), v.aliases...) }

// Has implements dialect.Profile.
func (v *Vendor) Has(f dialect.Feature) bool { return v.features&f != 0 }

// Functions returns the emulation registry.
func (v *Vendor) Functions() *function.Registry { return v.funcs }

// Function implements dialect.Profile.
func (v *Vendor) Function(name string) (dialect.EmulateFunc, bool) {
	return v.funcs.Lookup(name)
}

// QuoteIdent quotes name when it is not a plain identifier, is a reserved
// word, or would be changed by the dialect's case folding.
func (v *Vendor) QuoteIdent(name string) string {
	if !v.needsQuote(name) {
		return name
	}
	return v.quoteOpen + strings.ReplaceAll(name, v.quoteClose, v.quoteClose+v.quoteClose) + v.quoteClose
}

func (v *Vendor) needsQuote(name string) bool {
	if !identRe.MatchString(name) {
		return true
	}
	if _, ok := v.reserved[strings.ToUpper(name)]; ok {
		return true
	}
	return v.fold != foldNone && v.foldCase(name) != name
}

// ColumnName folds name to the dialect case and quotes it when needed. The
// caser is created per call since cases.Caser is not safe for concurrent
// use; callers on hot paths cache the result (see sqltype.Column).
func (v *Vendor) ColumnName(name string) string {
	return v.QuoteIdent(v.foldCase(name))
}

func (v *Vendor) foldCase(name string) string {
	switch v.fold {
	case foldUpper:
		return cases.Upper(language.Und).String(name)
	case foldLower:
		return cases.Lower(language.Und).String(name)
	default:
		return name
	}
}

// QuoteString implements dialect.Profile.
func (v *Vendor) QuoteString(s string) string {
	if v.backslash {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Placeholder implements dialect.Profile.
func (v *Vendor) Placeholder(n int) string { return v.placeholder(n) }

// DateLiteral implements dialect.Profile.
func (v *Vendor) DateLiteral(t time.Time, withTime bool) string {
	return v.dateLiteral(t, withTime)
}

// ToDate implements dialect.Profile.
func (v *Vendor) ToDate(val *ast.Value) ast.Expr { return v.toDate(val) }

// Limit implements dialect.Profile.
func (v *Vendor) Limit(query string, offset, limit int64) (string, error) {
	if v.limit == nil {
		return "", geequery.NewUnsupportedError(v.name, "LIMIT/OFFSET")
	}
	return v.limit(query, offset, limit)
}

// SequenceNextVal implements dialect.Profile. It returns "" when the
// dialect has no sequences.
func (v *Vendor) SequenceNextVal(seq string) string {
	if v.nextVal == nil {
		return ""
	}
	return v.nextVal(seq)
}

// SequenceQuery implements dialect.Profile.
func (v *Vendor) SequenceQuery(seq string) (string, error) {
	if v.seqQuery == nil {
		return "", geequery.NewUnsupportedError(v.name, "sequence")
	}
	return v.seqQuery(seq), nil
}

// String returns the profile name.
func (v *Vendor) String() string { return v.name }

var _ dialect.Profile = (*Vendor)(nil)

// All returns every built-in profile.
func All() []*Vendor {
	return []*Vendor{Postgres, MySQL, SQLite, Oracle, Derby, DB2}
}

// Lookup finds a profile by dialect name or driver alias, ignoring case.
func Lookup(name string) (*Vendor, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range All() {
		if v.name == name {
			return v, true
		}
		for _, a := range v.aliases {
			if a == name {
				return v, true
			}
		}
	}
	return nil, false
}

// MustLookup is like Lookup but panics if the name is unknown.
func MustLookup(name string) *Vendor {
	v, ok := Lookup(name)
	if !ok {
		panic("profile: unknown dialect " + name)
	}
	return v
}

func reservedSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// common reserved words, shared by every dialect.
var sql92Reserved = []string{
	"ALL", "AND", "AS", "ASC", "BETWEEN", "BY", "CASE", "CHECK", "COLUMN",
	"CONSTRAINT", "CREATE", "CROSS", "DEFAULT", "DELETE", "DESC", "DISTINCT",
	"DROP", "ELSE", "END", "EXISTS", "FOR", "FOREIGN", "FROM", "GROUP",
	"HAVING", "IN", "INNER", "INSERT", "INTO", "IS", "JOIN", "KEY", "LEFT",
	"LIKE", "NOT", "NULL", "ON", "OR", "ORDER", "PRIMARY", "REFERENCES",
	"RIGHT", "SELECT", "SET", "TABLE", "THEN", "TO", "UNION", "UNIQUE",
	"UPDATE", "USER", "VALUES", "WHEN", "WHERE", "WITH",
}
