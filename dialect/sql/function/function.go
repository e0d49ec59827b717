// Package function holds the function emulation rules dialect profiles use
// to rewrite canonical function calls into vendor SQL.
//
// Rules are pure: they receive the dialect profile and the call arguments
// and return a replacement expression without touching their input.
package function

import (
	"fmt"
	"sort"
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
)

// Registry maps lower-case canonical function names to emulation rules.
// A registry is filled once while its profile is built and only read
// afterwards.
type Registry struct {
	rules map[string]dialect.EmulateFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]dialect.EmulateFunc)}
}

// Register adds a rule for name and returns the registry for chaining.
func (r *Registry) Register(name string, rule dialect.EmulateFunc) *Registry {
	r.rules[strings.ToLower(name)] = rule
	return r
}

// Lookup returns the rule registered for name.
func (r *Registry) Lookup(name string) (dialect.EmulateFunc, bool) {
	if r == nil {
		return nil, false
	}
	rule, ok := r.rules[strings.ToLower(name)]
	return rule, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for n := range r.rules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// checkArity fails with an unsupported-feature error when a call does not
// have exactly n arguments.
func checkArity(p dialect.Profile, name string, args []ast.Expr, n int) error {
	if len(args) != n {
		return geequery.NewUnsupportedError(p.Name(), fmt.Sprintf("%s with %d arguments", name, len(args)))
	}
	return nil
}

// Rename returns a rule that keeps the arguments and calls another name.
func Rename(name string) dialect.EmulateFunc {
	return func(_ dialect.Profile, args []ast.Expr) (ast.Expr, error) {
		return ast.Func(name, args...), nil
	}
}

// Template returns a rule that substitutes the arguments into format (see
// ast.Template). A negative arity accepts any number of arguments.
func Template(format string, arity int) dialect.EmulateFunc {
	return func(p dialect.Profile, args []ast.Expr) (ast.Expr, error) {
		if arity >= 0 {
			if err := checkArity(p, format, args, arity); err != nil {
				return nil, err
			}
		}
		return ast.Tmpl(format, args...), nil
	}
}

// Unsupported returns a rule that always fails for name.
func Unsupported(name string) dialect.EmulateFunc {
	return func(p dialect.Profile, _ []ast.Expr) (ast.Expr, error) {
		return nil, geequery.NewUnsupportedError(p.Name(), name)
	}
}

// DatediffByTimestampdiff rewrites datediff(a, b) into the escaped
// {fn timestampdiff(SQL_TSI_DAY, b, a)}. The escape counts from its second
// argument to its third, hence the swap.
func DatediffByTimestampdiff(p dialect.Profile, args []ast.Expr) (ast.Expr, error) {
	if err := checkArity(p, "datediff", args, 2); err != nil {
		return nil, err
	}
	return ast.EscapedFunc("timestampdiff", ast.Keyword("SQL_TSI_DAY"), args[1], args[0]), nil
}

// DateaddByArithmetic rewrites dateadd(time, interval) using date
// arithmetic in days, the way Oracle does it. The interval amount is
// sign-inverted before the subtraction forms are built, so
//
//	dateadd(t, INTERVAL -3 HOUR) => t - (3 / 24)
//	dateadd(t, INTERVAL 2 MONTH) => add_months(t, 2)
//
// DAY adds the amount as written. A second argument that is not an interval
// is subtracted as is.
func DateaddByArithmetic(p dialect.Profile, args []ast.Expr) (ast.Expr, error) {
	if err := checkArity(p, "dateadd", args, 2); err != nil {
		return nil, err
	}
	t := args[0]
	if v, ok := t.(*ast.Value); ok && v.Kind() == ast.KindString {
		t = p.ToDate(v)
	}
	iv, ok := args[1].(*ast.Interval)
	if !ok {
		return ast.Sub(t, args[1]), nil
	}
	amount := ast.Negate(iv.Amount())
	switch iv.Unit {
	case ast.Day:
		return ast.Add(t, iv.Amount()), nil
	case ast.Hour:
		return ast.Sub(t, ast.Parens(ast.Div(amount, ast.Int(24)))), nil
	case ast.Minute:
		return ast.Sub(t, ast.Parens(ast.Div(amount, ast.Int(1440)))), nil
	case ast.Second:
		return ast.Sub(t, ast.Parens(ast.Div(amount, ast.Int(86400)))), nil
	case ast.Month:
		return ast.Func("add_months", t, ast.Negate(amount)), nil
	case ast.Quarter:
		return ast.Func("add_months", t, ast.Neg(ast.Mul(amount, ast.Int(3)))), nil
	case ast.Year:
		return ast.Func("add_months", t, ast.Neg(ast.Mul(amount, ast.Int(12)))), nil
	default:
		return nil, geequery.NewUnsupportedUnitError(p.Name(), "dateadd", string(iv.Unit))
	}
}

// DateaddByIntervalProduct rewrites dateadd(time, interval) into
// time + (amount * INTERVAL '1 UNIT'), the form PostgreSQL accepts for
// non-constant amounts. QUARTER is expressed in months.
func DateaddByIntervalProduct(p dialect.Profile, args []ast.Expr) (ast.Expr, error) {
	if err := checkArity(p, "dateadd", args, 2); err != nil {
		return nil, err
	}
	t := args[0]
	if v, ok := t.(*ast.Value); ok && v.Kind() == ast.KindString {
		t = p.ToDate(v)
	}
	iv, ok := args[1].(*ast.Interval)
	if !ok {
		return ast.Add(t, args[1]), nil
	}
	amount, unit := iv.Amount(), iv.Unit
	if unit == ast.Quarter {
		amount, unit = ast.Mul(amount, ast.Int(3)), ast.Month
	}
	if _, err := ast.ParseUnit(string(unit)); err != nil {
		return nil, geequery.NewUnsupportedUnitError(p.Name(), "dateadd", string(iv.Unit))
	}
	one := ast.Keyword("INTERVAL '1 " + string(unit) + "'")
	return ast.Add(t, ast.Parens(ast.Mul(amount, one))), nil
}

// timestampaddUnits maps interval units to JDBC escape interval names.
var timestampaddUnits = map[ast.Unit]string{
	ast.Day:     "SQL_TSI_DAY",
	ast.Hour:    "SQL_TSI_HOUR",
	ast.Minute:  "SQL_TSI_MINUTE",
	ast.Second:  "SQL_TSI_SECOND",
	ast.Month:   "SQL_TSI_MONTH",
	ast.Quarter: "SQL_TSI_QUARTER",
	ast.Year:    "SQL_TSI_YEAR",
}

// DateaddByTimestampadd rewrites dateadd(time, interval) into the escaped
// {fn timestampadd(SQL_TSI_UNIT, amount, time)}.
func DateaddByTimestampadd(p dialect.Profile, args []ast.Expr) (ast.Expr, error) {
	if err := checkArity(p, "dateadd", args, 2); err != nil {
		return nil, err
	}
	iv, ok := args[1].(*ast.Interval)
	if !ok {
		return nil, geequery.NewUnsupportedError(p.Name(), "dateadd without interval")
	}
	unit, ok := timestampaddUnits[iv.Unit]
	if !ok {
		return nil, geequery.NewUnsupportedUnitError(p.Name(), "dateadd", string(iv.Unit))
	}
	return ast.EscapedFunc("timestampadd", ast.Keyword(unit), iv.Amount(), args[0]), nil
}

// DateaddByLabeledDuration rewrites dateadd(time, interval) into DB2
// labeled durations: time + (amount) HOURS.
func DateaddByLabeledDuration(p dialect.Profile, args []ast.Expr) (ast.Expr, error) {
	if err := checkArity(p, "dateadd", args, 2); err != nil {
		return nil, err
	}
	iv, ok := args[1].(*ast.Interval)
	if !ok {
		return ast.Add(args[0], args[1]), nil
	}
	amount, unit := iv.Amount(), iv.Unit
	switch unit {
	case ast.Quarter:
		amount, unit = ast.Mul(amount, ast.Int(3)), ast.Month
	case ast.Day, ast.Hour, ast.Minute, ast.Second, ast.Month, ast.Year:
	default:
		return nil, geequery.NewUnsupportedUnitError(p.Name(), "dateadd", string(iv.Unit))
	}
	return ast.Add(args[0], ast.Tmpl("(%s) "+string(unit)+"S", amount)), nil
}
