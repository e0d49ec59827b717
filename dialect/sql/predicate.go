package sql

import (
	"strings"

	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
)

// Field is a typed column reference that builds predicate expressions.
// Values are bound as parameters, never inlined.
//
// Usage:
//
//	var Age = sql.Field[int]("age")
//	stmt.Where = ast.And(Age.GTE(18), Age.LT(65))
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// Col returns the column expression.
func (f Field[T]) Col() *ast.Column { return ast.Col(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) ast.Expr { return ast.Binary(ast.OpEQ, f.Col(), ast.Arg(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) ast.Expr { return ast.Binary(ast.OpNEQ, f.Col(), ast.Arg(v)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) ast.Expr { return ast.Binary(ast.OpGT, f.Col(), ast.Arg(v)) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[T]) GTE(v T) ast.Expr { return ast.Binary(ast.OpGTE, f.Col(), ast.Arg(v)) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) ast.Expr { return ast.Binary(ast.OpLT, f.Col(), ast.Arg(v)) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[T]) LTE(v T) ast.Expr { return ast.Binary(ast.OpLTE, f.Col(), ast.Arg(v)) }

// In returns a predicate that checks if the field value is in the given list.
// An empty list never matches.
func (f Field[T]) In(vs ...T) ast.Expr {
	if len(vs) == 0 {
		return ast.Keyword("1 = 0")
	}
	return ast.Tmpl("%s IN %s", f.Col(), args(vs))
}

// NotIn returns a predicate that checks if the field value is not in the given list.
// An empty list always matches.
func (f Field[T]) NotIn(vs ...T) ast.Expr {
	if len(vs) == 0 {
		return ast.Keyword("1 = 1")
	}
	return ast.Tmpl("%s NOT IN %s", f.Col(), args(vs))
}

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() ast.Expr { return ast.Tmpl("%s IS NULL", f.Col()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[T]) NotNull() ast.Expr { return ast.Tmpl("%s IS NOT NULL", f.Col()) }

func args[T any](vs []T) *ast.ExpressionList {
	items := make([]ast.Expr, len(vs))
	for i, v := range vs {
		items[i] = ast.Arg(v)
	}
	return &ast.ExpressionList{Items: items, Separator: ", ", Wrap: true}
}

// StringField is a string column with pattern predicates on top of Field.
type StringField string

// Field returns the column as a plain Field.
func (f StringField) Field() Field[string] { return Field[string](f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) ast.Expr { return f.Field().EQ(v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) ast.Expr { return f.Field().In(vs...) }

// Like returns a predicate matching the raw LIKE pattern.
func (f StringField) Like(pattern string) ast.Expr {
	return ast.Binary(ast.OpLike, ast.Col(string(f)), ast.Arg(pattern))
}

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) ast.Expr { return f.Like("%" + escapeLike(v) + "%") }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) ast.Expr { return f.Like(escapeLike(v) + "%") }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) ast.Expr { return f.Like("%" + escapeLike(v)) }

// ContainsFold returns a predicate that checks if the field contains the given substring (case-insensitive).
func (f StringField) ContainsFold(v string) ast.Expr {
	return ast.Binary(ast.OpLike, ast.Func("lower", ast.Col(string(f))), ast.Arg("%"+escapeLike(strings.ToLower(v))+"%"))
}

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() ast.Expr { return f.Field().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() ast.Expr { return f.Field().NotNull() }

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
