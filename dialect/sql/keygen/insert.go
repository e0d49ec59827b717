package keygen

import (
	"context"
	"fmt"
	"reflect"

	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sqltype"
)

// KeyCallback receives a key generated by the database.
type KeyCallback struct {
	// Column is the raw name of the generated column.
	Column string
	// Set stores the key into the inserted object.
	Set func(key int64) error
}

// InsertClause accumulates the columns and values of one INSERT.
type InsertClause struct {
	Profile dialect.Profile
	Table   ast.Table
	// ReturnKeys reports whether the caller needs generated keys back.
	ReturnKeys bool

	columns []ast.Expr
	values  []ast.Expr
	// deferred values are fetched by pre-insert callbacks.
	deferred map[int]func(context.Context) (any, error)
	keys     []KeyCallback
}

// NewInsertClause returns an empty clause for table on p.
func NewInsertClause(p dialect.Profile, table ast.Table, returnKeys bool) *InsertClause {
	return &InsertClause{Profile: p, Table: table, ReturnKeys: returnKeys}
}

// Add appends a column with its value expression. The name is folded and
// quoted by the renderer.
func (c *InsertClause) Add(column string, value ast.Expr) {
	c.columns = append(c.columns, ast.Col(column))
	c.values = append(c.values, value)
}

// AddColumn appends a mapped column. Its name is taken from the column's
// binding for the clause profile, so repeated inserts reuse the folded and
// quoted name instead of computing it on every render.
func (c *InsertClause) AddColumn(col *sqltype.Column, value ast.Expr) {
	c.columns = append(c.columns, ast.Keyword(col.Bind(c.Profile).Name))
	c.values = append(c.values, value)
}

// AddDeferred appends a mapped column bound to a placeholder whose value
// is fetched right before the statement is built.
func (c *InsertClause) AddDeferred(col *sqltype.Column, fetch func(context.Context) (any, error)) {
	if c.deferred == nil {
		c.deferred = make(map[int]func(context.Context) (any, error))
	}
	c.deferred[len(c.values)] = fetch
	c.AddColumn(col, nil)
}

// OnGeneratedKey registers a callback for a database-generated key.
func (c *InsertClause) OnGeneratedKey(cb KeyCallback) {
	c.keys = append(c.keys, cb)
}

// GeneratedKeys returns the registered key callbacks.
func (c *InsertClause) GeneratedKeys() []KeyCallback { return c.keys }

// Len returns the number of columns.
func (c *InsertClause) Len() int { return len(c.columns) }

// Build runs the pre-insert callbacks in column order and returns the
// statement. Generated key columns are listed in RETURNING when the profile
// supports it.
func (c *InsertClause) Build(ctx context.Context) (*ast.Insert, error) {
	values := make([]ast.Expr, len(c.values))
	copy(values, c.values)
	for i := range values {
		fetch, ok := c.deferred[i]
		if !ok {
			continue
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		values[i] = ast.Arg(v)
	}
	ins := &ast.Insert{Table: c.Table, Columns: c.columns, Values: values}
	if c.Profile.Has(dialect.SupportsReturning) {
		for _, k := range c.keys {
			ins.Returning = append(ins.Returning, k.Column)
		}
	}
	return ins, nil
}

// ProcessInsert adds col of obj to the clause according to its resolution.
// A positive key already set on obj is kept when the configuration allows
// manual keys.
func (r *Resolver) ProcessInsert(ctx context.Context, col *sqltype.Column, obj any, clause *InsertClause) error {
	v, err := col.Get(obj)
	if err != nil {
		return err
	}
	if r.cfg.ManualSequence && assigned(v) {
		_, dv, err := col.Codec.Encode(v)
		if err != nil {
			return err
		}
		clause.AddColumn(col, ast.Arg(dv))
		return nil
	}
	st, err := r.resolve(ctx, col, clause.Profile)
	if err != nil {
		return err
	}
	setKey := func(key int64) error { return col.Set(obj, 1, key) }
	switch st.resolution {
	case IdentityDefault:
		clause.AddColumn(col, ast.Keyword("DEFAULT"))
		fallthrough
	case IdentitySkip:
		if clause.ReturnKeys {
			clause.OnGeneratedKey(KeyCallback{Column: col.Name, Set: setKey})
		}
		return nil
	case Sequence, Table:
		seq, err := r.seqs.Get(ctx, clause.Profile, st.target, st.resolution)
		if err != nil {
			return err
		}
		if !clause.ReturnKeys && seq.Native() {
			clause.AddColumn(col, ast.Keyword(clause.Profile.SequenceNextVal(seq.Name())))
			return nil
		}
		clause.AddDeferred(col, func(ctx context.Context) (any, error) {
			key, err := seq.Next(ctx)
			if err != nil {
				return nil, err
			}
			if err := setKey(key); err != nil {
				return nil, err
			}
			return key, nil
		})
		return nil
	}
	return fmt.Errorf("keygen: unexpected resolution %s for %s.%s", st.resolution, col.Table().Name, col.Name)
}

// assigned reports whether v, or the value it points to, is a number whose
// integer part is positive.
func assigned(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() > 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() > 0
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()) > 0
	}
	return false
}
