// Package sqlgraph executes mapped inserts: it builds the statement from the
// column codecs and the key resolver, runs it, and writes generated keys
// back into the inserted object.
package sqlgraph

import (
	"context"
	"errors"
	"fmt"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/profile"
	"github.com/GeeQuery/geequery-orm/dialect/sql"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sql/keygen"
	"github.com/GeeQuery/geequery-orm/dialect/sqltype"
)

// identityQueries read the last identity value on the session that ran the
// insert, for dialects with neither RETURNING nor LastInsertId.
var identityQueries = map[string]string{
	dialect.Derby: "VALUES IDENTITY_VAL_LOCAL()",
	dialect.DB2:   "SELECT IDENTITY_VAL_LOCAL() FROM SYSIBM.SYSDUMMY1",
}

type createConfig struct {
	returnKeys bool
	skipNil    bool
}

// CreateOption configures CreateNode.
type CreateOption func(*createConfig)

// WithoutKeys tells CreateNode the caller does not need generated keys.
// Native sequences are then inlined into the statement.
func WithoutKeys() CreateOption {
	return func(c *createConfig) { c.returnKeys = false }
}

// WithNulls binds nil field values as NULL instead of leaving the column
// out for the database default.
func WithNulls() CreateOption {
	return func(c *createConfig) { c.skipNil = false }
}

// Vendor returns the profile of drv.
func Vendor(drv dialect.Driver) (*profile.Vendor, error) {
	p, ok := profile.Lookup(drv.Dialect())
	if !ok {
		return nil, geequery.NewUnsupportedError(drv.Dialect(), "insert")
	}
	return p, nil
}

// CreateNode inserts obj into table. Generated keys are stored into obj
// unless WithoutKeys is given.
func CreateNode(ctx context.Context, drv dialect.Driver, r *keygen.Resolver, table *sqltype.Table, obj any, opts ...CreateOption) error {
	p, err := Vendor(drv)
	if err != nil {
		return err
	}
	cfg := newConfig(opts)
	if _, ok := identityQueries[p.Name()]; !ok || !cfg.returnKeys {
		return create(ctx, drv, p, r, table, obj, cfg)
	}
	// The identity query must run on the connection of the insert.
	return inTx(ctx, drv, func(tx dialect.Tx) error {
		return create(ctx, tx, p, r, table, obj, cfg)
	})
}

// CreateNodes inserts objs into table in one transaction.
func CreateNodes(ctx context.Context, drv dialect.Driver, r *keygen.Resolver, table *sqltype.Table, objs []any, opts ...CreateOption) error {
	p, err := Vendor(drv)
	if err != nil {
		return err
	}
	cfg := newConfig(opts)
	return inTx(ctx, drv, func(tx dialect.Tx) error {
		for i, obj := range objs {
			if err := create(ctx, tx, p, r, table, obj, cfg); err != nil {
				return fmt.Errorf("sqlgraph: row %d: %w", i, err)
			}
		}
		return nil
	})
}

func newConfig(opts []CreateOption) createConfig {
	cfg := createConfig{returnKeys: true, skipNil: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func inTx(ctx context.Context, drv dialect.Driver, fn func(dialect.Tx) error) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("rolling back transaction: %w", rerr))
		}
		return err
	}
	return tx.Commit()
}

// InsertSpec builds the insert clause of obj without running it.
func InsertSpec(ctx context.Context, p dialect.Profile, r *keygen.Resolver, table *sqltype.Table, obj any, returnKeys bool) (*keygen.InsertClause, error) {
	return buildClause(ctx, p, r, table, obj, createConfig{returnKeys: returnKeys, skipNil: true})
}

func buildClause(ctx context.Context, p dialect.Profile, r *keygen.Resolver, table *sqltype.Table, obj any, cfg createConfig) (*keygen.InsertClause, error) {
	clause := keygen.NewInsertClause(p, table.Ref(), cfg.returnKeys)
	for _, col := range table.Columns() {
		if _, ok := col.Annotations.Generated(); ok {
			if err := r.ProcessInsert(ctx, col, obj, clause); err != nil {
				return nil, err
			}
			continue
		}
		v, err := col.Get(obj)
		if err != nil {
			return nil, err
		}
		_, dv, err := col.Codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("sqlgraph: encode %s.%s: %w", table.Name, col.Name, err)
		}
		if dv == nil && cfg.skipNil {
			continue
		}
		clause.AddColumn(col, ast.Arg(dv))
	}
	return clause, nil
}

func create(ctx context.Context, ex dialect.ExecQuerier, p dialect.Profile, r *keygen.Resolver, table *sqltype.Table, obj any, cfg createConfig) error {
	clause, err := buildClause(ctx, p, r, table, obj, cfg)
	if err != nil {
		return err
	}
	ins, err := clause.Build(ctx)
	if err != nil {
		return err
	}
	keys := clause.GeneratedKeys()
	switch {
	case len(keys) == 0:
		return wrapError(table.Name, sql.ExecStatement(ctx, ex, p, ins, nil))
	case len(ins.Returning) > 0:
		rows := &sql.Rows{}
		if err := sql.QueryStatement(ctx, ex, p, ins, rows); err != nil {
			return wrapError(table.Name, err)
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return wrapError(table.Name, err)
			}
			return fmt.Errorf("sqlgraph: insert into %s returned no keys", table.Name)
		}
		ids := make([]int64, len(keys))
		dest := make([]any, len(keys))
		for i := range ids {
			dest[i] = &ids[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("sqlgraph: scan keys of %s: %w", table.Name, err)
		}
		return setKeys(keys, ids...)
	case p.Has(dialect.SupportsLastInsertID):
		var res sql.Result
		if err := sql.ExecStatement(ctx, ex, p, ins, &res); err != nil {
			return wrapError(table.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlgraph: last insert id of %s: %w", table.Name, err)
		}
		return setKeys(keys[:1], id)
	}
	query, ok := identityQueries[p.Name()]
	if !ok {
		return geequery.NewUnsupportedError(p.Name(), "generated key retrieval")
	}
	if err := sql.ExecStatement(ctx, ex, p, ins, nil); err != nil {
		return wrapError(table.Name, err)
	}
	rows := &sql.Rows{}
	if err := ex.Query(ctx, query, []any{}, rows); err != nil {
		return err
	}
	defer rows.Close()
	id, err := sql.ScanInt64(rows)
	if err != nil {
		return fmt.Errorf("sqlgraph: identity of %s: %w", table.Name, err)
	}
	return setKeys(keys[:1], id)
}

func setKeys(keys []keygen.KeyCallback, ids ...int64) error {
	for i, k := range keys {
		if err := k.Set(ids[i]); err != nil {
			return fmt.Errorf("sqlgraph: set key %s: %w", k.Column, err)
		}
	}
	return nil
}
