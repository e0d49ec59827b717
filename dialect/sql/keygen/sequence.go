package keygen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sqlschema"
)

// KeySource hands out key values. Next is atomic per value: concurrent
// callers never observe the same value.
type KeySource interface {
	// Name returns the sequence name, or the generator key.
	Name() string
	// Native reports whether the sequence is a database sequence that can
	// be referenced inline in a statement.
	Native() bool
	// Next returns the next value.
	Next(ctx context.Context) (int64, error)
}

// NativeSequence is a database sequence. Each value costs a round trip.
type NativeSequence struct {
	name  string
	query string
	db    dialect.ExecQuerier
}

// NewNativeSequence returns the sequence name on db.
func NewNativeSequence(p dialect.Profile, db dialect.ExecQuerier, name string) (*NativeSequence, error) {
	q, err := p.SequenceQuery(name)
	if err != nil {
		return nil, err
	}
	return &NativeSequence{name: name, query: q, db: db}, nil
}

// Name implements KeySource.
func (s *NativeSequence) Name() string { return s.name }

// Native implements KeySource.
func (*NativeSequence) Native() bool { return true }

// Next implements KeySource.
func (s *NativeSequence) Next(ctx context.Context) (int64, error) {
	rows := &sql.Rows{}
	if err := s.db.Query(ctx, s.query, []any{}, rows); err != nil {
		return 0, fmt.Errorf("keygen: next value of %s: %w", s.name, err)
	}
	defer rows.Close()
	n, err := sql.ScanInt64(rows)
	if err != nil {
		return 0, fmt.Errorf("keygen: next value of %s: %w", s.name, err)
	}
	return n, nil
}

// TableSequence emulates a sequence with one row of a generator table.
// Values are incremented inside a transaction.
type TableSequence struct {
	gen sqlschema.TableGenerator
	p   dialect.Profile
	drv dialect.Driver
	ref ast.Table
}

// NewTableSequence returns the generator row gen.PKValue of gen.Table.
func NewTableSequence(p dialect.Profile, drv dialect.Driver, gen sqlschema.TableGenerator) *TableSequence {
	return &TableSequence{
		gen: gen,
		p:   p,
		drv: drv,
		ref: ast.Table{Schema: gen.Schema, Name: gen.Table},
	}
}

// Name implements KeySource.
func (s *TableSequence) Name() string { return s.gen.PKValue }

// Native implements KeySource.
func (*TableSequence) Native() bool { return false }

// CreateTable creates the generator table if it does not exist.
func (s *TableSequence) CreateTable(ctx context.Context) error {
	q, args, err := sql.Render(&ast.CreateTable{
		Table:       s.ref,
		IfNotExists: true,
		Columns: []ast.ColumnDef{
			{Name: s.gen.PKColumn, Type: "VARCHAR(64)", NotNull: true, PrimaryKey: true},
			{Name: s.gen.ValueColumn, Type: "BIGINT", NotNull: true},
		},
	}, s.p)
	if err != nil {
		return err
	}
	return s.drv.Exec(ctx, q, args, nil)
}

// Next implements KeySource. The first call for a key inserts its row.
func (s *TableSequence) Next(ctx context.Context) (int64, error) {
	n, err := s.next(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		// A concurrent first insert of the same key may have won.
		n, err = s.next(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("keygen: next value of %s: %w", s.gen.PKValue, err)
	}
	return n, nil
}

func (s *TableSequence) next(ctx context.Context) (_ int64, rerr error) {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr != nil {
			rerr = errors.Join(rerr, tx.Rollback())
		}
	}()
	key := ast.EQ(ast.Col(s.gen.PKColumn), ast.Arg(s.gen.PKValue))
	val := ast.Col(s.gen.ValueColumn)
	q, args, err := sql.Render(&ast.Update{
		Table: s.ref,
		Set:   []ast.Assignment{{Column: val, Value: ast.Add(val, ast.Int(1))}},
		Where: key,
	}, s.p)
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if err := tx.Exec(ctx, q, args, &res); err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		q, args, err := sql.Render(&ast.Insert{
			Table:   s.ref,
			Columns: []ast.Expr{ast.Col(s.gen.PKColumn), val},
			Values:  []ast.Expr{ast.Arg(s.gen.PKValue), ast.Int(1)},
		}, s.p)
		if err != nil {
			return 0, err
		}
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return 0, err
		}
		return 1, tx.Commit()
	}
	q, args, err = sql.Render(&ast.Select{
		Items: []ast.SelectItem{{Expr: val}},
		From:  []ast.Table{s.ref},
		Where: key,
	}, s.p)
	if err != nil {
		return 0, err
	}
	rows := &sql.Rows{}
	if err := tx.Query(ctx, q, args, rows); err != nil {
		return 0, err
	}
	n, err := sql.ScanInt64(rows)
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// MemorySequence is a process-local counter.
type MemorySequence struct {
	name string
	n    atomic.Int64
}

// NewMemorySequence returns a counter whose first value is 1.
func NewMemorySequence(name string) *MemorySequence {
	return &MemorySequence{name: name}
}

// Name implements KeySource.
func (s *MemorySequence) Name() string { return s.name }

// Native implements KeySource.
func (*MemorySequence) Native() bool { return false }

// Next implements KeySource.
func (s *MemorySequence) Next(context.Context) (int64, error) {
	return s.n.Add(1), nil
}

type seqKey struct {
	site    string
	name    string
	profile string
}

// Sequences creates and caches sequences per datasource and name.
type Sequences struct {
	def   dialect.Driver
	mu    sync.Mutex
	sites map[string]dialect.Driver
	seqs  map[seqKey]KeySource
}

// NewSequences returns a factory over the default datasource drv. A nil
// drv makes every sequence a MemorySequence.
func NewSequences(drv dialect.Driver) *Sequences {
	return &Sequences{
		def:   drv,
		sites: make(map[string]dialect.Driver),
		seqs:  make(map[seqKey]KeySource),
	}
}

// AddSite registers a datasource for routed targets.
func (s *Sequences) AddSite(name string, drv dialect.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[name] = drv
}

func (s *Sequences) driver(t Target) (dialect.Driver, error) {
	if !t.Routed || t.Site == "" {
		return s.def, nil
	}
	drv, ok := s.sites[t.Site]
	if !ok {
		return nil, fmt.Errorf("keygen: unknown datasource %q for %s", t.Site, t.Name)
	}
	return drv, nil
}

// Get returns the sequence for target. Sequence resolutions use a native
// sequence when the profile has them and fall back to the generator table
// otherwise.
func (s *Sequences) Get(_ context.Context, p dialect.Profile, t Target, res Resolution) (KeySource, error) {
	key := seqKey{site: t.Site, name: t.Name, profile: p.Name()}
	if t.Generator != nil {
		key.name = t.Generator.QualifiedTable() + "#" + t.Name
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq, ok := s.seqs[key]; ok {
		return seq, nil
	}
	drv, err := s.driver(t)
	if err != nil {
		return nil, err
	}
	var seq KeySource
	switch {
	case drv == nil:
		seq = NewMemorySequence(t.Name)
	case res == Sequence && p.Has(dialect.SupportsSequence):
		if seq, err = NewNativeSequence(p, drv, t.Name); err != nil {
			return nil, err
		}
	default:
		gen := sqlschema.TableGenerator{PKValue: t.Name}
		if t.Generator != nil {
			gen = *t.Generator
		} else if i := strings.LastIndexByte(t.Name, '.'); i > 0 {
			gen.Schema, gen.PKValue = t.Name[:i], t.Name[i+1:]
		}
		seq = NewTableSequence(p, drv, gen.WithDefaults(gen.PKValue))
	}
	s.seqs[key] = seq
	return seq, nil
}
