// Package keygen decides how generated key values reach an INSERT: through
// an identity column, a database sequence or a generator table.
//
// A Resolver keeps one resolution per column instance. The resolution is
// computed from the declared strategy and the profile features when the
// column is first used with a profile, and recomputed when the profile
// changes. Columns whose identity may or may not be backed by a sequence
// default (Postgres serial columns) start in CheckIsIdentity and are settled
// by a single catalog probe.
package keygen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/schema"
	"github.com/GeeQuery/geequery-orm/dialect/sqlschema"
	"github.com/GeeQuery/geequery-orm/dialect/sqltype"

	"golang.org/x/sync/singleflight"
)

// Resolution is how a key column obtains its value on insert.
type Resolution int

// Resolutions.
const (
	// Table fetches values from a generator table.
	Table Resolution = iota
	// Sequence fetches values from a database sequence.
	Sequence
	// IdentitySkip omits the column; the database fills it.
	IdentitySkip
	// IdentityDefault writes DEFAULT into the column.
	IdentityDefault
	// CheckIsIdentity is transient: the column default must be probed
	// before it settles into IdentityDefault or Sequence.
	CheckIsIdentity
)

var resolutionNames = [...]string{
	Table:           "TABLE",
	Sequence:        "SEQUENCE",
	IdentitySkip:    "IDENTITY_SKIP",
	IdentityDefault: "IDENTITY_DEFAULT",
	CheckIsIdentity: "CHECK_IS_IDENTITY",
}

func (r Resolution) String() string {
	if r >= 0 && int(r) < len(resolutionNames) {
		return resolutionNames[r]
	}
	return fmt.Sprintf("Resolution(%d)", int(r))
}

// MaxSequenceName is the longest default sequence name.
const MaxSequenceName = 30

// Config holds the settings that influence key generation.
type Config struct {
	// ManualSequence lets a caller-assigned positive key bypass generation.
	ManualSequence bool
	// SingleSite disables datasource routing for partitioned tables.
	SingleSite bool
	// SchemaMapping renames schemas: declared name to database name.
	SchemaMapping map[string]string
	// SiteMapping maps generator catalogs to datasource names.
	SiteMapping map[string]string
}

// MapSchema returns the database schema for a declared schema.
func (c Config) MapSchema(schema string) string {
	if s, ok := c.SchemaMapping[schema]; ok {
		return s
	}
	return schema
}

// MapSite returns the datasource for a generator catalog.
func (c Config) MapSite(catalog string) string {
	if s, ok := c.SiteMapping[catalog]; ok {
		return s
	}
	return catalog
}

// Target names the sequence or generator entry backing a column and the
// datasource it lives in.
type Target struct {
	// Routed is set for tables spread over several datasources. Site is
	// then the datasource, with "" meaning the default one. Unrouted
	// targets live wherever the table lives.
	Routed bool
	Site   string
	// Name is the [schema.]name of the sequence, or the key of the
	// generator row when Generator is set.
	Name string
	// Generator is the generator table for Table resolutions declared
	// with a TableGenerator annotation.
	Generator *sqlschema.TableGenerator
}

// SequenceName returns the default sequence name of a table:
// S_<TABLE>, cut to MaxSequenceName characters, schema-qualified if a
// schema is given.
func SequenceName(schema, table string) string {
	name := "S_" + strings.ToUpper(table)
	if len(name) > MaxSequenceName {
		name = name[:MaxSequenceName]
	}
	if schema != "" {
		return schema + "." + name
	}
	return name
}

// genState is an immutable snapshot of a column's generation state.
type genState struct {
	profile    dialect.Profile
	strategy   sqlschema.GenerationType
	resolution Resolution
	target     Target
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProbe sets the catalog probe used to settle CheckIsIdentity.
func WithProbe(p schema.Probe) Option {
	return func(r *Resolver) { r.probe = p }
}

// WithLogger sets the logger for resolution events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithSequences sets the sequence factory.
func WithSequences(s *Sequences) Option {
	return func(r *Resolver) { r.seqs = s }
}

// Resolver resolves and applies key generation per column.
type Resolver struct {
	cfg    Config
	probe  schema.Probe
	seqs   *Sequences
	log    *slog.Logger
	group  singleflight.Group
	states sync.Map // *sqltype.Column => *atomic.Pointer[genState]
	probes atomic.Int64
}

// NewResolver returns a Resolver. Without a probe CheckIsIdentity settles
// into Sequence. Without a sequence factory values come from in-memory
// counters.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.seqs == nil {
		r.seqs = NewSequences(nil)
	}
	return r
}

// Config returns the resolver configuration.
func (r *Resolver) Config() Config { return r.cfg }

// Probes returns the number of catalog probes issued so far.
func (r *Resolver) Probes() int64 { return r.probes.Load() }

func (r *Resolver) cell(col *sqltype.Column) *atomic.Pointer[genState] {
	if c, ok := r.states.Load(col); ok {
		return c.(*atomic.Pointer[genState])
	}
	c, _ := r.states.LoadOrStore(col, new(atomic.Pointer[genState]))
	return c.(*atomic.Pointer[genState])
}

// bind returns the state of col for p, computing a fresh one when the
// column was last used with another profile.
func (r *Resolver) bind(col *sqltype.Column, p dialect.Profile) *genState {
	cell := r.cell(col)
	for {
		old := cell.Load()
		if old != nil && old.profile == p {
			return old
		}
		st := r.initial(col, p)
		if cell.CompareAndSwap(old, st) {
			r.log.Debug("keygen: bound column",
				"table", col.Table().Name, "column", col.Name,
				"profile", p.Name(), "strategy", st.strategy, "resolution", st.resolution)
			return st
		}
	}
}

// Strategy returns the effective strategy of col on p. Partitioned tables
// never use identity columns.
func Strategy(declared sqlschema.GenerationType, p dialect.Profile, partitioned bool) sqlschema.GenerationType {
	identity := p.Has(dialect.SupportsIdentity) && !partitioned
	switch declared {
	case sqlschema.Identity:
		if identity {
			return sqlschema.Identity
		}
		if p.Has(dialect.SupportsSequence) {
			return sqlschema.Sequence
		}
		return sqlschema.TableGen
	case sqlschema.Sequence, sqlschema.TableGen:
		return declared
	}
	switch {
	case identity:
		return sqlschema.Identity
	case p.Has(dialect.SupportsSequence):
		return sqlschema.Sequence
	}
	return sqlschema.TableGen
}

// Initial returns the resolution of an effective strategy on p.
func Initial(strategy sqlschema.GenerationType, p dialect.Profile) Resolution {
	switch strategy {
	case sqlschema.Identity:
		switch {
		case p.Has(dialect.AIToSequenceWithoutDefault):
			return CheckIsIdentity
		case p.Has(dialect.NotSupportKeywordDefault):
			return IdentitySkip
		}
		return IdentityDefault
	case sqlschema.Sequence:
		return Sequence
	}
	return Table
}

func (r *Resolver) initial(col *sqltype.Column, p dialect.Profile) *genState {
	declared := sqlschema.Auto
	if g, ok := col.Annotations.Generated(); ok {
		declared = g.Strategy
	}
	strategy := Strategy(declared, p, col.Table().Partitioned())
	return &genState{
		profile:    p,
		strategy:   strategy,
		resolution: Initial(strategy, p),
		target:     r.target(col, strategy),
	}
}

// target computes the sequence or generator entry of col. Generator
// annotations may sit on the column or on its table.
func (r *Resolver) target(col *sqltype.Column, strategy sqlschema.GenerationType) Target {
	tbl := col.Table()
	schemaName := tbl.Schema
	routed := tbl.MultiSite() && !r.cfg.SingleSite
	site := func(catalog string) string {
		if !routed {
			return ""
		}
		return r.cfg.MapSite(catalog)
	}
	qualify := func(schemaName, name string) string {
		if schemaName == "" {
			return name
		}
		return r.cfg.MapSchema(schemaName) + "." + name
	}
	if strategy != sqlschema.TableGen {
		if sg, ok := annotation(col, sqlschema.Annotations.SequenceGenerator); ok && sg.Name != "" {
			if schemaName == "" {
				schemaName = sg.Schema
			}
			return Target{Routed: routed, Site: site(sg.Catalog), Name: qualify(schemaName, sg.Name)}
		}
	}
	if strategy != sqlschema.Sequence {
		if tg, ok := annotation(col, sqlschema.Annotations.TableGenerator); ok && tg.Table != "" {
			if tg.Schema == "" {
				tg.Schema = schemaName
			}
			if tg.Schema != "" {
				tg.Schema = r.cfg.MapSchema(tg.Schema)
			}
			tg = tg.WithDefaults(tbl.Name)
			return Target{Routed: routed, Site: site(tg.Catalog), Name: tg.PKValue, Generator: &tg}
		}
	}
	if schemaName != "" {
		schemaName = r.cfg.MapSchema(schemaName)
	}
	return Target{Routed: routed, Name: SequenceName(schemaName, tbl.Name)}
}

func annotation[T any](col *sqltype.Column, get func(sqlschema.Annotations) (T, bool)) (T, bool) {
	if v, ok := get(col.Annotations); ok {
		return v, true
	}
	return get(col.Table().Annotations)
}

// Resolve returns the settled resolution of col on p. A column in
// CheckIsIdentity is probed once; concurrent callers share the probe.
func (r *Resolver) Resolve(ctx context.Context, col *sqltype.Column, p dialect.Profile) (Resolution, error) {
	st, err := r.resolve(ctx, col, p)
	if err != nil {
		return 0, err
	}
	return st.resolution, nil
}

// Target returns the sequence target of col on p.
func (r *Resolver) Target(col *sqltype.Column, p dialect.Profile) Target {
	return r.bind(col, p).target
}

func (r *Resolver) resolve(ctx context.Context, col *sqltype.Column, p dialect.Profile) (*genState, error) {
	st := r.bind(col, p)
	if st.resolution != CheckIsIdentity {
		return st, nil
	}
	settled, err := r.settle(ctx, col, p)
	if err != nil {
		return nil, err
	}
	if settled.resolution == CheckIsIdentity {
		return nil, &geequery.ResolutionCycleError{Table: col.Table().Name, Column: col.Name}
	}
	return settled, nil
}

// settle probes the column default and commits the terminal resolution.
func (r *Resolver) settle(ctx context.Context, col *sqltype.Column, p dialect.Profile) (*genState, error) {
	key := fmt.Sprintf("%p/%s", col, p.Name())
	v, err, _ := r.group.Do(key, func() (any, error) {
		cell := r.cell(col)
		cur := cell.Load()
		if cur == nil || cur.profile != p {
			cur = r.bind(col, p)
		}
		if cur.resolution != CheckIsIdentity {
			return cur, nil
		}
		next := *cur
		next.resolution = Sequence
		if r.probe != nil {
			r.probes.Add(1)
			def, ok, err := r.probe.ColumnDefault(ctx, r.qualifiedTable(col.Table()), col.Name)
			if err != nil {
				return nil, fmt.Errorf("keygen: probe %s.%s: %w", col.Table().Name, col.Name, err)
			}
			if ok && schema.IsIdentityDefault(def) {
				next.resolution = IdentityDefault
			}
		}
		// A rebind to another profile while the default was read wins;
		// this caller still gets the resolution it read.
		if !cell.CompareAndSwap(cur, &next) {
			r.log.Debug("keygen: column rebound while reading default",
				"table", col.Table().Name, "column", col.Name, "profile", p.Name())
			return &next, nil
		}
		r.log.Debug("keygen: probed column default",
			"table", col.Table().Name, "column", col.Name,
			"profile", p.Name(), "resolution", next.resolution)
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*genState), nil
}

func (r *Resolver) qualifiedTable(t *sqltype.Table) string {
	if t.Schema == "" {
		return t.Name
	}
	return r.cfg.MapSchema(t.Schema) + "." + t.Name
}
