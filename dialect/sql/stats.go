package sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GeeQuery/geequery-orm/dialect"
)

// StatementKind groups rendered statements by what they do to the database.
type StatementKind int

const (
	OtherStatement StatementKind = iota
	SelectStatement
	InsertStatement
	UpdateStatement
	DeleteStatement
	// KeyFetchStatement covers sequence increments and identity lookups
	// issued to obtain generated keys.
	KeyFetchStatement
	DDLStatement
	numStatementKinds
)

var kindNames = [...]string{"other", "select", "insert", "update", "delete", "key_fetch", "ddl"}

func (k StatementKind) String() string {
	if k < 0 || k >= numStatementKinds {
		return "other"
	}
	return kindNames[k]
}

// ClassifyStatement reports the kind of a rendered statement. Key fetches
// are recognized in every dialect's spelling: nextval, NEXT VALUE FOR,
// seq.nextval and IDENTITY_VAL_LOCAL.
func ClassifyStatement(query string) StatementKind {
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)
	switch {
	case strings.Contains(upper, "IDENTITY_VAL_LOCAL"),
		strings.Contains(upper, "NEXT VALUE FOR"),
		strings.HasPrefix(upper, "SELECT") && strings.Contains(upper, "NEXTVAL"):
		return KeyFetchStatement
	}
	verb, _, _ := strings.Cut(upper, " ")
	switch verb {
	case "SELECT", "WITH", "VALUES":
		return SelectStatement
	case "INSERT":
		return InsertStatement
	case "UPDATE":
		return UpdateStatement
	case "DELETE":
		return DeleteStatement
	case "CREATE", "ALTER", "DROP", "TRUNCATE":
		return DDLStatement
	}
	return OtherStatement
}

// QueryStats holds counters for the statements sent through a StatsDriver.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
	byKind        [numStatementKinds]atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
		ByKind:        make(map[StatementKind]int64),
	}
	for k := range s.byKind {
		if n := s.byKind[k].Load(); n > 0 {
			snap.ByKind[StatementKind(k)] = n
		}
	}
	return snap
}

// Reset zeroes every counter.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
	for k := range s.byKind {
		s.byKind[k].Store(0)
	}
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
	ByKind        map[StatementKind]int64
}

// KeyFetches is the number of round trips spent obtaining generated keys
// outside the insert itself.
func (s StatsSnapshot) KeyFetches() int64 {
	return s.ByKind[KeyFetchStatement]
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "queries=%d execs=%d avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.AvgQueryDuration(), s.SlowQueries, s.Errors)
	for k := StatementKind(0); k < numStatementKinds; k++ {
		if n := s.ByKind[k]; n > 0 {
			fmt.Fprintf(&b, " %s=%d", k, n)
		}
	}
	return b.String()
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver counts the statements a Driver executes, grouped by kind, and
// reports the slow ones.
type StatsDriver struct {
	*Driver
	stats         *QueryStats
	mu            sync.RWMutex
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow statement threshold. Default is 100ms;
// zero disables slow reporting.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog reports slow statements at warn level on l, or on the
// default logger when l is nil. Arguments are counted, never logged.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		l.WarnContext(ctx, "slow statement",
			"kind", ClassifyStatement(query).String(),
			"duration", duration,
			"query", query,
			"args", len(args))
	})
}

// NewStatsDriver wraps drv. The probe command of geeq uses it to report how
// many catalog and key fetch round trips a resolution cost:
//
//	drv := sql.NewStatsDriver(sql.OpenDB("postgres", db), sql.WithSlowQueryLog(logger))
//	res, err := resolver.Resolve(ctx, col, drv.Profile())
//	fmt.Println(drv.QueryStats().Stats())
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold changes the threshold while the driver is in use, so a
// config reload can apply a new slow_query value.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, start, err, true)
	return err
}

func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, start, err, false)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error, isQuery bool) {
	elapsed := time.Since(start)
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.byKind[ClassifyStatement(query)].Add(1)
	d.stats.TotalDuration.Add(int64(elapsed))
	if err != nil {
		d.stats.Errors.Add(1)
	}

	d.mu.RLock()
	threshold, hook := d.slowThreshold, d.slowHook
	d.mu.RUnlock()
	if threshold <= 0 || elapsed <= threshold {
		return
	}
	d.stats.SlowQueries.Add(1)
	if hook != nil {
		list, _ := args.([]any)
		hook(ctx, query, list, elapsed)
	}
}

// Tx starts a transaction whose statements are counted too. The insert
// path relies on this for identity lookups on Derby and DB2.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, driver: d}, nil
}

type statsTx struct {
	dialect.Tx
	driver *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, true)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, false)
	return err
}

// DebugDriver logs every statement at debug level with its dialect and kind.
type DebugDriver struct {
	*Driver
	log *slog.Logger
}

// NewDebugDriver wraps drv, logging to l or to the default logger when l is
// nil.
func NewDebugDriver(drv *Driver, l *slog.Logger) *DebugDriver {
	if l == nil {
		l = slog.Default()
	}
	return &DebugDriver{Driver: drv, log: l.With("dialect", drv.Dialect())}
}

func logStatement(ctx context.Context, l *slog.Logger, op, query string, args any) {
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.DebugContext(ctx, op, "kind", ClassifyStatement(query).String(), "query", query, "args", args)
}

func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.log, "query", query, args)
	return d.Driver.Query(ctx, query, args, v)
}

func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.log, "exec", query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.log.DebugContext(ctx, "begin")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, log: d.log.With("tx", true)}, nil
}

type debugTx struct {
	dialect.Tx
	log *slog.Logger
}

func (tx *debugTx) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.log, "query", query, args)
	return tx.Tx.Query(ctx, query, args, v)
}

func (tx *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.log, "exec", query, args)
	return tx.Tx.Exec(ctx, query, args, v)
}

func (tx *debugTx) Commit() error {
	tx.log.Debug("commit")
	return tx.Tx.Commit()
}

func (tx *debugTx) Rollback() error {
	tx.log.Debug("rollback")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)
