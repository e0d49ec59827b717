package cli

import (
	stdsql "database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/profile"
	"github.com/GeeQuery/geequery-orm/dialect/sql"
	"github.com/GeeQuery/geequery-orm/dialect/sql/keygen"
	"github.com/GeeQuery/geequery-orm/dialect/sql/schema"
	"github.com/GeeQuery/geequery-orm/dialect/sqlschema"
	"github.com/GeeQuery/geequery-orm/dialect/sqltype"

	"github.com/go-sql-driver/mysql"
	"github.com/jedib0t/go-pretty/v6/table"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func unknownDialect(name string) error {
	return geequery.NewUnsupportedError(name, "dialect")
}

// probeRow carries the probed key column.
type probeRow struct {
	ID int64
}

// driverSource maps a connection URL to a database/sql driver name and the
// DSN that driver understands.
func driverSource(raw string) (string, string, error) {
	info, err := profile.ParseURL(raw)
	if err != nil {
		return "", "", err
	}
	switch info.Profile {
	case dialect.Postgres:
		lower := strings.ToLower(raw)
		if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || strings.Contains(lower, "host=") {
			return "postgres", raw, nil
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(info.Host, strconv.Itoa(info.Port)),
			Path:   "/" + info.Database,
		}
		if info.User != "" {
			u.User = url.UserPassword(info.User, info.Password)
		}
		q := url.Values{}
		for k, v := range info.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return "postgres", u.String(), nil
	case dialect.MySQL:
		cfg := mysql.NewConfig()
		cfg.User, cfg.Passwd, cfg.DBName = info.User, info.Password, info.Database
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(info.Host, strconv.Itoa(info.Port))
		return "mysql", cfg.FormatDSN(), nil
	case dialect.SQLite:
		return "sqlite", info.Database, nil
	}
	return "", "", fmt.Errorf("geeq: no Go driver for dialect %s", info.Profile)
}

type probeOptions struct {
	table    string
	column   string
	strategy string
	atlas    bool
	validate bool
}

func newProbeCmd() *cobra.Command {
	var opts probeOptions
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Resolve the key generation of a column against a live database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.table, "table", "", "table name, optionally schema qualified")
	cmd.Flags().StringVar(&opts.column, "column", "id", "key column")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "auto", "declared strategy (auto|identity|sequence|table)")
	cmd.Flags().BoolVar(&opts.atlas, "atlas", false, "inspect the table with atlas instead of the catalog query")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "with --atlas, check the column mapping against the live table")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func runProbe(cmd *cobra.Command, opts probeOptions) error {
	a := fromContext(cmd.Context())
	if a.cfg.DSN == "" {
		return errors.New("geeq: --dsn is required")
	}
	if opts.validate && !opts.atlas {
		return errors.New("geeq: --validate needs --atlas")
	}
	declared, err := sqlschema.ParseGenerationType(opts.strategy)
	if err != nil {
		return err
	}
	name, dsn, err := driverSource(a.cfg.DSN)
	if err != nil {
		return err
	}
	db, err := stdsql.Open(name, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	drv := sql.NewStatsDriver(sql.OpenDB(name, db),
		sql.WithSlowThreshold(a.cfg.SlowQuery), sql.WithSlowQueryLog(a.log))

	var (
		probe schema.Probe
		ap    *schema.AtlasProbe
	)
	if opts.atlas {
		ap, err = schema.NewAtlasProbe(drv.Dialect(), db)
		probe = ap
	} else {
		probe, err = schema.NewInformationSchemaProbe(drv, drv.Profile())
	}
	if err != nil {
		return err
	}

	sch, tbl := schema.SplitTable(opts.table)
	mapping := sqltype.NewTable[probeRow](sqlschema.Table(tbl), sqlschema.Schema(sch))
	col, err := mapping.AddColumn("ID", opts.column, sqltype.Integer[int64](), sqlschema.GeneratedValue(declared))
	if err != nil {
		return err
	}

	r := keygen.NewResolver(a.cfg.Keygen(),
		keygen.WithProbe(probe),
		keygen.WithLogger(a.log),
		keygen.WithSequences(keygen.NewSequences(drv)))
	ctx := cmd.Context()
	res, err := r.Resolve(ctx, col, drv.Profile())
	if err != nil {
		return err
	}
	def, ok, err := probe.ColumnDefault(ctx, opts.table, opts.column)
	if err != nil && !geequery.IsNotFound(err) {
		return err
	}
	if !ok {
		def = "(none)"
	}

	strategy := keygen.Strategy(declared, drv.Profile(), mapping.Partitioned())
	target := r.Target(col, drv.Profile())
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"dialect", drv.Dialect()},
		{"column", opts.table + "." + opts.column},
		{"declared", declared},
		{"strategy", strategy},
		{"default", def},
		{"resolution", res},
		{"target", target.Name},
	})
	t.Render()
	if opts.validate {
		result, err := schema.ValidateLive(ctx, ap, mapping)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
	}
	a.log.Debug("probe finished", "stats", drv.QueryStats().Stats().String())
	return nil
}
