package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/profile"
)

// AtlasProbe reads column metadata with the atlas inspectors. It covers
// the dialects atlas ships drivers for: postgres, mysql and sqlite.
type AtlasProbe struct {
	name string
	db   atlas.ExecQuerier

	once sync.Once
	insp atlas.Inspector
	err  error
}

// NewAtlasProbe returns a probe for the dialect (or driver alias) name over
// db. The inspector is opened lazily on first use.
func NewAtlasProbe(name string, db atlas.ExecQuerier) (*AtlasProbe, error) {
	p, ok := profile.Lookup(name)
	if !ok {
		return nil, geequery.NewUnsupportedError(name, "atlas inspector")
	}
	switch p.Name() {
	case dialect.Postgres, dialect.MySQL, dialect.SQLite:
	default:
		return nil, geequery.NewUnsupportedError(p.Name(), "atlas inspector")
	}
	return &AtlasProbe{name: p.Name(), db: db}, nil
}

func (a *AtlasProbe) inspector() (atlas.Inspector, error) {
	a.once.Do(func() {
		switch a.name {
		case dialect.Postgres:
			a.insp, a.err = postgres.Open(a.db)
		case dialect.MySQL:
			a.insp, a.err = mysql.Open(a.db)
		case dialect.SQLite:
			a.insp, a.err = sqlite.Open(a.db)
		}
		if a.err != nil {
			a.err = fmt.Errorf("schema: open %s inspector: %w", a.name, a.err)
		}
	})
	return a.insp, a.err
}

// InspectTable returns the live definition of a possibly schema-qualified
// table.
func (a *AtlasProbe) InspectTable(ctx context.Context, name string) (*atlas.Table, error) {
	insp, err := a.inspector()
	if err != nil {
		return nil, err
	}
	schemaName, table := SplitTable(name)
	s, err := insp.InspectSchema(ctx, schemaName, &atlas.InspectOptions{Tables: []string{table}})
	if err != nil {
		if atlas.IsNotExistError(err) {
			return nil, geequery.NewNotFoundError("schema " + schemaName)
		}
		return nil, fmt.Errorf("schema: inspect %s: %w", name, err)
	}
	t, ok := s.Table(table)
	if !ok {
		return nil, geequery.NewNotFoundError("table " + name)
	}
	return t, nil
}

// ColumnDefault implements Probe. Identity columns without a default
// expression report IdentityDefault.
func (a *AtlasProbe) ColumnDefault(ctx context.Context, table, column string) (string, bool, error) {
	t, err := a.InspectTable(ctx, table)
	if err != nil {
		return "", false, err
	}
	c, ok := findColumn(t, column)
	if !ok {
		return "", false, geequery.NewNotFoundError(fmt.Sprintf("column %s.%s", table, column))
	}
	switch d := c.Default.(type) {
	case *atlas.RawExpr:
		return d.X, true, nil
	case *atlas.Literal:
		return d.V, true, nil
	}
	for _, attr := range c.Attrs {
		if _, ok := attr.(*postgres.Identity); ok {
			return IdentityDefault, true, nil
		}
	}
	return "", false, nil
}

func findColumn(t *atlas.Table, name string) (*atlas.Column, bool) {
	if c, ok := t.Column(name); ok {
		return c, true
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

var _ Probe = (*AtlasProbe)(nil)
