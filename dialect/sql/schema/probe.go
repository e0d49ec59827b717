// Package schema reads live database metadata: column defaults used to
// settle key generation, and the table layout used to validate mappings.
package schema

import (
	"context"
	"strings"
)

// Probe reads the default-value definition of a column from the database
// catalog. ok is false when the column has no default. A missing column
// is a geequery.NotFoundError.
type Probe interface {
	ColumnDefault(ctx context.Context, table, column string) (def string, ok bool, err error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context, table, column string) (string, bool, error)

// ColumnDefault implements Probe.
func (f ProbeFunc) ColumnDefault(ctx context.Context, table, column string) (string, bool, error) {
	return f(ctx, table, column)
}

// IdentityDefault is reported for identity columns that have no default
// expression of their own.
const IdentityDefault = "GENERATED BY DEFAULT AS IDENTITY"

// IsIdentityDefault reports whether a column default makes the database
// fill the column: a sequence nextval call or an identity clause.
func IsIdentityDefault(def string) bool {
	def = strings.ToLower(def)
	return strings.Contains(def, "nextval") || strings.Contains(def, "as identity")
}

// SplitTable splits "schema.table" into its parts.
func SplitTable(name string) (schema, table string) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
