package schema

import (
	"context"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect/sqltype"
)

// ValidationError represents a mismatch between a table mapping and the
// live table.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates that inserts through the mapping will fail.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of mapping validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if there are any breaking mismatches.
func (r *ValidationResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	write := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, e := range errs {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) errorf(table, column string, breaking bool, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: table, Column: column, Breaking: breaking, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(table, column string, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

// ValidateTable compares a table mapping with its live definition:
//
//   - every mapped column must exist in the table
//   - live NOT NULL columns without a default must be mapped
//   - a generated key column should be filled by the database or come from
//     a sequence, so a nullable key or a missing primary key is reported
//
// Example:
//
//	live, err := probe.InspectTable(ctx, "shop.orders")
//	result := schema.ValidateTable(orders, live)
//	if result.HasBreakingChanges() {
//	    log.Fatal(result)
//	}
func ValidateTable(mapped *sqltype.Table, live *atlas.Table) *ValidationResult {
	result := &ValidationResult{}
	name := mapped.Name
	seen := make(map[*atlas.Column]bool, len(live.Columns))
	for _, col := range mapped.Columns() {
		lc, ok := findColumn(live, col.Name)
		if !ok {
			result.errorf(name, col.Name, true, "column does not exist in table %s", live.Name)
			continue
		}
		seen[lc] = true
		if _, ok := col.Annotations.Generated(); !ok {
			continue
		}
		if lc.Type != nil && lc.Type.Null {
			result.warnf(name, col.Name, "generated key column is nullable")
		}
		if live.PrimaryKey == nil || !inIndex(live.PrimaryKey, lc) {
			result.warnf(name, col.Name, "generated key column is not part of the primary key")
		}
	}
	for _, lc := range live.Columns {
		if seen[lc] || lc.Default != nil || (lc.Type != nil && lc.Type.Null) {
			continue
		}
		if hasIdentity(lc) {
			continue
		}
		result.errorf(name, lc.Name, true, "NOT NULL column without default is not mapped")
	}
	if live.PrimaryKey == nil {
		result.warnf(name, "", "table has no primary key")
	}
	return result
}

// ValidateLive inspects every mapped table through the probe and
// validates it. Tables that do not exist are reported as errors.
func ValidateLive(ctx context.Context, probe *AtlasProbe, tables ...*sqltype.Table) (*ValidationResult, error) {
	result := &ValidationResult{}
	for _, t := range tables {
		name := t.Name
		if t.Schema != "" {
			name = t.Schema + "." + t.Name
		}
		live, err := probe.InspectTable(ctx, name)
		if err != nil {
			if geequery.IsNotFound(err) {
				result.errorf(name, "", true, "table does not exist")
				continue
			}
			return nil, err
		}
		r := ValidateTable(t, live)
		result.Errors = append(result.Errors, r.Errors...)
		result.Warnings = append(result.Warnings, r.Warnings...)
	}
	return result, nil
}

func inIndex(idx *atlas.Index, c *atlas.Column) bool {
	for _, p := range idx.Parts {
		if p.C == c {
			return true
		}
	}
	return false
}

func hasIdentity(c *atlas.Column) bool {
	for _, a := range c.Attrs {
		switch a.(type) {
		case *postgres.Identity, *mysql.AutoIncrement, *sqlite.AutoIncrement:
			return true
		}
	}
	return false
}
