// Package sqlschema provides the mapping annotations that steer key
// generation and enum encoding.
//
// Annotations are attached to a table mapping (sqltype.Table) or a column
// mapping (sqltype.Column):
//
//	users := sqltype.NewTable("User",
//		sqlschema.Schema("app"),
//		sqlschema.SequenceGenerator{Name: "USER_SEQ"},
//	)
//	users.AddColumn("ID", "id", sqltype.Integer[int64](),
//		sqlschema.GeneratedValue(sqlschema.Identity),
//	)
package sqlschema

import (
	"fmt"
	"strings"
)

// Annotation is implemented by every mapping annotation.
type Annotation interface {
	// Kind returns the annotation kind. Only the last annotation of a
	// kind is kept by Merge.
	Kind() string
}

// GenerationType is the declared strategy for generated keys.
type GenerationType int

// Generation strategies.
const (
	Auto GenerationType = iota
	Identity
	Sequence
	TableGen
)

var generationNames = [...]string{
	Auto:     "AUTO",
	Identity: "IDENTITY",
	Sequence: "SEQUENCE",
	TableGen: "TABLE",
}

// String returns the strategy name.
func (g GenerationType) String() string {
	if g >= 0 && int(g) < len(generationNames) {
		return generationNames[g]
	}
	return fmt.Sprintf("GenerationType(%d)", int(g))
}

// ParseGenerationType parses a strategy name, case-insensitively.
func ParseGenerationType(s string) (GenerationType, error) {
	for i, name := range generationNames {
		if strings.EqualFold(s, name) {
			return GenerationType(i), nil
		}
	}
	return Auto, fmt.Errorf("sqlschema: unknown generation type %q", s)
}

// Generated declares how a key column gets its values.
type Generated struct {
	Strategy GenerationType
}

// Kind implements Annotation.
func (Generated) Kind() string { return "GeneratedValue" }

// GeneratedValue returns a Generated annotation for the strategy.
func GeneratedValue(strategy GenerationType) Generated {
	return Generated{Strategy: strategy}
}

// SequenceGenerator names the database sequence backing a key column.
type SequenceGenerator struct {
	Name    string
	Schema  string
	Catalog string
}

// Kind implements Annotation.
func (SequenceGenerator) Kind() string { return "SequenceGenerator" }

// QualifiedName returns [catalog.][schema.]name.
func (s SequenceGenerator) QualifiedName() string {
	return qualify(s.Catalog, s.Schema, s.Name)
}

// TableGenerator names the generator table backing a key column. Each row
// of the table holds the next value for one key, identified by PKValue.
type TableGenerator struct {
	Table       string
	Schema      string
	Catalog     string
	PKColumn    string
	ValueColumn string
	PKValue     string
}

// Kind implements Annotation.
func (TableGenerator) Kind() string { return "TableGenerator" }

// WithDefaults fills unset generator table columns.
func (t TableGenerator) WithDefaults(table string) TableGenerator {
	if t.Table == "" {
		t.Table = "GEEQUERY_SEQUENCES"
	}
	if t.PKColumn == "" {
		t.PKColumn = "SEQ_NAME"
	}
	if t.ValueColumn == "" {
		t.ValueColumn = "SEQ_VALUE"
	}
	if t.PKValue == "" {
		t.PKValue = strings.ToUpper(table)
	}
	return t
}

// QualifiedTable returns [catalog.][schema.]table.
func (t TableGenerator) QualifiedTable() string {
	return qualify(t.Catalog, t.Schema, t.Table)
}

// EnumType selects how enum values are stored.
type EnumType int

// Enum encodings.
const (
	EnumString EnumType = iota
	EnumOrdinal
)

// String returns STRING or ORDINAL.
func (e EnumType) String() string {
	if e == EnumOrdinal {
		return "ORDINAL"
	}
	return "STRING"
}

// EnumAnnotation declares the encoding of an enum column.
type EnumAnnotation struct {
	Type EnumType
}

// Kind implements Annotation.
func (EnumAnnotation) Kind() string { return "Enumerated" }

// Enumerated returns an EnumAnnotation.
func Enumerated(t EnumType) EnumAnnotation {
	return EnumAnnotation{Type: t}
}

// TableAnnotation overrides the table name derived from the type name.
type TableAnnotation struct {
	Table string
}

// Kind implements Annotation.
func (TableAnnotation) Kind() string { return "Table" }

// Table sets the database table name for a mapping.
func Table(name string) TableAnnotation {
	return TableAnnotation{Table: name}
}

// SchemaAnnotation sets the database schema of a mapping.
type SchemaAnnotation struct {
	Schema string
}

// Kind implements Annotation.
func (SchemaAnnotation) Kind() string { return "Schema" }

// Schema sets the database schema for a mapping.
func Schema(name string) SchemaAnnotation {
	return SchemaAnnotation{Schema: name}
}

// Annotations is a set of annotations keyed by kind.
type Annotations map[string]Annotation

// Merge returns the annotations keyed by Kind. Later entries win.
func Merge(as ...Annotation) Annotations {
	m := make(Annotations, len(as))
	for _, a := range as {
		if a != nil {
			m[a.Kind()] = a
		}
	}
	return m
}

// Generated returns the declared strategy, if any.
func (m Annotations) Generated() (Generated, bool) {
	g, ok := m["GeneratedValue"].(Generated)
	return g, ok
}

// SequenceGenerator returns the SequenceGenerator annotation, if any.
func (m Annotations) SequenceGenerator() (SequenceGenerator, bool) {
	s, ok := m["SequenceGenerator"].(SequenceGenerator)
	return s, ok
}

// TableGenerator returns the TableGenerator annotation, if any.
func (m Annotations) TableGenerator() (TableGenerator, bool) {
	t, ok := m["TableGenerator"].(TableGenerator)
	return t, ok
}

// Enumerated returns the enum encoding. STRING if not annotated.
func (m Annotations) Enumerated() EnumType {
	e, _ := m["Enumerated"].(EnumAnnotation)
	return e.Type
}

// Table returns the table name override, if any.
func (m Annotations) Table() string {
	t, _ := m["Table"].(TableAnnotation)
	return t.Table
}

// Schema returns the schema, if any.
func (m Annotations) Schema() string {
	s, _ := m["Schema"].(SchemaAnnotation)
	return s.Schema
}

func qualify(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

var (
	_ Annotation = Generated{}
	_ Annotation = SequenceGenerator{}
	_ Annotation = TableGenerator{}
	_ Annotation = EnumAnnotation{}
	_ Annotation = TableAnnotation{}
	_ Annotation = SchemaAnnotation{}
)
