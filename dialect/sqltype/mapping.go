package sqltype

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync/atomic"
	"unicode"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sqlschema"

	"github.com/go-openapi/inflect"
)

// Binding is the dialect-specific form of a column. Bindings are immutable;
// a column swaps in a new one when it is used with another profile.
type Binding struct {
	Profile dialect.Profile
	Version uint64
	// Name is the column name as the profile writes it.
	Name string
}

// Column maps a struct field onto a table column.
type Column struct {
	Field       string // Go field name
	Name        string // Raw column name
	Codec       Codec
	Annotations sqlschema.Annotations

	table    *Table
	accessor *FieldAccessor
	binding  atomic.Pointer[Binding]
}

// Table returns the table the column belongs to.
func (c *Column) Table() *Table { return c.table }

// Accessor returns the field accessor of the column.
func (c *Column) Accessor() *FieldAccessor { return c.accessor }

// Bind returns the binding of the column for p, computing it if the cached
// binding belongs to another profile.
func (c *Column) Bind(p dialect.Profile) *Binding {
	for {
		old := c.binding.Load()
		if old != nil && old.Profile == p {
			return old
		}
		b := &Binding{Profile: p, Name: p.ColumnName(c.Name)}
		if old != nil {
			b.Version = old.Version + 1
		}
		if c.binding.CompareAndSwap(old, b) {
			return b
		}
	}
}

// Get reads the column value from obj.
func (c *Column) Get(obj any) (any, error) {
	return c.accessor.Get(obj)
}

// Set decodes cell and stores it into obj. index is the 1-based result
// column the cell came from.
func (c *Column) Set(obj any, index int, cell any) error {
	v, err := c.Codec.Decode(index, cell)
	if err != nil {
		return err
	}
	return c.accessor.Set(obj, v)
}

// PartitionKey is a field whose value routes rows to a table or database.
type PartitionKey struct {
	Field string
	// DBName reports whether the key selects the database (site) rather
	// than the table suffix.
	DBName bool
}

// Table maps a struct type onto a table.
type Table struct {
	Type          reflect.Type
	Name          string
	Schema        string
	PartitionKeys []PartitionKey
	Annotations   sqlschema.Annotations

	columns []*Column
	byField map[string]*Column
}

// NewTable returns the mapping for struct type T. The table name defaults
// to the pluralized snake case of the type name.
func NewTable[T any](as ...sqlschema.Annotation) *Table {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	ann := sqlschema.Merge(as...)
	t := &Table{
		Type:        typ,
		Name:        ann.Table(),
		Schema:      ann.Schema(),
		Annotations: ann,
		byField:     make(map[string]*Column),
	}
	if t.Name == "" {
		t.Name = TableName(typ.Name())
	}
	return t
}

// TableName derives a table name from a Go type name: "OrderItem" becomes
// "order_items".
func TableName(typeName string) string {
	return snake(rules.Pluralize(typeName))
}

var rules = inflect.NewDefaultRuleset()

// snake converts a Go identifier to snake case, keeping acronyms together:
// "UserIDs" becomes "user_ids".
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// AddColumn maps field onto the column name. An empty name defaults to the
// snake case of the field name.
func (t *Table) AddColumn(field, name string, codec Codec, as ...sqlschema.Annotation) (*Column, error) {
	acc, err := NewFieldAccessor(t.Type, field)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = snake(field)
	}
	c := &Column{
		Field:       field,
		Name:        name,
		Codec:       codec,
		Annotations: sqlschema.Merge(as...),
		table:       t,
		accessor:    acc,
	}
	t.columns = append(t.columns, c)
	t.byField[field] = c
	return c, nil
}

// MustAddColumn is like AddColumn but panics on error.
func (t *Table) MustAddColumn(field, name string, codec Codec, as ...sqlschema.Annotation) *Column {
	c, err := t.AddColumn(field, name, codec, as...)
	if err != nil {
		panic(err)
	}
	return c
}

// Columns returns the mapped columns in declaration order.
func (t *Table) Columns() []*Column { return t.columns }

// Column returns the column mapped from field.
func (t *Table) Column(field string) (*Column, bool) {
	c, ok := t.byField[field]
	return c, ok
}

// Partitioned reports whether rows are routed by partition keys.
func (t *Table) Partitioned() bool { return len(t.PartitionKeys) > 0 }

// MultiSite reports whether a partition key selects the database.
func (t *Table) MultiSite() bool {
	for _, pk := range t.PartitionKeys {
		if pk.DBName {
			return true
		}
	}
	return false
}

// Ref returns the table as a statement target.
func (t *Table) Ref() ast.Table {
	return ast.Table{Schema: t.Schema, Name: t.Name}
}

// FieldAccessor reads and writes one struct field by name.
type FieldAccessor struct {
	name  string
	index []int
	typ   reflect.Type
}

// NewFieldAccessor returns an accessor for the named field of struct type
// typ. Promoted fields of embedded structs are found too.
func NewFieldAccessor(typ reflect.Type, name string) (*FieldAccessor, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("sqltype: %s is not a struct type", typ)
	}
	f, ok := typ.FieldByName(name)
	if !ok {
		return nil, fmt.Errorf("sqltype: %s has no field %q", typ, name)
	}
	if !f.IsExported() {
		return nil, fmt.Errorf("sqltype: field %s.%s is not exported", typ, name)
	}
	return &FieldAccessor{name: name, index: f.Index, typ: f.Type}, nil
}

// Type returns the field type.
func (a *FieldAccessor) Type() reflect.Type { return a.typ }

func (a *FieldAccessor) field(obj any) (reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("sqltype: %T is not a non-nil struct pointer", obj)
	}
	fv, err := rv.Elem().FieldByIndexErr(a.index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("sqltype: field %s: %w", a.name, err)
	}
	return fv, nil
}

// Get returns the field value of obj, a pointer to the struct. Nil pointer
// fields read as nil.
func (a *FieldAccessor) Get(obj any) (any, error) {
	fv, err := a.field(obj)
	if err != nil {
		return nil, err
	}
	if fv.Kind() == reflect.Pointer && fv.IsNil() {
		return nil, nil
	}
	return fv.Interface(), nil
}

// Set stores v into the field of obj. Integers are narrowed to the field
// type when the value fits; nil zeroes the field.
func (a *FieldAccessor) Set(obj any, v any) error {
	fv, err := a.field(obj)
	if err != nil {
		return err
	}
	if v == nil {
		fv.SetZero()
		return nil
	}
	target := fv
	if fv.Kind() == reflect.Pointer {
		target = reflect.New(fv.Type().Elem()).Elem()
	}
	if err := assign(target, reflect.ValueOf(v), a.name); err != nil {
		return err
	}
	if fv.Kind() == reflect.Pointer {
		fv.Set(target.Addr())
	}
	return nil
}

func assign(dst, src reflect.Value, name string) error {
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	switch {
	case isInt(dst.Kind()) && isInt(src.Kind()):
		i := src.Int()
		if dst.OverflowInt(i) {
			return narrowError(name, dst.Type(), src)
		}
		dst.SetInt(i)
	case isInt(dst.Kind()) && isUint(src.Kind()):
		u := src.Uint()
		if u > math.MaxInt64 || dst.OverflowInt(int64(u)) {
			return narrowError(name, dst.Type(), src)
		}
		dst.SetInt(int64(u))
	case isUint(dst.Kind()) && isInt(src.Kind()):
		i := src.Int()
		if i < 0 || dst.OverflowUint(uint64(i)) {
			return narrowError(name, dst.Type(), src)
		}
		dst.SetUint(uint64(i))
	case isUint(dst.Kind()) && isUint(src.Kind()):
		u := src.Uint()
		if dst.OverflowUint(u) {
			return narrowError(name, dst.Type(), src)
		}
		dst.SetUint(u)
	case src.Type().ConvertibleTo(dst.Type()) && src.Kind() == dst.Kind():
		dst.Set(src.Convert(dst.Type()))
	default:
		return narrowError(name, dst.Type(), src)
	}
	return nil
}

func narrowError(name string, typ reflect.Type, src reflect.Value) error {
	e := geequery.NewTypeMismatchError(0, typ.String(), fmt.Sprintf("%s(%v)", src.Type(), src.Interface()))
	e.Column = name
	return e
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}
