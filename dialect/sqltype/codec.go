// Package sqltype maps Go values to database columns and back.
//
// A Codec converts between a Go value and the driver value bound to a
// statement parameter, decodes result cells and renders inline literals.
// Column and Table describe the mapping of a Go struct onto a table.
package sqltype

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sqlschema"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SQLType is the database type a codec binds, used for typed NULLs.
type SQLType int

// Database types.
const (
	TypeVarchar SQLType = iota + 1
	TypeChar
	TypeInteger
	TypeBigint
	TypeDecimal
	TypeBinary
	TypeDate
	TypeTimestamp
)

var typeNames = map[SQLType]string{
	TypeVarchar:   "VARCHAR",
	TypeChar:      "CHAR",
	TypeInteger:   "INTEGER",
	TypeBigint:    "BIGINT",
	TypeDecimal:   "DECIMAL",
	TypeBinary:    "BINARY",
	TypeDate:      "DATE",
	TypeTimestamp: "TIMESTAMP",
}

func (t SQLType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "SQLType(" + strconv.Itoa(int(t)) + ")"
}

// Codec converts values of one Go type.
type Codec interface {
	// SQLType returns the database type the codec binds.
	SQLType() SQLType
	// Encode converts v to a driver value. A nil v encodes as NULL.
	Encode(v any) (SQLType, driver.Value, error)
	// Decode converts the cell of the 1-based result column index.
	// NULL decodes as nil.
	Decode(index int, cell any) (any, error)
	// Literal renders v as an inline SQL literal.
	Literal(v any) (ast.Expr, error)
}

// formatError reports malformed text in a result cell.
func formatError(index int, kind, input string, err error) error {
	return fmt.Errorf("sqltype: column %d: %w", index, geequery.NewFormatError(kind, input, err))
}

func mismatch(index int, expected string, actual any) error {
	return geequery.NewTypeMismatchError(index, expected, fmt.Sprintf("%T(%v)", actual, actual))
}

// text returns the textual content of a cell. ok is false for non-text cells.
func text(cell any) (string, bool) {
	switch c := cell.(type) {
	case string:
		return c, true
	case []byte:
		return string(c), true
	}
	return "", false
}

// deref unwraps a typed pointer. A nil pointer yields nil.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	if rv.IsNil() {
		return nil
	}
	return rv.Elem().Interface()
}

// EnumCodec stores an int-backed enum as text: either the constant name or
// its ordinal.
type EnumCodec[E ~int] struct {
	names   []string
	ordinal bool
}

// VarcharEnum returns a codec for the enum whose constants are named by
// names, in ordinal order.
func VarcharEnum[E ~int](enc sqlschema.EnumType, names ...string) *EnumCodec[E] {
	return &EnumCodec[E]{names: names, ordinal: enc == sqlschema.EnumOrdinal}
}

// SQLType implements Codec.
func (*EnumCodec[E]) SQLType() SQLType { return TypeVarchar }

func (c *EnumCodec[E]) text(index int, v any) (string, bool, error) {
	switch e := deref(v).(type) {
	case nil:
		return "", false, nil
	case E:
		if int(e) < 0 || int(e) >= len(c.names) {
			return "", false, mismatch(index, fmt.Sprintf("%T", e), int(e))
		}
		if c.ordinal {
			return strconv.Itoa(int(e)), true, nil
		}
		return c.names[e], true, nil
	default:
		var zero E
		return "", false, mismatch(index, fmt.Sprintf("%T", zero), v)
	}
}

// Encode implements Codec.
func (c *EnumCodec[E]) Encode(v any) (SQLType, driver.Value, error) {
	s, ok, err := c.text(0, v)
	if err != nil || !ok {
		return TypeVarchar, nil, err
	}
	return TypeVarchar, s, nil
}

// Decode implements Codec. Empty text decodes as nil.
func (c *EnumCodec[E]) Decode(index int, cell any) (any, error) {
	if cell == nil {
		return nil, nil
	}
	s, ok := text(cell)
	if !ok {
		if n, isInt := cell.(int64); isInt && c.ordinal {
			s = strconv.FormatInt(n, 10)
		} else {
			return nil, mismatch(index, "enum text", cell)
		}
	}
	if s == "" {
		return nil, nil
	}
	if c.ordinal {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, formatError(index, "ordinal", s, err)
		}
		if n < 0 || n >= len(c.names) {
			return nil, geequery.NewTypeMismatchError(index, fmt.Sprintf("ordinal in [0,%d)", len(c.names)), s)
		}
		return E(n), nil
	}
	for i, name := range c.names {
		if name == s {
			return E(i), nil
		}
	}
	return nil, geequery.NewTypeMismatchError(index, "one of "+strings.Join(c.names, "|"), s)
}

// Literal implements Codec.
func (c *EnumCodec[E]) Literal(v any) (ast.Expr, error) {
	s, ok, err := c.text(0, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ast.Null(), nil
	}
	return ast.String(s), nil
}

// IntText stores an int as text.
type IntText struct{}

// VarcharInt returns the int-as-text codec.
func VarcharInt() IntText { return IntText{} }

// SQLType implements Codec.
func (IntText) SQLType() SQLType { return TypeVarchar }

func (IntText) text(v any) (string, bool, error) {
	switch n := deref(v).(type) {
	case nil:
		return "", false, nil
	case int:
		return strconv.Itoa(n), true, nil
	case int32:
		return strconv.FormatInt(int64(n), 10), true, nil
	case int64:
		return strconv.FormatInt(n, 10), true, nil
	default:
		return "", false, mismatch(0, "int", v)
	}
}

// Encode implements Codec.
func (c IntText) Encode(v any) (SQLType, driver.Value, error) {
	s, ok, err := c.text(v)
	if err != nil || !ok {
		return TypeVarchar, nil, err
	}
	return TypeVarchar, s, nil
}

// Decode implements Codec. Empty text decodes as nil.
func (IntText) Decode(index int, cell any) (any, error) {
	if cell == nil {
		return nil, nil
	}
	if n, ok := cell.(int64); ok {
		return int(n), nil
	}
	s, ok := text(cell)
	if !ok {
		return nil, mismatch(index, "int text", cell)
	}
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, formatError(index, "integer", s, err)
	}
	return n, nil
}

// Literal implements Codec.
func (c IntText) Literal(v any) (ast.Expr, error) {
	s, ok, err := c.text(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ast.Null(), nil
	}
	return ast.String(s), nil
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// IntegerCodec maps any integer type onto INTEGER or BIGINT columns.
type IntegerCodec[T integer] struct{}

// Integer returns the codec for T.
func Integer[T integer]() IntegerCodec[T] { return IntegerCodec[T]{} }

func (IntegerCodec[T]) name() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// SQLType implements Codec.
func (IntegerCodec[T]) SQLType() SQLType {
	if reflect.TypeFor[T]().Size() > 4 {
		return TypeBigint
	}
	return TypeInteger
}

func (c IntegerCodec[T]) value(index int, v any) (int64, bool, error) {
	switch n := deref(v).(type) {
	case nil:
		return 0, false, nil
	case T:
		if n > 0 && uint64(n) > math.MaxInt64 {
			return 0, false, geequery.NewTypeMismatchError(index, "int64", fmt.Sprint(n))
		}
		return int64(n), true, nil
	default:
		return 0, false, mismatch(index, c.name(), v)
	}
}

// Encode implements Codec.
func (c IntegerCodec[T]) Encode(v any) (SQLType, driver.Value, error) {
	n, ok, err := c.value(0, v)
	if err != nil || !ok {
		return c.SQLType(), nil, err
	}
	return c.SQLType(), n, nil
}

func (c IntegerCodec[T]) fromInt64(index int, i int64) (any, error) {
	t := T(i)
	if int64(t) != i || (t < 0) != (i < 0) {
		return nil, geequery.NewTypeMismatchError(index, c.name(), strconv.FormatInt(i, 10)+" out of range")
	}
	return t, nil
}

func (c IntegerCodec[T]) fromUint64(index int, u uint64) (any, error) {
	t := T(u)
	if t < 0 || uint64(t) != u {
		return nil, geequery.NewTypeMismatchError(index, c.name(), strconv.FormatUint(u, 10)+" out of range")
	}
	return t, nil
}

func (c IntegerCodec[T]) fromFloat(index int, f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxUint64 {
		return nil, mismatch(index, c.name(), f)
	}
	if f >= math.MaxInt64 {
		return c.fromUint64(index, uint64(f))
	}
	return c.fromInt64(index, int64(f))
}

func (c IntegerCodec[T]) fromDecimal(index int, d decimal.Decimal) (any, error) {
	if !d.IsInteger() {
		return nil, geequery.NewTypeMismatchError(index, c.name(), d.String())
	}
	b := d.BigInt()
	switch {
	case b.IsInt64():
		return c.fromInt64(index, b.Int64())
	case b.IsUint64():
		return c.fromUint64(index, b.Uint64())
	}
	return nil, geequery.NewTypeMismatchError(index, c.name(), d.String()+" out of range")
}

// Decode implements Codec. It accepts every integer type, integral floats,
// numeric text and decimals.
func (c IntegerCodec[T]) Decode(index int, cell any) (any, error) {
	switch n := cell.(type) {
	case nil:
		return nil, nil
	case T:
		return n, nil
	case int64:
		return c.fromInt64(index, n)
	case int:
		return c.fromInt64(index, int64(n))
	case int32:
		return c.fromInt64(index, int64(n))
	case int16:
		return c.fromInt64(index, int64(n))
	case int8:
		return c.fromInt64(index, int64(n))
	case uint64:
		return c.fromUint64(index, n)
	case uint:
		return c.fromUint64(index, uint64(n))
	case uint32:
		return c.fromUint64(index, uint64(n))
	case uint16:
		return c.fromUint64(index, uint64(n))
	case uint8:
		return c.fromUint64(index, uint64(n))
	case float64:
		return c.fromFloat(index, n)
	case float32:
		return c.fromFloat(index, float64(n))
	case decimal.Decimal:
		return c.fromDecimal(index, n)
	}
	s, ok := text(cell)
	if !ok {
		return nil, mismatch(index, c.name(), cell)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return c.fromInt64(index, i)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, formatError(index, "integer", s, err)
	}
	return c.fromDecimal(index, d)
}

// Literal implements Codec.
func (c IntegerCodec[T]) Literal(v any) (ast.Expr, error) {
	n, ok, err := c.value(0, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ast.Null(), nil
	}
	return ast.Int(n), nil
}

// DecimalCodec maps decimal.Decimal onto DECIMAL columns. Values travel as
// text so no precision is lost in the driver.
type DecimalCodec struct{}

// Decimal returns the decimal codec.
func Decimal() DecimalCodec { return DecimalCodec{} }

// SQLType implements Codec.
func (DecimalCodec) SQLType() SQLType { return TypeDecimal }

func (DecimalCodec) value(v any) (decimal.Decimal, bool, error) {
	switch d := deref(v).(type) {
	case nil:
		return decimal.Decimal{}, false, nil
	case decimal.Decimal:
		return d, true, nil
	case decimal.NullDecimal:
		return d.Decimal, d.Valid, nil
	default:
		return decimal.Decimal{}, false, mismatch(0, "decimal.Decimal", v)
	}
}

// Encode implements Codec.
func (c DecimalCodec) Encode(v any) (SQLType, driver.Value, error) {
	d, ok, err := c.value(v)
	if err != nil || !ok {
		return TypeDecimal, nil, err
	}
	return TypeDecimal, d.String(), nil
}

// Decode implements Codec.
func (DecimalCodec) Decode(index int, cell any) (any, error) {
	switch n := cell.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return n, nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	}
	s, ok := text(cell)
	if !ok {
		return nil, mismatch(index, "decimal.Decimal", cell)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, formatError(index, "decimal", s, err)
	}
	return d, nil
}

// Literal implements Codec.
func (c DecimalCodec) Literal(v any) (ast.Expr, error) {
	d, ok, err := c.value(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ast.Null(), nil
	}
	if d.IsInteger() {
		return ast.ParseInteger(d.String())
	}
	return ast.ParseDouble(d.String())
}

// UUIDCodec maps uuid.UUID onto CHAR(36) or BINARY(16) columns.
type UUIDCodec struct {
	Binary bool
}

// UUID returns the uuid codec.
func UUID(binary bool) UUIDCodec { return UUIDCodec{Binary: binary} }

// SQLType implements Codec.
func (c UUIDCodec) SQLType() SQLType {
	if c.Binary {
		return TypeBinary
	}
	return TypeChar
}

func (UUIDCodec) value(v any) (uuid.UUID, bool, error) {
	switch u := deref(v).(type) {
	case nil:
		return uuid.Nil, false, nil
	case uuid.UUID:
		return u, true, nil
	case uuid.NullUUID:
		return u.UUID, u.Valid, nil
	default:
		return uuid.Nil, false, mismatch(0, "uuid.UUID", v)
	}
}

// Encode implements Codec.
func (c UUIDCodec) Encode(v any) (SQLType, driver.Value, error) {
	u, ok, err := c.value(v)
	if err != nil || !ok {
		return c.SQLType(), nil, err
	}
	if c.Binary {
		return TypeBinary, u[:], nil
	}
	return TypeChar, u.String(), nil
}

// Decode implements Codec.
func (UUIDCodec) Decode(index int, cell any) (any, error) {
	switch c := cell.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(c) == 16 {
			return uuid.FromBytes(c)
		}
		u, err := uuid.ParseBytes(c)
		if err != nil {
			return nil, formatError(index, "uuid", string(c), err)
		}
		return u, nil
	case string:
		u, err := uuid.Parse(c)
		if err != nil {
			return nil, formatError(index, "uuid", c, err)
		}
		return u, nil
	}
	return nil, mismatch(index, "uuid.UUID", cell)
}

// Literal implements Codec.
func (c UUIDCodec) Literal(v any) (ast.Expr, error) {
	u, ok, err := c.value(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ast.Null(), nil
	}
	if c.Binary {
		return ast.Keyword(fmt.Sprintf("X'%X'", u[:])), nil
	}
	return ast.String(u.String()), nil
}

// StringCodec maps strings onto VARCHAR columns.
type StringCodec struct{}

// String returns the string codec.
func String() StringCodec { return StringCodec{} }

// SQLType implements Codec.
func (StringCodec) SQLType() SQLType { return TypeVarchar }

// Encode implements Codec.
func (StringCodec) Encode(v any) (SQLType, driver.Value, error) {
	switch s := deref(v).(type) {
	case nil:
		return TypeVarchar, nil, nil
	case string:
		return TypeVarchar, s, nil
	default:
		return TypeVarchar, nil, mismatch(0, "string", v)
	}
}

// Decode implements Codec.
func (StringCodec) Decode(index int, cell any) (any, error) {
	if cell == nil {
		return nil, nil
	}
	if s, ok := text(cell); ok {
		return s, nil
	}
	return nil, mismatch(index, "string", cell)
}

// Literal implements Codec.
func (c StringCodec) Literal(v any) (ast.Expr, error) {
	_, dv, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	if dv == nil {
		return ast.Null(), nil
	}
	return ast.String(dv.(string)), nil
}

// TimeCodec maps time.Time onto DATE or TIMESTAMP columns.
type TimeCodec struct {
	WithTime bool
}

// Time returns a DATE codec, or a TIMESTAMP codec if withTime is set.
func Time(withTime bool) TimeCodec { return TimeCodec{WithTime: withTime} }

// SQLType implements Codec.
func (c TimeCodec) SQLType() SQLType {
	if c.WithTime {
		return TypeTimestamp
	}
	return TypeDate
}

// Encode implements Codec.
func (c TimeCodec) Encode(v any) (SQLType, driver.Value, error) {
	switch t := deref(v).(type) {
	case nil:
		return c.SQLType(), nil, nil
	case time.Time:
		return c.SQLType(), t, nil
	default:
		return c.SQLType(), nil, mismatch(0, "time.Time", v)
	}
}

// Decode implements Codec. Text cells are parsed as date literals.
func (TimeCodec) Decode(index int, cell any) (any, error) {
	switch t := cell.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t, nil
	}
	s, ok := text(cell)
	if !ok {
		return nil, mismatch(index, "time.Time", cell)
	}
	v, err := ast.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("sqltype: column %d: %w", index, err)
	}
	return v.Time(), nil
}

// Literal implements Codec.
func (c TimeCodec) Literal(v any) (ast.Expr, error) {
	_, dv, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	if dv == nil {
		return ast.Null(), nil
	}
	if c.WithTime {
		return ast.Timestamp(dv.(time.Time)), nil
	}
	return ast.Date(dv.(time.Time)), nil
}

var (
	_ Codec = (*EnumCodec[int])(nil)
	_ Codec = IntText{}
	_ Codec = IntegerCodec[int64]{}
	_ Codec = DecimalCodec{}
	_ Codec = UUIDCodec{}
	_ Codec = StringCodec{}
	_ Codec = TimeCodec{}
)
