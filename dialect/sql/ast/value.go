package ast

import (
	"math"
	"strconv"
	"strings"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"
)

// Kind is the kind of a literal value.
type Kind uint8

// Literal kinds.
const (
	KindNull Kind = iota
	KindInteger
	KindDouble
	KindString
	KindDate
)

var kindNames = [...]string{
	KindNull:    "null",
	KindInteger: "integer",
	KindDouble:  "double",
	KindString:  "string",
	KindDate:    "date",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Date layouts accepted by ParseDate, most specific first.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999999"
)

var dateLayouts = []string{
	timestampLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	dateLayout,
}

// Value is a literal. It keeps the parsed value together with the text it
// was built from so rendering reproduces the original spelling.
type Value struct {
	kind      Kind
	text      string
	i         int64
	f         float64
	t         time.Time
	timestamp bool
}

// Null returns the NULL literal.
func Null() *Value { return &Value{kind: KindNull, text: "NULL"} }

// Int returns an integer literal.
func Int(v int64) *Value {
	return &Value{kind: KindInteger, text: strconv.FormatInt(v, 10), i: v}
}

// Double returns a double literal. The text form always carries a decimal
// point or an exponent so it reparses as a double.
func Double(v float64) *Value {
	return &Value{kind: KindDouble, text: formatDouble(v), f: v}
}

// String returns a character literal.
func String(s string) *Value { return &Value{kind: KindString, text: s} }

// Date returns a date literal truncated to the day.
func Date(t time.Time) *Value {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return &Value{kind: KindDate, text: day.Format(dateLayout), t: day}
}

// Timestamp returns a date literal with a time part.
func Timestamp(t time.Time) *Value {
	return &Value{kind: KindDate, text: t.Format(timestampLayout), t: t, timestamp: true}
}

// ParseInteger parses an integer literal. A leading '+' is stripped.
func ParseInteger(s string) (*Value, error) {
	text := strings.TrimPrefix(strings.TrimSpace(s), "+")
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, geequery.NewFormatError(KindInteger.String(), s, err)
	}
	return &Value{kind: KindInteger, text: text, i: i}, nil
}

// ParseDouble parses a double literal. A leading '+' is stripped and the
// remaining text is kept as written. Non-finite values are rejected.
func ParseDouble(s string) (*Value, error) {
	text := strings.TrimPrefix(strings.TrimSpace(s), "+")
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, geequery.NewFormatError(KindDouble.String(), s, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, geequery.NewFormatError(KindDouble.String(), s, nil)
	}
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	return &Value{kind: KindDouble, text: text, f: f}, nil
}

// ParseDate parses "yyyy-mm-dd" or a timestamp with an optional fraction.
func ParseDate(s string) (*Value, error) {
	text := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		if layout == dateLayout {
			return Date(t), nil
		}
		return Timestamp(t), nil
	}
	return nil, geequery.NewFormatError(KindDate.String(), s, nil)
}

// ParseLiteral parses the text produced by Value.AppendTo back into a value.
func ParseLiteral(s string) (*Value, error) {
	text := strings.TrimSpace(s)
	upper := strings.ToUpper(text)
	switch {
	case text == "":
		return nil, geequery.NewFormatError("literal", s, nil)
	case upper == "NULL":
		return Null(), nil
	case strings.HasPrefix(upper, "DATE '"), strings.HasPrefix(upper, "TIMESTAMP '"):
		inner, ok := unquote(text[strings.IndexByte(text, '\''):])
		if !ok {
			return nil, geequery.NewFormatError(KindDate.String(), s, nil)
		}
		return ParseDate(inner)
	case text[0] == '\'':
		inner, ok := unquote(text)
		if !ok {
			return nil, geequery.NewFormatError(KindString.String(), s, nil)
		}
		return String(inner), nil
	case strings.ContainsAny(text, ".eE"):
		return ParseDouble(text)
	default:
		return ParseInteger(text)
	}
}

// unquote strips the surrounding quotes of a SQL string and folds doubled
// quotes.
func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", false
	}
	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\'' {
			if i+1 >= len(inner) || inner[i+1] != '\'' {
				return "", false
			}
			i++
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEN") { // N covers NaN and Inf
		s += ".0"
	}
	return s
}

// Kind returns the literal kind.
func (v *Value) Kind() Kind { return v.kind }

// Text returns the literal text as it was written, without quoting.
func (v *Value) Text() string { return v.text }

// IsNull reports whether v is the NULL literal.
func (v *Value) IsNull() bool { return v == nil || v.kind == KindNull }

// IsTimestamp reports whether a date literal carries a time part.
func (v *Value) IsTimestamp() bool { return v.timestamp }

// Int64 returns the integer value. Doubles are truncated.
func (v *Value) Int64() int64 {
	if v.kind == KindDouble {
		return int64(v.f)
	}
	return v.i
}

// Float64 returns the numeric value as a float.
func (v *Value) Float64() float64 {
	if v.kind == KindInteger {
		return float64(v.i)
	}
	return v.f
}

// Time returns the value of a date literal.
func (v *Value) Time() time.Time { return v.t }

// Any returns the Go value the literal stands for.
func (v *Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindDouble:
		return v.f
	case KindString:
		return v.text
	case KindDate:
		return v.t
	default:
		return nil
	}
}

// Equal reports whether two literals denote the same value.
func (v *Value) Equal(o *Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f
	case KindDate:
		return v.timestamp == o.timestamp && v.text == o.text
	default:
		return v.text == o.text
	}
}

// Negate returns the literal with its sign flipped. Non-numeric literals
// are returned unchanged.
func (v *Value) Negate() *Value {
	switch v.kind {
	case KindInteger:
		return Int(-v.i)
	case KindDouble:
		return Double(-v.f)
	}
	return v
}

// AppendTo implements Expr.
func (v *Value) AppendTo(b *strings.Builder) {
	switch v.kind {
	case KindString:
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(v.text, "'", "''"))
		b.WriteByte('\'')
	case KindDate:
		if v.timestamp {
			b.WriteString("TIMESTAMP '")
		} else {
			b.WriteString("DATE '")
		}
		b.WriteString(v.text)
		b.WriteByte('\'')
	case KindNull:
		b.WriteString("NULL")
	default:
		b.WriteString(v.text)
	}
}

// String returns the literal as SQL text.
func (v *Value) String() string { return Sprint(v) }

// Accept implements Expr.
func (v *Value) Accept(vis Visitor) error { return vis.VisitValue(v) }

func (*Value) expr() {}
