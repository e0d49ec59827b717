package ast

import (
	"strconv"
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"
)

// Template is a format string whose placeholders are replaced by the
// rendered arguments. "%s" takes the next argument, "%n$s" takes the n-th
// (1-based) and "%%" is a literal percent sign. Nil arguments render as NULL.
type Template struct {
	Format string
	Args   []Expr
}

// Tmpl returns a template node.
func Tmpl(format string, args ...Expr) *Template {
	return &Template{Format: format, Args: args}
}

// Segment is one piece of a parsed template: either literal text or a
// reference to an argument.
type Segment struct {
	Text string
	Arg  int // 0-based argument index, -1 for literal text
}

// Segments splits the format into literal text and argument references.
func (t *Template) Segments() ([]Segment, error) {
	var (
		segs []Segment
		lit  strings.Builder
		next int
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Text: lit.String(), Arg: -1})
			lit.Reset()
		}
	}
	f := t.Format
	for i := 0; i < len(f); i++ {
		if f[i] != '%' {
			lit.WriteByte(f[i])
			continue
		}
		if i+1 >= len(f) {
			return nil, t.formatError()
		}
		switch c := f[i+1]; {
		case c == '%':
			lit.WriteByte('%')
			i++
		case c == 's':
			flush()
			segs = append(segs, Segment{Arg: next})
			next++
			i++
		case c >= '1' && c <= '9':
			j := i + 1
			for j < len(f) && f[j] >= '0' && f[j] <= '9' {
				j++
			}
			if j+1 >= len(f) || f[j] != '$' || f[j+1] != 's' {
				return nil, t.formatError()
			}
			n, _ := strconv.Atoi(f[i+1 : j])
			flush()
			segs = append(segs, Segment{Arg: n - 1})
			i = j + 1
		default:
			return nil, t.formatError()
		}
	}
	flush()
	for _, s := range segs {
		if s.Arg >= len(t.Args) {
			return nil, t.formatError()
		}
	}
	return segs, nil
}

func (t *Template) formatError() error {
	return geequery.NewFormatError("template", t.Format, nil)
}

// AppendTo implements Expr. A malformed format is written as is.
func (t *Template) AppendTo(b *strings.Builder) {
	segs, err := t.Segments()
	if err != nil {
		b.WriteString(t.Format)
		return
	}
	for _, s := range segs {
		switch {
		case s.Arg < 0:
			b.WriteString(s.Text)
		case t.Args[s.Arg] == nil:
			b.WriteString("NULL")
		default:
			t.Args[s.Arg].AppendTo(b)
		}
	}
}

// Accept implements Expr.
func (t *Template) Accept(v Visitor) error { return v.VisitTemplate(t) }

func (*Template) expr() {}
