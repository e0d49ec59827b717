package sqltype

import (
	"testing"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sqlschema"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type color int

const (
	red color = iota
	green
	blue
)

var colorNames = []string{"RED", "GREEN", "BLUE"}

func TestEnumByName(t *testing.T) {
	c := VarcharEnum[color](sqlschema.EnumString, colorNames...)
	typ, v, err := c.Encode(green)
	require.NoError(t, err)
	assert.Equal(t, TypeVarchar, typ)
	assert.Equal(t, "GREEN", v)

	got, err := c.Decode(1, []byte("BLUE"))
	require.NoError(t, err)
	assert.Equal(t, blue, got)

	got, err = c.Decode(1, "")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = c.Decode(4, "PURPLE")
	var te *geequery.TypeMismatchError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 4, te.Index)

	lit, err := c.Literal(red)
	require.NoError(t, err)
	assert.Equal(t, "'RED'", ast.Sprint(lit))
}

func TestEnumByOrdinal(t *testing.T) {
	c := VarcharEnum[color](sqlschema.EnumOrdinal, colorNames...)
	_, v, err := c.Encode(blue)
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	got, err := c.Decode(1, "1")
	require.NoError(t, err)
	assert.Equal(t, green, got)

	_, err = c.Decode(3, "7")
	var te *geequery.TypeMismatchError
	require.ErrorAs(t, err, &te, "ordinals are bounds checked")
	assert.Equal(t, 3, te.Index)

	_, err = c.Decode(2, "x")
	assert.True(t, geequery.IsFormatError(err))
	assert.Contains(t, err.Error(), "column 2")

	_, _, err = c.Encode(color(9))
	assert.True(t, geequery.IsTypeMismatch(err))

	var nilColor *color
	_, v, err = c.Encode(nilColor)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestVarcharInt(t *testing.T) {
	c := VarcharInt()
	_, v, err := c.Encode(42)
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	for _, cell := range []any{nil, "", []byte{}} {
		got, err := c.Decode(1, cell)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	got, err := c.Decode(1, "-17")
	require.NoError(t, err)
	assert.Equal(t, -17, got)

	_, err = c.Decode(5, "12a")
	assert.True(t, geequery.IsFormatError(err))
	assert.Contains(t, err.Error(), "column 5")

	lit, err := c.Literal(7)
	require.NoError(t, err)
	assert.Equal(t, "'7'", ast.Sprint(lit))
}

func TestIntegerDecode(t *testing.T) {
	c := Integer[int32]()
	assert.Equal(t, TypeInteger, c.SQLType())
	assert.Equal(t, TypeBigint, Integer[uint64]().SQLType())

	for _, cell := range []any{int64(7), int8(7), uint16(7), float64(7), []byte("7"), "7.0", decimal.NewFromInt(7), int32(7)} {
		got, err := c.Decode(1, cell)
		require.NoError(t, err, "%T", cell)
		assert.Equal(t, int32(7), got, "%T", cell)
	}

	tests := []struct {
		cell   any
		format bool
	}{
		{int64(1) << 40, false},
		{uint64(1) << 63, false},
		{float64(1.5), false},
		{decimal.RequireFromString("2.25"), false},
		{true, false},
		{"seven", true},
	}
	for _, tt := range tests {
		_, err := c.Decode(6, tt.cell)
		require.Error(t, err, "%T(%v)", tt.cell, tt.cell)
		if tt.format {
			assert.True(t, geequery.IsFormatError(err))
			continue
		}
		var te *geequery.TypeMismatchError
		require.ErrorAs(t, err, &te, "%T(%v)", tt.cell, tt.cell)
		assert.Equal(t, 6, te.Index)
	}

	_, err := Integer[uint8]().Decode(1, int64(-1))
	assert.True(t, geequery.IsTypeMismatch(err))
	got, err := Integer[uint64]().Decode(1, "18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), got)
}

func TestIntegerEncode(t *testing.T) {
	c := Integer[uint64]()
	_, v, err := c.Encode(uint64(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)

	_, _, err = c.Encode(uint64(1) << 63)
	assert.True(t, geequery.IsTypeMismatch(err))
	_, _, err = c.Encode("10")
	assert.True(t, geequery.IsTypeMismatch(err))

	lit, err := Integer[int]().Literal(-3)
	require.NoError(t, err)
	assert.Equal(t, "-3", ast.Sprint(lit))
}

func TestDecimal(t *testing.T) {
	c := Decimal()
	d := decimal.RequireFromString("12.340")
	_, v, err := c.Encode(d)
	require.NoError(t, err)
	assert.Equal(t, "12.34", v)

	got, err := c.Decode(1, []byte("0.1"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.1").Equal(got.(decimal.Decimal)))

	_, err = c.Decode(1, "abc")
	assert.True(t, geequery.IsFormatError(err))

	lit, err := c.Literal(decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "5", ast.Sprint(lit))
	lit, err = c.Literal(d)
	require.NoError(t, err)
	assert.Equal(t, "12.34", ast.Sprint(lit))
}

func TestUUID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	_, v, err := UUID(false).Encode(id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	typ, v, err := UUID(true).Encode(&id)
	require.NoError(t, err)
	assert.Equal(t, TypeBinary, typ)
	assert.Len(t, v, 16)

	for _, cell := range []any{id.String(), []byte(id.String()), id[:]} {
		got, err := UUID(false).Decode(1, cell)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
	_, err = UUID(false).Decode(2, "nope")
	assert.True(t, geequery.IsFormatError(err))

	lit, err := UUID(true).Literal(id)
	require.NoError(t, err)
	assert.Equal(t, "X'6BA7B8109DAD11D180B400C04FD430C8'", ast.Sprint(lit))
}

func TestTimeAndString(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	lit, err := Time(true).Literal(ts)
	require.NoError(t, err)
	assert.Equal(t, "TIMESTAMP '2024-05-06 07:08:09'", ast.Sprint(lit))
	lit, err = Time(false).Literal(ts)
	require.NoError(t, err)
	assert.Equal(t, "DATE '2024-05-06'", ast.Sprint(lit))

	got, err := Time(false).Decode(1, "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), got)
	_, err = Time(false).Decode(3, "May 6")
	assert.True(t, geequery.IsFormatError(err))

	lit, err = String().Literal("it's")
	require.NoError(t, err)
	assert.Equal(t, "'it''s'", ast.Sprint(lit))
	_, err = String().Decode(1, int64(1))
	assert.True(t, geequery.IsTypeMismatch(err))
}
