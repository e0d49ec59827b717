package geequery_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	geequery "github.com/GeeQuery/geequery-orm"
)

func TestUnsupportedError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := geequery.NewUnsupportedError("sqlite3", "dateadd")
		assert.Equal(t, "geequery: sqlite3 dialect can't handle dateadd", err.Error())

		err = geequery.NewUnsupportedUnitError("derby", "dateadd", "MONTH")
		assert.Equal(t, `geequery: derby dialect can't handle dateadd with unit "MONTH"`, err.Error())

		err = geequery.NewUnsupportedError("", "limit")
		assert.Equal(t, "geequery: can't handle limit", err.Error())
	})

	t.Run("IsUnsupported", func(t *testing.T) {
		err := geequery.NewUnsupportedError("db2", "limit")
		assert.True(t, errors.Is(err, geequery.ErrUnsupported))
		assert.True(t, geequery.IsUnsupported(fmt.Errorf("render: %w", err)))
		assert.True(t, geequery.IsUnsupported(geequery.ErrUnsupported))
		assert.False(t, geequery.IsUnsupported(errors.New("other error")))
		assert.False(t, geequery.IsUnsupported(nil))
	})
}

func TestFormatError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := geequery.NewFormatError("date", "2024-13-01", nil)
		assert.Equal(t, `geequery: malformed date literal "2024-13-01"`, err.Error())

		cause := errors.New("month out of range")
		err = geequery.NewFormatError("date", "2024-13-01", cause)
		assert.Equal(t, `geequery: malformed date literal "2024-13-01": month out of range`, err.Error())
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("IsFormatError", func(t *testing.T) {
		err := geequery.NewFormatError("integer", "12x", nil)
		assert.True(t, errors.Is(err, geequery.ErrMalformedLiteral))
		assert.True(t, geequery.IsFormatError(fmt.Errorf("wrapper: %w", err)))
		assert.False(t, geequery.IsFormatError(errors.New("other error")))
		assert.False(t, geequery.IsFormatError(nil))
	})
}

func TestTypeMismatchError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := geequery.NewTypeMismatchError(3, "int64", "string")
		assert.Equal(t, "geequery: column 3 from database is string but expected is int64", err.Error())

		err.Column = "qty"
		assert.Equal(t, "geequery: column 3 (qty) from database is string but expected is int64", err.Error())
	})

	t.Run("IsTypeMismatch", func(t *testing.T) {
		err := geequery.NewTypeMismatchError(1, "uuid", "[]uint8")
		assert.True(t, errors.Is(err, geequery.ErrTypeMismatch))
		assert.True(t, geequery.IsTypeMismatch(fmt.Errorf("scan: %w", err)))
		assert.False(t, geequery.IsTypeMismatch(nil))
	})
}

func TestResolutionCycleError(t *testing.T) {
	err := &geequery.ResolutionCycleError{Table: "orders", Column: "id"}
	assert.Equal(t, "geequery: generation resolution for orders.id did not terminate", err.Error())
	assert.True(t, errors.Is(err, geequery.ErrResolutionCycle))
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := geequery.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "geequery: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := geequery.NewConstraintError("constraint violated", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := geequery.NewConstraintError("check failed", nil)
		assert.True(t, geequery.IsConstraintError(err))
		assert.True(t, geequery.IsConstraintError(fmt.Errorf("wrapper: %w", err)))
		assert.False(t, geequery.IsConstraintError(errors.New("other error")))
		assert.False(t, geequery.IsConstraintError(nil))
	})
}

func TestMutationError(t *testing.T) {
	underlying := errors.New("connection reset")
	err := geequery.NewMutationError("orders", "insert", underlying)
	assert.Equal(t, "geequery: insert orders: connection reset", err.Error())
	assert.True(t, errors.Is(err, underlying))
}

func TestNotFoundError(t *testing.T) {
	err := geequery.NewNotFoundError("column orders.id")
	assert.Equal(t, "geequery: column orders.id not found", err.Error())
	assert.True(t, geequery.IsNotFound(fmt.Errorf("probe: %w", err)))
	assert.False(t, geequery.IsNotFound(errors.New("other error")))
	assert.False(t, geequery.IsNotFound(nil))
}

func BenchmarkErrors(b *testing.B) {
	b.Run("NewUnsupportedError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = geequery.NewUnsupportedError("oracle", "dateadd")
		}
	})

	b.Run("IsUnsupported", func(b *testing.B) {
		err := fmt.Errorf("render: %w", geequery.NewUnsupportedError("oracle", "dateadd"))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = geequery.IsUnsupported(err)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := geequery.NewConstraintError("unique", nil)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = geequery.IsConstraintError(err)
		}
	})
}
