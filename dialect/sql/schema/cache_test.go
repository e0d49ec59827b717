package schema

import (
	"context"
	"errors"
	"testing"

	geequery "github.com/GeeQuery/geequery-orm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProbe(t *testing.T) {
	var calls int
	inner := ProbeFunc(func(_ context.Context, table, column string) (string, bool, error) {
		calls++
		if column == "broken" {
			return "", false, errors.New("catalog unavailable")
		}
		if column == "note" {
			return "", false, nil
		}
		return "nextval('" + table + "_seq')", true, nil
	})
	cache := geequery.NewMemoryCache()
	probe := NewCachedProbe(inner, cache, "postgres", 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		def, ok, err := probe.ColumnDefault(ctx, "orders", "id")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "nextval('orders_seq')", def)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(2), probe.Hits())
	assert.Equal(t, int64(1), probe.Misses())

	// A missing default is cached too.
	for i := 0; i < 2; i++ {
		_, ok, err := probe.ColumnDefault(ctx, "orders", "note")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 2, calls)

	// Errors are not.
	for i := 0; i < 2; i++ {
		_, _, err := probe.ColumnDefault(ctx, "orders", "broken")
		assert.Error(t, err)
	}
	assert.Equal(t, 4, calls)
	assert.Equal(t, 2, cache.Len())

	require.NoError(t, probe.Invalidate(ctx))
	assert.Zero(t, cache.Len())
	_, _, err := probe.ColumnDefault(ctx, "orders", "id")
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
}

func TestCachedProbeSharedCache(t *testing.T) {
	cache := geequery.NewMemoryCache()
	pg := NewCachedProbe(ProbeFunc(func(context.Context, string, string) (string, bool, error) {
		return "nextval('s')", true, nil
	}), cache, "postgres", 0)
	my := NewCachedProbe(ProbeFunc(func(context.Context, string, string) (string, bool, error) {
		return "", false, nil
	}), cache, "mysql", 0)

	ctx := context.Background()
	_, ok, err := pg.ColumnDefault(ctx, "t", "id")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = my.ColumnDefault(ctx, "t", "id")
	require.NoError(t, err)
	assert.False(t, ok, "profiles do not share entries")
}
