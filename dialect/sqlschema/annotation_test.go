package sqlschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	m := Merge(
		GeneratedValue(Sequence),
		SequenceGenerator{Name: "A"},
		SequenceGenerator{Name: "B", Schema: "app"},
		Enumerated(EnumOrdinal),
		Table("people"),
		nil,
	)
	g, ok := m.Generated()
	require.True(t, ok)
	assert.Equal(t, Sequence, g.Strategy)

	s, ok := m.SequenceGenerator()
	require.True(t, ok)
	assert.Equal(t, "app.B", s.QualifiedName(), "later annotations win")

	_, ok = m.TableGenerator()
	assert.False(t, ok)
	assert.Equal(t, EnumOrdinal, m.Enumerated())
	assert.Equal(t, "people", m.Table())
	assert.Empty(t, m.Schema())
	assert.Equal(t, EnumString, Merge().Enumerated())
}

func TestGenerationType(t *testing.T) {
	for _, g := range []GenerationType{Auto, Identity, Sequence, TableGen} {
		got, err := ParseGenerationType(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, got)
	}
	got, err := ParseGenerationType("identity")
	require.NoError(t, err)
	assert.Equal(t, Identity, got)

	_, err = ParseGenerationType("uuid")
	assert.Error(t, err)
	assert.Equal(t, "GenerationType(9)", GenerationType(9).String())
}

func TestTableGeneratorDefaults(t *testing.T) {
	g := TableGenerator{Schema: "meta"}.WithDefaults("orders")
	assert.Equal(t, "meta.GEEQUERY_SEQUENCES", g.QualifiedTable())
	assert.Equal(t, "SEQ_NAME", g.PKColumn)
	assert.Equal(t, "SEQ_VALUE", g.ValueColumn)
	assert.Equal(t, "ORDERS", g.PKValue)

	g = TableGenerator{Table: "IDS", PKValue: "k"}.WithDefaults("orders")
	assert.Equal(t, "IDS", g.QualifiedTable())
	assert.Equal(t, "k", g.PKValue)
}
