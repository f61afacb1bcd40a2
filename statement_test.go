package rxmysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSelectStatementKind covers spec.md §8 scenario 6.
func TestSelectStatementKind(t *testing.T) {
	always := func(string) bool { return true }
	never := func(string) bool { return false }

	simple := ParseQuery("SELECT 1")
	parametrized := ParseQuery("SELECT ?")

	assert.Equal(t, TextSimple, SelectStatementKind(simple, nil))
	assert.Equal(t, PrepareSimple, SelectStatementKind(simple, always))
	assert.Equal(t, TextSimple, SelectStatementKind(simple, never))

	assert.Equal(t, TextParametrized, SelectStatementKind(parametrized, nil))
	assert.Equal(t, PrepareParametrized, SelectStatementKind(parametrized, always))
	assert.Equal(t, PrepareParametrized, SelectStatementKind(parametrized, never))
}

func TestNewBinding_RejectsArgCountMismatch(t *testing.T) {
	registry := NewRegistry()
	_, err := NewBinding(nil, registry, 2, []any{1})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestBinding_WriteBinaryPayloadsAndNullBitmap(t *testing.T) {
	registry := NewRegistry()
	b, err := NewBinding(nil, registry, 3, []any{int64(7), nil, "x"})
	require.NoError(t, err)
	defer b.Release()

	payloads, nullBitmap, err := b.WriteBinaryPayloads()
	require.NoError(t, err)
	require.Len(t, payloads, 3)
	assert.Nil(t, payloads[1])
	assert.Equal(t, byte(1<<1), nullBitmap[0])
}

func TestBinding_FormatTextSubstitutesLiterals(t *testing.T) {
	registry := NewRegistry()
	q := ParseQuery("SELECT * FROM t WHERE a = ? AND b = ?")
	b, err := NewBinding(nil, registry, 2, []any{int64(1), "o'hara"})
	require.NoError(t, err)
	defer b.Release()

	sql, err := b.FormatText(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM t WHERE a = 1 AND b = 'o\'hara'`, sql)
}
