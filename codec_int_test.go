package rxmysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegerEncode_Narrowing covers spec.md §8 scenario 1.
func TestIntegerEncode_Narrowing(t *testing.T) {
	registry := NewRegistry()

	p, err := registry.Encode(nil, 200)
	require.NoError(t, err)
	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)
	assert.Equal(t, ColumnTinyIntUnsigned, p.Type)
	assert.Equal(t, []byte{0xC8}, buf)

	p, err = registry.Encode(nil, 40000)
	require.NoError(t, err)
	buf, err = p.WriteBinary(nil)
	require.NoError(t, err)
	assert.Equal(t, ColumnSmallIntUnsigned, p.Type)
	assert.Equal(t, []byte{0x40, 0x9C}, buf)

	p, err = registry.Encode(nil, 1_000_000_000)
	require.NoError(t, err)
	buf, err = p.WriteBinary(nil)
	require.NoError(t, err)
	assert.Equal(t, ColumnInt, p.Type)
	assert.Len(t, buf, 4)
}

func TestIntegerDecode_BinaryRoundTrip(t *testing.T) {
	registry := NewRegistry()

	p, err := registry.Encode(nil, int64(-42))
	require.NoError(t, err)
	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)

	v, consumed, err := registry.Decode(nil, ColumnMeta{Type: p.Type}, TargetLong, true, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, int64(-42), v)
}

func TestIntegerDecode_WideningFromBigint(t *testing.T) {
	registry := NewRegistry()
	buf := []byte{0x2A, 0, 0, 0, 0, 0, 0, 0} // 42 as BIGINT LE

	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnBigInt}, TargetLong, true, buf)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestIntegerDecode_NarrowingOverflowIsDecodeError(t *testing.T) {
	registry := NewRegistry()
	buf := []byte{0, 0, 0, 0, 0, 0, 0, 0x80} // large BIGINT, overflows int32

	_, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnBigInt}, TargetInteger, true, buf)
	assert.ErrorIs(t, err, ErrUnsupportedConversion)
}

func TestIntegerDecode_TextRejectsEmpty(t *testing.T) {
	registry := NewRegistry()
	buf := []byte{} // empty (but non-nil, i.e. not SQL NULL) text payload

	_, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnInt}, TargetAny, false, buf)
	assert.ErrorIs(t, err, ErrDecodeSyntax)
}

func TestIntegerDecode_NullIsSignalledByNilPayload(t *testing.T) {
	registry := NewRegistry()

	v, consumed, err := registry.Decode(nil, ColumnMeta{Type: ColumnInt}, TargetAny, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
	assert.Nil(t, v)
}

func TestIntegerDecode_TinyIntAsBoolean(t *testing.T) {
	registry := NewRegistry()
	ctx := &CodecContext{TinyAsBoolean: true}
	buf := []byte{0x01}

	v, _, err := registry.Decode(ctx, ColumnMeta{Type: ColumnTinyInt}, TargetAny, true, buf)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
