package rxmysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripBinaryLenEnc peels the length-encoded-integer wrapper
// Param.WriteBinary adds ahead of a variable-length type's bytes,
// standing in for what a real RowSource's row reader would already
// have done before ever handing a payload to the codec registry (see
// exchange.go's RowSource.Next contract).
func stripBinaryLenEnc(t *testing.T, wire []byte) []byte {
	t.Helper()
	require.NotEmpty(t, wire)
	switch {
	case wire[0] <= 250:
		n := int(wire[0])
		return wire[1 : 1+n]
	case wire[0] == 0xfc:
		n := int(wire[1]) | int(wire[2])<<8
		return wire[3 : 3+n]
	case wire[0] == 0xfd:
		n := int(wire[1]) | int(wire[2])<<8 | int(wire[3])<<16
		return wire[4 : 4+n]
	default:
		t.Fatalf("unexpected length-encoded-integer tag 0x%02x", wire[0])
		return nil
	}
}

func TestStringCodec_EncodeDecodeRoundTrip(t *testing.T) {
	registry := NewRegistry()

	p, err := registry.Encode(nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, ColumnVarChar, p.Type)

	wire, err := p.WriteBinary(nil)
	require.NoError(t, err)
	buf := stripBinaryLenEnc(t, wire)

	v, consumed, err := registry.Decode(nil, ColumnMeta{Type: ColumnVarChar}, TargetString, true, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, "hello", v)
}

func TestBytesCodec_EncodeDecodeRoundTrip(t *testing.T) {
	registry := NewRegistry()
	want := []byte{0x01, 0x02, 0xFF}

	p, err := registry.Encode(nil, want)
	require.NoError(t, err)
	assert.Equal(t, ColumnVarBinary, p.Type)

	wire, err := p.WriteBinary(nil)
	require.NoError(t, err)
	buf := stripBinaryLenEnc(t, wire)

	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnVarBinary}, TargetBytes, true, buf)
	require.NoError(t, err)
	assert.Equal(t, want, v)
}

func TestTargetAny_BinaryFamilyStaysBytesCharacterFamilyBecomesString(t *testing.T) {
	registry := NewRegistry()

	blob := []byte("raw")
	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnBlob}, TargetAny, true, blob)
	require.NoError(t, err)
	assert.IsType(t, []byte{}, v)

	text := []byte("text")
	v, _, err = registry.Decode(nil, ColumnMeta{Type: ColumnText}, TargetAny, true, text)
	require.NoError(t, err)
	assert.IsType(t, "", v)
}

func TestStringCodec_NullIsSignalledByNilPayload(t *testing.T) {
	registry := NewRegistry()

	v, consumed, err := registry.Decode(nil, ColumnMeta{Type: ColumnVarChar}, TargetString, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
	assert.Nil(t, v)
}

func TestQuoteSQLString_EscapesDialect(t *testing.T) {
	assert.Equal(t, `'it\'s'`, quoteSQLString("it's"))
	assert.Equal(t, `'a\\b'`, quoteSQLString(`a\b`))
	assert.Equal(t, `'\n\r\0\Z'`, quoteSQLString("\n\r\x00\x1a"))
}
