package rxmysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatCodec_EncodeDecodeRoundTrip(t *testing.T) {
	registry := NewRegistry()

	p, err := registry.Encode(nil, float32(3.5))
	require.NoError(t, err)
	assert.Equal(t, ColumnFloat, p.Type)

	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)

	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnFloat}, TargetFloat32, true, buf)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), v)
}

func TestDoubleCodec_EncodeDecodeRoundTrip(t *testing.T) {
	registry := NewRegistry()

	p, err := registry.Encode(nil, 2.718281828)
	require.NoError(t, err)
	assert.Equal(t, ColumnDouble, p.Type)

	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)

	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnDouble}, TargetFloat64, true, buf)
	require.NoError(t, err)
	assert.Equal(t, 2.718281828, v)
}

func TestFloatCodec_TextDecode(t *testing.T) {
	registry := NewRegistry()
	data := []byte("1.25")

	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnFloat}, TargetAny, false, data)
	require.NoError(t, err)
	assert.Equal(t, float32(1.25), v)
}
