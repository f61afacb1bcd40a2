package rxmysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParam_WriteBinaryRejectsReuse(t *testing.T) {
	registry := NewRegistry()
	p, err := registry.Encode(nil, int64(5))
	require.NoError(t, err)

	_, err = p.WriteBinary(nil)
	require.NoError(t, err)

	_, err = p.WriteBinary(nil)
	assert.ErrorIs(t, err, ErrParamReused)
}

func TestParam_WriteTextRejectsReuse(t *testing.T) {
	registry := NewRegistry()
	p, err := registry.Encode(nil, "x")
	require.NoError(t, err)

	var buf []byte
	w := &sliceTextWriter{buf: &buf}
	require.NoError(t, p.WriteText(w))
	assert.ErrorIs(t, p.WriteText(w), ErrParamReused)
}

func TestParam_BinaryAndTextChannelsAreIndependent(t *testing.T) {
	registry := NewRegistry()
	p, err := registry.Encode(nil, int64(7))
	require.NoError(t, err)

	_, err = p.WriteBinary(nil)
	require.NoError(t, err)

	var buf []byte
	w := &sliceTextWriter{buf: &buf}
	assert.NoError(t, p.WriteText(w))
	assert.Equal(t, "7", string(buf))
}

func TestParam_NullParamWritesNeitherChannelConsumes(t *testing.T) {
	p := NullParam()

	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)
	assert.Nil(t, buf)

	var out []byte
	w := &sliceTextWriter{buf: &out}
	require.NoError(t, p.WriteText(w))
	assert.Equal(t, "NULL", string(out))
}

func TestParam_Equal(t *testing.T) {
	registry := NewRegistry()
	a, _ := registry.Encode(nil, int64(10))
	b, _ := registry.Encode(nil, int64(10))
	c, _ := registry.Encode(nil, int64(11))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, NullParam().Equal(NullParam()))
	assert.False(t, a.Equal(NullParam()))
}
