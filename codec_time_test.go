package rxmysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDateTimeEncode_BinaryWithMicroseconds covers spec.md §8 scenario 3.
func TestDateTimeEncode_BinaryWithMicroseconds(t *testing.T) {
	registry := NewRegistry()
	ts := time.Date(2021, 5, 3, 15, 2, 7, 123456000, time.UTC)

	p, err := registry.Encode(nil, ts)
	require.NoError(t, err)
	assert.Equal(t, ColumnDateTime, p.Type)

	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x0B, 0xE5, 0x07, 0x05, 0x03, 0x0F, 0x02, 0x07, 0x40, 0xE2, 0x01, 0x00,
	}, buf)
}

func TestDateTimeDecode_BinaryRoundTrip(t *testing.T) {
	registry := NewRegistry()
	data := []byte{0x0B, 0xE5, 0x07, 0x05, 0x03, 0x0F, 0x02, 0x07, 0x40, 0xE2, 0x01, 0x00}

	v, consumed, err := registry.Decode(nil, ColumnMeta{Type: ColumnDateTime}, TargetAny, true, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), consumed)

	tm := v.(time.Time)
	assert.Equal(t, 2021, tm.Year())
	assert.Equal(t, time.Month(5), tm.Month())
	assert.Equal(t, 3, tm.Day())
	assert.Equal(t, 15, tm.Hour())
	assert.Equal(t, 2, tm.Minute())
	assert.Equal(t, 7, tm.Second())
	assert.Equal(t, 123456000, tm.Nanosecond())
}

func TestDateTimeDecode_ZeroDatePolicy(t *testing.T) {
	registry := NewRegistry()
	data := []byte{0x00} // zero-length binary datetime: the all-zero date

	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnDateTime}, TargetAny, true, data)
	require.NoError(t, err)
	assert.Nil(t, v)

	ctx := &CodecContext{PreserveInstants: true}
	v, _, err = registry.Decode(ctx, ColumnMeta{Type: ColumnDateTime}, TargetAny, true, data)
	require.NoError(t, err)
	assert.Equal(t, time.Time{}, v)
}

func TestDurationEncodeDecode_RoundTrip(t *testing.T) {
	registry := NewRegistry()
	d := -((26 * time.Hour) + 15*time.Minute + 3*time.Second + 250*time.Microsecond)

	p, err := registry.Encode(nil, d)
	require.NoError(t, err)
	assert.Equal(t, ColumnTime, p.Type)

	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)

	v, consumed, err := registry.Decode(nil, ColumnMeta{Type: ColumnTime}, TargetDuration, true, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, d, v)
}

func TestYearCodec_RoundTrip(t *testing.T) {
	registry := NewRegistry()
	p, err := registry.Encode(nil, Year(1998))
	require.NoError(t, err)
	buf, err := p.WriteBinary(nil)
	require.NoError(t, err)

	v, _, err := registry.Decode(nil, ColumnMeta{Type: ColumnYear}, TargetYear, true, buf)
	require.NoError(t, err)
	assert.Equal(t, Year(1998), v)
}
