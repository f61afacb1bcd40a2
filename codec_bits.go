package rxmysql

import (
	"math/big"

	"github.com/reactivesky/rxmysql/internal/rxerrors"
)

// BitSet is the decoded representation of a MySQL BIT column: a
// big-endian-interpreted arbitrary-precision bit vector, indexable
// from bit 0 = LSB of the last (least significant) byte (spec.md
// §4.1). Backed by math/big.Int since no bitset library appears
// anywhere in the retrieval pack — see DESIGN.md.
type BitSet struct {
	v *big.Int
}

// NewBitSet returns the empty bit set.
func NewBitSet() BitSet { return BitSet{v: new(big.Int)} }

// BitSetFromUint64 builds a BitSet from a single 64-bit word.
func BitSetFromUint64(u uint64) BitSet { return BitSet{v: new(big.Int).SetUint64(u)} }

// Bit reports whether bit i is set.
func (b BitSet) Bit(i int) bool {
	if b.v == nil {
		return false
	}
	return b.v.Bit(i) == 1
}

// Uint64 returns the value as a uint64 and whether it fit (BitLen<=64).
func (b BitSet) Uint64() (uint64, bool) {
	if b.v == nil {
		return 0, true
	}
	if b.v.BitLen() > 64 {
		return 0, false
	}
	return b.v.Uint64(), true
}

// String renders the unsigned decimal form used as the BIT text
// representation on the wire.
func (b BitSet) String() string {
	if b.v == nil {
		return "0"
	}
	return b.v.String()
}

// bitSetCodecImpl implements the BIT codec: binary arrives as a
// big-endian byte array and leaves as a little-endian one, text
// arrives/leaves as an unsigned decimal string (spec.md §4.1, §8 scenario 2).
type bitSetCodecImpl struct{}

func (bitSetCodecImpl) Name() string { return "bitset" }

func (bitSetCodecImpl) CanDecode(col ColumnType, target TargetType) bool {
	return col == ColumnBit && (target == TargetAny || target == TargetBitSet || target == TargetLong)
}

func (bitSetCodecImpl) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	payload, isNull, consumed, err := decodeTextPayload(data)
	if err != nil {
		return nil, 0, err
	}
	if isNull {
		return nil, consumed, nil
	}

	var bs BitSet
	if binary {
		bs = BitSet{v: new(big.Int).SetBytes(payload)}
	} else {
		v, ok := new(big.Int).SetString(string(payload), 10)
		if !ok {
			return nil, 0, rxerrors.Wrapf(rxerrors.ErrDecodeSyntax, "bitset: %q is not a decimal integer", payload)
		}
		bs = BitSet{v: v}
	}

	if target == TargetLong {
		u, ok := bs.Uint64()
		if !ok {
			return nil, 0, rxerrors.Wrap(rxerrors.ErrUnsupportedConversion, "bitset: value overflows uint64")
		}
		return int64(u), consumed, nil
	}
	return bs, consumed, nil
}

func (bitSetCodecImpl) CanEncode(v any) bool {
	_, ok := v.(BitSet)
	return ok
}

// Encode produces the smallest little-endian byte array that
// preserves the highest set bit; an empty set encodes as a single
// zero byte (spec.md §4.1, §8 scenario 2).
func (bitSetCodecImpl) Encode(ctx *CodecContext, v any) (*Param, error) {
	bs := v.(BitSet)
	if bs.v == nil || bs.v.Sign() == 0 {
		return newParam(ColumnBit, []byte{0x00}, "0"), nil
	}
	be := bs.v.Bytes() // big-endian, minimal length
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	return newParam(ColumnBit, le, bs.v.String()), nil
}

func bitSetCodec() Codec { return bitSetCodecImpl{} }
