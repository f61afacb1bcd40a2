package rxmysql

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/reactivesky/rxmysql/internal/rxerrors"
)

// decodeTextPayload returns data as a column's decoded value, valid
// for both protocols: RowSource.Next already hands the codec registry
// one pre-split, already-stripped payload per column (exchange.go), so
// no wire-level length-encoding wrapper remains here to peel. SQL NULL
// is signalled by data == nil, never by a protocol-specific sentinel
// byte.
func decodeTextPayload(data []byte) (payload []byte, isNull bool, consumed int, err error) {
	if data == nil {
		return nil, true, 0, nil
	}
	return data, false, len(data), nil
}

type intWidth struct {
	width    int
	unsigned bool
}

var intWidths = map[ColumnType]intWidth{
	ColumnTinyInt:           {1, false},
	ColumnTinyIntUnsigned:   {1, true},
	ColumnSmallInt:          {2, false},
	ColumnSmallIntUnsigned:  {2, true},
	ColumnYear:              {2, true},
	ColumnMediumInt:         {4, false},
	ColumnMediumIntUnsigned: {4, true},
	ColumnInt:               {4, false},
	ColumnIntUnsigned:       {4, true},
	ColumnBigInt:            {8, false},
	ColumnBigIntUnsigned:    {8, true},
}

// decodeFixedInt reads a little-endian fixed-width integer for col
// from the front of data, per spec.md §4.1 (MEDIUMINT is transmitted
// as the full 32-bit two's-complement form).
func decodeFixedInt(col ColumnType, data []byte) (signedVal int64, unsignedVal uint64, consumed int, err error) {
	w, ok := intWidths[col]
	if !ok {
		return 0, 0, 0, rxerrors.Wrapf(rxerrors.ErrUnsupportedConversion, "not an integer column: %s", col)
	}
	if len(data) < w.width {
		return 0, 0, 0, rxerrors.Wrap(rxerrors.ErrProtocolCorrupt, "integer: buffer underrun")
	}
	switch w.width {
	case 1:
		if w.unsigned {
			unsignedVal = uint64(data[0])
		} else {
			signedVal = int64(int8(data[0]))
		}
	case 2:
		u := binary.LittleEndian.Uint16(data[:2])
		if w.unsigned {
			unsignedVal = uint64(u)
		} else {
			signedVal = int64(int16(u))
		}
	case 4:
		u := binary.LittleEndian.Uint32(data[:4])
		if w.unsigned {
			unsignedVal = uint64(u)
		} else {
			signedVal = int64(int32(u))
		}
	case 8:
		u := binary.LittleEndian.Uint64(data[:8])
		if w.unsigned {
			unsignedVal = u
		} else {
			signedVal = int64(u)
		}
	}
	return signedVal, unsignedVal, w.width, nil
}

// parseIntegerText parses ASCII decimal digits with an optional
// leading sign, rejecting empty input as a decode-syntax error
// (spec.md §4.1).
func parseIntegerText(buf []byte, unsigned bool) (signedVal int64, unsignedVal uint64, err error) {
	s := string(buf)
	if s == "" {
		return 0, 0, rxerrors.Wrap(rxerrors.ErrDecodeSyntax, "integer: empty text value")
	}
	if unsigned {
		t := strings.TrimPrefix(s, "+")
		u, perr := strconv.ParseUint(t, 10, 64)
		if perr != nil {
			return 0, 0, rxerrors.Wrapf(rxerrors.ErrDecodeSyntax, "integer: %q: %v", s, perr)
		}
		return 0, u, nil
	}
	v, perr := strconv.ParseInt(s, 10, 64)
	if perr != nil {
		return 0, 0, rxerrors.Wrapf(rxerrors.ErrDecodeSyntax, "integer: %q: %v", s, perr)
	}
	return v, 0, nil
}

// integerCodec decodes/encodes exactly one integer column type.
type integerCodec struct {
	col ColumnType
}

func (c integerCodec) Name() string { return "integer:" + c.col.String() }

func (c integerCodec) CanDecode(col ColumnType, target TargetType) bool {
	if col != c.col {
		return false
	}
	switch target {
	case TargetAny, TargetInteger, TargetLong, TargetBool:
		return true
	}
	return false
}

func (c integerCodec) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	w := intWidths[c.col]

	var signedVal int64
	var unsignedVal uint64
	var consumed int
	var err error

	if binary {
		signedVal, unsignedVal, consumed, err = decodeFixedInt(c.col, data)
	} else {
		payload, isNull, n, perr := decodeTextPayload(data)
		if perr != nil {
			return nil, 0, perr
		}
		if isNull {
			return nil, n, nil
		}
		consumed = n
		signedVal, unsignedVal, err = parseIntegerText(payload, w.unsigned)
	}
	if err != nil {
		return nil, 0, err
	}

	if target == TargetBool || (c.col == ColumnTinyInt && ctx != nil && ctx.TinyAsBoolean && target == TargetAny) {
		if w.unsigned {
			return unsignedVal != 0, consumed, nil
		}
		return signedVal != 0, consumed, nil
	}

	switch target {
	case TargetInteger:
		v, err := narrowToInt32(w.unsigned, signedVal, unsignedVal)
		if err != nil {
			return nil, 0, err
		}
		return v, consumed, nil
	case TargetLong:
		v, err := widenToInt64(w.unsigned, signedVal, unsignedVal)
		if err != nil {
			return nil, 0, err
		}
		return v, consumed, nil
	default: // TargetAny: int64, or uint64 for BIGINT UNSIGNED values above MaxInt64
		return narrowOrWiden(w.unsigned, signedVal, unsignedVal), consumed, nil
	}
}

// narrowToInt32 implements the "Integer" umbrella: down-cast to int32,
// overflow is a decode error.
func narrowToInt32(unsigned bool, signedVal int64, unsignedVal uint64) (int32, error) {
	if unsigned {
		if unsignedVal > math.MaxInt32 {
			return 0, rxerrors.Wrapf(rxerrors.ErrUnsupportedConversion, "integer: %d overflows int32", unsignedVal)
		}
		return int32(unsignedVal), nil
	}
	if signedVal < math.MinInt32 || signedVal > math.MaxInt32 {
		return 0, rxerrors.Wrapf(rxerrors.ErrUnsupportedConversion, "integer: %d overflows int32", signedVal)
	}
	return int32(signedVal), nil
}

// widenToInt64 implements the "Long" umbrella: widen to int64,
// overflow only possible from BIGINT UNSIGNED values above MaxInt64.
func widenToInt64(unsigned bool, signedVal int64, unsignedVal uint64) (int64, error) {
	if unsigned {
		if unsignedVal > math.MaxInt64 {
			return 0, rxerrors.Wrapf(rxerrors.ErrUnsupportedConversion, "integer: %d overflows int64", unsignedVal)
		}
		return int64(unsignedVal), nil
	}
	return signedVal, nil
}

func narrowOrWiden(unsigned bool, signedVal int64, unsignedVal uint64) any {
	if unsigned {
		if unsignedVal > math.MaxInt64 {
			return unsignedVal
		}
		return int64(unsignedVal)
	}
	return signedVal
}

func (c integerCodec) CanEncode(v any) bool { return false } // encoding goes through integerEncodeCodec

func (c integerCodec) Encode(ctx *CodecContext, v any) (*Param, error) {
	return nil, rxerrors.ErrNoCodec
}

// integerEncodeCodec implements the "Integer" umbrella's encode-side
// narrowing: it picks the smallest on-wire type that losslessly
// represents the value, shrinking bind-packet size (spec.md §4.1).
type integerEncodeCodec struct{}

func (integerEncodeCodec) Name() string { return "integer-encode" }
func (integerEncodeCodec) CanDecode(ColumnType, TargetType) bool { return false }
func (integerEncodeCodec) Decode(*CodecContext, ColumnMeta, TargetType, bool, []byte) (any, int, error) {
	return nil, 0, rxerrors.ErrUnsupportedConversion
}

func (integerEncodeCodec) CanEncode(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func asInt64(v any) (val int64, unsigned bool, uval uint64) {
	switch t := v.(type) {
	case int:
		return int64(t), false, 0
	case int8:
		return int64(t), false, 0
	case int16:
		return int64(t), false, 0
	case int32:
		return int64(t), false, 0
	case int64:
		return t, false, 0
	case uint:
		return 0, true, uint64(t)
	case uint8:
		return 0, true, uint64(t)
	case uint16:
		return 0, true, uint64(t)
	case uint32:
		return 0, true, uint64(t)
	case uint64:
		return 0, true, t
	}
	return 0, false, 0
}

func (integerEncodeCodec) Encode(ctx *CodecContext, v any) (*Param, error) {
	signedVal, unsigned, unsignedVal := asInt64(v)

	if unsigned {
		switch {
		case unsignedVal <= math.MaxUint8:
			return encodeFixedWidth(ColumnTinyIntUnsigned, 1, unsignedVal), nil
		case unsignedVal <= math.MaxUint16:
			return encodeFixedWidth(ColumnSmallIntUnsigned, 2, unsignedVal), nil
		case unsignedVal <= math.MaxUint32:
			return encodeFixedWidth(ColumnIntUnsigned, 4, unsignedVal), nil
		default:
			return encodeFixedWidth(ColumnBigIntUnsigned, 8, unsignedVal), nil
		}
	}

	// Within each width tier, prefer the signed on-wire type when the
	// value fits it; only reach for the unsigned tag when the value
	// exceeds that width's signed range but still fits unsigned
	// (spec.md §8 scenario 1: 200 needs TINYINT_UNSIGNED since it
	// overflows signed TINYINT, but 1_000_000_000 fits signed INT and
	// stays signed rather than promoting to INT UNSIGNED).
	switch {
	case signedVal >= math.MinInt8 && signedVal <= math.MaxInt8:
		return encodeSignedFixedWidth(ColumnTinyInt, 1, signedVal), nil
	case signedVal >= 0 && signedVal <= math.MaxUint8:
		return encodeFixedWidth(ColumnTinyIntUnsigned, 1, uint64(signedVal)), nil
	case signedVal >= math.MinInt16 && signedVal <= math.MaxInt16:
		return encodeSignedFixedWidth(ColumnSmallInt, 2, signedVal), nil
	case signedVal >= 0 && signedVal <= math.MaxUint16:
		return encodeFixedWidth(ColumnSmallIntUnsigned, 2, uint64(signedVal)), nil
	case signedVal >= math.MinInt32 && signedVal <= math.MaxInt32:
		return encodeSignedFixedWidth(ColumnInt, 4, signedVal), nil
	case signedVal >= 0 && signedVal <= math.MaxUint32:
		return encodeFixedWidth(ColumnIntUnsigned, 4, uint64(signedVal)), nil
	default:
		return encodeSignedFixedWidth(ColumnBigInt, 8, signedVal), nil
	}
}

func encodeFixedWidth(col ColumnType, width int, u uint64) *Param {
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(u))
	case 8:
		binary.LittleEndian.PutUint64(buf, u)
	}
	return newParam(col, buf, strconv.FormatUint(u, 10))
}

func encodeSignedFixedWidth(col ColumnType, width int, s int64) *Param {
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(int8(s))
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(int16(s)))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(int32(s)))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(s))
	}
	return newParam(col, buf, strconv.FormatInt(s, 10))
}

// integerColumnOrder lists every ColumnType intWidths backs, in the
// fixed priority order spec.md §4.1 requires for registry
// construction (grouped by wire width, with YEAR beside the other
// 2-byte types).
// intWidths itself stays a map for O(1) width lookup; only the
// registration order needs to be deterministic.
var integerColumnOrder = []ColumnType{
	ColumnTinyInt, ColumnTinyIntUnsigned,
	ColumnSmallInt, ColumnSmallIntUnsigned,
	ColumnYear,
	ColumnMediumInt, ColumnMediumIntUnsigned,
	ColumnInt, ColumnIntUnsigned,
	ColumnBigInt, ColumnBigIntUnsigned,
}

func integerCodecs() []Codec {
	out := make([]Codec, 0, len(integerColumnOrder)+1)
	for _, col := range integerColumnOrder {
		out = append(out, integerCodec{col: col})
	}
	out = append(out, integerEncodeCodec{})
	return out
}
