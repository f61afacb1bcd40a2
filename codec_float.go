package rxmysql

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/reactivesky/rxmysql/internal/rxerrors"
)

// floatCodec handles FLOAT (4-byte IEEE-754) and DOUBLE (8-byte
// IEEE-754), binary and text forms (spec.md §4.1).
type floatCodec struct {
	col     ColumnType
	width   int
	double  bool
}

func (c floatCodec) Name() string { return "float:" + c.col.String() }

func (c floatCodec) CanDecode(col ColumnType, target TargetType) bool {
	if col != c.col {
		return false
	}
	switch target {
	case TargetAny, TargetFloat32, TargetFloat64:
		return true
	}
	return false
}

func (c floatCodec) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary_ bool, data []byte) (any, int, error) {
	var f64 float64
	var consumed int

	if binary_ {
		if len(data) < c.width {
			return nil, 0, rxerrors.Wrap(rxerrors.ErrProtocolCorrupt, "float: buffer underrun")
		}
		if c.double {
			f64 = math.Float64frombits(binary.LittleEndian.Uint64(data[:8]))
		} else {
			f64 = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[:4])))
		}
		consumed = c.width
	} else {
		payload, isNull, n, err := decodeTextPayload(data)
		if err != nil {
			return nil, 0, err
		}
		if isNull {
			return nil, n, nil
		}
		v, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return nil, 0, rxerrors.Wrapf(rxerrors.ErrDecodeSyntax, "float: %q: %v", payload, err)
		}
		f64 = v
		consumed = n
	}

	if target == TargetFloat32 {
		return float32(f64), consumed, nil
	}
	if !c.double && target == TargetAny {
		return float32(f64), consumed, nil
	}
	return f64, consumed, nil
}

func (c floatCodec) CanEncode(v any) bool {
	switch v.(type) {
	case float32:
		return !c.double
	case float64:
		return c.double
	}
	return false
}

func (c floatCodec) Encode(ctx *CodecContext, v any) (*Param, error) {
	if c.double {
		f := v.(float64)
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return newParam(ColumnDouble, buf, strconv.FormatFloat(f, 'g', -1, 64)), nil
	}
	f := v.(float32)
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
	return newParam(ColumnFloat, buf, strconv.FormatFloat(float64(f), 'g', -1, 32)), nil
}

func floatCodecs() []Codec {
	return []Codec{
		floatCodec{col: ColumnFloat, width: 4, double: false},
		floatCodec{col: ColumnDouble, width: 8, double: true},
	}
}
