package rxmysql

import (
	"github.com/reactivesky/rxmysql/internal/rxerrors"
	"github.com/shopspring/decimal"
)

// decimalCodecImpl handles DECIMAL, which MySQL always transmits as
// ASCII on the wire in both protocols (spec.md §4.1). Parsing goes
// through shopspring/decimal for arbitrary-precision correctness;
// int-typed targets truncate toward zero.
type decimalCodecImpl struct{}

func (decimalCodecImpl) Name() string { return "decimal" }

func (decimalCodecImpl) CanDecode(col ColumnType, target TargetType) bool {
	if col != ColumnDecimal {
		return false
	}
	switch target {
	case TargetAny, TargetDecimal, TargetInteger, TargetLong, TargetFloat64, TargetFloat32, TargetString:
		return true
	}
	return false
}

func (decimalCodecImpl) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	payload, isNull, consumed, err := decodeTextPayload(data)
	if err != nil {
		return nil, 0, err
	}
	if isNull {
		return nil, consumed, nil
	}

	d, err := decimal.NewFromString(string(payload))
	if err != nil {
		return nil, 0, rxerrors.Wrapf(rxerrors.ErrDecodeSyntax, "decimal: %q: %v", payload, err)
	}

	switch target {
	case TargetInteger:
		return int32(d.IntPart()), consumed, nil
	case TargetLong:
		return d.IntPart(), consumed, nil
	case TargetFloat64:
		f, _ := d.Float64()
		return f, consumed, nil
	case TargetFloat32:
		f, _ := d.Float64()
		return float32(f), consumed, nil
	case TargetString:
		return d.String(), consumed, nil
	default:
		return d, consumed, nil
	}
}

func (decimalCodecImpl) CanEncode(v any) bool {
	_, ok := v.(decimal.Decimal)
	return ok
}

func (decimalCodecImpl) Encode(ctx *CodecContext, v any) (*Param, error) {
	d := v.(decimal.Decimal)
	text := d.String()
	return newParam(ColumnDecimal, []byte(text), text), nil
}

func decimalCodec() Codec { return decimalCodecImpl{} }
