package rxmysql

import "github.com/reactivesky/rxmysql/internal/rxerrors"

// ColumnType is the closed enumeration of MySQL column kinds from
// spec.md §3. Each tag carries signedness, numeric-family, and
// binary-vs-character metadata via columnTypeInfo.
type ColumnType int

const (
	ColumnUnknown ColumnType = iota
	ColumnTinyInt
	ColumnTinyIntUnsigned
	ColumnSmallInt
	ColumnSmallIntUnsigned
	ColumnMediumInt
	ColumnMediumIntUnsigned
	ColumnInt
	ColumnIntUnsigned
	ColumnBigInt
	ColumnBigIntUnsigned
	ColumnYear
	ColumnFloat
	ColumnDouble
	ColumnDecimal
	ColumnBit
	ColumnDate
	ColumnTime
	ColumnDateTime
	ColumnTimestamp
	ColumnChar
	ColumnVarChar
	ColumnBinary
	ColumnVarBinary
	ColumnText
	ColumnBlob
	ColumnJSON
	ColumnEnum
	ColumnSet
	ColumnGeometry
	ColumnNull
)

// columnTypeMeta describes one ColumnType's static properties.
type columnTypeMeta struct {
	name       string
	signed     bool
	numeric    bool
	binary     bool // true => BINARY-family, false => CHARACTER-family (only meaningful for string-like tags)
	fixedSize  int  // 0 => variable-length
	selfFramed bool // true => the codec's own binary payload already carries its length byte(s); Param must not add a generic length-encoded-integer wrapper on top (DATE/TIME/DATETIME/TIMESTAMP's 0/4/7/8/11/12-byte forms)
}

var columnTypeInfo = map[ColumnType]columnTypeMeta{
	ColumnUnknown:           {"UNKNOWN", false, false, false, 0, false},
	ColumnTinyInt:           {"TINYINT", true, true, false, 1, false},
	ColumnTinyIntUnsigned:   {"TINYINT UNSIGNED", false, true, false, 1, false},
	ColumnSmallInt:          {"SMALLINT", true, true, false, 2, false},
	ColumnSmallIntUnsigned:  {"SMALLINT UNSIGNED", false, true, false, 2, false},
	ColumnMediumInt:         {"MEDIUMINT", true, true, false, 4, false},
	ColumnMediumIntUnsigned: {"MEDIUMINT UNSIGNED", false, true, false, 4, false},
	ColumnInt:               {"INT", true, true, false, 4, false},
	ColumnIntUnsigned:       {"INT UNSIGNED", false, true, false, 4, false},
	ColumnBigInt:            {"BIGINT", true, true, false, 8, false},
	ColumnBigIntUnsigned:    {"BIGINT UNSIGNED", false, true, false, 8, false},
	ColumnYear:              {"YEAR", false, true, false, 2, false},
	ColumnFloat:             {"FLOAT", true, true, false, 4, false},
	ColumnDouble:            {"DOUBLE", true, true, false, 8, false},
	ColumnDecimal:           {"DECIMAL", true, true, false, 0, false},
	ColumnBit:               {"BIT", false, false, true, 0, false},
	ColumnDate:              {"DATE", false, false, false, 0, true},
	ColumnTime:              {"TIME", true, false, false, 0, true},
	ColumnDateTime:          {"DATETIME", false, false, false, 0, true},
	ColumnTimestamp:         {"TIMESTAMP", false, false, false, 0, true},
	ColumnChar:              {"CHAR", false, false, false, 0, false},
	ColumnVarChar:           {"VARCHAR", false, false, false, 0, false},
	ColumnBinary:            {"BINARY", false, false, true, 0, false},
	ColumnVarBinary:         {"VARBINARY", false, false, true, 0, false},
	ColumnText:              {"TEXT", false, false, false, 0, false},
	ColumnBlob:              {"BLOB", false, false, true, 0, false},
	ColumnJSON:              {"JSON", false, false, false, 0, false},
	ColumnEnum:              {"ENUM", false, false, false, 0, false},
	ColumnSet:               {"SET", false, false, false, 0, false},
	ColumnGeometry:          {"GEOMETRY", false, false, true, 0, false},
	ColumnNull:              {"NULL", false, false, false, 0, false},
}

// String implements fmt.Stringer.
func (c ColumnType) String() string {
	if m, ok := columnTypeInfo[c]; ok {
		return m.name
	}
	return "UNKNOWN"
}

func (c ColumnType) signed() bool      { return columnTypeInfo[c].signed }
func (c ColumnType) numeric() bool     { return columnTypeInfo[c].numeric }
func (c ColumnType) fixedSize() int    { return columnTypeInfo[c].fixedSize }
func (c ColumnType) selfFramed() bool  { return columnTypeInfo[c].selfFramed }

// TargetType is the requested application-level shape for a decode, or
// the recognised shape of a value being encoded.
type TargetType int

const (
	TargetAny TargetType = iota
	TargetBool
	TargetInteger // umbrella: decoded as int32
	TargetLong    // umbrella: decoded as int64
	TargetFloat32
	TargetFloat64
	TargetDecimal
	TargetString
	TargetBytes
	TargetBitSet
	TargetYear
	TargetLocalDate
	TargetLocalTime
	TargetLocalDateTime
	TargetDuration
	TargetZonedDateTime
	TargetOffsetDateTime
	TargetInstant
)

// ColumnMeta is the per-column metadata threaded into every decode
// call: declared type, length, collation/charset id and nullability.
// Lives for the duration of a result set (spec.md §3).
type ColumnMeta struct {
	Type       ColumnType
	Name       string
	Length     uint32
	Collation  uint8
	Decimals   uint8
	Nullable   bool
}

// CodecContext is the immutable view every codec consumes: server/
// client zone, instant-preservation and tiny-as-boolean flags, default
// charset. Produced once by the connection at init and passed by
// reference at each call (spec.md §3, Design Notes "Back-references").
type CodecContext struct {
	ServerZone       *ServerZone
	ClientZone       Zone
	PreserveInstants bool
	TinyAsBoolean    bool
	DefaultCharset   string
	ServerVersion    Version
}

// Codec is implemented by every decoder/encoder in the registry. A
// codec claims a (column, target) pair for decode and a runtime value
// shape for encode; Decode/Encode are only called after the matching
// Can* predicate returned true.
type Codec interface {
	// Name identifies the codec for diagnostics and Registry.Describe.
	Name() string

	// CanDecode reports whether this codec handles the given
	// (column, target) pair.
	CanDecode(col ColumnType, target TargetType) bool

	// Decode reads the column payload starting at data[0]. binary
	// selects wire encoding, target is the caller's requested shape
	// (already confirmed by CanDecode). Returns the decoded value (nil
	// for SQL NULL), the number of bytes consumed from data, and an
	// error.
	Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (value any, consumed int, err error)

	// CanEncode reports whether this codec can produce a Parameter
	// for v.
	CanEncode(v any) bool

	// Encode builds a Parameter carrying both wire representations of
	// v.
	Encode(ctx *CodecContext, v any) (*Param, error)
}

// Registry resolves a codec for a (column, target) pair on decode, or
// for a runtime value on encode. Resolution scans a fixed,
// priority-ordered slice: primitive-typed codecs before object-typed
// ones, exact-type matches before widening matches. The scan is O(n)
// in the codec count (≈30); no reflection, no dynamic registration at
// call time.
type Registry struct {
	codecs []Codec
}

// NewRegistry builds the registry with every built-in codec, in the
// fixed priority order the decode/encode contract requires.
func NewRegistry() *Registry {
	return &Registry{codecs: defaultCodecs()}
}

// Decode resolves and runs the matching codec.
func (r *Registry) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	for _, c := range r.codecs {
		if c.CanDecode(meta.Type, target) {
			v, n, err := c.Decode(ctx, meta, target, binary, data)
			if err != nil {
				return nil, 0, err
			}
			return v, n, nil
		}
	}
	return nil, 0, rxerrors.Wrapf(rxerrors.ErrUnsupportedConversion, "column %s -> target %v", meta.Type, target)
}

// Encode resolves and runs the matching codec for v's runtime type.
func (r *Registry) Encode(ctx *CodecContext, v any) (*Param, error) {
	if v == nil {
		return NullParam(), nil
	}
	for _, c := range r.codecs {
		if c.CanEncode(v) {
			return c.Encode(ctx, v)
		}
	}
	return nil, rxerrors.Wrapf(rxerrors.ErrNoCodec, "no codec for %T", v)
}

// CodecInfo is introspection metadata about a registered codec,
// returned by Describe.
type CodecInfo struct {
	Name   string
	Column ColumnType
}

// Describe reports which registered codecs claim decoding for a given
// column type, useful in tests and for callers building custom column
// mappers.
func (r *Registry) Describe(col ColumnType) []CodecInfo {
	var out []CodecInfo
	for _, c := range r.codecs {
		for t := TargetAny; t <= TargetInstant; t++ {
			if c.CanDecode(col, t) {
				out = append(out, CodecInfo{Name: c.Name(), Column: col})
				break
			}
		}
	}
	return out
}

func defaultCodecs() []Codec {
	var all []Codec
	all = append(all, integerCodecs()...)
	all = append(all, floatCodecs()...)
	all = append(all, decimalCodec())
	all = append(all, bitSetCodec())
	all = append(all, temporalCodecs()...)
	all = append(all, stringCodecs()...)
	return all
}
