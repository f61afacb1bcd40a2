package rxmysql

import (
	"strings"

	"github.com/reactivesky/rxmysql/internal/rxerrors"
)

// characterColumns are the CHARACTER-family types: collation-aware,
// decode to string by default. binaryColumns are the BINARY-family
// types: raw bytes, decode to []byte by default.
var characterColumns = map[ColumnType]bool{
	ColumnChar: true, ColumnVarChar: true, ColumnText: true,
	ColumnJSON: true, ColumnEnum: true, ColumnSet: true,
}

var binaryColumns = map[ColumnType]bool{
	ColumnBinary: true, ColumnVarBinary: true, ColumnBlob: true, ColumnGeometry: true,
}

// stringCodecImpl is the single codec backing every CHAR/VARCHAR/TEXT/
// BINARY/VARBINARY/BLOB/JSON/ENUM/SET/GEOMETRY column: all of them
// arrive on the wire as a length-encoded byte string in both
// protocols, differing only in whether the target shape is string or
// []byte (spec.md §4.1 "String & binary codecs").
type stringCodecImpl struct {
	col ColumnType
}

func (c stringCodecImpl) Name() string { return "string:" + c.col.String() }

func (c stringCodecImpl) CanDecode(col ColumnType, target TargetType) bool {
	if col != c.col {
		return false
	}
	switch target {
	case TargetAny, TargetString, TargetBytes:
		return true
	}
	return false
}

func (c stringCodecImpl) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	payload, isNull, consumed, err := decodeTextPayload(data)
	if err != nil {
		return nil, 0, err
	}
	if isNull {
		return nil, consumed, nil
	}

	if target == TargetBytes {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, consumed, nil
	}
	if target == TargetString {
		return string(payload), consumed, nil
	}
	// TargetAny: BINARY-family stays bytes, CHARACTER-family becomes a string.
	if binaryColumns[c.col] {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, consumed, nil
	}
	return string(payload), consumed, nil
}

func (c stringCodecImpl) CanEncode(v any) bool {
	switch v.(type) {
	case string:
		return c.col == ColumnVarChar
	case []byte:
		return c.col == ColumnVarBinary
	}
	return false
}

func (c stringCodecImpl) Encode(ctx *CodecContext, v any) (*Param, error) {
	switch val := v.(type) {
	case string:
		charset := "utf8mb4"
		if ctx != nil && ctx.DefaultCharset != "" {
			charset = ctx.DefaultCharset
		}
		_ = charset // not applied: the string's UTF-8 bytes are sent as they are
		return newParam(ColumnVarChar, []byte(val), quoteSQLString(val)), nil
	case []byte:
		return newParam(ColumnVarBinary, val, quoteSQLBytes(val)), nil
	}
	return nil, rxerrors.ErrNoCodec
}

// quoteSQLString renders a Go string as a single-quoted MySQL text
// literal, escaping the backslash-and-quote dialect from spec.md §4.1:
// \0, \n, \r, \Z, \", \', \\.
func quoteSQLString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1a:
			b.WriteString(`\Z`)
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// quoteSQLBytes renders arbitrary bytes as a single-quoted literal
// using the same escape dialect, byte-for-byte rather than rune-wise.
func quoteSQLBytes(p []byte) string {
	var b strings.Builder
	b.Grow(len(p) + 2)
	b.WriteByte('\'')
	for _, c := range p {
		switch c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1a:
			b.WriteString(`\Z`)
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func stringCodecs() []Codec {
	cols := []ColumnType{
		ColumnChar, ColumnVarChar, ColumnBinary, ColumnVarBinary,
		ColumnText, ColumnBlob, ColumnJSON, ColumnEnum, ColumnSet, ColumnGeometry,
	}
	out := make([]Codec, 0, len(cols))
	for _, c := range cols {
		out = append(out, stringCodecImpl{col: c})
	}
	return out
}
