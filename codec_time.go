package rxmysql

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/reactivesky/rxmysql/internal/rxerrors"
)

// Year is the decoded value of a YEAR column requested with
// TargetYear, kept distinct from a plain int so callers can't confuse
// it with an arbitrary integer.
type Year int

// dateTimeFields is the shared intermediate shape for DATE/DATETIME/
// TIMESTAMP's binary length-prefixed encoding (0, 4, 7 or 11 bytes
// after the length byte; spec.md §4.1).
type dateTimeFields struct {
	year, month, day     int
	hour, minute, second int
	microsecond          int
	zero                 bool
}

func decodeBinaryDateTimeFields(data []byte) (dateTimeFields, int, error) {
	if len(data) < 1 {
		return dateTimeFields{}, 0, rxerrors.Wrap(rxerrors.ErrProtocolCorrupt, "datetime: missing length byte")
	}
	n := int(data[0])
	consumed := 1 + n
	if len(data) < consumed {
		return dateTimeFields{}, 0, rxerrors.Wrap(rxerrors.ErrProtocolCorrupt, "datetime: buffer underrun")
	}
	if n == 0 {
		return dateTimeFields{zero: true}, consumed, nil
	}
	p := data[1:]
	f := dateTimeFields{
		year:  int(binary.LittleEndian.Uint16(p[0:2])),
		month: int(p[2]),
		day:   int(p[3]),
	}
	if n >= 7 {
		f.hour = int(p[4])
		f.minute = int(p[5])
		f.second = int(p[6])
	}
	if n == 11 {
		f.microsecond = int(binary.LittleEndian.Uint32(p[7:11]))
	}
	if f.year == 0 && f.month == 0 && f.day == 0 {
		f.zero = true
	}
	return f, consumed, nil
}

func encodeBinaryDateTimeFields(f dateTimeFields, withDate, withTime bool) []byte {
	if f.zero {
		return []byte{0x00}
	}
	switch {
	case withTime && f.microsecond != 0:
		buf := make([]byte, 1+11)
		buf[0] = 11
		binary.LittleEndian.PutUint16(buf[1:3], uint16(f.year))
		buf[3], buf[4] = byte(f.month), byte(f.day)
		buf[5], buf[6], buf[7] = byte(f.hour), byte(f.minute), byte(f.second)
		binary.LittleEndian.PutUint32(buf[8:12], uint32(f.microsecond))
		return buf
	case withTime:
		buf := make([]byte, 1+7)
		buf[0] = 7
		binary.LittleEndian.PutUint16(buf[1:3], uint16(f.year))
		buf[3], buf[4] = byte(f.month), byte(f.day)
		buf[5], buf[6], buf[7] = byte(f.hour), byte(f.minute), byte(f.second)
		return buf
	case withDate:
		buf := make([]byte, 1+4)
		buf[0] = 4
		binary.LittleEndian.PutUint16(buf[1:3], uint16(f.year))
		buf[3], buf[4] = byte(f.month), byte(f.day)
		return buf
	default:
		return []byte{0x00}
	}
}

// TIME's binary form: sign(1) + days(4 LE) + hms(3) + optional
// microseconds(4 LE), all behind the same kind of length byte.
func decodeBinaryDuration(data []byte) (time.Duration, int, error) {
	if len(data) < 1 {
		return 0, 0, rxerrors.Wrap(rxerrors.ErrProtocolCorrupt, "time: missing length byte")
	}
	n := int(data[0])
	consumed := 1 + n
	if len(data) < consumed {
		return 0, 0, rxerrors.Wrap(rxerrors.ErrProtocolCorrupt, "time: buffer underrun")
	}
	if n == 0 {
		return 0, consumed, nil
	}
	p := data[1:]
	negative := p[0] == 1
	days := binary.LittleEndian.Uint32(p[1:5])
	hour, minute, second := p[5], p[6], p[7]
	var micro uint32
	if n == 12 {
		micro = binary.LittleEndian.Uint32(p[8:12])
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(micro)*time.Microsecond
	if negative {
		d = -d
	}
	return d, consumed, nil
}

func encodeBinaryDuration(d time.Duration) []byte {
	if d == 0 {
		return []byte{0x00}
	}
	negative := d < 0
	if negative {
		d = -d
	}
	days := uint32(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hour := uint32(d / time.Hour)
	d -= time.Duration(hour) * time.Hour
	minute := uint32(d / time.Minute)
	d -= time.Duration(minute) * time.Minute
	second := uint32(d / time.Second)
	d -= time.Duration(second) * time.Second
	micro := uint32(d / time.Microsecond)

	n := 8
	if micro != 0 {
		n = 12
	}
	buf := make([]byte, 1+n)
	buf[0] = byte(n)
	if negative {
		buf[1] = 1
	}
	binary.LittleEndian.PutUint32(buf[2:6], days)
	buf[6], buf[7], buf[8] = byte(hour), byte(minute), byte(second)
	if n == 12 {
		binary.LittleEndian.PutUint32(buf[9:13], micro)
	}
	return buf
}

// parseTextDateTime parses "YYYY-MM-DD[ HH:MM:SS[.ffffff]]" tolerant
// of trailing zeros / shorter fractional parts.
func parseTextDateTime(s string) (dateTimeFields, error) {
	s = strings.TrimSpace(s)
	if s == "0000-00-00" || strings.HasPrefix(s, "0000-00-00 00:00:00") {
		return dateTimeFields{zero: true}, nil
	}
	var f dateTimeFields
	datePart, timePart, hasTime := strings.Cut(s, " ")
	dp := strings.Split(datePart, "-")
	if len(dp) != 3 {
		return f, fmt.Errorf("malformed date %q", s)
	}
	var err error
	if f.year, err = strconv.Atoi(dp[0]); err != nil {
		return f, err
	}
	if f.month, err = strconv.Atoi(dp[1]); err != nil {
		return f, err
	}
	if f.day, err = strconv.Atoi(dp[2]); err != nil {
		return f, err
	}
	if hasTime {
		clock, frac, hasFrac := strings.Cut(timePart, ".")
		tp := strings.Split(clock, ":")
		if len(tp) != 3 {
			return f, fmt.Errorf("malformed time %q", s)
		}
		if f.hour, err = strconv.Atoi(tp[0]); err != nil {
			return f, err
		}
		if f.minute, err = strconv.Atoi(tp[1]); err != nil {
			return f, err
		}
		if f.second, err = strconv.Atoi(tp[2]); err != nil {
			return f, err
		}
		if hasFrac {
			for len(frac) < 6 {
				frac += "0"
			}
			frac = frac[:6]
			if f.microsecond, err = strconv.Atoi(frac); err != nil {
				return f, err
			}
		}
	}
	return f, nil
}

func formatTextDateTime(f dateTimeFields, withTime bool) string {
	if f.zero {
		if withTime {
			return "0000-00-00 00:00:00"
		}
		return "0000-00-00"
	}
	out := fmt.Sprintf("%04d-%02d-%02d", f.year, f.month, f.day)
	if withTime {
		out += fmt.Sprintf(" %02d:%02d:%02d", f.hour, f.minute, f.second)
		if f.microsecond != 0 {
			out += fmt.Sprintf(".%06d", f.microsecond)
		}
	}
	return out
}

func parseTextDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	clock, frac, hasFrac := strings.Cut(s, ".")
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	if hasFrac {
		for len(frac) < 6 {
			frac += "0"
		}
		micro, err := strconv.Atoi(frac[:6])
		if err != nil {
			return 0, err
		}
		d += time.Duration(micro) * time.Microsecond
	}
	if negative {
		d = -d
	}
	return d, nil
}

func formatTextDuration(d time.Duration) string {
	negative := d < 0
	if negative {
		d = -d
	}
	totalHours := int64(d / time.Hour)
	d -= time.Duration(totalHours) * time.Hour
	m := int64(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	sec := int64(d / time.Second)
	d -= time.Duration(sec) * time.Second
	micro := int64(d / time.Microsecond)

	out := fmt.Sprintf("%02d:%02d:%02d", totalHours, m, sec)
	if micro != 0 {
		out = fmt.Sprintf("%s.%06d", out, micro)
	}
	if negative {
		out = "-" + out
	}
	return out
}

func fieldsToTime(f dateTimeFields, loc *time.Location) time.Time {
	return time.Date(f.year, time.Month(f.month), f.day, f.hour, f.minute, f.second, f.microsecond*1000, loc)
}

func timeToFields(t time.Time) dateTimeFields {
	return dateTimeFields{
		year: t.Year(), month: int(t.Month()), day: t.Day(),
		hour: t.Hour(), minute: t.Minute(), second: t.Second(),
		microsecond: t.Nanosecond() / 1000,
	}
}

// dateTimeCodec covers DATE, DATETIME and TIMESTAMP, across LocalDate/
// LocalDateTime/Zoned/Offset/Instant targets.
type dateTimeCodec struct {
	col      ColumnType
	withTime bool
}

func (c dateTimeCodec) Name() string { return "datetime:" + c.col.String() }

func (c dateTimeCodec) CanDecode(col ColumnType, target TargetType) bool {
	if col != c.col {
		return false
	}
	switch target {
	case TargetAny, TargetLocalDate, TargetLocalDateTime, TargetZonedDateTime, TargetOffsetDateTime, TargetInstant, TargetString:
		return true
	}
	return false
}

func (c dateTimeCodec) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	var f dateTimeFields
	var consumed int
	var err error

	if binary {
		f, consumed, err = decodeBinaryDateTimeFields(data)
	} else {
		payload, isNull, n, perr := decodeTextPayload(data)
		if perr != nil {
			return nil, 0, perr
		}
		if isNull {
			return nil, n, nil
		}
		consumed = n
		f, err = parseTextDateTime(string(payload))
	}
	if err != nil {
		return nil, 0, rxerrors.Wrapf(rxerrors.ErrDecodeSyntax, "datetime: %v", err)
	}

	if f.zero {
		if ctx != nil && ctx.PreserveInstants {
			return time.Time{}, consumed, nil
		}
		return nil, consumed, nil
	}

	if target == TargetString {
		return formatTextDateTime(f, c.withTime), consumed, nil
	}

	clientLoc := time.UTC
	if ctx != nil && ctx.ClientZone != nil {
		clientLoc = ctx.ClientZone.Location()
	}

	switch target {
	case TargetZonedDateTime, TargetOffsetDateTime, TargetInstant:
		if ctx == nil || ctx.ServerZone == nil {
			return nil, 0, rxerrors.Wrap(rxerrors.ErrUnsupportedConversion, "datetime: no server zone resolved")
		}
		local := fieldsToTime(f, ctx.ServerZone.Zone.Location())
		switch target {
		case TargetZonedDateTime:
			return local, consumed, nil
		case TargetOffsetDateTime:
			if off, ok := ctx.ServerZone.Zone.FixedOffset(); ok {
				return local.In(time.FixedZone(offsetName(off), off)), consumed, nil
			}
			_, offsetSeconds := local.Zone()
			return local.In(time.FixedZone(offsetName(offsetSeconds), offsetSeconds)), consumed, nil
		default: // TargetInstant
			return local.In(time.UTC), consumed, nil
		}
	default: // TargetAny, TargetLocalDate, TargetLocalDateTime
		return fieldsToTime(f, clientLoc), consumed, nil
	}
}

// CanEncode is only true for the DATETIME codec instance: a bare
// time.Time has no DATE-vs-DATETIME marker of its own, so encoding
// always emits the DATETIME nominal type and lets the server coerce it
// to the target column, matching the teacher's time.Time parameter
// handling in writeExecutePacket.
func (c dateTimeCodec) CanEncode(v any) bool {
	_, ok := v.(time.Time)
	return ok && c.col == ColumnDateTime
}

func (c dateTimeCodec) Encode(ctx *CodecContext, v any) (*Param, error) {
	t := v.(time.Time)
	if ctx != nil && ctx.ServerZone != nil {
		t = t.In(ctx.ServerZone.Zone.Location())
	}
	f := timeToFields(t)
	buf := encodeBinaryDateTimeFields(f, true, c.withTime)
	return newParam(c.col, buf, formatTextDateTime(f, c.withTime)), nil
}

// durationCodec covers TIME, decoded as a signed time.Duration
// (default) or a LocalTime-flavoured time.Time when requested and in
// range.
type durationCodec struct{}

func (durationCodec) Name() string { return "duration" }

func (durationCodec) CanDecode(col ColumnType, target TargetType) bool {
	if col != ColumnTime {
		return false
	}
	switch target {
	case TargetAny, TargetDuration, TargetLocalTime, TargetString:
		return true
	}
	return false
}

func (durationCodec) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	var d time.Duration
	var consumed int
	var err error

	if binary {
		d, consumed, err = decodeBinaryDuration(data)
	} else {
		payload, isNull, n, perr := decodeTextPayload(data)
		if perr != nil {
			return nil, 0, perr
		}
		if isNull {
			return nil, n, nil
		}
		consumed = n
		d, err = parseTextDuration(string(payload))
	}
	if err != nil {
		return nil, 0, rxerrors.Wrapf(rxerrors.ErrDecodeSyntax, "time: %v", err)
	}

	switch target {
	case TargetString:
		return formatTextDuration(d), consumed, nil
	case TargetLocalTime:
		if d < 0 || d >= 24*time.Hour {
			return nil, 0, rxerrors.Wrap(rxerrors.ErrUnsupportedConversion, "time: value out of LocalTime range [0,24h)")
		}
		return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d), consumed, nil
	default:
		return d, consumed, nil
	}
}

func (durationCodec) CanEncode(v any) bool {
	_, ok := v.(time.Duration)
	return ok
}

func (durationCodec) Encode(ctx *CodecContext, v any) (*Param, error) {
	d := v.(time.Duration)
	return newParam(ColumnTime, encodeBinaryDuration(d), formatTextDuration(d)), nil
}

// yearCodec decodes/encodes the YEAR column as the Year type,
// distinct from the integer umbrella codecs that also claim YEAR for
// TargetAny/Integer/Long.
type yearCodec struct{}

func (yearCodec) Name() string { return "year" }

func (yearCodec) CanDecode(col ColumnType, target TargetType) bool {
	return col == ColumnYear && target == TargetYear
}

func (yearCodec) Decode(ctx *CodecContext, meta ColumnMeta, target TargetType, binary bool, data []byte) (any, int, error) {
	if binary {
		_, u, n, err := decodeFixedInt(ColumnYear, data)
		if err != nil {
			return nil, 0, err
		}
		return Year(u), n, nil
	}
	payload, isNull, n, err := decodeTextPayload(data)
	if err != nil {
		return nil, 0, err
	}
	if isNull {
		return nil, n, nil
	}
	_, u, err := parseIntegerText(payload, true)
	if err != nil {
		return nil, 0, err
	}
	return Year(u), n, nil
}

func (yearCodec) CanEncode(v any) bool {
	_, ok := v.(Year)
	return ok
}

func (yearCodec) Encode(ctx *CodecContext, v any) (*Param, error) {
	y := v.(Year)
	return encodeFixedWidth(ColumnYear, 2, uint64(y)), nil
}

func temporalCodecs() []Codec {
	return []Codec{
		dateTimeCodec{col: ColumnDate, withTime: false},
		dateTimeCodec{col: ColumnDateTime, withTime: true},
		dateTimeCodec{col: ColumnTimestamp, withTime: true},
		durationCodec{},
		yearCodec{},
	}
}
