package rxmysql

// appendLengthEncodedInt appends n's length-encoded-integer form to
// dst, matching the teacher's appendLengthEncodedInteger four-tier
// encoding (packets.go). This is the client's own outbound wire
// encoding for variable-length binary parameters (param.go's
// WriteBinary) — the one place this module still produces a
// length-encoded-integer wrapper. Decoding never peels one back off:
// RowSource already hands the codec registry one pre-split,
// already-stripped payload per column (exchange.go's RowSource.Next
// contract), so a codec's Decode never sees this framing.
func appendLengthEncodedInt(dst []byte, n uint64) []byte {
	switch {
	case n <= 250:
		return append(dst, byte(n))
	case n <= 0xffff:
		return append(dst, 0xfc, byte(n), byte(n>>8))
	case n <= 0xffffff:
		return append(dst, 0xfd, byte(n), byte(n>>8), byte(n>>16))
	default:
		return append(dst, 0xfe,
			byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
			byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
	}
}
