package rxmysql

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/reactivesky/rxmysql/internal/rxerrors"
)

// paramBufPool rents the byte buffers Parameters serialise into.
// Adapted from the teacher's buffer.go double-buffering pool
// (newBuffer/reset), generalized from one per-connection bufio to a
// shared sync.Pool since Parameters are built and released across many
// concurrent statements rather than one connection's read/write cycle.
var paramBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64)
		return &b
	},
}

func takeParamBuf() *[]byte {
	b := paramBufPool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

func releaseParamBuf(b *[]byte) {
	if cap(*b) > 4096 {
		// Don't let one oversized blob param grow the pool's steady
		// state; let it be collected instead.
		return
	}
	paramBufPool.Put(b)
}

// Param is an encoder-backed value: its nominal MySQL type tag, a
// binary-bytes serialisation, and a text-literal serialisation.
// Immutable once created. Each emission channel (binary, text) can be
// consumed at most once; a second attempt on the same channel returns
// ErrParamReused (spec.md §4.1 "Encode side state machine").
type Param struct {
	Type ColumnType
	Null bool

	binary *[]byte // rented from paramBufPool
	text   string  // SQL literal, already quoted/escaped if needed

	binaryWritten atomic.Bool
	textWritten   atomic.Bool
}

// NullParam returns the Parameter for an encoded SQL NULL.
func NullParam() *Param {
	return &Param{Type: ColumnNull, Null: true}
}

// newParam builds a Parameter from its binary payload and text
// literal, both produced by the codec at encode time.
func newParam(t ColumnType, binaryPayload []byte, text string) *Param {
	b := takeParamBuf()
	*b = append(*b, binaryPayload...)
	return &Param{Type: t, binary: b, text: text}
}

// WriteBinary appends this Parameter's binary representation to dst
// and returns the result. Variable-length string/blob/decimal/bit-set
// types are prefixed with a generic length-encoded integer, the same
// framing MySQL's binary parameter encoding uses for STRING-typed bind
// values. Fixed-width numeric types are written bare. DATE/TIME/
// DATETIME/TIMESTAMP are "self-framed": their own codec already wrote a
// leading length byte as part of the 0/4/7/8/11/12-byte temporal
// format, so no second wrapper is added on top (double-prefixing would
// corrupt the value). May be called at most once.
func (p *Param) WriteBinary(dst []byte) ([]byte, error) {
	if p.Null {
		return dst, nil
	}
	if !p.binaryWritten.CompareAndSwap(false, true) {
		return dst, rxerrors.ErrParamReused
	}
	if p.Type.fixedSize() == 0 && !p.Type.selfFramed() {
		dst = appendLengthEncodedInt(dst, uint64(len(*p.binary)))
	}
	return append(dst, (*p.binary)...), nil
}

// TextWriter is the minimal textual-parameter-writer contract a Param
// writes itself into for the text protocol; satisfied by *bytes.Buffer
// and anything with the same method.
type TextWriter interface {
	WriteString(s string) (int, error)
}

// WriteText renders this Parameter as a SQL literal into w. May be
// called at most once.
func (p *Param) WriteText(w TextWriter) error {
	if p.Null {
		_, err := w.WriteString("NULL")
		return err
	}
	if !p.textWritten.CompareAndSwap(false, true) {
		return rxerrors.ErrParamReused
	}
	_, err := w.WriteString(p.text)
	return err
}

// Release returns the Param's rented buffer to the pool. Safe to call
// after either emission channel has consumed the Param, or on dispatch
// failure before either did.
func (p *Param) Release() {
	if p.binary != nil {
		releaseParamBuf(p.binary)
		p.binary = nil
	}
}

// Equal implements the value-equality-by-(type,bytes) contract from
// spec.md §3.
func (p *Param) Equal(o *Param) bool {
	if p.Null || o.Null {
		return p.Null == o.Null
	}
	if p.Type != o.Type {
		return false
	}
	return bytes.Equal(*p.binary, *o.binary)
}
