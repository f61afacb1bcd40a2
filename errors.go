package rxmysql

import "github.com/reactivesky/rxmysql/internal/rxerrors"

// Re-exported sentinels, mirroring the teacher's flat errors.go
// (ErrInvalidConn, ErrMalformPkt, ...) generalized to the taxonomy in
// spec.md §7.
var (
	ErrTransport             = rxerrors.ErrTransport
	ErrProtocolCorrupt       = rxerrors.ErrProtocolCorrupt
	ErrUnsupportedConversion = rxerrors.ErrUnsupportedConversion
	ErrDecodeSyntax          = rxerrors.ErrDecodeSyntax
	ErrNoCodec               = rxerrors.ErrNoCodec
	ErrParamReused           = rxerrors.ErrParamReused
	ErrUsage                 = rxerrors.ErrUsage
	ErrClosed                = rxerrors.ErrClosed
)

// ServerError is re-exported so callers can type-assert without
// reaching into the internal package.
type ServerError = rxerrors.ServerError

// Wrap and Wrapf re-export the taxonomy's stack-carrying wrap helpers
// so callers outside internal/rxerrors don't need a second import.
func Wrap(err error, msg string) error                    { return rxerrors.Wrap(err, msg) }
func Wrapf(err error, format string, args ...any) error    { return rxerrors.Wrapf(err, format, args...) }
