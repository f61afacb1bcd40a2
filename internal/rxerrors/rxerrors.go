// Package rxerrors defines the error taxonomy shared across the driver
// core: transport, protocol, server, decode and usage failures and use
// after close, plus the parameter-reuse and no-codec cases that are
// specific to the codec registry. Validation failures are not errors:
// Connection.Validate reports them as false.
package rxerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors. Wrap with errors.Wrap/errors.Wrapf at the call site
// so context (column name, SQL, etc.) travels with the stack trace.
var (
	// ErrTransport marks an unrecoverable transport-level failure. Once
	// seen, further operations on the same connection return it again.
	ErrTransport = errors.New("rxmysql: transport failure")

	// ErrProtocolCorrupt marks a malformed or truncated frame payload.
	ErrProtocolCorrupt = errors.New("rxmysql: protocol corrupt")

	// ErrUnsupportedConversion marks a decode requested between a column
	// type and a target type no codec claims.
	ErrUnsupportedConversion = errors.New("rxmysql: unsupported conversion")

	// ErrDecodeSyntax marks a text-protocol parse failure.
	ErrDecodeSyntax = errors.New("rxmysql: decode syntax error")

	// ErrNoCodec marks an encode of a value whose runtime type no codec
	// claims.
	ErrNoCodec = errors.New("rxmysql: no codec for value")

	// ErrParamReused marks a second emission attempt on a Parameter that
	// already wrote itself to a channel.
	ErrParamReused = errors.New("rxmysql: parameter already consumed")

	// ErrUsage marks a synchronous argument-validation rejection; no
	// wire traffic is produced for these.
	ErrUsage = errors.New("rxmysql: usage error")

	// ErrClosed marks an operation attempted after Close.
	ErrClosed = errors.New("rxmysql: connection closed")
)

// ServerError is a surfaced MySQL ERR packet: error code + SQLSTATE +
// message. The connection remains usable unless the state is
// independently marked fatal by the caller.
type ServerError struct {
	Code     uint16
	SQLState string
	Message  string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("rxmysql: server error %d (%s): %s", e.Code, e.SQLState, e.Message)
}

// Wrap adds a message and stack trace to an existing error. Thin
// passthrough kept so callers don't import pkg/errors directly.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Is exposes errors.Is without requiring callers to import two error
// packages.
func Is(err, target error) bool { return errors.Is(err, target) }
