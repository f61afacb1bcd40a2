// Package rxlog provides the driver's logging seam. The shape mirrors
// shogo82148-mysql's Config.Logger field: a narrow interface a caller
// can satisfy with anything from the standard log package to a
// structured logger, so the core never hard-codes a logging backend.
package rxlog

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger is the interface the connection state machine logs through. Deliberately as small as the teacher's
// equivalent (Print(v ...interface{})).
type Logger interface {
	Print(v ...interface{})
}

// Debugf logs a formatted debug-level line through a Logger. Kept as a
// free function (not a Logger method) so Logger stays a one-method
// interface callers can satisfy trivially.
func Debugf(l Logger, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.Print(fmt.Sprintf(format, args...))
}

// ZapLogger adapts *zap.SugaredLogger to Logger. This is the default
// used when a caller does not supply their own.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger builds a ZapLogger around a production zap logger. Falls
// back to a no-op logger if zap construction fails, since logging setup
// must never block driver startup.
func NewZapLogger() *ZapLogger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &ZapLogger{s: z.Sugar()}
}

// Print implements Logger.
func (z *ZapLogger) Print(v ...interface{}) {
	z.s.Debug(v...)
}

// Sync flushes any buffered log entries.
func (z *ZapLogger) Sync() error {
	return z.s.Sync()
}

// nopLogger is a Logger that discards everything.
type nopLogger struct{}

func (nopLogger) Print(v ...interface{}) {}

// Nop is the shared no-op Logger instance.
var Nop Logger = nopLogger{}
