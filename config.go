package rxmysql

import (
	"time"

	"github.com/reactivesky/rxmysql/internal/rxlog"
)

// Server names the two wire-compatible server families the init
// handshake's isolation-column policy (§4.2) distinguishes between.
type Server int

const (
	ServerMySQL Server = iota
	ServerMariaDB
)

func (s Server) String() string {
	if s == ServerMariaDB {
		return "MariaDB"
	}
	return "MySQL"
}

// ServerVariant pins down the server family and version the connection
// is talking to. It drives the isolation-column selection table in
// §4.2 and is usually populated from the handshake greeting the
// out-of-scope auth collaborator already parsed.
type ServerVariant struct {
	Server  Server
	Version Version
}

// Version is a parsed X.Y.Z server version, comparable field by field.
type Version struct {
	Major, Minor, Patch int
}

// Compare returns -1, 0, or 1 the way sort comparators do.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return sign(v.Major - o.Major)
	case v.Minor != o.Minor:
		return sign(v.Minor - o.Minor)
	default:
		return sign(v.Patch - o.Patch)
	}
}

func (v Version) AtLeast(o Version) bool { return v.Compare(o) >= 0 }
func (v Version) Less(o Version) bool    { return v.Compare(o) < 0 }

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// Config carries everything the connection state machine and codec
// registry need that isn't discovered from the server itself. It
// generalizes the teacher's DSN-derived Config to the reactive core's
// needs; transport/TLS/auth fields belong to the out-of-scope
// collaborator that owns the socket, not here.
type Config struct {
	// Variant drives the init handshake's isolation-column policy.
	Variant ServerVariant

	// Database, if non-empty, is USEd during init; if it does not
	// exist the state machine attempts CREATE DATABASE IF NOT EXISTS
	// before retrying USE.
	Database string

	// DiscoverServerZone requests the two extra @@system_time_zone /
	// @@time_zone columns in the init discovery query.
	DiscoverServerZone bool

	// ClientLocation is the zone naive temporal values are assumed to
	// be expressed in on the client side. Defaults to time.Local.
	ClientLocation *time.Location

	// PreserveInstants, when true, keeps zero-dates
	// (0000-00-00[...]) as a sentinel rather than a null marker; see
	// codec_time.go.
	PreserveInstants bool

	// TinyAsBoolean requests that signed TINYINT columns, of any
	// display width, decode to Go bool when the target type is
	// TargetAny.
	TinyAsBoolean bool

	// DefaultCharset is carried into CodecContext.DefaultCharset.
	// "utf8mb4" if empty. String parameters are always sent as their
	// UTF-8 bytes; this setting does not change their encoding.
	DefaultCharset string

	// PreparedCacheSize bounds the prepared-statement cache (component
	// C). Zero disables caching (always re-PREPARE).
	PreparedCacheSize int

	// QueryCacheSize bounds the parsed-query cache (component D).
	QueryCacheSize int

	// MultiStatements reports whether the server connection negotiated
	// the MULTI_STATEMENTS capability, which lets BEGIN's attribute
	// statements be batched into one exchange instead of serialised.
	MultiStatements bool

	// Logger receives the connection's debug lines: the init discovery
	// query, database creation, each BEGIN-sequence statement, failed
	// pings, and swallowed statement-close and pre-release rollback
	// errors. COMMIT, ROLLBACK, standalone SET statements, PREPARE,
	// execute and successful pings are not logged. Defaults to a zap
	// production logger (rxlog.NewZapLogger).
	Logger rxlog.Logger
}

func (c *Config) logger() rxlog.Logger {
	if c == nil || c.Logger == nil {
		return rxlog.NewZapLogger()
	}
	return c.Logger
}

func (c *Config) clientLocation() *time.Location {
	if c == nil || c.ClientLocation == nil {
		return time.Local
	}
	return c.ClientLocation
}

func (c *Config) defaultCharset() string {
	if c == nil || c.DefaultCharset == "" {
		return "utf8mb4"
	}
	return c.DefaultCharset
}
