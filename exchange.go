package rxmysql

import "context"

// This file defines the seams between the connection state machine and
// the collaborators spec.md places out of scope: the byte-level frame
// codec, the transport, the auth handshake, the asynchronous "exchange"
// pipeline, and result-row metadata parsing. Connection depends only on
// these interfaces; nothing in this tree implements their wire-level
// bodies, matching the teacher's mysqlConn/packets.go split between
// connection-state logic and packet I/O, generalized so the state
// machine no longer assumes a concrete net.Conn.

// CompletionMessage is what one network exchange resolves to: either an
// OK/EOF completion (affected rows, last insert id, the server-status
// word) or a result set header, never both. Mirrors the information an
// okHandler.handleOkPacket call extracts from the teacher's OK packet.
type CompletionMessage struct {
	AffectedRows uint64
	InsertID     uint64
	Status       statusFlag
	Warnings     uint16

	// ColumnCount is non-zero when this exchange produced a result set
	// rather than a bare completion.
	ColumnCount int
}

// ServerErrorMessage is what one network exchange resolves to on an ERR
// packet.
type ServerErrorMessage struct {
	Code     uint16
	SQLState string
	Message  string
}

// RowSource streams decoded column metadata and raw row payloads for
// one result set. Next returns one already-delimited byte slice per
// column: the length-encoding a value carries — the text protocol's
// per-column length-encoded string and the binary protocol's
// length-encoded string for VARCHAR/BLOB/DECIMAL/BIT — is already
// stripped by the row reader that produced the slice before the codec
// registry ever sees it. The binary DATE/TIME/DATETIME/TIMESTAMP forms
// are the exception: their slice starts with the form's own length
// byte, which the temporal codecs read themselves. SQL NULL is signalled by a
// nil slice at that column's index, never by a protocol-specific
// sentinel byte. It returns io.EOF-shaped done=true at the result set
// terminator. Mirrors the teacher's binaryRows/textRows.Next shape in
// rows.go, generalized from driver.Value to raw bytes so the codec
// registry, not the row reader, owns target-type decisions.
type RowSource interface {
	Columns() []ColumnMeta
	Binary() bool
	Next(ctx context.Context) (row [][]byte, done bool, err error)
	Close() error
}

// Exchanger performs one request/response network exchange and is the
// only collaborator the connection state machine talks to for wire
// traffic. A real implementation owns the transport, the frame codec,
// and sequencing; every method may suspend until the server's response
// is complete, per spec.md §5's single-threaded-cooperative-per-
// connection model.
type Exchanger interface {
	// Query issues a COM_QUERY (or, for a simple statement with no
	// parameters, the only exchange a text-simple statement performs)
	// and returns either a completion or a RowSource.
	Query(ctx context.Context, sql string) (*CompletionMessage, RowSource, error)

	// Prepare issues COM_STMT_PREPARE and returns a handle id, the
	// parameter count, and result column metadata.
	Prepare(ctx context.Context, sql string) (handle PreparedHandle, paramCount int, columns []ColumnMeta, err error)

	// Execute issues COM_STMT_EXECUTE against a previously prepared
	// handle with the given binary parameter payload (already encoded
	// by the codec registry via Binding.WriteBinaryPayloads).
	Execute(ctx context.Context, handle PreparedHandle, params [][]byte, nullBitmap []byte) (*CompletionMessage, RowSource, error)

	// CloseStatement issues COM_STMT_CLOSE; errors are logged, never
	// propagated (spec.md §7 "Background eviction ... must swallow and
	// log errors").
	CloseStatement(ctx context.Context, handle PreparedHandle) error

	// Ping issues COM_PING and reports whether the OK frame came back.
	Ping(ctx context.Context) (bool, error)

	// InitDB issues a COM_INIT_DB (the protocol form of USE <db>, not a
	// SQL statement; spec.md §6).
	InitDB(ctx context.Context, name string) error

	// Quit issues COM_QUIT and tears down the transport.
	Quit(ctx context.Context) error
}

// PreparedHandle is the opaque server-assigned statement id (spec.md
// §3 "Prepared statement handle").
type PreparedHandle uint32
