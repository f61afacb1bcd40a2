package rxmysql

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/reactivesky/rxmysql/internal/rxlog"
)

// ConnState is one state of the lifecycle in spec.md §4.2:
// CONNECTED -> INITIALISED -> IDLE <-> IN_TRANSACTION -> CLOSING -> CLOSED.
type ConnState int32

const (
	StateConnected ConnState = iota
	StateInitialised
	StateIdle
	StateInTransaction
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateInitialised:
		return "INITIALISED"
	case StateIdle:
		return "IDLE"
	case StateInTransaction:
		return "IN_TRANSACTION"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// stateWord is a single-writer-many-reader atomic holder for
// ConnState, generalizing the teacher's atomicBool (atomic_bool_go118.go)
// from a two-valued flag to the six-state lifecycle enum.
type stateWord struct{ v atomic.Int32 }

func (w *stateWord) Load() ConnState     { return ConnState(w.v.Load()) }
func (w *stateWord) Store(s ConnState)    { w.v.Store(int32(s)) }

// IsolationLevel is the session/transaction isolation level tracked by
// the state machine (spec.md §3, §4.2).
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

func (l IsolationLevel) String() string {
	switch l {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "REPEATABLE READ"
	}
}

// parseIsolationLevel parses the server's discovery-query value
// ("READ-UNCOMMITTED", "REPEATABLE-READ", ...); unrecognized values
// default to RepeatableRead with a logged warning (spec.md §4.2).
func parseIsolationLevel(s string, logger rxlog.Logger) IsolationLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "READ-UNCOMMITTED":
		return ReadUncommitted
	case "READ-COMMITTED":
		return ReadCommitted
	case "REPEATABLE-READ":
		return RepeatableRead
	case "SERIALIZABLE":
		return Serializable
	default:
		logger.Print(fmt.Sprintf("rxmysql: unrecognized isolation level %q, defaulting to REPEATABLE READ", s))
		return RepeatableRead
	}
}

// isolationColumn implements the server-variant policy table from
// spec.md §4.2.
func isolationColumn(variant ServerVariant) string {
	v := variant.Version
	switch variant.Server {
	case ServerMariaDB:
		if v.AtLeast(Version{11, 1, 1}) {
			return "@@transaction_isolation"
		}
		return "@@tx_isolation"
	default: // ServerMySQL
		if v.AtLeast(Version{8, 0, 3}) {
			return "@@transaction_isolation"
		}
		if v.AtLeast(Version{5, 7, 20}) && v.Less(Version{8, 0, 0}) {
			return "@@transaction_isolation"
		}
		return "@@tx_isolation"
	}
}

// TransactionDefinition carries the optional attributes a BEGIN may
// override (spec.md §4.2 "IDLE -> IN_TRANSACTION").
type TransactionDefinition struct {
	Isolation          *IsolationLevel
	ReadOnly           bool
	ConsistentSnapshot bool
	LockWaitTimeout    *int // seconds
}

// quoteIdentifier backtick-quotes id, doubling any internal backtick
// (spec.md §6).
func quoteIdentifier(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// Connection is component F: the connection state machine. It owns the
// prepared-statement cache, the query cache, the codec registry context,
// and session/transaction tracking state; it drives an Exchanger for
// every network exchange but never touches the transport or frame codec
// directly (those are out-of-scope collaborators, spec.md §1).
type Connection struct {
	cfg       *Config
	exchanger Exchanger
	registry  *Registry
	queries   *QueryCache
	stmts     *StmtCache
	logger    rxlog.Logger
	traceID   uuid.UUID

	state  stateWord
	status serverStatus

	sessionIsolation IsolationLevel
	currentIsolation IsolationLevel

	sessionLockWaitTimeout int
	currentLockWaitTimeout int

	statementTimeout int64 // nanoseconds; see SetStatementTimeout

	serverZone  *ServerZone
	versionComment string

	codecCtx *CodecContext
}

// NewConnection wraps an already-authenticated Exchanger (the
// out-of-scope collaborator that owns the socket, TLS and auth
// handshake) with the state machine, caches and codec registry this
// package is responsible for. The returned Connection starts in state
// CONNECTED; call Init to run the discovery step and reach INITIALISED.
func NewConnection(cfg *Config, exchanger Exchanger) *Connection {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Connection{
		cfg:       cfg,
		exchanger: exchanger,
		registry:  NewRegistry(),
		queries:   NewQueryCache(cfg.QueryCacheSize),
		stmts:     NewStmtCache(cfg.PreparedCacheSize),
		logger:    cfg.logger(),
		traceID:   uuid.New(),
	}
	c.state.Store(StateConnected)
	return c
}

func (c *Connection) debugf(format string, args ...any) {
	rxlog.Debugf(c.logger, "[%s] "+format, append([]any{c.traceID}, args...)...)
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState { return c.state.Load() }

// Init runs the CONNECTED -> INITIALISED transition: the discovery
// query, isolation/lock-timeout/zone parsing, and the optional USE
// <database> (with CREATE DATABASE IF NOT EXISTS fallback). Modeled as
// a plain sequence of steps per spec.md §9 "Suspended control flow".
func (c *Connection) Init(ctx context.Context) error {
	if c.State() != StateConnected {
		return Wrapf(ErrUsage, "Init: connection must be CONNECTED, is %s", c.State())
	}

	sql := c.buildDiscoveryQuery()
	c.debugf("init: discovery query %q", sql)

	completion, rows, err := c.exchanger.Query(ctx, sql)
	if err != nil {
		return Wrap(err, "rxmysql: init discovery query failed")
	}
	if rows == nil {
		return Wrap(ErrProtocolCorrupt, "rxmysql: init discovery query returned no result set")
	}
	defer rows.Close()

	row, done, err := rows.Next(ctx)
	if err != nil {
		return Wrap(err, "rxmysql: init discovery row read failed")
	}
	if done {
		return Wrap(ErrProtocolCorrupt, "rxmysql: init discovery query returned no rows")
	}
	if completion != nil {
		c.status.store(completion.Status)
	}

	idx := 0
	next := func() string {
		if idx >= len(row) {
			return ""
		}
		v := string(row[idx])
		idx++
		return v
	}

	c.sessionIsolation = parseIsolationLevel(next(), c.logger)
	c.currentIsolation = c.sessionIsolation

	c.sessionLockWaitTimeout = parseLockWaitTimeout(next(), c.logger)
	c.currentLockWaitTimeout = c.sessionLockWaitTimeout

	c.versionComment = next()

	if c.cfg.DiscoverServerZone {
		systemTZ := next()
		timeZone := next()
		c.serverZone = ResolveServerZone(timeZone, systemTZ, c.logger)
	} else {
		c.serverZone = &ServerZone{ID: "UTC", Zone: NamedZone(time.UTC)}
	}

	c.codecCtx = &CodecContext{
		ServerZone:       c.serverZone,
		ClientZone:       NamedZone(c.cfg.clientLocation()),
		PreserveInstants: c.cfg.PreserveInstants,
		TinyAsBoolean:    c.cfg.TinyAsBoolean,
		DefaultCharset:   c.cfg.defaultCharset(),
		ServerVersion:    c.cfg.Variant.Version,
	}

	if c.cfg.Database != "" {
		if err := c.useDatabase(ctx, c.cfg.Database); err != nil {
			return err
		}
	}

	c.state.Store(StateInitialised)
	c.transitionToIdle()
	return nil
}

func (c *Connection) buildDiscoveryQuery() string {
	col := isolationColumn(c.cfg.Variant)
	sql := fmt.Sprintf("SELECT %s AS i, @@innodb_lock_wait_timeout AS l, @@version_comment AS v", col)
	if c.cfg.DiscoverServerZone {
		sql += ", @@system_time_zone AS s, @@time_zone AS t"
	}
	return sql
}

func parseLockWaitTimeout(s string, logger rxlog.Logger) int {
	if s == "" {
		return 50
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		logger.Print(fmt.Sprintf("rxmysql: unparseable lock_wait_timeout %q, defaulting to 50", s))
		return 50
	}
	return n
}

// useDatabase issues the USE <db> init-db message, attempting
// CREATE DATABASE IF NOT EXISTS <db> first if USE fails (spec.md §4.2).
// The second USE failing is fatal.
func (c *Connection) useDatabase(ctx context.Context, name string) error {
	if err := c.exchanger.InitDB(ctx, name); err == nil {
		return nil
	}

	createSQL := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", quoteIdentifier(name))
	c.debugf("init: database %q missing, issuing %q", name, createSQL)
	if _, _, err := c.exchanger.Query(ctx, createSQL); err != nil {
		return Wrapf(err, "rxmysql: CREATE DATABASE IF NOT EXISTS %s failed", name)
	}

	if err := c.exchanger.InitDB(ctx, name); err != nil {
		return Wrapf(err, "rxmysql: USE %s failed after CREATE DATABASE", name)
	}
	return nil
}

func (c *Connection) transitionToIdle() {
	if c.status.inTransaction() {
		c.state.Store(StateInTransaction)
	} else {
		c.state.Store(StateIdle)
	}
}

// CodecContext returns the immutable codec context produced at Init,
// for callers building their own decode/encode calls.
func (c *Connection) CodecContext() *CodecContext { return c.codecCtx }

// Begin issues BEGIN (or START TRANSACTION with def's modifiers),
// implementing the IDLE -> IN_TRANSACTION transition (spec.md §4.2).
func (c *Connection) Begin(ctx context.Context, def TransactionDefinition) error {
	if c.State() != StateIdle {
		return Wrapf(ErrUsage, "Begin: connection must be IDLE, is %s", c.State())
	}

	var stmts []string

	if def.Isolation != nil {
		stmts = append(stmts, fmt.Sprintf("SET TRANSACTION ISOLATION LEVEL %s", def.Isolation.String()))
	}
	if def.LockWaitTimeout != nil {
		stmts = append(stmts, fmt.Sprintf("SET innodb_lock_wait_timeout=%d", *def.LockWaitTimeout))
	}

	var begin strings.Builder
	begin.WriteString("START TRANSACTION")
	var modifiers []string
	if def.ReadOnly {
		modifiers = append(modifiers, "READ ONLY")
	}
	if def.ConsistentSnapshot {
		modifiers = append(modifiers, "WITH CONSISTENT SNAPSHOT")
	}
	if len(modifiers) == 0 {
		begin.Reset()
		begin.WriteString("BEGIN")
	} else {
		begin.WriteString(" ")
		begin.WriteString(strings.Join(modifiers, ", "))
	}
	stmts = append(stmts, begin.String())

	if err := c.runSequence(ctx, stmts); err != nil {
		return err
	}

	if def.Isolation != nil {
		c.currentIsolation = *def.Isolation
	}
	if def.LockWaitTimeout != nil {
		c.currentLockWaitTimeout = *def.LockWaitTimeout
	}
	c.state.Store(StateInTransaction)
	return nil
}

// runSequence issues stmts as one batched exchange if the server
// negotiated MULTI_STATEMENTS, otherwise serially (spec.md §4.2).
func (c *Connection) runSequence(ctx context.Context, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}
	if c.cfg.MultiStatements && len(stmts) > 1 {
		batched := strings.Join(stmts, "; ")
		c.debugf("begin: batched %q", batched)
		completion, rows, err := c.exchanger.Query(ctx, batched)
		if rows != nil {
			rows.Close()
		}
		if err != nil {
			return Wrap(err, "rxmysql: begin sequence failed")
		}
		if completion != nil {
			c.status.store(completion.Status)
		}
		return nil
	}
	for _, s := range stmts {
		c.debugf("begin: %q", s)
		completion, rows, err := c.exchanger.Query(ctx, s)
		if rows != nil {
			rows.Close()
		}
		if err != nil {
			return Wrapf(err, "rxmysql: statement %q failed", s)
		}
		if completion != nil {
			c.status.store(completion.Status)
		}
	}
	return nil
}

// endTransaction implements IN_TRANSACTION -> IDLE for both COMMIT and
// ROLLBACK: on success, current_isolation and current_lock_wait_timeout
// revert to their session values (spec.md §4.2).
func (c *Connection) endTransaction(ctx context.Context, sql string) error {
	if c.State() != StateInTransaction {
		return Wrapf(ErrUsage, "%s: connection must be IN_TRANSACTION, is %s", sql, c.State())
	}
	completion, rows, err := c.exchanger.Query(ctx, sql)
	if rows != nil {
		rows.Close()
	}
	if err != nil {
		return Wrapf(err, "rxmysql: %s failed", sql)
	}
	if completion != nil {
		c.status.store(completion.Status)
	}
	c.currentIsolation = c.sessionIsolation
	c.currentLockWaitTimeout = c.sessionLockWaitTimeout
	c.state.Store(StateIdle)
	return nil
}

// Commit issues COMMIT.
func (c *Connection) Commit(ctx context.Context) error { return c.endTransaction(ctx, "COMMIT") }

// Rollback issues ROLLBACK.
func (c *Connection) Rollback(ctx context.Context) error { return c.endTransaction(ctx, "ROLLBACK") }

// SetTransactionIsolationLevel implements the dual update rule from
// spec.md §4.2: outside a transaction it updates both the session and
// current level; inside one it updates only the current level.
func (c *Connection) SetTransactionIsolationLevel(ctx context.Context, level IsolationLevel) error {
	state := c.State()
	if state != StateIdle && state != StateInTransaction {
		return Wrapf(ErrUsage, "SetTransactionIsolationLevel: connection must be IDLE or IN_TRANSACTION, is %s", state)
	}

	sql := fmt.Sprintf("SET SESSION TRANSACTION ISOLATION LEVEL %s", level.String())
	completion, rows, err := c.exchanger.Query(ctx, sql)
	if rows != nil {
		rows.Close()
	}
	if err != nil {
		return Wrap(err, "rxmysql: SET SESSION TRANSACTION ISOLATION LEVEL failed")
	}
	if completion != nil {
		c.status.store(completion.Status)
	}

	c.currentIsolation = level
	if state == StateIdle {
		c.sessionIsolation = level
	}
	return nil
}

// SetLockWaitTimeout mirrors SetTransactionIsolationLevel's session/
// current split (SPEC_FULL §4): outside a transaction it updates both
// session and current timeout; inside one, only current.
func (c *Connection) SetLockWaitTimeout(ctx context.Context, seconds int) error {
	if seconds < 0 {
		return Wrapf(ErrUsage, "SetLockWaitTimeout: seconds must be >= 0, got %d", seconds)
	}
	state := c.State()
	if state != StateIdle && state != StateInTransaction {
		return Wrapf(ErrUsage, "SetLockWaitTimeout: connection must be IDLE or IN_TRANSACTION, is %s", state)
	}

	sql := fmt.Sprintf("SET innodb_lock_wait_timeout=%d", seconds)
	completion, rows, err := c.exchanger.Query(ctx, sql)
	if rows != nil {
		rows.Close()
	}
	if err != nil {
		return Wrap(err, "rxmysql: SET innodb_lock_wait_timeout failed")
	}
	if completion != nil {
		c.status.store(completion.Status)
	}

	c.currentLockWaitTimeout = seconds
	if state == StateIdle {
		c.sessionLockWaitTimeout = seconds
	}
	return nil
}

// SetAutoCommit resolves Open Question (a) from spec.md §9: no-ops
// when the requested state already matches the server-observed
// autocommit bit; otherwise emits SET autocommit={0|1} and updates the
// tracked bit only on confirmed success.
func (c *Connection) SetAutoCommit(ctx context.Context, enabled bool) error {
	if c.status.autocommit() == enabled {
		return nil
	}
	flag := 0
	if enabled {
		flag = 1
	}
	sql := fmt.Sprintf("SET autocommit=%d", flag)
	completion, rows, err := c.exchanger.Query(ctx, sql)
	if rows != nil {
		rows.Close()
	}
	if err != nil {
		return Wrap(err, "rxmysql: SET autocommit failed")
	}
	if completion != nil {
		c.status.store(completion.Status)
	}
	return nil
}

// SetStatementTimeout resolves Open Question (b) from spec.md §9: a
// declared but (today) unimplemented extension point. It validates the
// argument and stores it for a future wire-level hook without emitting
// any SQL.
func (c *Connection) SetStatementTimeout(d int64) error {
	if d < 0 {
		return Wrapf(ErrUsage, "SetStatementTimeout: duration must be >= 0, got %d", d)
	}
	atomic.StoreInt64(&c.statementTimeout, d)
	return nil
}

// Savepoint issues SAVEPOINT <id>.
func (c *Connection) Savepoint(ctx context.Context, name string) error {
	return c.savepointOp(ctx, "SAVEPOINT", name)
}

// ReleaseSavepoint issues RELEASE SAVEPOINT <id>.
func (c *Connection) ReleaseSavepoint(ctx context.Context, name string) error {
	return c.savepointOp(ctx, "RELEASE SAVEPOINT", name)
}

// RollbackToSavepoint issues ROLLBACK TO SAVEPOINT <id>.
func (c *Connection) RollbackToSavepoint(ctx context.Context, name string) error {
	return c.savepointOp(ctx, "ROLLBACK TO SAVEPOINT", name)
}

func (c *Connection) savepointOp(ctx context.Context, verb, name string) error {
	if name == "" {
		return Wrap(ErrUsage, "rxmysql: savepoint name must not be empty")
	}
	if c.State() != StateInTransaction {
		return Wrapf(ErrUsage, "%s: connection must be IN_TRANSACTION, is %s", verb, c.State())
	}
	sql := fmt.Sprintf("%s %s", verb, quoteIdentifier(name))
	completion, rows, err := c.exchanger.Query(ctx, sql)
	if rows != nil {
		rows.Close()
	}
	if err != nil {
		return Wrapf(err, "rxmysql: %s failed", sql)
	}
	if completion != nil {
		c.status.store(completion.Status)
	}
	return nil
}

// ValidationDepth selects how thorough Validate is.
type ValidationDepth int

const (
	// ValidateLocal reports transport liveness only, no network
	// traffic.
	ValidateLocal ValidationDepth = iota
	// ValidateRemote issues a server PING.
	ValidateRemote
)

// Validate never propagates an error: at ValidateLocal it reports
// whether the connection believes itself open; at ValidateRemote it
// issues PING and returns true only on the OK frame (spec.md §4.2,
// §7.6).
func (c *Connection) Validate(ctx context.Context, depth ValidationDepth) bool {
	state := c.State()
	if state == StateClosed || state == StateClosing {
		return false
	}
	if depth == ValidateLocal {
		return true
	}
	ok, err := c.exchanger.Ping(ctx)
	if err != nil {
		c.debugf("validate: ping failed: %v", err)
		return false
	}
	return ok
}

// PrepareStatement resolves a cached handle for sql or issues PREPARE
// on a miss, implementing component C's lookup contract. Callers must
// call ReleaseStatement when done executing against the handle.
func (c *Connection) PrepareStatement(ctx context.Context, sql string) (*PreparedStmt, error) {
	if stmt, ok := c.stmts.Get(sql); ok {
		return stmt, nil
	}
	handle, paramCount, columns, err := c.exchanger.Prepare(ctx, sql)
	if err != nil {
		return nil, Wrapf(err, "rxmysql: PREPARE %q failed", sql)
	}
	stmt := &PreparedStmt{SQL: sql, Handle: handle, ParamCount: paramCount, Columns: columns}
	c.stmts.Put(stmt)
	c.drainEvictedStatements(ctx)
	return stmt, nil
}

// ReleaseStatement ends the caller's borrow on stmt, closing it
// server-side if it was meanwhile evicted and this was the last
// borrower.
func (c *Connection) ReleaseStatement(ctx context.Context, stmt *PreparedStmt) {
	if c.stmts.Release(stmt) {
		c.closeStatementHandle(ctx, stmt)
	}
}

func (c *Connection) drainEvictedStatements(ctx context.Context) {
	for _, stmt := range c.stmts.DrainPendingCloses() {
		c.closeStatementHandle(ctx, stmt)
	}
}

func (c *Connection) closeStatementHandle(ctx context.Context, stmt *PreparedStmt) {
	if err := c.exchanger.CloseStatement(ctx, stmt.Handle); err != nil {
		c.debugf("close statement %d failed (swallowed): %v", stmt.Handle, err)
	}
}

// Execute runs sql (optionally bound to args) via the statement factory
// policy of spec.md §4.2, using preferPrepare (nil allowed) to choose
// between text and server-prepared dispatch.
func (c *Connection) Execute(ctx context.Context, sql string, args []any, preferPrepare PreferPrepare) (*CompletionMessage, RowSource, error) {
	state := c.State()
	if state != StateIdle && state != StateInTransaction {
		return nil, nil, Wrapf(ErrUsage, "Execute: connection must be IDLE or IN_TRANSACTION, is %s", state)
	}

	q := c.queries.Get(sql)
	kind := SelectStatementKind(q, preferPrepare)

	switch kind {
	case TextSimple:
		return c.exchanger.Query(ctx, sql)

	case PrepareSimple:
		stmt, err := c.PrepareStatement(ctx, sql)
		if err != nil {
			return nil, nil, err
		}
		defer c.ReleaseStatement(ctx, stmt)
		return c.exchanger.Execute(ctx, stmt.Handle, nil, nil)

	case TextParametrized:
		binding, err := NewBinding(c.codecCtx, c.registry, q.ParamCount(), args)
		if err != nil {
			return nil, nil, err
		}
		defer binding.Release()
		literalSQL, err := binding.FormatText(q)
		if err != nil {
			return nil, nil, err
		}
		return c.exchanger.Query(ctx, literalSQL)

	case PrepareParametrized:
		stmt, err := c.PrepareStatement(ctx, sql)
		if err != nil {
			return nil, nil, err
		}
		defer c.ReleaseStatement(ctx, stmt)

		binding, err := NewBinding(c.codecCtx, c.registry, stmt.ParamCount, args)
		if err != nil {
			return nil, nil, err
		}
		defer binding.Release()
		payloads, nullBitmap, err := binding.WriteBinaryPayloads()
		if err != nil {
			return nil, nil, err
		}
		return c.exchanger.Execute(ctx, stmt.Handle, payloads, nullBitmap)

	default:
		return nil, nil, Wrapf(ErrUsage, "Execute: unknown statement kind %v", kind)
	}
}

// preRelease runs before the connection is returned to an external
// pool: rolls back if still in a transaction, no-op otherwise (spec.md
// §4.2 "Close").
func (c *Connection) preRelease(ctx context.Context) {
	if c.State() == StateInTransaction {
		if err := c.Rollback(ctx); err != nil {
			c.debugf("pre-release rollback failed (swallowed): %v", err)
		}
	}
}

// Close runs preRelease, purges the prepared-statement cache, and
// issues QUIT, implementing CLOSING -> CLOSED.
func (c *Connection) Close(ctx context.Context) error {
	if c.State() == StateClosed {
		return nil
	}
	c.preRelease(ctx)
	c.state.Store(StateClosing)

	c.stmts.Purge()
	c.drainEvictedStatements(ctx)

	err := c.exchanger.Quit(ctx)
	c.state.Store(StateClosed)
	if err != nil {
		return Wrap(err, "rxmysql: quit failed")
	}
	return nil
}
