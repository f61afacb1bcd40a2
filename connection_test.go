package rxmysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRowSource struct {
	cols   []ColumnMeta
	rows   [][][]byte
	idx    int
	binary bool
}

func (f *fakeRowSource) Columns() []ColumnMeta { return f.cols }
func (f *fakeRowSource) Binary() bool          { return f.binary }
func (f *fakeRowSource) Next(ctx context.Context) ([][]byte, bool, error) {
	if f.idx >= len(f.rows) {
		return nil, true, nil
	}
	row := f.rows[f.idx]
	f.idx++
	return row, false, nil
}
func (f *fakeRowSource) Close() error { return nil }

// fakeExchanger is a scriptable Exchanger test double: every Query call
// is recorded, and a canned response can be registered per exact SQL
// text, falling back to an empty OK completion.
type fakeExchanger struct {
	queries []string

	responses map[string]func() (*CompletionMessage, RowSource, error)

	prepareHandle  PreparedHandle
	prepareParams  int
	prepareColumns []ColumnMeta
	prepareErr     error

	executeResponses []func() (*CompletionMessage, RowSource, error)

	pingOK  bool
	pingErr error

	initDBErr error
	quitErr   error

	closedHandles []PreparedHandle
}

func newFakeExchanger() *fakeExchanger {
	return &fakeExchanger{responses: map[string]func() (*CompletionMessage, RowSource, error){}, pingOK: true}
}

func (f *fakeExchanger) Query(ctx context.Context, sql string) (*CompletionMessage, RowSource, error) {
	f.queries = append(f.queries, sql)
	if resp, ok := f.responses[sql]; ok {
		return resp()
	}
	return &CompletionMessage{Status: statusAutocommit}, nil, nil
}

func (f *fakeExchanger) Prepare(ctx context.Context, sql string) (PreparedHandle, int, []ColumnMeta, error) {
	f.queries = append(f.queries, "PREPARE:"+sql)
	return f.prepareHandle, f.prepareParams, f.prepareColumns, f.prepareErr
}

func (f *fakeExchanger) Execute(ctx context.Context, handle PreparedHandle, params [][]byte, nullBitmap []byte) (*CompletionMessage, RowSource, error) {
	if len(f.executeResponses) > 0 {
		resp := f.executeResponses[0]
		f.executeResponses = f.executeResponses[1:]
		return resp()
	}
	return &CompletionMessage{Status: statusAutocommit}, nil, nil
}

func (f *fakeExchanger) CloseStatement(ctx context.Context, handle PreparedHandle) error {
	f.closedHandles = append(f.closedHandles, handle)
	return nil
}

func (f *fakeExchanger) Ping(ctx context.Context) (bool, error) { return f.pingOK, f.pingErr }
func (f *fakeExchanger) InitDB(ctx context.Context, name string) error { return f.initDBErr }
func (f *fakeExchanger) Quit(ctx context.Context) error { return f.quitErr }

func newTestConnection(t *testing.T, ex *fakeExchanger, cfg *Config) *Connection {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	return NewConnection(cfg, ex)
}

func initedConnection(t *testing.T, ex *fakeExchanger) *Connection {
	t.Helper()
	return initedConnectionWithConfig(t, ex, &Config{})
}

func initedConnectionWithConfig(t *testing.T, ex *fakeExchanger, cfg *Config) *Connection {
	t.Helper()
	ex.responses["SELECT @@tx_isolation AS i, @@innodb_lock_wait_timeout AS l, @@version_comment AS v"] = func() (*CompletionMessage, RowSource, error) {
		rs := &fakeRowSource{rows: [][][]byte{
			{[]byte("REPEATABLE-READ"), []byte("50"), []byte("Source distribution")},
		}}
		return &CompletionMessage{Status: statusAutocommit}, rs, nil
	}
	c := newTestConnection(t, ex, cfg)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func TestConnection_InitReachesIdle(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)
	assert.Equal(t, StateIdle, c.State())
}

func TestConnection_InitRejectsWrongStartingState(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)
	assert.Error(t, c.Init(context.Background()))
}

func TestConnection_BeginCommitRollback(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)

	require.NoError(t, c.Begin(context.Background(), TransactionDefinition{}))
	assert.Equal(t, StateInTransaction, c.State())

	require.NoError(t, c.Commit(context.Background()))
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Begin(context.Background(), TransactionDefinition{}))
	require.NoError(t, c.Rollback(context.Background()))
	assert.Equal(t, StateIdle, c.State())
}

func TestConnection_BeginRejectedInTransaction(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)
	require.NoError(t, c.Begin(context.Background(), TransactionDefinition{}))
	assert.Error(t, c.Begin(context.Background(), TransactionDefinition{}))
}

func TestConnection_SavepointRequiresTransaction(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)
	assert.Error(t, c.Savepoint(context.Background(), "sp1"))

	require.NoError(t, c.Begin(context.Background(), TransactionDefinition{}))
	assert.NoError(t, c.Savepoint(context.Background(), "sp1"))
	assert.NoError(t, c.RollbackToSavepoint(context.Background(), "sp1"))
	assert.NoError(t, c.ReleaseSavepoint(context.Background(), "sp1"))
}

func TestConnection_ValidateLocalVsRemote(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)
	assert.True(t, c.Validate(context.Background(), ValidateLocal))
	assert.True(t, c.Validate(context.Background(), ValidateRemote))

	ex.pingOK = false
	assert.False(t, c.Validate(context.Background(), ValidateRemote))
}

func TestConnection_ValidateFalseWhenClosed(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)
	require.NoError(t, c.Close(context.Background()))
	assert.False(t, c.Validate(context.Background(), ValidateLocal))
}

func TestConnection_CloseRollsBackOpenTransaction(t *testing.T) {
	ex := newFakeExchanger()
	c := initedConnection(t, ex)
	require.NoError(t, c.Begin(context.Background(), TransactionDefinition{}))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StateClosed, c.State())
	assert.Contains(t, ex.queries, "ROLLBACK")
}

func TestConnection_PrepareStatementCachesAndReuses(t *testing.T) {
	ex := newFakeExchanger()
	ex.prepareHandle = 42
	ex.prepareParams = 1
	c := initedConnectionWithConfig(t, ex, &Config{PreparedCacheSize: 4})

	stmt, err := c.PrepareStatement(context.Background(), "SELECT ?")
	require.NoError(t, err)
	c.ReleaseStatement(context.Background(), stmt)

	prepareCalls := 0
	for _, q := range ex.queries {
		if q == "PREPARE:SELECT ?" {
			prepareCalls++
		}
	}
	assert.Equal(t, 1, prepareCalls)

	stmt2, err := c.PrepareStatement(context.Background(), "SELECT ?")
	require.NoError(t, err)
	assert.Same(t, stmt, stmt2)
	c.ReleaseStatement(context.Background(), stmt2)
}

// TestIsolationColumn covers spec.md §8 scenario 5.
func TestIsolationColumn(t *testing.T) {
	assert.Equal(t, "@@tx_isolation", isolationColumn(ServerVariant{Server: ServerMariaDB, Version: Version{10, 5, 0}}))
	assert.Equal(t, "@@transaction_isolation", isolationColumn(ServerVariant{Server: ServerMariaDB, Version: Version{11, 1, 1}}))
	assert.Equal(t, "@@tx_isolation", isolationColumn(ServerVariant{Server: ServerMySQL, Version: Version{5, 6, 0}}))
	assert.Equal(t, "@@transaction_isolation", isolationColumn(ServerVariant{Server: ServerMySQL, Version: Version{5, 7, 20}}))
	assert.Equal(t, "@@transaction_isolation", isolationColumn(ServerVariant{Server: ServerMySQL, Version: Version{8, 0, 3}}))
}
