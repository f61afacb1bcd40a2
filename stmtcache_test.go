package rxmysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStmtCache_PutGetHit(t *testing.T) {
	sc := NewStmtCache(4)
	stmt := &PreparedStmt{SQL: "SELECT ?", Handle: 1, ParamCount: 1}
	sc.Put(stmt)
	assert.False(t, sc.Release(stmt))

	got, ok := sc.Get("SELECT ?")
	require.True(t, ok)
	assert.Same(t, stmt, got)
	sc.Release(got)
}

func TestStmtCache_DisabledNeverCaches(t *testing.T) {
	sc := NewStmtCache(0)
	stmt := &PreparedStmt{SQL: "SELECT ?", Handle: 1}
	sc.Put(stmt)
	assert.Equal(t, 0, sc.Len())

	_, ok := sc.Get("SELECT ?")
	assert.False(t, ok)
}

func TestStmtCache_EvictionDefersCloseUntilLastBorrowerReleases(t *testing.T) {
	sc := NewStmtCache(1)
	first := &PreparedStmt{SQL: "SELECT 1", Handle: 1}
	sc.Put(first) // borrowed=1, cached

	// borrow it again (e.g. a second concurrent execute against the same handle)
	got, ok := sc.Get("SELECT 1")
	require.True(t, ok)
	assert.Same(t, first, got)

	// inserting a second entry evicts "SELECT 1" since capacity is 1
	second := &PreparedStmt{SQL: "SELECT 2", Handle: 2}
	sc.Put(second)

	// first is now closing, but still has two outstanding borrows, so
	// nothing should be queued for close yet.
	assert.Empty(t, sc.DrainPendingCloses())

	assert.False(t, sc.Release(first)) // one borrower left
	assert.True(t, sc.Release(first))  // last borrower releases -> caller must close

	pending := sc.DrainPendingCloses()
	require.Len(t, pending, 1)
	assert.Same(t, first, pending[0])
}

func TestStmtCache_PurgeQueuesAllForClose(t *testing.T) {
	sc := NewStmtCache(4)
	a := &PreparedStmt{SQL: "A", Handle: 1}
	b := &PreparedStmt{SQL: "B", Handle: 2}
	sc.Put(a)
	sc.Put(b)
	sc.Release(a)
	sc.Release(b)

	sc.Purge()
	pending := sc.DrainPendingCloses()
	assert.Len(t, pending, 2)
	assert.Equal(t, 0, sc.Len())
}
