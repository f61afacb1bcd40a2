package rxmysql

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PreparedStmt is a cached prepared-statement handle plus the metadata
// the statement factories need to bind and decode against it (spec.md
// §3 "Prepared statement handle").
type PreparedStmt struct {
	SQL        string
	Handle     PreparedHandle
	ParamCount int
	Columns    []ColumnMeta

	mu       sync.Mutex
	borrowed int
	closing  bool
}

// borrow marks one in-flight execute against this handle.
func (s *PreparedStmt) borrow() {
	s.mu.Lock()
	s.borrowed++
	s.mu.Unlock()
}

// release ends one in-flight execute. It returns true if the handle was
// marked closing and this was the last borrower, in which case the
// caller owns closing it server-side.
func (s *PreparedStmt) release() (shouldClose bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.borrowed--
	return s.closing && s.borrowed <= 0
}

// markClosing flags the handle as evicted. Returns true if there are no
// outstanding borrowers, i.e. the caller may close it immediately.
func (s *PreparedStmt) markClosing() (closeNow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	return s.borrowed <= 0
}

// StmtCache is the bounded prepared-statement cache of component C:
// SQL -> handle, LRU eviction, close-on-evict deferred until the last
// borrower releases (spec.md §4.3, §9 "Cyclic eviction races"). Evicted
// entries ready to close are queued on pending for the connection
// to drain and issue CloseStatement against, since this cache has no
// Exchanger of its own (spec.md §9 "Back-references": the cache must
// not hold a reference back to the connection/transport).
type StmtCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *PreparedStmt]

	pendingMu sync.Mutex
	pending   []*PreparedStmt
}

// NewStmtCache builds a prepared-statement cache bounded to size
// entries. size<=0 disables caching: every lookup misses.
func NewStmtCache(size int) *StmtCache {
	sc := &StmtCache{}
	if size <= 0 {
		return sc
	}
	c, _ := lru.NewWithEvict[string, *PreparedStmt](size, func(_ string, stmt *PreparedStmt) {
		if stmt.markClosing() {
			sc.enqueuePending(stmt)
		}
	})
	sc.cache = c
	return sc
}

func (sc *StmtCache) enqueuePending(stmt *PreparedStmt) {
	sc.pendingMu.Lock()
	sc.pending = append(sc.pending, stmt)
	sc.pendingMu.Unlock()
}

// Get returns the cached handle for sql, if present, and marks it
// borrowed. Callers must call Release when done with it.
func (sc *StmtCache) Get(sql string) (*PreparedStmt, bool) {
	if sc.cache == nil {
		return nil, false
	}
	sc.mu.Lock()
	stmt, ok := sc.cache.Get(sql)
	sc.mu.Unlock()
	if !ok {
		return nil, false
	}
	stmt.borrow()
	return stmt, true
}

// Put inserts a freshly prepared handle, marking it borrowed for the
// caller's immediate use (the execute that triggered the PREPARE).
// If caching is disabled the handle is not cached but is still
// borrowed.
func (sc *StmtCache) Put(stmt *PreparedStmt) {
	stmt.borrow()
	if sc.cache == nil {
		return
	}
	sc.mu.Lock()
	sc.cache.Add(stmt.SQL, stmt)
	sc.mu.Unlock()
}

// Release ends the caller's borrow on stmt. If stmt has meanwhile been
// evicted and this was the last borrower, Release returns true and the
// caller must issue CloseStatement.
func (sc *StmtCache) Release(stmt *PreparedStmt) (shouldClose bool) {
	return stmt.release()
}

// DrainPendingCloses returns and clears the set of evicted handles
// whose last borrower has already released, ready for the connection
// to close server-side. Errors during close must be swallowed and
// logged, never propagated (spec.md §7).
func (sc *StmtCache) DrainPendingCloses() []*PreparedStmt {
	sc.pendingMu.Lock()
	defer sc.pendingMu.Unlock()
	if len(sc.pending) == 0 {
		return nil
	}
	out := sc.pending
	sc.pending = nil
	return out
}

// Len reports the number of cached entries.
func (sc *StmtCache) Len() int {
	if sc.cache == nil {
		return 0
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cache.Len()
}

// Purge evicts every cached handle, queuing each for close once its
// last borrower (if any) releases. Used by Close (spec.md §4.2).
func (sc *StmtCache) Purge() {
	if sc.cache == nil {
		return
	}
	sc.mu.Lock()
	keys := sc.cache.Keys()
	sc.mu.Unlock()
	for _, k := range keys {
		sc.mu.Lock()
		sc.cache.Remove(k) // triggers the evict callback above
		sc.mu.Unlock()
	}
}
