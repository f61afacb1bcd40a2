package rxmysql

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Query is parsed SQL: either "simple" (no parameter markers) or
// "parametrized" with an ordered sequence of marker positions and a
// formatted template convenient for substitution (spec.md §3, §4.4).
// Building one is pure and side-effect-free; it never touches the
// network.
type Query struct {
	SQL string

	// Markers holds the byte offset of each '?' in SQL that was
	// recognised as a parameter marker (i.e. not inside a quoted
	// literal, backtick identifier, or comment).
	Markers []int

	// segments interleaves the literal text between markers; len(segments)
	// == len(Markers)+1. Substituting Binding[i] between segments[i] and
	// segments[i+1] reproduces a literal SQL statement.
	segments []string
}

// Simple reports whether this query has no parameter markers.
func (q *Query) Simple() bool { return len(q.Markers) == 0 }

// ParamCount is the number of ordered parameter slots.
func (q *Query) ParamCount() int { return len(q.Markers) }

// Format substitutes literal text for each marker, in order, for
// diagnostics and the text-protocol statement factories. The substitute
// function is called once per marker with its 0-based index.
func (q *Query) Format(substitute func(i int) string) string {
	if q.Simple() {
		return q.SQL
	}
	var b strings.Builder
	b.Grow(len(q.SQL))
	for i, seg := range q.segments {
		b.WriteString(seg)
		if i < len(q.Markers) {
			b.WriteString(substitute(i))
		}
	}
	return b.String()
}

// ParseQuery scans sql for '?' parameter markers, skipping single- and
// double-quoted string literals, backtick-quoted identifiers, and both
// SQL comment forms (-- and /* */), matching the scanning discipline of
// the teacher's COM_STMT_PREPARE parameter counting and generalizing
// the naive placeholder scan shown in the retrieval pack's
// query/bind.go to be quote- and comment-aware. Idempotent and
// side-effect-free; the result may be cached and shared across
// connections (spec.md §4.4).
func ParseQuery(sql string) *Query {
	q := &Query{SQL: sql}
	segStart := 0

	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; c {
		case '\'', '"', '`':
			i = skipQuoted(sql, i, c)
		case '-':
			if i+1 < len(sql) && sql[i+1] == '-' {
				i = skipLineComment(sql, i)
			}
		case '/':
			if i+1 < len(sql) && sql[i+1] == '*' {
				i = skipBlockComment(sql, i)
			}
		case '?':
			q.Markers = append(q.Markers, i)
			q.segments = append(q.segments, sql[segStart:i])
			segStart = i + 1
		}
	}
	q.segments = append(q.segments, sql[segStart:])
	return q
}

// skipQuoted returns the index of the closing quote matching quote,
// honouring the doubled-quote escape ('' inside '...', `` inside
// `...`) and backslash escapes inside '...'/"..." (MySQL's default
// non-ANSI_QUOTES dialect).
func skipQuoted(sql string, start int, quote byte) int {
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if quote != '`' {
				i++ // skip escaped char
			}
		case quote:
			if i+1 < len(sql) && sql[i+1] == quote {
				i++ // doubled-quote escape
				continue
			}
			return i
		}
	}
	return len(sql) - 1
}

func skipLineComment(sql string, start int) int {
	i := strings.IndexByte(sql[start:], '\n')
	if i < 0 {
		return len(sql) - 1
	}
	return start + i
}

func skipBlockComment(sql string, start int) int {
	i := strings.Index(sql[start+2:], "*/")
	if i < 0 {
		return len(sql) - 1
	}
	return start + 2 + i + 1
}

// QueryCache is the bounded SQL->Query cache of component D. Safe for
// concurrent use and sharing across connections: ParseQuery is pure, so
// a cache hit and a cache miss that both parse the same SQL concurrently
// produce equal (if not identical) Query values.
type QueryCache struct {
	cache *lru.Cache[string, *Query]
}

// NewQueryCache builds a query cache bounded to size entries. size<=0
// disables caching: every lookup reparses.
func NewQueryCache(size int) *QueryCache {
	if size <= 0 {
		return &QueryCache{}
	}
	c, _ := lru.New[string, *Query](size)
	return &QueryCache{cache: c}
}

// Get returns the parsed Query for sql, parsing and inserting on miss.
func (qc *QueryCache) Get(sql string) *Query {
	if qc.cache == nil {
		return ParseQuery(sql)
	}
	if q, ok := qc.cache.Get(sql); ok {
		return q
	}
	q := ParseQuery(sql)
	qc.cache.Add(sql, q)
	return q
}

// Len reports the number of cached entries.
func (qc *QueryCache) Len() int {
	if qc.cache == nil {
		return 0
	}
	return qc.cache.Len()
}
