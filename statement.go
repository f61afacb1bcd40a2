package rxmysql

// StatementKind is the result of the statement factory policy in
// spec.md §4.2: which of the four statement shapes to execute a given
// query as.
type StatementKind int

const (
	// TextSimple sends the SQL as-is over COM_QUERY with no bound
	// parameters.
	TextSimple StatementKind = iota
	// PrepareSimple prepares a parameter-less statement and executes
	// the cached handle (useful when the caller wants a prepared
	// query plan without binding values).
	PrepareSimple
	// TextParametrized substitutes parameters as SQL literals into the
	// query template and sends the result over COM_QUERY.
	TextParametrized
	// PrepareParametrized prepares (or reuses a cached prepare of) the
	// query and executes it with binary-bound parameters.
	PrepareParametrized
)

func (k StatementKind) String() string {
	switch k {
	case TextSimple:
		return "text-simple"
	case PrepareSimple:
		return "prepare-simple"
	case TextParametrized:
		return "text-parametrized"
	case PrepareParametrized:
		return "prepare-parametrized"
	default:
		return "unknown"
	}
}

// PreferPrepare is the optional user predicate from spec.md §4.2's
// statement factory table: given the SQL text, report whether a
// simple (parameter-less) query should be server-prepared anyway.
type PreferPrepare func(sql string) bool

// SelectStatementKind implements the factory table verbatim:
//
//	simple, no predicate           -> TextSimple
//	simple, predicate true         -> PrepareSimple
//	simple, predicate false        -> TextSimple
//	parametrized, no predicate     -> TextParametrized
//	parametrized, any predicate    -> PrepareParametrized
func SelectStatementKind(q *Query, preferPrepare PreferPrepare) StatementKind {
	if q.Simple() {
		if preferPrepare != nil && preferPrepare(q.SQL) {
			return PrepareSimple
		}
		return TextSimple
	}
	if preferPrepare != nil {
		return PrepareParametrized
	}
	return TextParametrized
}

// Binding is an ordered tuple of Parameters, one per marker position in
// a Query, consumed once per execute (spec.md §3).
type Binding struct {
	Params []*Param
}

// NewBinding encodes each value in vals through the registry, in order,
// building a Binding sized to match a Query's marker count. Returns a
// usage error if len(vals) doesn't match paramCount.
func NewBinding(ctx *CodecContext, registry *Registry, paramCount int, vals []any) (*Binding, error) {
	if len(vals) != paramCount {
		return nil, Wrapf(ErrUsage, "binding: expected %d parameters, got %d", paramCount, len(vals))
	}
	params := make([]*Param, len(vals))
	for i, v := range vals {
		p, err := registry.Encode(ctx, v)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	return &Binding{Params: params}, nil
}

// Release returns every Parameter's rented buffer to the pool. Safe to
// call once after the binding's emission (successful or not).
func (b *Binding) Release() {
	for _, p := range b.Params {
		if p != nil {
			p.Release()
		}
	}
}

// WriteBinaryPayloads serialises each parameter's binary form, in
// order, for COM_STMT_EXECUTE. Returns per-parameter payloads and a
// null-bitmap (one bit per parameter, MySQL's little-endian bit order)
// since that's the shape Exchanger.Execute expects.
func (b *Binding) WriteBinaryPayloads() (payloads [][]byte, nullBitmap []byte, err error) {
	payloads = make([][]byte, len(b.Params))
	nullBitmap = make([]byte, (len(b.Params)+7)/8)
	for i, p := range b.Params {
		if p.Null {
			nullBitmap[i/8] |= 1 << uint(i%8)
			continue
		}
		buf, werr := p.WriteBinary(nil)
		if werr != nil {
			return nil, nil, werr
		}
		payloads[i] = buf
	}
	return payloads, nullBitmap, nil
}

// FormatText substitutes each parameter's text literal into q's
// template, producing the literal SQL statement a TextParametrized
// statement sends over COM_QUERY.
func (b *Binding) FormatText(q *Query) (string, error) {
	var writeErr error
	sql := q.Format(func(i int) string {
		if writeErr != nil {
			return ""
		}
		var buf []byte
		w := &sliceTextWriter{buf: &buf}
		if err := b.Params[i].WriteText(w); err != nil {
			writeErr = err
			return ""
		}
		return string(buf)
	})
	if writeErr != nil {
		return "", writeErr
	}
	return sql, nil
}

// sliceTextWriter adapts a []byte pointer to the TextWriter contract
// Param.WriteText expects, avoiding a bytes.Buffer allocation for the
// common one-shot case.
type sliceTextWriter struct{ buf *[]byte }

func (w *sliceTextWriter) WriteString(s string) (int, error) {
	*w.buf = append(*w.buf, s...)
	return len(s), nil
}
