package groupby

// Iterator provides streaming access to records
type Iterator interface {
	// Next advances to the next record
	Next() bool

	// Record returns the current record. It is only valid until the next
	// call to Next.
	Record() Record

	// Err returns the error that stopped iteration, if any
	Err() error

	// Close releases any resources
	Close() error
}

// SliceIterator iterates over an in-memory slice of records
type SliceIterator struct {
	records []Record
	pos     int
}

// NewSliceIterator creates an iterator over records
func NewSliceIterator(records ...Record) *SliceIterator {
	return &SliceIterator{records: records, pos: -1}
}

// RowsIterator is a convenience for iterating string rows
func RowsIterator(rows ...[]string) *SliceIterator {
	records := make([]Record, len(rows))
	for i, r := range rows {
		records[i] = Row(r)
	}
	return NewSliceIterator(records...)
}

func (it *SliceIterator) Next() bool {
	if it.pos+1 >= len(it.records) {
		it.pos = len(it.records)
		return false
	}
	it.pos++
	return true
}

func (it *SliceIterator) Record() Record {
	if it.pos < 0 || it.pos >= len(it.records) {
		return nil
	}
	return it.records[it.pos]
}

func (it *SliceIterator) Err() error   { return nil }
func (it *SliceIterator) Close() error { return nil }

// LimitIterator stops after n records. The engine has no early-exit of its
// own, so truncating the source is how callers bound a run.
type LimitIterator struct {
	inner Iterator
	limit int
	seen  int
}

// NewLimitIterator wraps inner so it yields at most limit records.
// A limit <= 0 means no limit.
func NewLimitIterator(inner Iterator, limit int) *LimitIterator {
	return &LimitIterator{inner: inner, limit: limit}
}

func (i *LimitIterator) Next() bool {
	if i.limit > 0 && i.seen >= i.limit {
		return false
	}
	if !i.inner.Next() {
		return false
	}
	i.seen++
	return true
}

func (i *LimitIterator) Record() Record { return i.inner.Record() }
func (i *LimitIterator) Err() error     { return i.inner.Err() }
func (i *LimitIterator) Close() error   { return i.inner.Close() }
