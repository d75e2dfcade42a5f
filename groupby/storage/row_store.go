// Package storage persists rows in BadgerDB so they can be scanned back as a
// group-by source in the order they were appended.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/hwchen/groupby/groupby"
)

var (
	rowPrefix   = []byte("row/")
	sequenceKey = []byte("meta/row-seq")
)

// ErrCorruptRow is returned when a stored value cannot be decoded
var ErrCorruptRow = errors.New("corrupt row encoding")

// RowStore is an append-only table of string rows
type RowStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (or creates) a row store at path
func Open(path string) (*RowStore, error) {
	opts := badger.DefaultOptions(path)
	return open(opts)
}

// OpenInMemory opens a row store that lives only in memory
func OpenInMemory() (*RowStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	return open(opts)
}

func open(opts badger.Options) (*RowStore, error) {
	opts.Logger = nil // Disable BadgerDB logs
	opts.DetectConflicts = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, 1000)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to lease row sequence: %w", err)
	}

	return &RowStore{db: db, seq: seq}, nil
}

// Append writes rows in a single transaction. Scan returns them after any
// previously appended rows.
func (s *RowStore) Append(rows ...groupby.Row) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, row := range rows {
		id, err := s.seq.Next()
		if err != nil {
			return fmt.Errorf("failed to allocate row id: %w", err)
		}
		if err := wb.Set(rowKey(id), EncodeRow(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", id, err)
		}
	}
	return wb.Flush()
}

// Count returns the number of stored rows without fetching values
func (s *RowStore) Count() (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // KEY ONLY
		opts.Prefix = rowPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(rowPrefix); it.ValidForPrefix(rowPrefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Scan returns an iterator over all rows in append order. The iterator holds
// a read transaction until it is closed.
func (s *RowStore) Scan() (groupby.Iterator, error) {
	txn := s.db.NewTransaction(false)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 1000
	opts.Prefix = rowPrefix

	return &RowIterator{
		txn: txn,
		it:  txn.NewIterator(opts),
	}, nil
}

// Close releases the sequence lease and closes the database
func (s *RowStore) Close() error {
	var errs []error
	if s.seq != nil {
		if err := s.seq.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RowIterator implements groupby.Iterator over a badger scan
type RowIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	started bool
	current groupby.Row
	err     error
	closed  bool
}

// Next advances the iterator
func (i *RowIterator) Next() bool {
	if i.closed || i.err != nil {
		return false
	}
	if !i.started {
		// First call - seek to start
		i.it.Seek(rowPrefix)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.ValidForPrefix(rowPrefix) {
		return false
	}

	item := i.it.Item()
	err := item.Value(func(val []byte) error {
		row, err := DecodeRow(val)
		if err != nil {
			return err
		}
		i.current = row
		return nil
	})
	if err != nil {
		i.err = fmt.Errorf("row %x: %w", item.KeyCopy(nil), err)
		return false
	}
	return true
}

// Record returns the current row
func (i *RowIterator) Record() groupby.Record {
	if i.current == nil {
		return nil
	}
	return i.current
}

// Err returns the decode error that stopped the scan
func (i *RowIterator) Err() error {
	return i.err
}

// Close ends the read transaction
func (i *RowIterator) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	i.it.Close()
	i.txn.Discard()
	return nil
}

func rowKey(id uint64) []byte {
	key := make([]byte, len(rowPrefix)+8)
	copy(key, rowPrefix)
	binary.BigEndian.PutUint64(key[len(rowPrefix):], id)
	return key
}

// EncodeRow serializes a row as a uvarint field count followed by
// uvarint-length-prefixed fields.
func EncodeRow(row groupby.Row) []byte {
	size := binary.MaxVarintLen64
	for _, f := range row {
		size += binary.MaxVarintLen64 + len(f)
	}
	buf := make([]byte, 0, size)
	buf = binary.AppendUvarint(buf, uint64(len(row)))
	for _, f := range row {
		buf = binary.AppendUvarint(buf, uint64(len(f)))
		buf = append(buf, f...)
	}
	return buf
}

// DecodeRow is the inverse of EncodeRow. The returned strings do not alias
// data.
func DecodeRow(data []byte) (groupby.Row, error) {
	n, read := binary.Uvarint(data)
	if read <= 0 {
		return nil, fmt.Errorf("%w: bad field count", ErrCorruptRow)
	}
	data = data[read:]
	if n > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d fields in %d bytes", ErrCorruptRow, n, len(data))
	}

	row := make(groupby.Row, n)
	for i := range row {
		l, read := binary.Uvarint(data)
		if read <= 0 {
			return nil, fmt.Errorf("%w: bad length for field %d", ErrCorruptRow, i)
		}
		data = data[read:]
		if l > uint64(len(data)) {
			return nil, fmt.Errorf("%w: field %d overruns value", ErrCorruptRow, i)
		}
		row[i] = string(data[:l])
		data = data[l:]
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptRow, len(data))
	}
	return row, nil
}
