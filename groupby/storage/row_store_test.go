package storage

import (
	"strconv"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/hwchen/groupby/groupby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, s *RowStore) []groupby.Row {
	t.Helper()
	it, err := s.Scan()
	require.NoError(t, err)
	defer it.Close()

	var rows []groupby.Row
	for it.Next() {
		rows = append(rows, it.Record().(groupby.Row))
	}
	require.NoError(t, it.Err())
	return rows
}

func TestRowStoreAppendAndScan(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(groupby.Row{"a", "1"}, groupby.Row{"b", "2"}))
	require.NoError(t, store.Append(groupby.Row{"a", "3"}))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.Equal(t, []groupby.Row{{"a", "1"}, {"b", "2"}, {"a", "3"}}, scanAll(t, store))
}

func TestRowStoreEmpty(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	it, err := store.Scan()
	require.NoError(t, err)
	assert.False(t, it.Next())
	assert.Nil(t, it.Record())
	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
}

func TestRowStoreOrderPastSingleByteIDs(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	rows := make([]groupby.Row, 300)
	for i := range rows {
		rows[i] = groupby.Row{strconv.Itoa(i)}
	}
	require.NoError(t, store.Append(rows...))

	got := scanAll(t, store)
	require.Len(t, got, 300)
	for i, row := range got {
		assert.Equal(t, strconv.Itoa(i), row[0])
	}
}

func TestRowStorePersists(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(groupby.Row{"first"}))
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Append(groupby.Row{"second"}))

	assert.Equal(t, []groupby.Row{{"first"}, {"second"}}, scanAll(t, store))
}

func TestRowStoreFeedsGroupBy(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(
		groupby.Row{"a", "1"},
		groupby.Row{"b", "2"},
		groupby.Row{"a", "3"},
	))

	it, err := store.Scan()
	require.NoError(t, err)

	result, err := groupby.Collect(groupby.New(it, []int{0}, 1), groupby.ParseInt)
	require.NoError(t, err)

	a, _ := result.Lookup("a")
	assert.Equal(t, []int{1, 3}, a)
	assert.Equal(t, 2, result.Len())
}

func TestRowStoreCorruptValue(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(groupby.Row{"ok"}))
	require.NoError(t, store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rowKey(1<<40), []byte{0x05, 0x01})
	}))

	it, err := store.Scan()
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrCorruptRow)
}

func TestRowCodec(t *testing.T) {
	rows := []groupby.Row{
		{},
		{""},
		{"a", "", "ccc"},
		{"ünïcode", "comma,inside", "line\nbreak"},
	}
	for _, row := range rows {
		got, err := DecodeRow(EncodeRow(row))
		require.NoError(t, err)
		assert.Equal(t, row, got)
	}
}

func TestDecodeRowRejectsCorruption(t *testing.T) {
	valid := EncodeRow(groupby.Row{"abc", "de"})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated field", valid[:len(valid)-1]},
		{"trailing bytes", append(append([]byte{}, valid...), 0x00)},
		{"field count too large", []byte{0x7f, 0x00}},
		{"unterminated varint", []byte{0x01, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRow(tt.data)
			assert.ErrorIs(t, err, ErrCorruptRow)
		})
	}
}
