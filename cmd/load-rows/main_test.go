package main

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hwchen/groupby/groupby"
	"github.com/hwchen/groupby/groupby/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoadsCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("k;v\na;1\nb;2\n"), 0o644))
	storePath := filepath.Join(dir, "rows.db")

	require.NoError(t, run(zerolog.Nop(), input, storePath, true, ';'))
	require.NoError(t, run(zerolog.Nop(), input, storePath, true, ';'))

	store, err := storage.Open(storePath)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), count, "runs append")
}

func TestRunMissingInput(t *testing.T) {
	err := run(zerolog.Nop(), filepath.Join(t.TempDir(), "nope.csv"), t.TempDir(), true, ',')
	assert.ErrorContains(t, err, "failed to open input")
}

func TestLoadBatches(t *testing.T) {
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	rows := make([][]string, batchSize+5)
	for i := range rows {
		rows[i] = []string{"k", strconv.Itoa(i)}
	}
	it := groupby.RowsIterator(rows...)

	loaded, err := load(store, it)
	require.NoError(t, err)
	assert.Equal(t, batchSize+5, loaded)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(batchSize+5), count)
}

func TestLoadRejectsNonRowRecords(t *testing.T) {
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	_, err = load(store, groupby.NewSliceIterator(groupby.Tuple{1, 2}))
	assert.ErrorContains(t, err, "want groupby.Row")
}
