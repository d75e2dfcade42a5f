package source

import (
	"strings"
	"testing"

	"github.com/hwchen/groupby/groupby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeTracker struct {
	*strings.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func drain(t *testing.T, it groupby.Iterator) []groupby.Row {
	t.Helper()
	var rows []groupby.Row
	for it.Next() {
		row := it.Record().(groupby.Row)
		cp := make(groupby.Row, len(row))
		copy(cp, row)
		rows = append(rows, cp)
	}
	require.NoError(t, it.Err())
	return rows
}

func TestCSVIteratorWithHeader(t *testing.T) {
	input := "region , amount\neast,10\nwest,5\n"
	it, err := NewCSVIterator(strings.NewReader(input), WithHeader(true))
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"region", "amount"}, it.Header())
	assert.Equal(t, []groupby.Row{{"east", "10"}, {"west", "5"}}, drain(t, it))
}

func TestCSVIteratorWithoutHeader(t *testing.T) {
	it, err := NewCSVIterator(strings.NewReader("a,1\nb,2\n"))
	require.NoError(t, err)

	assert.Nil(t, it.Header())
	assert.Len(t, drain(t, it), 2)
}

func TestCSVIteratorOptions(t *testing.T) {
	t.Run("delimiter", func(t *testing.T) {
		it, err := NewCSVIterator(strings.NewReader("a;1\nb;2\n"), WithComma(';'))
		require.NoError(t, err)
		assert.Equal(t, []groupby.Row{{"a", "1"}, {"b", "2"}}, drain(t, it))
	})

	t.Run("zero delimiter keeps comma", func(t *testing.T) {
		it, err := NewCSVIterator(strings.NewReader("a,1\n"), WithComma(0))
		require.NoError(t, err)
		assert.Equal(t, []groupby.Row{{"a", "1"}}, drain(t, it))
	})

	t.Run("trim", func(t *testing.T) {
		it, err := NewCSVIterator(strings.NewReader(" a ,  1\n"), WithTrim(true))
		require.NoError(t, err)
		assert.Equal(t, []groupby.Row{{"a", "1"}}, drain(t, it))
	})

	t.Run("ragged rows", func(t *testing.T) {
		it, err := NewCSVIterator(strings.NewReader("a,1,x\nb\nc,3\n"))
		require.NoError(t, err)
		rows := drain(t, it)
		require.Len(t, rows, 3)
		assert.Len(t, rows[1], 1)
	})
}

func TestCSVIteratorEmptyInput(t *testing.T) {
	_, err := NewCSVIterator(strings.NewReader(""), WithHeader(true))
	assert.ErrorContains(t, err, "empty input")

	it, err := NewCSVIterator(strings.NewReader(""))
	require.NoError(t, err)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.Nil(t, it.Record())
}

func TestCSVIteratorReadError(t *testing.T) {
	it, err := NewCSVIterator(strings.NewReader("a,1\nb,\"unterminated\n"))
	require.NoError(t, err)

	require.True(t, it.Next())
	assert.False(t, it.Next())
	require.Error(t, it.Err())
	assert.Contains(t, it.Err().Error(), "csv line 2")
	assert.False(t, it.Next(), "stays exhausted")
}

func TestCSVIteratorClosesSource(t *testing.T) {
	src := &closeTracker{Reader: strings.NewReader("a,1\n")}
	it, err := NewCSVIterator(src)
	require.NoError(t, err)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.Equal(t, 1, src.closed)
	assert.False(t, it.Next())
}

func TestCSVFeedsGroupBy(t *testing.T) {
	input := "region,month,amount\neast,jan,10\nwest,jan,5\neast,feb,2.5\n"
	it, err := NewCSVIterator(strings.NewReader(input), WithHeader(true))
	require.NoError(t, err)

	keys, err := ResolveColumns(it.Header(), []string{"Region"})
	require.NoError(t, err)
	value, err := ResolveColumn(it.Header(), "amount")
	require.NoError(t, err)

	totals, err := groupby.Sum(groupby.New(it, keys, value), groupby.ParseFloat64)
	require.NoError(t, err)

	east, ok := totals.Lookup("east")
	require.True(t, ok)
	assert.Equal(t, 12.5, east)
	assert.Equal(t, []groupby.GroupKey{{"east"}, {"west"}}, totals.Keys())
}

func TestResolveColumns(t *testing.T) {
	header := []string{"region", "month", "2"}

	positions, err := ResolveColumns(header, []string{"MONTH", " region ", "0"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0}, positions)

	pos, err := ResolveColumn(header, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, pos, "names win over indexes")

	pos, err = ResolveColumn(nil, "7")
	require.NoError(t, err)
	assert.Equal(t, 7, pos)

	_, err = ResolveColumns(header, []string{"region", "amount"})
	assert.EqualError(t, err, `unknown column "amount"`)

	_, err = ResolveColumn(header, "-1")
	assert.Error(t, err)
}
