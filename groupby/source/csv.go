// Package source provides record iterators over external data.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hwchen/groupby/groupby"
)

// CSVOption configures a CSVIterator
type CSVOption func(*csvConfig)

type csvConfig struct {
	header bool
	comma  rune
	trim   bool
}

// WithHeader treats the first line as column names
func WithHeader(header bool) CSVOption {
	return func(c *csvConfig) { c.header = header }
}

// WithComma sets the field delimiter
func WithComma(comma rune) CSVOption {
	return func(c *csvConfig) {
		if comma != 0 {
			c.comma = comma
		}
	}
}

// WithTrim strips surrounding whitespace from every field
func WithTrim(trim bool) CSVOption {
	return func(c *csvConfig) { c.trim = trim }
}

// CSVIterator streams rows of a delimited text source as groupby.Row.
// Rows may have differing field counts; a short row fails in the engine at
// the position it cannot supply.
type CSVIterator struct {
	reader  *csv.Reader
	closer  io.Closer
	header  []string
	current groupby.Row
	trim    bool
	line    int
	err     error
	done    bool
}

// NewCSVIterator creates an iterator over r. When the header option is set
// the first line is consumed immediately and available via Header.
// If r is an io.Closer it is closed by Close.
func NewCSVIterator(r io.Reader, opts ...CSVOption) (*CSVIterator, error) {
	cfg := csvConfig{comma: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	reader := csv.NewReader(r)
	reader.Comma = cfg.comma
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	it := &CSVIterator{reader: reader, trim: cfg.trim}
	if c, ok := r.(io.Closer); ok {
		it.closer = c
	}

	if cfg.header {
		headers, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to read CSV headers: empty input")
			}
			return nil, fmt.Errorf("failed to read CSV headers: %w", err)
		}
		it.header = make([]string, len(headers))
		for i, h := range headers {
			it.header[i] = strings.TrimSpace(h)
		}
		it.line = 1
	}
	return it, nil
}

// Header returns the column names, nil without a header row
func (it *CSVIterator) Header() []string {
	return it.header
}

func (it *CSVIterator) Next() bool {
	if it.done {
		return false
	}
	row, err := it.reader.Read()
	if err != nil {
		it.done = true
		if !errors.Is(err, io.EOF) {
			it.err = fmt.Errorf("csv line %d: %w", it.line+1, err)
		}
		return false
	}
	it.line++
	if it.trim {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	it.current = groupby.Row(row)
	return true
}

func (it *CSVIterator) Record() groupby.Record {
	if it.current == nil {
		return nil
	}
	return it.current
}

func (it *CSVIterator) Err() error {
	return it.err
}

func (it *CSVIterator) Close() error {
	it.done = true
	if it.closer != nil {
		c := it.closer
		it.closer = nil
		return c.Close()
	}
	return nil
}

// ResolveColumns maps column references to positions. A reference is either
// a header name (matched case-insensitively) or a 0-based index.
func ResolveColumns(header []string, refs []string) ([]int, error) {
	positions := make([]int, len(refs))
	for i, ref := range refs {
		pos, err := ResolveColumn(header, ref)
		if err != nil {
			return nil, err
		}
		positions[i] = pos
	}
	return positions, nil
}

// ResolveColumn maps a single column reference to a position
func ResolveColumn(header []string, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	for i, h := range header {
		if strings.EqualFold(h, ref) {
			return i, nil
		}
	}
	if pos, err := strconv.Atoi(ref); err == nil && pos >= 0 {
		return pos, nil
	}
	return 0, fmt.Errorf("unknown column %q", ref)
}
