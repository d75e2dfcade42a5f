package groupby

import (
	"fmt"
	"strconv"
	"time"
)

// Record provides positional access to a row's fields in rendered form.
//
// The engine never asks for a native typed value. Every field is rendered
// to a string and, where a typed value is needed, parsed back out. This is
// what lets text-backed sources (CSV rows) and typed sources (tuples of Go
// values) feed the same aggregation.
type Record interface {
	// Render returns the display form of the field at pos.
	// Positions past the end of the record return an error wrapping
	// ErrFieldOutOfRange.
	Render(pos int) (string, error)
}

// Row is a record whose fields are already strings, e.g. a CSV line.
type Row []string

// Render implements Record
func (r Row) Render(pos int) (string, error) {
	if pos < 0 || pos >= len(r) {
		return "", fieldOutOfRange(pos, len(r))
	}
	return r[pos], nil
}

// Tuple is a record of arbitrary Go values rendered with RenderValue.
type Tuple []interface{}

// Render implements Record
func (t Tuple) Render(pos int) (string, error) {
	if pos < 0 || pos >= len(t) {
		return "", fieldOutOfRange(pos, len(t))
	}
	return RenderValue(t[pos]), nil
}

// RecordFunc adapts a function to the Record interface.
type RecordFunc func(pos int) (string, error)

// Render implements Record
func (f RecordFunc) Render(pos int) (string, error) {
	return f(pos)
}

// RenderValue converts a value to its display form.
// Numbers use the shortest representation that parses back to the same
// value, so rendering followed by parsing is lossless.
func RenderValue(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fieldOutOfRange(pos, width int) error {
	return fmt.Errorf("%w: position %d, record has %d fields", ErrFieldOutOfRange, pos, width)
}
