package groupby

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldOutOfRange is returned when a position exceeds a record's fields.
	ErrFieldOutOfRange = errors.New("field position out of range")

	// ErrParse is returned when a rendered value cannot be parsed into the
	// accumulation type.
	ErrParse = errors.New("cannot parse value")

	// ErrConsumed is returned by a terminal call on an engine that has
	// already run.
	ErrConsumed = errors.New("group by already consumed")
)

// RecordError identifies the record and field that stopped an aggregation.
type RecordError struct {
	Ordinal  int    // 0-based index of the record in the source stream
	Position int    // field position being read or parsed
	Raw      string // unparsed text, empty when the field could not be read
	Err      error
}

func (e *RecordError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("record %d, field %d: %v", e.Ordinal, e.Position, e.Err)
	}
	return fmt.Sprintf("record %d, field %d (%q): %v", e.Ordinal, e.Position, e.Raw, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ErrorHandler decides what happens to a record that fails key derivation or
// value parsing. Returning nil skips the record; returning an error aborts
// the terminal call with that error.
type ErrorHandler func(*RecordError) error

// Abort is the default ErrorHandler: every record error is fatal.
func Abort(err *RecordError) error {
	return err
}

// Skip is an ErrorHandler that drops every failing record.
func Skip(*RecordError) error {
	return nil
}
