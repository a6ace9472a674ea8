package analysis

import (
	"fmt"

	"github.com/hyp3rd/ewrap"
)

var (
	// ErrNoColumns is returned when the input has no header row.
	ErrNoColumns = ewrap.New("no columns to parse from input")

	// ErrFieldCount is returned when a data row and the header disagree on the number of fields.
	ErrFieldCount = ewrap.New("wrong number of fields")

	// ErrNonFinite is returned when a statistic over finite inputs is not finite.
	ErrNonFinite = ewrap.New("non-finite result")

	// ErrNilTable is returned when Analyze is called without a table.
	ErrNilTable = ewrap.New("nil table")

	// ErrCellRef is returned for a worksheet cell outside columns A..XFD.
	ErrCellRef = ewrap.New("cell reference out of range")

	// ErrPartTooLarge is returned when a workbook part inflates past the read cap.
	ErrPartTooLarge = ewrap.New("workbook part too large")
)

// ParseError indicates the upload is not valid delimited text. Row is the
// 1-based line of the input (header == 1); 0 when not tied to a line.
type ParseError struct {
	Row int
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "parse error"
	}
	if e.Row > 0 {
		return fmt.Sprintf("parse error at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ComputationError indicates an unexpected numeric failure while computing
// a statistic for a column.
type ComputationError struct {
	Column string
	Stat   string
	Err    error
}

func (e *ComputationError) Error() string {
	if e == nil {
		return "computation error"
	}
	if e.Column != "" {
		return fmt.Sprintf("computation error: %s of %q: %v", e.Stat, e.Column, e.Err)
	}
	return fmt.Sprintf("computation error: %v", e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
