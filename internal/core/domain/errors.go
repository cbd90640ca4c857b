package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches any *FormatError via errors.Is.
	ErrFormat = errors.New("unrecognized coordinate format")
	// ErrOutOfRange matches any *RangeError via errors.Is.
	ErrOutOfRange = errors.New("coordinate out of range")
	// ErrRunNotFound is returned by run repositories for unknown IDs.
	ErrRunNotFound = errors.New("match run not found")
)

// FormatError is returned when a coordinate token matches none of the
// accepted textual shapes.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unrecognized coordinate format: %q", e.Raw)
}

// Is lets errors.Is(err, ErrFormat) match.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// RangeError is returned when a parsed coordinate is outside its valid range.
type RangeError struct {
	Field string
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g out of range", e.Field, e.Value)
}

// Is lets errors.Is(err, ErrOutOfRange) match.
func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }

// RowError describes one input row rejected while building a PointSet.
type RowError struct {
	Set  string   `json:"set,omitempty"`
	Line int      `json:"line"`
	Raw  []string `json:"raw"`
	Err  error    `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Reason classifies the rejection for metrics labels.
func (e RowError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrFormat):
		return "format"
	case errors.Is(e.Err, ErrOutOfRange):
		return "range"
	default:
		return "invalid"
	}
}
