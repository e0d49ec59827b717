package geequery

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the SQL core.
var (
	// ErrUnsupported is returned when a dialect cannot render or emulate
	// a requested construct (function, interval unit, limit clause).
	ErrUnsupported = errors.New("geequery: unsupported dialect feature")

	// ErrMalformedLiteral is returned when a numeric or date string cannot
	// be parsed while building the tree or decoding a value.
	ErrMalformedLiteral = errors.New("geequery: malformed literal")

	// ErrTypeMismatch is returned when a database value cannot be decoded
	// into the declared mapping type.
	ErrTypeMismatch = errors.New("geequery: type mismatch")

	// ErrResolutionCycle is returned when key generation fails to settle
	// into a terminal resolution. It indicates a programming error.
	ErrResolutionCycle = errors.New("geequery: generation resolution did not terminate")
)

// UnsupportedError describes a construct a dialect cannot handle.
type UnsupportedError struct {
	Profile string // Dialect name, may be empty for dialect-agnostic checks
	Feature string // Function name, clause or statement kind
	Unit    string // Offending interval unit, if any
}

// Error returns the error string.
func (e *UnsupportedError) Error() string {
	var sb strings.Builder
	sb.WriteString("geequery: ")
	if e.Profile != "" {
		sb.WriteString(e.Profile)
		sb.WriteString(" dialect ")
	}
	sb.WriteString("can't handle ")
	sb.WriteString(e.Feature)
	if e.Unit != "" {
		fmt.Fprintf(&sb, " with unit %q", e.Unit)
	}
	return sb.String()
}

// Is reports whether the target error matches ErrUnsupported.
func (e *UnsupportedError) Is(err error) bool {
	return err == ErrUnsupported
}

// NewUnsupportedError returns a new UnsupportedError for the given feature.
func NewUnsupportedError(profile, feature string) *UnsupportedError {
	return &UnsupportedError{Profile: profile, Feature: feature}
}

// NewUnsupportedUnitError returns a new UnsupportedError for an interval unit.
func NewUnsupportedUnitError(profile, feature, unit string) *UnsupportedError {
	return &UnsupportedError{Profile: profile, Feature: feature, Unit: unit}
}

// IsUnsupported returns true if the error is an UnsupportedError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupported)
}

// FormatError represents a literal that could not be parsed.
type FormatError struct {
	Input string // Offending text
	Kind  string // Expected kind (integer, double, date, ...)
	Err   error  // Underlying parse error, may be nil
}

// Error returns the error string.
func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geequery: malformed %s literal %q: %v", e.Kind, e.Input, e.Err)
	}
	return fmt.Sprintf("geequery: malformed %s literal %q", e.Kind, e.Input)
}

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrMalformedLiteral.
func (e *FormatError) Is(err error) bool {
	return err == ErrMalformedLiteral
}

// NewFormatError returns a new FormatError.
func NewFormatError(kind, input string, err error) *FormatError {
	return &FormatError{Kind: kind, Input: input, Err: err}
}

// IsFormatError returns true if the error is a FormatError.
func IsFormatError(err error) bool {
	if err == nil {
		return false
	}
	var e *FormatError
	return errors.As(err, &e) || errors.Is(err, ErrMalformedLiteral)
}

// TypeMismatchError represents a decoded value whose runtime type does not
// fit the declared mapping type.
type TypeMismatchError struct {
	Index    int    // 1-based result column index, 0 if unknown
	Column   string // Column name, may be empty
	Expected string // Declared type
	Actual   string // Runtime type or offending value
}

// Error returns the error string.
func (e *TypeMismatchError) Error() string {
	col := fmt.Sprintf("%d", e.Index)
	if e.Column != "" {
		col = fmt.Sprintf("%d (%s)", e.Index, e.Column)
	}
	return fmt.Sprintf("geequery: column %s from database is %s but expected is %s", col, e.Actual, e.Expected)
}

// Is reports whether the target error matches ErrTypeMismatch.
func (e *TypeMismatchError) Is(err error) bool {
	return err == ErrTypeMismatch
}

// NewTypeMismatchError returns a new TypeMismatchError.
func NewTypeMismatchError(index int, expected, actual string) *TypeMismatchError {
	return &TypeMismatchError{Index: index, Expected: expected, Actual: actual}
}

// IsTypeMismatch returns true if the error is a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeMismatchError
	return errors.As(err, &e) || errors.Is(err, ErrTypeMismatch)
}

// ResolutionCycleError is returned when a column is still in its probing
// state after the probe result was committed.
type ResolutionCycleError struct {
	Table  string
	Column string
}

// Error returns the error string.
func (e *ResolutionCycleError) Error() string {
	return fmt.Sprintf("geequery: generation resolution for %s.%s did not terminate", e.Table, e.Column)
}

// Is reports whether the target error matches ErrResolutionCycle.
func (e *ResolutionCycleError) Is(err error) bool {
	return err == ErrResolutionCycle
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("geequery: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// MutationError wraps an insert failure with the table it targeted.
type MutationError struct {
	Table string // Target table
	Op    string // Operation (e.g., "insert")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("geequery: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(table, op string, err error) *MutationError {
	return &MutationError{Table: table, Op: op, Err: err}
}

// NotFoundError returns when a probed table or column does not exist.
type NotFoundError struct {
	label string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return "geequery: " + e.label + " not found"
}

// NewNotFoundError returns a new NotFoundError for the given label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns a boolean indicating whether the error is a not found error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e)
}
