package neobase

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below unwraps to one of these, so callers
// can test with errors.Is without caring about the concrete type.
var (
	ErrLoad              = errors.New("no data source")
	ErrRecordField       = errors.New("missing column")
	ErrParse             = errors.New("malformed value")
	ErrKeyNotFound       = errors.New("key not found")
	ErrFieldNotFound     = errors.New("field not found")
	ErrMissingCoordinate = errors.New("missing coordinates")
	ErrInvalidSchema     = errors.New("invalid schema")
)

// LoadError reports that no data source could be opened.
type LoadError struct {
	Source string // path or resource name that was tried
	Err    error  // underlying open error, if any
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Source, ErrLoad)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// RecordFieldError reports a line that has fewer columns than the schema needs.
type RecordFieldError struct {
	Line   int
	Field  string
	Column int
	Width  int
}

func (e *RecordFieldError) Error() string {
	return fmt.Sprintf("line %d: field %q wants column %d, row has %d columns", e.Line, e.Field, e.Column, e.Width)
}

func (e *RecordFieldError) Unwrap() error { return ErrRecordField }

// ParseError reports a value that its field's parse function rejected.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: field %q: cannot parse %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// KeyNotFoundError reports a query against a key absent from the store.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found: %s", e.Key)
}

func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

// FieldNotFoundError reports a query for a field the schema does not define.
type FieldNotFoundError struct {
	Key    string
	Field  string
	Fields []string
}

func (e *FieldNotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("field %q not in %v", e.Field, e.Fields)
	}
	return fmt.Sprintf("field %q (for key %q) not in %v", e.Field, e.Key, e.Fields)
}

func (e *FieldNotFoundError) Unwrap() error { return ErrFieldNotFound }

// MissingCoordinateError reports a record whose latitude or longitude is
// empty or not a number.
type MissingCoordinateError struct {
	Key string
	Err error
}

func (e *MissingCoordinateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no coordinates for %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("no coordinates for %s", e.Key)
}

func (e *MissingCoordinateError) Unwrap() error { return e.Err }

func (e *MissingCoordinateError) Is(target error) bool { return target == ErrMissingCoordinate }
