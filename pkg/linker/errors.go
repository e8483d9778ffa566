package linker

import (
	"errors"
	"fmt"
)

// Sentinel errors. ErrUnlinkedReference and ErrAmbiguousMatch are soft: they
// classify exchanges left unlinked by a match pass and are never returned by
// Match. ErrPersistence marks hard failures from a Store.
var (
	ErrUnlinkedReference = errors.New("unlinked reference")
	ErrAmbiguousMatch    = errors.New("ambiguous match")
	ErrPersistence       = errors.New("persistence failed")
	ErrNilPool           = errors.New("nil pool")
	ErrNilStore          = errors.New("nil store")
	ErrUnknownField      = errors.New("unknown match field")
)

// LinkError carries structured context for a failed linker operation
type LinkError struct {
	Op       string // "match", "override", "write"
	Database string // database under import
	Pool     string // pool being matched, if any
	Kind     error  // sentinel classifying the failure
	Cause    error  // underlying error
}

// Error implements the error interface
func (e *LinkError) Error() string {
	msg := e.Op
	if e.Database != "" {
		msg += " " + e.Database
	}
	if e.Pool != "" {
		msg += fmt.Sprintf(" (pool %s)", e.Pool)
	}
	switch {
	case e.Kind != nil && e.Cause != nil:
		return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", msg, e.Kind)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *LinkError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the error's kind. The cause is reached
// through Unwrap.
func (e *LinkError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// ErrorBuilder builds LinkErrors fluently
type ErrorBuilder struct {
	err LinkError
}

// NewError starts a LinkError for op
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: LinkError{Op: op}}
}

func (b *ErrorBuilder) Database(name string) *ErrorBuilder {
	b.err.Database = name
	return b
}

func (b *ErrorBuilder) Pool(name string) *ErrorBuilder {
	b.err.Pool = name
	return b
}

func (b *ErrorBuilder) Kind(kind error) *ErrorBuilder {
	b.err.Kind = kind
	return b
}

func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the built error
func (b *ErrorBuilder) Err() error {
	err := b.err
	return &err
}

// IsPersistence reports whether err is a hard storage failure
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
