package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrDatabaseNotFound  = errors.New("database not found")
	ErrDatabaseExists    = errors.New("database already exists")
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidName       = errors.New("invalid database name")
	ErrDanglingReference = errors.New("exchange input references no existing record")
	ErrUnlinkedExchanges = errors.New("database has unlinked exchanges")
	ErrCorruptSnapshot   = errors.New("corrupt snapshot")
	ErrMissingCode       = errors.New("record has no code")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op       string // Operation that failed (e.g., "write", "load snapshot")
	Entity   string // Entity type (e.g., "database", "record", "snapshot")
	Database string // Database name (if applicable)
	Code     string // Record code (if applicable)
	Cause    error  // Underlying error
	Context  string // Additional context
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	subject := e.Entity
	if e.Database != "" {
		subject += " " + e.Database
		if e.Code != "" {
			subject += "/" + e.Code
		}
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, subject, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, subject, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *StorageError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Database sets the entity to "database" with the given name.
func (b *ErrorBuilder) Database(name string) *ErrorBuilder {
	b.err.Entity = "database"
	b.err.Database = name
	return b
}

// Record sets the entity to "record" with the given database and code.
func (b *ErrorBuilder) Record(database, code string) *ErrorBuilder {
	b.err.Entity = "record"
	b.err.Database = database
	b.err.Code = code
	return b
}

// Snapshot sets the entity to "snapshot" and records its path as context.
func (b *ErrorBuilder) Snapshot(path string) *ErrorBuilder {
	b.err.Entity = "snapshot"
	b.err.Context = path
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StorageError.
func (b *ErrorBuilder) Build() *StorageError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// DatabaseNotFoundError creates a database not found error.
func DatabaseNotFoundError(name string) error {
	return NewError("get").Database(name).Cause(ErrDatabaseNotFound).Err()
}

// RecordNotFoundError creates a record not found error.
func RecordNotFoundError(database, code string) error {
	return NewError("get").Record(database, code).Cause(ErrRecordNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDatabaseNotFound) || errors.Is(err, ErrRecordNotFound)
}

// IsIntegrity returns true if a write was rejected for referencing missing
// records or leaving exchanges unlinked.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrDanglingReference) || errors.Is(err, ErrUnlinkedExchanges)
}
