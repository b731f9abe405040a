// Package errs provides the unified error type used across all of framesync.
//
// Every subsystem (inference, identifier handling, catalog reads, schema
// evolution, batch execution, drivers) wraps its native errors into
// *errs.Error before returning them to callers. Callers use the Is*
// predicates to handle errors without importing driver-specific packages.
//
// Usage:
//
//	// In a driver — wrap native errors:
//	return errs.Wrap(errs.KindCatalogRead, "reading table definition", pgErr)
//
//	// In a caller — check error kind:
//	if errs.IsSchemaConflict(err) {
//	    // existing column cannot be widened to the inferred type
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an error without exposing subsystem-specific codes.
// All backends (Postgres, MySQL, SQLite, MinIO) map their native errors
// to one of these kinds, giving callers a single consistent API.
type Kind int

const (
	KindUnknown           Kind = iota
	KindTypeInference          // values within one column have no common SQL supertype
	KindInvalidIdentifier      // unsafe or malformed table/column name
	KindCatalogRead            // could not read the live table definition
	KindSchemaConflict         // evolution would require narrowing or an incompatible change
	KindSchemaApply            // DDL failed; the whole plan was rolled back
	KindMissingKey             // matching requested without key columns
	KindBatchExecution         // one or more rows in a batch failed
	KindConnectionFailed       // cannot reach or authenticate to the backend
	KindTimeout                // context deadline / cancellation
	KindInvalidInput           // bad arguments from the caller
	KindNotFound               // no rows, no object, no table
)

func (k Kind) String() string {
	switch k {
	case KindTypeInference:
		return "type_inference"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	case KindCatalogRead:
		return "catalog_read"
	case KindSchemaConflict:
		return "schema_conflict"
	case KindSchemaApply:
		return "schema_apply"
	case KindMissingKey:
		return "missing_key"
	case KindBatchExecution:
		return "batch_execution"
	case KindConnectionFailed:
		return "connection_failed"
	case KindTimeout:
		return "timeout"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all framesync subsystems.
// Drivers and engine stages produce it; callers inspect it via the Is*
// predicates below.
type Error struct {
	Kind    Kind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an *Error with a formatted message and no cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsTypeInference reports whether err means a column's values could not be
// reconciled to a single SQL type.
func IsTypeInference(err error) bool {
	return KindOf(err) == KindTypeInference
}

// IsInvalidIdentifier reports whether err was caused by an unsafe or
// malformed table/column name.
func IsInvalidIdentifier(err error) bool {
	return KindOf(err) == KindInvalidIdentifier
}

// IsCatalogRead reports whether err is a failure to read table metadata.
func IsCatalogRead(err error) bool {
	return KindOf(err) == KindCatalogRead
}

// IsSchemaConflict reports whether err means the live schema cannot be
// widened to fit the inferred schema.
func IsSchemaConflict(err error) bool {
	return KindOf(err) == KindSchemaConflict
}

// IsSchemaApply reports whether err means DDL execution failed and the
// evolution plan was rolled back.
func IsSchemaApply(err error) bool {
	return KindOf(err) == KindSchemaApply
}

// IsMissingKey reports whether err means an update/merge was requested
// without key columns.
func IsMissingKey(err error) bool {
	return KindOf(err) == KindMissingKey
}

// IsBatchExecution reports whether err carries per-row batch failures.
func IsBatchExecution(err error) bool {
	return KindOf(err) == KindBatchExecution
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == KindConnectionFailed
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidInput
}

// IsNotFound reports whether err represents a "not found" result
// (missing table, missing object, no rows).
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// KindOf extracts the Kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
