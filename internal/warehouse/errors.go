package warehouse

import (
	"errors"
	"fmt"
)

// ErrorKind classifies storage failures so callers never have to inspect
// driver error messages. The postgres adapter maps SQLSTATE codes onto
// these kinds; message-substring matching exists there only as a fallback
// for errors that are not typed driver errors.
type ErrorKind string

const (
	// KindDuplicateKey: unique-constraint violation (expected during
	// dedup; not an error condition for the pipeline).
	KindDuplicateKey ErrorKind = "duplicate_key"
	// KindPrimaryKey: primary-key violation.
	KindPrimaryKey ErrorKind = "primary_key_violation"
	// KindForeignKey: referential-integrity violation.
	KindForeignKey ErrorKind = "foreign_key_violation"
	// KindCheckViolation: check-constraint violation.
	KindCheckViolation ErrorKind = "check_constraint_violation"
	// KindDataType: data exception (bad cast, out-of-range value).
	KindDataType ErrorKind = "invalid_data_type"
	// KindUnavailable: connectivity-class failure; the current month is
	// aborted and retried on the next run.
	KindUnavailable ErrorKind = "storage_unavailable"
	// KindUnknown: anything the adapter could not classify.
	KindUnknown ErrorKind = "unknown_error"
)

// StorageError wraps a driver error with its classification.
type StorageError struct {
	Kind       ErrorKind
	Constraint string // violated constraint name, when known
	Err        error
}

func (e *StorageError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("warehouse: %s (%s): %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("warehouse: %s: %v", e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// KindOf extracts the classification from err, or KindUnknown when err is
// not a StorageError.
func KindOf(err error) ErrorKind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// ConstraintOf returns the violated constraint name, if the error carries one.
func ConstraintOf(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Constraint
	}
	return ""
}

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool { return KindOf(err) == KindDuplicateKey }

// IsUnavailable reports whether err is a connectivity-class failure.
func IsUnavailable(err error) bool { return KindOf(err) == KindUnavailable }
