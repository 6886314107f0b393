// Package apdberr defines the error taxonomy shared by every APDB backend.
//
// Four kinds are distinguished, matching the engine's error handling design:
// ConfigError (fatal at construction or first use), DriverError (connection,
// timeout, or query failures surfaced by the storage driver), DataError
// (malformed input caught before any driver call), and NotImplementedError
// (a documented gap in a particular backend). None of these are retried
// inside the engine; callers are expected to retry idempotently using the
// stable ids carried by every row.
package apdberr

import (
	"errors"
	"fmt"
)

// ConfigError reports a problem with engine configuration: an unknown
// pixelization name, a schema missing its partition/primary index, or a
// time_partition_days value that disagrees with what was recorded at
// makeSchema time.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return "config error: " + e.Op
	}
	return fmt.Sprintf("config error: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err (which may be nil) as a ConfigError for op.
func NewConfigError(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

// DriverError reports a failure from the underlying storage driver:
// connection refused, request timeout, unavailable replicas, or a
// query-level failure returned mid fan-out.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver error: %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// WrapDriverError wraps a non-nil driver error with operation context.
// Returns nil if err is nil, matching the teacher's wrapDBError idiom.
func WrapDriverError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DriverError{Op: op, Err: err}
}

// DataError reports malformed input caught before any driver call: a
// missing partition/clustering column, a forced-source row referencing an
// unknown diaObjectId, or an input frame whose columns don't match the
// catalog schema.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: %s: %v", e.Op, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// NewDataError builds a DataError from a message, formatted like fmt.Errorf.
func NewDataError(op, format string, args ...any) error {
	return &DataError{Op: op, Err: fmt.Errorf(format, args...)}
}

// NotImplementedError documents an operation a particular backend does not
// support: Cassandra's history-style reads, reassignDiaSources, and
// countUnassociatedObjects all return this.
type NotImplementedError struct {
	Op string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Op)
}

// NewNotImplemented builds a NotImplementedError for the named operation.
func NewNotImplemented(op string) error {
	return &NotImplementedError{Op: op}
}

// Is* helpers let callers branch on error kind without importing errors
// directly at every call site, matching the teacher's isNotFound/isConflict
// helpers.

func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

func IsDriverError(err error) bool {
	var e *DriverError
	return errors.As(err, &e)
}

func IsDataError(err error) bool {
	var e *DataError
	return errors.As(err, &e)
}

func IsNotImplemented(err error) bool {
	var e *NotImplementedError
	return errors.As(err, &e)
}
