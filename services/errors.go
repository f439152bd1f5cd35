package services

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no file record exists for the requested id.
var ErrNotFound = errors.New("file record not found")

// Validation failure reasons. Each maps to a distinct client error at the
// transport boundary.
const (
	ReasonNoFile      = "no_file"
	ReasonTooLarge    = "too_large"
	ReasonBadType     = "bad_type"
	ReasonEmptyStream = "empty_stream"
)

// ValidationError rejects an upload before any store is touched.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ObjectStoreError wraps a failure originating in the object store. The
// orchestration layer picks compensation branches based on this origin.
type ObjectStoreError struct {
	Op  string
	Key string
	Err error
}

func (e *ObjectStoreError) Error() string {
	return fmt.Sprintf("object store %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *ObjectStoreError) Unwrap() error {
	return e.Err
}

// MetadataStoreError wraps a failure originating in the metadata database.
type MetadataStoreError struct {
	Op  string
	Err error
}

func (e *MetadataStoreError) Error() string {
	return fmt.Sprintf("metadata store %s failed: %v", e.Op, e.Err)
}

func (e *MetadataStoreError) Unwrap() error {
	return e.Err
}
