// Package errors provides error types and failure classification for upload
// pipeline operations.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the stable failure taxonomy carried by every pipeline error.
// Callers branch on Kind (or Retryable) to decide whether to re-invoke.
type Kind string

// Failure kinds.
const (
	// KindValidation covers bad metadata, bad content signatures, and size
	// violations. Never retryable.
	KindValidation Kind = "validation_failure"

	// KindTransport covers connection resets, timeouts, and DNS failures.
	// Retryable.
	KindTransport Kind = "transport_failure"

	// KindStoreRejection covers access denial and invalid bucket/argument
	// rejections from the store. Never retryable.
	KindStoreRejection Kind = "store_rejection"

	// KindUnclassified covers store errors with no known mapping.
	// Conservatively treated as retryable.
	KindUnclassified Kind = "unclassified_failure"
)

// Stage identifies where in the pipeline a failure happened.
type Stage string

// Pipeline stages.
const (
	StageValidation Stage = "validation"
	StageTransfer   Stage = "transfer"
	StageUnknown    Stage = "unknown"
)

// Error represents a pipeline operation error with context about the
// operation that failed. It wraps the underlying store or validation error
// with the taxonomy needed by retry decisions.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "delete", "exists")
	Op string

	// Bucket is the store bucket name (if applicable)
	Bucket string

	// Key is the storage key (if applicable)
	Key string

	// Kind is the classified failure kind
	Kind Kind

	// Stage is the pipeline stage the failure surfaced from
	Stage Stage

	// Attempts is the total attempt count, set by the retry layer when all
	// attempts are exhausted. Zero means the error was not retried.
	Attempts int

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("upstream.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("upstream.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("upstream.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("upstream.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether a caller may reasonably re-invoke the operation.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindUnclassified:
		return true
	default:
		return false
	}
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds storage key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// WithStage overrides the stage the failure is attributed to.
func (e *Error) WithStage(stage Stage) *Error {
	e.Stage = stage
	return e
}

// WithAttempts annotates the error with the total attempt count.
func (e *Error) WithAttempts(attempts int) *Error {
	e.Attempts = attempts
	return e
}

// NewError creates a new Error with the given operation and underlying error.
// The kind is derived from the underlying error; the stage defaults to
// transfer for store-originated failures and validation for validation
// sentinels.
func NewError(op string, err error) *Error {
	// Re-wrapping an already classified error keeps its kind and stage.
	var inner *Error
	if errors.As(err, &inner) {
		return &Error{Op: op, Kind: inner.Kind, Stage: inner.Stage, Err: err}
	}

	kind := Classify(err)
	stage := StageTransfer
	if kind == KindValidation {
		stage = StageValidation
	}
	return &Error{Op: op, Kind: kind, Stage: stage, Err: err}
}

// NewValidationError creates a validation-stage Error. Validation failures
// are fail-fast and never retryable.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Stage: StageValidation, Err: err}
}

// Sentinel errors for common pipeline failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided request is malformed
	ErrInvalidInput = errors.New("upstream: invalid input")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("upstream: object not found")

	// ErrTypeNotAllowed indicates a declared content type outside the allow-list
	ErrTypeNotAllowed = errors.New("upstream: content type not allowed")

	// ErrContentMismatch indicates content bytes contradicting the declared type
	ErrContentMismatch = errors.New("upstream: content does not match declared type")

	// ErrInsufficientContent indicates too few bytes to verify a signature
	ErrInsufficientContent = errors.New("upstream: insufficient content")

	// ErrSizeExceeded indicates a payload larger than the configured maximum
	ErrSizeExceeded = errors.New("upstream: maximum size exceeded")

	// ErrInvalidFileName indicates an empty, traversing, or separator-bearing name
	ErrInvalidFileName = errors.New("upstream: invalid file name")

	// ErrDangerousExtension indicates a denylisted file extension
	ErrDangerousExtension = errors.New("upstream: dangerous file extension")

	// ErrInvalidStorageKey indicates a malformed storage key
	ErrInvalidStorageKey = errors.New("upstream: invalid storage key")

	// ErrAccessDenied indicates that access to the store resource is denied
	ErrAccessDenied = errors.New("upstream: access denied")

	// ErrBucketNotFound indicates that the configured bucket does not exist
	ErrBucketNotFound = errors.New("upstream: bucket not found")

	// ErrTimeout indicates that a store operation timed out
	ErrTimeout = errors.New("upstream: operation timeout")

	// ErrConnection indicates a connection-level transport failure
	ErrConnection = errors.New("upstream: connection error")
)

// IsRetryable checks whether an error permits another attempt. Errors that
// were never classified are treated like unclassified store failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	switch Classify(err) {
	case KindTransport, KindUnclassified:
		return true
	default:
		return false
	}
}

// IsValidation checks if an error is a validation-stage rejection.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates a malformed request.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
