// Package uptypes provides shared type definitions for the upstream module.
package uptypes

import (
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// UploadRequest describes one incoming file. It is immutable once constructed
// and owned exclusively by the call that created it.
//
// Exactly one of Data or Body must be set. Body carries a finite byte stream
// whose total length is declared in Size; Size must also be set for Data
// requests and must equal len(Data).
type UploadRequest struct {
	// SourceName is the client-declared file name
	SourceName string

	// ContentType is the client-declared MIME type
	ContentType string

	// Size is the declared payload length in bytes
	Size int64

	// Data is the in-memory payload, when fully materialized
	Data []byte

	// Body is the streamed payload with known total length
	Body io.Reader

	// Metadata is extra caller-supplied metadata stored alongside the object
	Metadata map[string]string
}

// Buffered reports whether the payload is fully materialized in memory.
func (r *UploadRequest) Buffered() bool {
	return r.Data != nil
}

// NewBufferRequest builds a request around an in-memory payload.
func NewBufferRequest(sourceName, contentType string, data []byte) *UploadRequest {
	return &UploadRequest{
		SourceName:  sourceName,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}
}

// NewStreamRequest builds a request around a finite byte stream of declared
// length. If body also implements io.Closer it is closed by the pipeline on
// any failure path.
func NewStreamRequest(sourceName, contentType string, size int64, body io.Reader) *UploadRequest {
	return &UploadRequest{
		SourceName:  sourceName,
		ContentType: contentType,
		Size:        size,
		Body:        body,
	}
}

// ProgressEvent is a transient snapshot of cumulative transfer progress.
// It is produced and consumed synchronously per callback invocation.
type ProgressEvent struct {
	// BytesTransferred is the cumulative byte count for this attempt
	BytesTransferred int64

	// TotalBytes is the declared payload size
	TotalBytes int64

	// Percentage is floor(100 * BytesTransferred / TotalBytes)
	Percentage int

	// SourceName is the declared file name
	SourceName string

	// StorageKey is the key the payload is being transferred to
	StorageKey string
}

// ProgressFunc receives progress events. It is invoked synchronously on the
// transferring attempt's context; implementations must not block.
type ProgressFunc func(ProgressEvent)

// PartDescriptor records one multipart part for the lifetime of a single
// upload attempt. A descriptor never transitions from "has etag" back to
// "no etag".
type PartDescriptor struct {
	// Index is the 1-based part index
	Index int32

	// Start is the inclusive byte offset this part begins at
	Start int64

	// End is the exclusive byte offset this part ends at
	End int64

	// ETag is set after the part transfers successfully
	ETag string
}

// TransferResult is the transfer engine's successful outcome.
type TransferResult struct {
	// Key is the storage key the payload was written to
	Key string

	// Size is the total bytes transferred
	Size int64

	// ETag is the store's entity tag for the assembled object
	ETag string

	// Parts holds the completed part descriptors, ascending by index.
	// Empty for single-request uploads below the multipart threshold.
	Parts []PartDescriptor

	// Duration is how long the transfer took
	Duration time.Duration
}

// TransferConfig holds per-transfer settings handed to the engine.
type TransferConfig struct {
	ContentType string
	Metadata    map[string]string
	PartSize    int64
	Concurrency int
	SourceName  string
	Progress    ProgressFunc

	// RequestTimeout bounds each individual store request. A per-part
	// timeout is treated identically to any other part failure.
	RequestTimeout time.Duration
}

// UploadResult contains the outcome of a successful upload.
type UploadResult struct {
	// StorageKey is the generated (or caller-pinned) storage key
	StorageKey string

	// PublicLocator is a URL addressing the stored object
	PublicLocator string

	// Size is the stored payload size in bytes
	Size int64

	// SHA256 is the hex content digest, computed for buffered payloads only
	SHA256 string

	// DetectedType is the sniffed content type, recorded for diagnostics
	DetectedType string

	// ETag is the store's entity tag for the object
	ETag string

	// CompletedAt is when the upload finished
	CompletedAt time.Time

	// Duration is the total processing time
	Duration time.Duration
}

// ObjectMetadata contains detailed metadata about a stored object.
type ObjectMetadata struct {
	// ContentType is the MIME type of the object
	ContentType string

	// ContentLength is the size of the object in bytes
	ContentLength int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the store's entity tag for the object
	ETag string

	// Metadata contains user-defined metadata
	Metadata map[string]string
}

// Configuration types for functional options

// ClientConfig holds the immutable configuration assembled at client
// construction time.
type ClientConfig struct {
	Region           string
	Endpoint         string
	Bucket           string
	MaxFileSize      int64
	AllowedTypes     []string
	DeniedExtensions []string
	PartSize         int64
	Concurrency      int
	StoreSlots       int
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	KeyPrefix        string
	ForcePathStyle   bool
	CustomAWSConfig  *aws.Config
	Logger           *slog.Logger
}

// UploadOptionConfig holds per-upload settings applied via functional options.
type UploadOptionConfig struct {
	Metadata      map[string]string
	Progress      ProgressFunc
	PartSize      int64
	Concurrency   int
	CorrelationID string
	StorageKey    string
	KeyPrefix     string
}

// Option is a functional option for configuring the client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring a single upload.
	UploadOption func(*UploadOptionConfig)
)
