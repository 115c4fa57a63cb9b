// Functional options for configuring client behavior and individual uploads.
package upstream

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/quayside/upstream/uptypes"
)

// WithRegion sets the AWS region for store operations.
// If not specified, uses the default region from the credential chain.
func WithRegion(region string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom store endpoint URL.
// This is useful for S3-compatible services or local testing.
func WithEndpoint(endpoint string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithBucket binds the client to a bucket. Required.
func WithBucket(bucket string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Bucket = bucket
	}
}

// WithMaxFileSize sets the maximum accepted payload size in bytes.
// Streamed payloads that cross this budget abort mid-flight.
func WithMaxFileSize(maxSize int64) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		if maxSize > 0 {
			c.MaxFileSize = maxSize
		}
	}
}

// WithAllowedTypes replaces the declared-type allow-list.
// Entries are compared case-insensitively on the base type, ignoring
// parameters such as charset.
func WithAllowedTypes(types []string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.AllowedTypes = types
	}
}

// WithDeniedExtensions replaces the extension denylist. Entries must be
// lowercase and include the dot.
func WithDeniedExtensions(extensions []string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.DeniedExtensions = extensions
	}
}

// WithPartSize sets the part size for multipart transfers. Payloads at or
// below one part size use a single atomic PUT. Values under the store's 5MB
// floor are raised to it.
func WithPartSize(partSize int64) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithConcurrency sets the per-upload bound on in-flight part transfers.
// Default is 5.
func WithConcurrency(concurrency int) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithStoreSlots sets the process-wide bound on concurrent store requests
// across all uploads sharing the client. Default is 10.
func WithStoreSlots(slots int) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		if slots > 0 {
			c.StoreSlots = slots
		}
	}
}

// WithConnectTimeout bounds connection establishment to the store.
func WithConnectTimeout(timeout time.Duration) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.ConnectTimeout = timeout
	}
}

// WithRequestTimeout bounds each individual store request. A part that times
// out is treated like any other part failure. Default is no timeout.
func WithRequestTimeout(timeout time.Duration) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.RequestTimeout = timeout
	}
}

// WithRetryMaxAttempts sets the attempt bound used by UploadWithRetry.
func WithRetryMaxAttempts(attempts int) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		if attempts > 0 {
			c.RetryMaxAttempts = attempts
		}
	}
}

// WithRetryBaseDelay sets the backoff seed used by UploadWithRetry.
func WithRetryBaseDelay(delay time.Duration) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		if delay > 0 {
			c.RetryBaseDelay = delay
		}
	}
}

// WithKeyPrefix sets the prefix under which generated storage keys are
// placed. Default is "uploads".
func WithKeyPrefix(prefix string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.KeyPrefix = prefix
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
// Required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithLogger sets the structured logger for pipeline events.
// Default is slog.Default.
func WithLogger(logger *slog.Logger) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithMetadata attaches caller-supplied metadata to the stored object.
func WithMetadata(metadata map[string]string) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithProgress sets a progress callback for this upload. Events carry a
// monotonically non-decreasing floor percentage per attempt.
func WithProgress(fn uptypes.ProgressFunc) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.Progress = fn
	}
}

// WithUploadPartSize overrides the client-level part size for this upload.
func WithUploadPartSize(partSize int64) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithUploadConcurrency overrides the client-level part concurrency for this
// upload.
func WithUploadConcurrency(concurrency int) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithCorrelationID sets the correlation identifier stamped on log events
// for this upload. Default is a fresh UUID.
func WithCorrelationID(id string) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.CorrelationID = id
	}
}

// WithStorageKey pins the storage key instead of generating one. Retried
// attempts use this to target the same key.
func WithStorageKey(key string) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.StorageKey = key
	}
}

// WithUploadKeyPrefix overrides the client-level key prefix for this upload.
// Ignored when the storage key is pinned.
func WithUploadKeyPrefix(prefix string) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.KeyPrefix = prefix
	}
}
