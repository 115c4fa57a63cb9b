// Client construction and configuration for the upload pipeline.
package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	uperrors "github.com/quayside/upstream/errors"
	"github.com/quayside/upstream/internal/pool"
	"github.com/quayside/upstream/internal/storeapi"
	"github.com/quayside/upstream/internal/transfer"
	"github.com/quayside/upstream/internal/validation"
	"github.com/quayside/upstream/uptypes"
)

const (
	// DefaultMaxFileSize caps payload size when the caller does not
	// configure one.
	DefaultMaxFileSize = 100 * 1024 * 1024

	// DefaultStoreSlots bounds in-flight store requests across all uploads
	// sharing the client.
	DefaultStoreSlots = 10

	// DefaultConnectTimeout bounds connection establishment to the store.
	DefaultConnectTimeout = 10 * time.Second
)

// DefaultAllowedTypes is the declared-type allow-list applied when the
// caller does not configure one. It covers every type the pipeline can
// verify by magic number plus the structured text types that carry none.
var DefaultAllowedTypes = []string{
	"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff",
	"application/pdf", "application/zip", "application/gzip",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain", "text/csv", "application/json", "application/xml", "text/xml",
}

// Client is the upload pipeline's entry point. It is safe for concurrent
// use; all mutable state lives in per-upload attempt scope.
type Client struct {
	// store is the underlying object store client
	store storeapi.StoreAPI

	// cfg is the immutable configuration assembled at construction time
	cfg uptypes.ClientConfig

	// engine performs the actual byte transfer
	engine *transfer.Engine

	// slots is the process-wide bound on in-flight store requests
	slots *pool.SlotPool

	// logger receives structured pipeline events
	logger *slog.Logger
}

// New creates a pipeline client bound to a single bucket. It loads AWS
// credentials using the default credential chain and applies the given
// options.
//
// Example:
//
//	client, err := upstream.New(
//	    upstream.WithBucket("user-content"),
//	    upstream.WithRegion("us-west-2"),
//	    upstream.WithAllowedTypes([]string{"image/png", "application/pdf"}),
//	)
func New(opts ...uptypes.Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validation.ValidateBucketName(cfg.Bucket); err != nil {
		return nil, uperrors.NewError("client initialization", err).WithBucket(cfg.Bucket)
	}

	var awsCfg aws.Config
	var err error
	if cfg.CustomAWSConfig != nil {
		awsCfg = *cfg.CustomAWSConfig
	} else {
		awsCfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, uperrors.NewError("client initialization", err)
		}
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	cfg.Region = awsCfg.Region

	var s3Opts []func(*s3.Options)
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ConnectTimeout > 0 {
		httpClient := &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
			},
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return newClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewWithStore creates a client over a custom store implementation. This is
// primarily used for testing with mocked store clients.
func NewWithStore(store storeapi.StoreAPI, opts ...uptypes.Option) *Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newClient(store, cfg)
}

func newClient(store storeapi.StoreAPI, cfg uptypes.ClientConfig) *Client {
	slots := pool.NewSlotPool(cfg.StoreSlots)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		store:  store,
		cfg:    cfg,
		engine: transfer.NewEngine(store, slots),
		slots:  slots,
		logger: logger,
	}
}

func defaultClientConfig() uptypes.ClientConfig {
	return uptypes.ClientConfig{
		MaxFileSize:    DefaultMaxFileSize,
		AllowedTypes:   DefaultAllowedTypes,
		PartSize:       transfer.DefaultPartSize,
		Concurrency:    transfer.DefaultConcurrency,
		StoreSlots:     DefaultStoreSlots,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Bucket returns the bucket the client is bound to.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// SlotStats returns cumulative statistics from the shared request slot pool.
func (c *Client) SlotStats() pool.SlotStats {
	return c.slots.Stats()
}

// publicLocator derives a URL addressing the stored object. With a custom
// endpoint the path-style form is used; otherwise the virtual-hosted S3 form.
func (c *Client) publicLocator(key string) string {
	escaped := escapeKey(key)
	if c.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Bucket, escaped)
	}
	if c.cfg.Region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.cfg.Bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.cfg.Bucket, c.cfg.Region, escaped)
}

// escapeKey percent-encodes each path segment, preserving the separators.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
