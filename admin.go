// Administrative operations over stored objects: existence checks, metadata
// retrieval, and deletion.
package upstream

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	uperrors "github.com/quayside/upstream/errors"
	"github.com/quayside/upstream/internal/validation"
	"github.com/quayside/upstream/uptypes"
)

// Delete removes the object at key from the configured bucket.
// Deleting a missing object is not an error; the store treats deletion as
// idempotent and so does the pipeline.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := validation.ValidateStorageKey(key); err != nil {
		return err
	}

	if err := c.slots.Acquire(ctx); err != nil {
		return uperrors.NewError("delete", err).WithBucket(c.cfg.Bucket).WithKey(key)
	}
	defer c.slots.Release()

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	_, err := c.store.DeleteObject(reqCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return uperrors.NewError("delete", err).WithBucket(c.cfg.Bucket).WithKey(key)
	}

	c.logger.InfoContext(ctx, "object deleted", "storage_key", key)
	return nil
}

// Exists reports whether an object is stored at key. A missing object is a
// normal outcome, not an error.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := validation.ValidateStorageKey(key); err != nil {
		return false, err
	}

	if err := c.slots.Acquire(ctx); err != nil {
		return false, uperrors.NewError("exists", err).WithBucket(c.cfg.Bucket).WithKey(key)
	}
	defer c.slots.Release()

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	_, err := c.store.HeadObject(reqCtx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, uperrors.NewError("exists", err).WithBucket(c.cfg.Bucket).WithKey(key)
	}
	return true, nil
}

// Metadata retrieves the stored object's metadata without fetching its
// contents.
func (c *Client) Metadata(ctx context.Context, key string) (*uptypes.ObjectMetadata, error) {
	if err := validation.ValidateStorageKey(key); err != nil {
		return nil, err
	}

	if err := c.slots.Acquire(ctx); err != nil {
		return nil, uperrors.NewError("metadata", err).WithBucket(c.cfg.Bucket).WithKey(key)
	}
	defer c.slots.Release()

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	output, err := c.store.HeadObject(reqCtx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, uperrors.NewError("metadata", uperrors.ErrObjectNotFound).
				WithBucket(c.cfg.Bucket).
				WithKey(key)
		}
		return nil, uperrors.NewError("metadata", err).WithBucket(c.cfg.Bucket).WithKey(key)
	}

	return &uptypes.ObjectMetadata{
		ContentType:   aws.ToString(output.ContentType),
		ContentLength: aws.ToInt64(output.ContentLength),
		LastModified:  aws.ToTime(output.LastModified),
		ETag:          aws.ToString(output.ETag),
		Metadata:      output.Metadata,
	}, nil
}

// requestContext applies the client-level per-request timeout, if configured.
func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// isNotFound recognizes the store's missing-object responses. HeadObject
// reports "NotFound" where other operations report "NoSuchKey".
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
