// Package transfer implements the multipart transfer engine: it splits a
// payload into parts, transfers parts with bounded concurrency, aggregates
// progress through a single-writer accumulator, and aborts and cleans up
// remote partial state on any failure.
package transfer

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	uperrors "github.com/quayside/upstream/errors"
	"github.com/quayside/upstream/internal/pool"
	"github.com/quayside/upstream/internal/storeapi"
	"github.com/quayside/upstream/uptypes"
)

const (
	// MinPartSize is the store-imposed floor for non-final parts.
	MinPartSize = 5 * 1024 * 1024

	// DefaultPartSize is used when the caller does not configure one.
	DefaultPartSize = 8 * 1024 * 1024

	// DefaultConcurrency bounds in-flight part transfers per upload when the
	// caller does not configure one.
	DefaultConcurrency = 5

	// abortTimeout bounds the cleanup call issued after a failed attempt.
	abortTimeout = 30 * time.Second
)

// Engine transfers payloads to the object store. Payloads at or below one
// part size go through a single atomic PUT; larger payloads use multipart
// transfer with bounded concurrency.
//
// The slot pool is an injected process-wide bound on in-flight store
// requests; the engine additionally bounds its own per-upload concurrency.
type Engine struct {
	store   storeapi.StoreAPI
	slots   *pool.SlotPool
	buffers *pool.BufferPool
}

// NewEngine creates a transfer engine over the given store and slot pool.
func NewEngine(store storeapi.StoreAPI, slots *pool.SlotPool) *Engine {
	if slots == nil {
		slots = pool.NewSlotPool(0)
	}
	return &Engine{
		store:   store,
		slots:   slots,
		buffers: pool.NewBufferPool(),
	}
}

// Send transfers the payload to bucket/key. The payload reader must deliver
// exactly size bytes. On any failure the engine cancels in-flight parts,
// removes already-committed remote parts, and surfaces the first observed
// failure.
func (e *Engine) Send(
	ctx context.Context,
	bucket, key string,
	payload io.Reader,
	size int64,
	cfg *uptypes.TransferConfig,
) (*uptypes.TransferResult, error) {
	start := time.Now()

	partSize := cfg.PartSize
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	if partSize < MinPartSize {
		partSize = MinPartSize
	}

	if size <= partSize {
		return e.sendSingle(ctx, bucket, key, payload, size, cfg, start)
	}
	return e.sendMultipart(ctx, bucket, key, payload, size, partSize, cfg, start)
}

// sendSingle performs one atomic PUT for payloads below the multipart
// threshold. The successful result shape is identical to the multipart path.
func (e *Engine) sendSingle(
	ctx context.Context,
	bucket, key string,
	payload io.Reader,
	size int64,
	cfg *uptypes.TransferConfig,
	start time.Time,
) (*uptypes.TransferResult, error) {
	data, err := io.ReadAll(io.LimitReader(payload, size))
	if err != nil {
		return nil, uperrors.NewError("put", err).WithBucket(bucket).WithKey(key)
	}
	if int64(len(data)) != size {
		return nil, uperrors.NewValidationError("put", uperrors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("payload shorter than declared size")
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(cfg.ContentType),
		ContentLength: aws.Int64(size),
	}
	if len(cfg.Metadata) > 0 {
		input.Metadata = cfg.Metadata
	}

	if err := e.slots.Acquire(ctx); err != nil {
		return nil, uperrors.NewError("put", err).WithBucket(bucket).WithKey(key)
	}
	defer e.slots.Release()

	reqCtx, cancel := e.requestContext(ctx, cfg)
	defer cancel()

	output, err := e.store.PutObject(reqCtx, input)
	if err != nil {
		return nil, uperrors.NewError("put", err).WithBucket(bucket).WithKey(key)
	}

	e.report(cfg, key, size, size)

	return &uptypes.TransferResult{
		Key:      key,
		Size:     size,
		ETag:     aws.ToString(output.ETag),
		Duration: time.Since(start),
	}, nil
}

// sendMultipart splits the payload into fixed-size parts (final part holds
// the remainder) and transfers them with bounded concurrency.
func (e *Engine) sendMultipart(
	ctx context.Context,
	bucket, key string,
	payload io.Reader,
	size, partSize int64,
	cfg *uptypes.TransferConfig,
	start time.Time,
) (*uptypes.TransferResult, error) {
	parts := planParts(size, partSize)

	uploadID, err := e.createMultipartUpload(ctx, bucket, key, cfg)
	if err != nil {
		return nil, err
	}

	// Single-writer progress accumulator: part workers report their own
	// deltas; only this goroutine touches the cumulative counter, so the
	// percentage sequence is monotonically non-decreasing.
	deltas := make(chan int64, len(parts))
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		var transferred int64
		for d := range deltas {
			transferred += d
			e.report(cfg, key, transferred, size)
		}
	}()

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	// Parts are staged sequentially from the reader, then handed to workers.
	// g.Go blocks once the limit is reached, which also bounds the number of
	// staged buffers alive at once.
	for i := range parts {
		if gctx.Err() != nil {
			break
		}

		pd := &parts[i]
		length := int(pd.End - pd.Start)
		buf := e.buffers.Get(length)[:length]
		if _, err := io.ReadFull(payload, buf); err != nil {
			e.buffers.Put(buf)
			_ = g.Wait()
			close(deltas)
			<-aggDone
			e.abort(ctx, bucket, key, uploadID)
			return nil, uperrors.NewError("uploadPart", err).
				WithBucket(bucket).
				WithKey(key).
				WithMessage("reading payload for part")
		}

		g.Go(func() error {
			defer e.buffers.Put(buf)

			if err := e.slots.Acquire(gctx); err != nil {
				return err
			}
			defer e.slots.Release()

			reqCtx, cancel := e.requestContext(gctx, cfg)
			defer cancel()

			output, err := e.store.UploadPart(reqCtx, &s3.UploadPartInput{
				Bucket:     aws.String(bucket),
				Key:        aws.String(key),
				UploadId:   aws.String(uploadID),
				PartNumber: aws.Int32(pd.Index),
				Body:       bytes.NewReader(buf),
			})
			if err != nil {
				return uperrors.NewError("uploadPart", err).WithBucket(bucket).WithKey(key)
			}

			pd.ETag = aws.ToString(output.ETag)
			deltas <- pd.End - pd.Start
			return nil
		})
	}

	err = g.Wait()
	close(deltas)
	<-aggDone

	if err != nil {
		e.abort(ctx, bucket, key, uploadID)
		return nil, err
	}

	return e.complete(ctx, bucket, key, uploadID, parts, size, start)
}

// complete issues the final assembly call with part etags in ascending index
// order; the store reassembles bytes by part index, not completion time.
func (e *Engine) complete(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []uptypes.PartDescriptor,
	size int64,
	start time.Time,
) (*uptypes.TransferResult, error) {
	completed := make([]awstypes.CompletedPart, len(parts))
	for i, pd := range parts {
		completed[i] = awstypes.CompletedPart{
			ETag:       aws.String(pd.ETag),
			PartNumber: aws.Int32(pd.Index),
		}
	}

	output, err := e.store.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		e.abort(ctx, bucket, key, uploadID)
		return nil, uperrors.NewError("completeMultipartUpload", err).WithBucket(bucket).WithKey(key)
	}

	return &uptypes.TransferResult{
		Key:      key,
		Size:     size,
		ETag:     aws.ToString(output.ETag),
		Parts:    parts,
		Duration: time.Since(start),
	}, nil
}

// createMultipartUpload initiates a multipart upload.
func (e *Engine) createMultipartUpload(
	ctx context.Context,
	bucket, key string,
	cfg *uptypes.TransferConfig,
) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(cfg.ContentType),
	}
	if len(cfg.Metadata) > 0 {
		input.Metadata = cfg.Metadata
	}

	output, err := e.store.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", uperrors.NewError("createMultipartUpload", err).WithBucket(bucket).WithKey(key)
	}
	return aws.ToString(output.UploadId), nil
}

// abort removes already-committed remote parts after a failed attempt.
// It runs detached from the attempt's cancellation so cleanup still happens
// when the attempt context is already dead.
func (e *Engine) abort(ctx context.Context, bucket, key, uploadID string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	// Ignore errors during cleanup
	_, _ = e.store.AbortMultipartUpload(cleanupCtx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}

// requestContext applies the per-request timeout, if configured.
func (e *Engine) requestContext(ctx context.Context, cfg *uptypes.TransferConfig) (context.Context, context.CancelFunc) {
	if cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// report invokes the progress callback with a cumulative snapshot.
func (e *Engine) report(cfg *uptypes.TransferConfig, key string, transferred, total int64) {
	if cfg.Progress == nil {
		return
	}
	pct := 0
	if total > 0 {
		pct = int(100 * transferred / total)
	}
	cfg.Progress(uptypes.ProgressEvent{
		BytesTransferred: transferred,
		TotalBytes:       total,
		Percentage:       pct,
		SourceName:       cfg.SourceName,
		StorageKey:       key,
	})
}

// planParts produces contiguous, non-overlapping fixed-size ranges whose
// union is [0, size). The final part holds the remainder; the configured
// part size is already clamped to the store floor, so no mid-sequence part
// can fall below it.
func planParts(size, partSize int64) []uptypes.PartDescriptor {
	n := int((size + partSize - 1) / partSize)
	parts := make([]uptypes.PartDescriptor, 0, n)
	var index int32 = 1
	for offset := int64(0); offset < size; offset += partSize {
		end := offset + partSize
		if end > size {
			end = size
		}
		parts = append(parts, uptypes.PartDescriptor{
			Index: index,
			Start: offset,
			End:   end,
		})
		index++
	}
	return parts
}
