// Upload orchestration: validation, key generation, transfer, and result
// assembly for a single payload.
package upstream

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	uperrors "github.com/quayside/upstream/errors"
	"github.com/quayside/upstream/internal/keygen"
	"github.com/quayside/upstream/internal/validation"
	"github.com/quayside/upstream/retry"
	"github.com/quayside/upstream/uptypes"
)

// sniffLimit is how many leading bytes are retained from a streamed payload
// for content type detection. Matches the mimetype package's default read
// limit.
const sniffLimit = 3072

// Upload validates the payload, generates (or accepts) a storage key, and
// transfers the payload to the configured bucket. It performs exactly one
// attempt; wrap it in UploadWithRetry or the retry package to opt into
// retries.
//
// Validation runs before any store traffic: declared type against the
// allow-list, source name and extension checks, then magic-number
// verification of the leading content bytes. Streamed payloads are verified
// incrementally while they transfer; a violation mid-stream cancels
// in-flight parts and aborts the multipart upload.
//
// On any failure a streamed body that implements io.Closer is closed, so a
// request is consumed by the call that received it either way.
//
// Returns:
//   - *uptypes.UploadResult: storage key, public locator, digest, and timing
//   - error: a classified *errors.Error describing the failure
func (c *Client) Upload(
	ctx context.Context,
	req *uptypes.UploadRequest,
	opts ...uptypes.UploadOption,
) (*uptypes.UploadResult, error) {
	start := time.Now()

	optCfg := c.applyUploadOptions(opts)

	logger := c.logger.With(
		"correlation_id", optCfg.CorrelationID,
		"source_name", sourceNameOf(req),
	)

	result, err := c.upload(ctx, req, optCfg, start)
	if err != nil {
		c.destroyBody(req)
		var classified *uperrors.Error
		kind := uperrors.KindUnclassified
		stage := uperrors.StageUnknown
		if errors.As(err, &classified) {
			kind = classified.Kind
			stage = classified.Stage
		}
		logger.ErrorContext(ctx, "upload failed",
			"kind", string(kind),
			"stage", string(stage),
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}

	logger.InfoContext(ctx, "upload completed",
		"storage_key", result.StorageKey,
		"size", result.Size,
		"detected_type", result.DetectedType,
		"duration", result.Duration,
	)
	return result, nil
}

// UploadWithRetry wraps Upload in the client's retry policy. The storage key
// is resolved once up front so every attempt targets the same key and the
// final object location is stable across retries.
//
// Streamed payloads are attempted once: the body cannot be rewound after a
// failed attempt, so a retry would transfer garbage.
func (c *Client) UploadWithRetry(
	ctx context.Context,
	req *uptypes.UploadRequest,
	opts ...uptypes.UploadOption,
) (*uptypes.UploadResult, error) {
	// Malformed and streamed requests take the single-attempt path: the
	// former are rejected without store traffic, the latter cannot be
	// rewound after a failed attempt.
	if req == nil || !req.Buffered() || req.Body != nil {
		return c.Upload(ctx, req, opts...)
	}

	optCfg := c.applyUploadOptions(opts)
	if optCfg.StorageKey == "" {
		prefix := optCfg.KeyPrefix
		if prefix == "" {
			prefix = c.cfg.KeyPrefix
		}
		opts = append(opts, WithStorageKey(keygen.Generate(req.SourceName, prefix)))
	}
	opts = append(opts, WithCorrelationID(optCfg.CorrelationID))

	policy := retry.Policy{
		MaxAttempts: c.cfg.RetryMaxAttempts,
		BaseDelay:   c.cfg.RetryBaseDelay,
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (*uptypes.UploadResult, error) {
		return c.Upload(ctx, req, opts...)
	})
}

// upload runs the pipeline stages for one attempt.
func (c *Client) upload(
	ctx context.Context,
	req *uptypes.UploadRequest,
	optCfg *uptypes.UploadOptionConfig,
	start time.Time,
) (*uptypes.UploadResult, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "request validated",
		"correlation_id", optCfg.CorrelationID,
		"source_name", req.SourceName,
		"declared_type", req.ContentType,
		"size", req.Size,
	)

	key := optCfg.StorageKey
	if key != "" {
		if err := validation.ValidateStorageKey(key); err != nil {
			return nil, err
		}
	} else {
		prefix := optCfg.KeyPrefix
		if prefix == "" {
			prefix = c.cfg.KeyPrefix
		}
		key = keygen.Generate(req.SourceName, prefix)
	}
	c.logger.DebugContext(ctx, "storage key resolved",
		"correlation_id", optCfg.CorrelationID,
		"storage_key", key,
	)

	transferCfg := &uptypes.TransferConfig{
		ContentType:    req.ContentType,
		Metadata:       mergeMetadata(req.Metadata, optCfg.Metadata),
		PartSize:       firstPositive64(optCfg.PartSize, c.cfg.PartSize),
		Concurrency:    firstPositive(optCfg.Concurrency, c.cfg.Concurrency),
		SourceName:     req.SourceName,
		Progress:       optCfg.Progress,
		RequestTimeout: c.cfg.RequestTimeout,
	}

	var payload io.Reader
	var digest string
	var detected string
	var sniffer *validatingReader

	if req.Buffered() {
		if err := validation.ValidateHeader(req.Data, req.ContentType); err != nil {
			return nil, err
		}
		sum := sha256.Sum256(req.Data)
		digest = hex.EncodeToString(sum[:])
		detected = mimetype.Detect(req.Data).String()
		payload = bytes.NewReader(req.Data)
	} else {
		sniffer = newValidatingReader(
			req.Body,
			validation.NewStreamValidator(req.ContentType, c.cfg.MaxFileSize),
		)
		payload = sniffer
	}

	transferred, err := c.engine.Send(ctx, c.cfg.Bucket, key, payload, req.Size, transferCfg)
	if err != nil {
		// A violation observed mid-stream outranks the transfer error it
		// caused; surface the validator's verdict.
		if sniffer != nil && sniffer.violation != nil {
			return nil, sniffer.violation
		}
		return nil, err
	}

	if sniffer != nil {
		detected = mimetype.Detect(sniffer.sniffed()).String()
	}

	return &uptypes.UploadResult{
		StorageKey:    key,
		PublicLocator: c.publicLocator(key),
		Size:          transferred.Size,
		SHA256:        digest,
		DetectedType:  detected,
		ETag:          transferred.ETag,
		CompletedAt:   time.Now(),
		Duration:      time.Since(start),
	}, nil
}

// validateRequest rejects malformed and policy-violating requests before any
// byte inspection or store traffic.
func (c *Client) validateRequest(req *uptypes.UploadRequest) error {
	if req == nil {
		return uperrors.NewValidationError("upload", uperrors.ErrInvalidInput).
			WithMessage("request cannot be nil")
	}
	if req.Buffered() == (req.Body != nil) {
		return uperrors.NewValidationError("upload", uperrors.ErrInvalidInput).
			WithMessage("exactly one of Data and Body must be set")
	}
	if req.Buffered() && req.Size != int64(len(req.Data)) {
		return uperrors.NewValidationError("upload", uperrors.ErrInvalidInput).
			WithMessage("declared size does not match payload length")
	}
	if !req.Buffered() && req.Size <= 0 {
		return uperrors.NewValidationError("upload", uperrors.ErrInvalidInput).
			WithMessage("streamed payloads must declare a positive size")
	}
	if c.cfg.MaxFileSize > 0 && req.Size > c.cfg.MaxFileSize {
		return uperrors.NewValidationError("upload", uperrors.ErrSizeExceeded).
			WithMessage("declared size exceeds the configured maximum")
	}
	if err := validation.ValidateSourceName(req.SourceName); err != nil {
		return err
	}
	if err := validation.ValidateExtension(req.SourceName, c.cfg.DeniedExtensions); err != nil {
		return err
	}
	if err := validation.ValidateDeclaredType(req.ContentType, c.cfg.AllowedTypes); err != nil {
		return err
	}
	// The transfer engine reads streamed payloads through a limit reader
	// sized to the declared length, so the stream validator only observes
	// that many bytes. A stream too short to carry the type's signature can
	// never be verified; reject it before any store traffic.
	if !req.Buffered() && req.Size < int64(validation.SignatureLength(req.ContentType)) {
		return uperrors.NewValidationError("upload", uperrors.ErrInsufficientContent).
			WithMessage("declared size is smaller than the content signature")
	}
	return validation.ValidateMetadata(mergeMetadata(req.Metadata, nil))
}

// destroyBody closes a streamed body after a failed attempt so the caller's
// resources are released whether or not the stream was fully drained.
func (c *Client) destroyBody(req *uptypes.UploadRequest) {
	if req == nil || req.Body == nil {
		return
	}
	if closer, ok := req.Body.(io.Closer); ok {
		_ = closer.Close()
	}
}

func (c *Client) applyUploadOptions(opts []uptypes.UploadOption) *uptypes.UploadOptionConfig {
	optCfg := &uptypes.UploadOptionConfig{}
	for _, opt := range opts {
		opt(optCfg)
	}
	if optCfg.CorrelationID == "" {
		optCfg.CorrelationID = uuid.NewString()
	}
	return optCfg
}

// validatingReader verifies a streamed payload as the transfer engine pulls
// it, and retains the leading bytes for content type sniffing. The first
// observed violation is surfaced as a read error, which cancels the transfer
// and triggers remote cleanup.
type validatingReader struct {
	src       io.Reader
	validator *validation.StreamValidator
	sniff     []byte
	violation error
	finalized bool
}

func newValidatingReader(src io.Reader, validator *validation.StreamValidator) *validatingReader {
	return &validatingReader{
		src:       src,
		validator: validator,
		sniff:     make([]byte, 0, sniffLimit),
	}
}

func (r *validatingReader) Read(p []byte) (int, error) {
	if r.violation != nil {
		return 0, r.violation
	}

	n, err := r.src.Read(p)
	if n > 0 {
		if room := sniffLimit - len(r.sniff); room > 0 {
			take := n
			if take > room {
				take = room
			}
			r.sniff = append(r.sniff, p[:take]...)
		}
		res := r.validator.Observe(p[:n])
		if res.ShouldAbort {
			r.violation = res.Err
			return n, r.violation
		}
	}
	if err == io.EOF && !r.finalized {
		r.finalized = true
		if final := r.validator.Finalize(); !final.Accepted {
			r.violation = final.Err
			return n, r.violation
		}
	}
	return n, err
}

// sniffed returns the retained leading bytes.
func (r *validatingReader) sniffed() []byte {
	return r.sniff
}

func sourceNameOf(req *uptypes.UploadRequest) string {
	if req == nil {
		return ""
	}
	return req.SourceName
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositive64(values ...int64) int64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
