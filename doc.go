// Package upstream implements a resilient upload pipeline for S3-compatible
// object stores.
//
// The pipeline validates each payload before any store traffic (declared-type
// allow-listing, extension denylisting, magic-number verification), generates
// a collision-resistant storage key, and transfers the payload either as a
// single atomic PUT or as a bounded-concurrency multipart upload with
// monotonic progress reporting. Any transfer failure aborts the multipart
// upload so no partial remote state survives.
//
// Failures carry a stable taxonomy (validation, transport, store rejection,
// unclassified) so callers can decide whether to re-invoke. The orchestrator
// itself never retries; wrap calls in the retry package to opt in.
//
// Basic usage:
//
//	client, err := upstream.New(
//	    upstream.WithBucket("user-content"),
//	    upstream.WithRegion("us-west-2"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Upload(ctx, uptypes.NewBufferRequest("report.pdf", "application/pdf", data))
package upstream
