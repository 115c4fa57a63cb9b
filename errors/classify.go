package errors

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/aws/smithy-go"
)

// Store error codes that are rejections of the request itself. Retrying an
// identical request cannot succeed, so these are never retryable.
var rejectionCodes = map[string]struct{}{
	"AccessDenied":                 {},
	"AccountProblem":               {},
	"AllAccessDisabled":            {},
	"InvalidAccessKeyId":           {},
	"SignatureDoesNotMatch":        {},
	"NoSuchBucket":                 {},
	"InvalidBucketName":            {},
	"InvalidArgument":              {},
	"InvalidPart":                  {},
	"InvalidPartOrder":             {},
	"EntityTooLarge":               {},
	"EntityTooSmall":               {},
	"MalformedXML":                 {},
	"MethodNotAllowed":             {},
	"NoSuchUpload":                 {},
	"AuthorizationHeaderMalformed": {},
}

// Store error codes that indicate transient server-side or network trouble.
var transientCodes = map[string]struct{}{
	"RequestTimeout":       {},
	"SlowDown":             {},
	"ServiceUnavailable":   {},
	"InternalError":        {},
	"ThrottlingException":  {},
	"RequestTimeTooSkewed": {},
	"BadDigest":            {},
}

// Classify maps an arbitrary error to the failure taxonomy. Validation
// sentinels classify as validation; SDK API errors classify by code; network
// and deadline errors classify as transport; everything else is unclassified.
func Classify(err error) Kind {
	if err == nil {
		return KindUnclassified
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrTypeNotAllowed),
		errors.Is(err, ErrContentMismatch),
		errors.Is(err, ErrInsufficientContent),
		errors.Is(err, ErrSizeExceeded),
		errors.Is(err, ErrInvalidFileName),
		errors.Is(err, ErrDangerousExtension),
		errors.Is(err, ErrInvalidStorageKey):
		return KindValidation
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrBucketNotFound):
		return KindStoreRejection
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrConnection):
		return KindTransport
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransport
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := rejectionCodes[code]; ok {
			return KindStoreRejection
		}
		if _, ok := transientCodes[code]; ok {
			return KindTransport
		}
		return KindUnclassified
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}

	// Best-effort recognition of transport failures the SDK surfaces as
	// opaque wrapped errors.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "EOF"):
		return KindTransport
	}

	return KindUnclassified
}
