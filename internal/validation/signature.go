package validation

import (
	"crypto/subtle"
	"strings"

	uperrors "github.com/quayside/upstream/errors"
)

// signatures maps a declared MIME type to its known fixed-length magic-number
// prefixes. A type may carry several candidate prefixes (GIF87a vs GIF89a).
// Types absent from this map and present in noSignature skip content
// verification because no reliable signature exists for them.
var signatures = map[string][][]byte{
	"image/png":        {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"image/jpeg":       {{0xFF, 0xD8, 0xFF}},
	"image/gif":        {[]byte("GIF87a"), []byte("GIF89a")},
	"image/bmp":        {[]byte("BM")},
	"image/tiff":       {{0x49, 0x49, 0x2A, 0x00}, {0x4D, 0x4D, 0x00, 0x2A}},
	"application/pdf":  {[]byte("%PDF-")},
	"application/zip":  {{0x50, 0x4B, 0x03, 0x04}},
	"application/gzip": {{0x1F, 0x8B}},

	// OOXML documents are zip containers and share its signature.
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {{0x50, 0x4B, 0x03, 0x04}},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {{0x50, 0x4B, 0x03, 0x04}},
}

// noSignature lists verifiable-by-convention types with no reliable magic
// number. Content verification is skipped for these.
var noSignature = map[string]struct{}{
	"text/plain":       {},
	"text/csv":         {},
	"application/json": {},
	"application/xml":  {},
	"text/xml":         {},
}

// normalizeType strips MIME parameters and lowercases the media type.
func normalizeType(declared string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
}

// SignatureLength returns the number of header bytes needed to verify the
// declared type, or zero when the type carries no signature.
func SignatureLength(declared string) int {
	max := 0
	for _, sig := range signatures[normalizeType(declared)] {
		if len(sig) > max {
			max = len(sig)
		}
	}
	return max
}

// HasSignature reports whether the declared type has a magic-number entry.
func HasSignature(declared string) bool {
	_, ok := signatures[normalizeType(declared)]
	return ok
}

// ValidateHeader verifies the payload's leading bytes against the declared
// MIME type's magic number. Types without a signature are accepted without
// inspection. Prefix comparison is constant-time so the check cannot leak
// which signatures are accepted through timing.
func ValidateHeader(header []byte, declared string) error {
	base := normalizeType(declared)
	sigs, ok := signatures[base]
	if !ok {
		// No reliable signature; nothing to verify.
		return nil
	}

	sufficient := false
	matched := 0
	for _, sig := range sigs {
		if len(header) < len(sig) {
			continue
		}
		sufficient = true
		// Every candidate is compared; no early exit on match.
		matched |= subtle.ConstantTimeCompare(header[:len(sig)], sig)
	}

	if !sufficient {
		return uperrors.NewValidationError("validateHeader", uperrors.ErrInsufficientContent).
			WithMessage("insufficient content to verify " + base + " signature")
	}
	if matched != 1 {
		return uperrors.NewValidationError("validateHeader", uperrors.ErrContentMismatch).
			WithMessage("content signature does not match declared type " + base)
	}
	return nil
}
