// Package validation provides centralized input validation for the upload
// pipeline: source name and storage key checks, declared-type allow-listing,
// and magic-number verification of content bytes.
//
// All user inputs are validated before any store call is made.
package validation

import (
	"path/filepath"
	"strings"
	"unicode"

	uperrors "github.com/quayside/upstream/errors"
)

// DefaultDeniedExtensions is the extension denylist applied when the caller
// does not configure one. Entries are lowercase and include the dot.
var DefaultDeniedExtensions = []string{
	".exe", ".dll", ".com", ".scr", ".pif", ".msi",
	".bat", ".cmd", ".ps1", ".sh",
	".js", ".vbs", ".wsf", ".jar", ".php",
}

// ValidateSourceName validates a client-declared file name. Empty names,
// path traversal sequences, path separators, and control characters are all
// rejected.
func ValidateSourceName(name string) error {
	if name == "" {
		return uperrors.NewValidationError("validateSourceName", uperrors.ErrInvalidFileName).
			WithMessage("source name cannot be empty")
	}
	if strings.Contains(name, "..") {
		return uperrors.NewValidationError("validateSourceName", uperrors.ErrInvalidFileName).
			WithMessage("source name cannot contain path traversal sequences")
	}
	if strings.ContainsAny(name, `/\`) {
		return uperrors.NewValidationError("validateSourceName", uperrors.ErrInvalidFileName).
			WithMessage("source name cannot contain path separators")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return uperrors.NewValidationError("validateSourceName", uperrors.ErrInvalidFileName).
				WithMessage("source name cannot contain control characters")
		}
	}
	return nil
}

// ValidateExtension rejects source names carrying a denylisted extension.
// The check runs regardless of the declared MIME type. A nil denylist falls
// back to DefaultDeniedExtensions.
func ValidateExtension(name string, denied []string) error {
	if denied == nil {
		denied = DefaultDeniedExtensions
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return nil
	}
	for _, d := range denied {
		if ext == d {
			return uperrors.NewValidationError("validateExtension", uperrors.ErrDangerousExtension).
				WithMessage("extension " + ext + " is not allowed")
		}
	}
	return nil
}

// ValidateDeclaredType checks the declared MIME type against the allow-list.
// This is the cheap rejection path: it runs before any byte inspection.
func ValidateDeclaredType(declared string, allowed []string) error {
	if declared == "" {
		return uperrors.NewValidationError("validateDeclaredType", uperrors.ErrTypeNotAllowed).
			WithMessage("declared content type cannot be empty")
	}
	// Parameters such as charset do not participate in the allow-list check.
	base := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	for _, a := range allowed {
		if base == strings.ToLower(a) {
			return nil
		}
	}
	return uperrors.NewValidationError("validateDeclaredType", uperrors.ErrTypeNotAllowed).
		WithMessage("declared content type " + base + " is not in the allow-list")
}

// ValidateStorageKey validates a caller-supplied storage key. This mirrors
// object key rules common to S3-compatible stores: non-empty, no traversal,
// bounded length, no control characters.
func ValidateStorageKey(key string) error {
	if key == "" {
		return uperrors.NewValidationError("validateStorageKey", uperrors.ErrInvalidStorageKey).
			WithMessage("storage key cannot be empty")
	}
	if hasPathTraversal(key) {
		return uperrors.NewValidationError("validateStorageKey", uperrors.ErrInvalidStorageKey).
			WithMessage("storage key cannot contain path traversal sequences")
	}
	if len(key) > 1024 {
		return uperrors.NewValidationError("validateStorageKey", uperrors.ErrInvalidStorageKey).
			WithMessage("storage key cannot exceed 1024 characters")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return uperrors.NewValidationError("validateStorageKey", uperrors.ErrInvalidStorageKey).
				WithMessage("storage key cannot contain control characters")
		}
	}
	return nil
}

// ValidateBucketName validates that a bucket name is DNS-compliant.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return uperrors.NewValidationError("validateBucketName", uperrors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}
	if len(bucket) < 3 || len(bucket) > 63 {
		return uperrors.NewValidationError("validateBucketName", uperrors.ErrInvalidInput).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}
	for _, r := range bucket {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || r == '.' || r == '-') {
			return uperrors.NewValidationError("validateBucketName", uperrors.ErrInvalidInput).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return uperrors.NewValidationError("validateBucketName", uperrors.ErrInvalidInput).
			WithMessage("bucket name cannot start or end with a hyphen or dot")
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, "--") {
		return uperrors.NewValidationError("validateBucketName", uperrors.ErrInvalidInput).
			WithMessage("bucket name cannot contain adjacent periods or hyphens")
	}
	return nil
}

// ValidateMetadata validates caller-supplied metadata keys and values.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if key == "" {
			return uperrors.NewValidationError("validateMetadata", uperrors.ErrInvalidInput).
				WithMessage("metadata key cannot be empty")
		}
		if len(key) > 128 {
			return uperrors.NewValidationError("validateMetadata", uperrors.ErrInvalidInput).
				WithMessage("metadata key cannot exceed 128 characters")
		}
		for _, r := range key {
			if r < 33 || r > 126 {
				return uperrors.NewValidationError("validateMetadata", uperrors.ErrInvalidInput).
					WithMessage("metadata key can only contain printable ASCII characters")
			}
		}
		if len(value) > 2048 {
			return uperrors.NewValidationError("validateMetadata", uperrors.ErrInvalidInput).
				WithMessage("metadata value cannot exceed 2048 characters")
		}
	}
	return nil
}

// hasPathTraversal checks for path traversal attempts in storage keys.
func hasPathTraversal(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}
	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return true
	}
	// Windows-style absolute paths
	if len(cleaned) >= 3 && cleaned[1] == ':' && (cleaned[2] == '\\' || cleaned[2] == '/') {
		return true
	}
	return false
}
