// Package keygen derives collision-resistant storage keys from a source file
// name, the current time, and randomness.
//
// Keys follow the format {prefix}/{unixMillis}-{randomHex16}-{sanitizedBase}{ext}.
// Uniqueness is probabilistic: 8 random bytes plus millisecond time ordering.
// No collision detection is performed.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPrefix is used when the caller does not supply a key prefix.
const DefaultPrefix = "uploads"

// Generate derives a storage key for the given source name under the given
// prefix. The base name is sanitized; the extension is preserved verbatim.
func Generate(originalName, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(filepath.Base(originalName), ext)

	var random [8]byte
	// rand.Read never fails on supported platforms; it panics internally
	// if the kernel entropy source is unusable.
	_, _ = rand.Read(random[:])

	return fmt.Sprintf("%s/%d-%s-%s%s",
		prefix,
		time.Now().UnixMilli(),
		hex.EncodeToString(random[:]),
		sanitizeBase(base),
		ext,
	)
}

// sanitizeBase replaces any character outside [A-Za-z0-9.-] with an
// underscore.
func sanitizeBase(base string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z',
			r >= 'a' && r <= 'z',
			r >= '0' && r <= '9',
			r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, base)
}
