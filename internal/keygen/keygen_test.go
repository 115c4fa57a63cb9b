package keygen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^([^/]+)/(\d{13,})-([0-9a-f]{16})-(.*)$`)

// TestGenerate_Format verifies the key shape: prefix, millisecond timestamp,
// 16 hex characters of randomness, sanitized base, preserved extension.
func TestGenerate_Format(t *testing.T) {
	key := Generate("report.pdf", "uploads")

	m := keyPattern.FindStringSubmatch(key)
	require.NotNil(t, m, "key %q should match the expected shape", key)
	assert.Equal(t, "uploads", m[1])
	assert.Equal(t, "report.pdf", m[4])
}

// TestGenerate_DefaultPrefix verifies the fallback prefix.
func TestGenerate_DefaultPrefix(t *testing.T) {
	key := Generate("a.txt", "")
	assert.True(t, strings.HasPrefix(key, DefaultPrefix+"/"), "key %q", key)
}

// TestGenerate_CustomPrefix verifies caller-supplied prefixes.
func TestGenerate_CustomPrefix(t *testing.T) {
	key := Generate("a.txt", "avatars")
	assert.True(t, strings.HasPrefix(key, "avatars/"), "key %q", key)
}

// TestGenerate_Sanitization verifies base name cleanup and extension
// preservation.
func TestGenerate_Sanitization(t *testing.T) {
	tests := []struct {
		name       string
		sourceName string
		wantSuffix string
	}{
		{name: "spaces replaced", sourceName: "annual report.pdf", wantSuffix: "-annual_report.pdf"},
		{name: "unicode replaced", sourceName: "résumé.pdf", wantSuffix: ".pdf"},
		{name: "no extension", sourceName: "README", wantSuffix: "-README"},
		{name: "dots and hyphens kept", sourceName: "a.b-c.tar.gz", wantSuffix: "-a.b-c.tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Generate(tt.sourceName, "uploads")
			assert.True(t, strings.HasSuffix(key, tt.wantSuffix), "key %q", key)
			assert.NotContains(t, key, " ")
		})
	}
}

// TestGenerate_Uniqueness verifies no collisions across many keys for the
// same source name generated in the same instant.
func TestGenerate_Uniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		key := Generate("same.png", "uploads")
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %q", key)
		seen[key] = struct{}{}
	}
}
