// Package sanitize normalizes identifiers and validates paths taken from
// requests and workflow inputs.
//
// Collection names in vector stores (Qdrant, chromem) must match ^[a-z0-9_]{1,64}$.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxIdentifierLength is the longest identifier a vector store accepts.
	MaxIdentifierLength = 64

	// HashSuffixLength is the length of "_<8 hex chars>" added on truncation.
	HashSuffixLength = 9

	// DefaultIdentifier is used when sanitization produces an empty result.
	DefaultIdentifier = "default"
)

// Identifier lowercases s, replaces anything outside [a-z0-9_] with an
// underscore, collapses and trims underscores, and truncates with a hash
// suffix past MaxIdentifierLength.
//
//	"BAAI/bge-small-en-v1.5" -> "baai_bge_small_en_v1_5"
//	"" or "!!!"              -> "default"
func Identifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	sanitized := b.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		return DefaultIdentifier
	}
	if len(sanitized) > MaxIdentifierLength {
		sanitized = truncateWithHash(sanitized)
	}
	return sanitized
}

// truncateWithHash keeps a prefix of s and appends a hash of the whole
// string so distinct long inputs stay distinct.
func truncateWithHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(hash[:])[:8]
	truncated := strings.TrimRight(s[:MaxIdentifierLength-HashSuffixLength], "_")
	return truncated + suffix
}

// CollectionName joins a base collection name and a qualifier, such as an
// embedding model, into one valid collection name. An empty qualifier
// yields the sanitized base.
//
//	CollectionName("meetextract_segments", "BAAI/bge-small-en-v1.5")
//	  -> "meetextract_segments_baai_bge_small_en_v1_5"
func CollectionName(base, qualifier string) string {
	name := Identifier(base)
	if qualifier != "" {
		name += "_" + Identifier(qualifier)
	}
	if len(name) > MaxIdentifierLength {
		name = truncateWithHash(name)
	}
	return name
}
