// Package textproc holds the small text-normalization helpers shared by the
// extractor and storage layer: line-ending/whitespace normalization and
// content hashing.
package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeMarkdown canonicalizes line endings and trailing whitespace so
// two fetches of semantically identical content hash identically.
func NormalizeMarkdown(markdown string) string {
	normalized := strings.ReplaceAll(markdown, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

// HashContent returns the hex SHA-256 of the normalized markdown. Nothing
// in the harvester calls it; stored items are not compared by hash.
func HashContent(markdown string) string {
	normalized := NormalizeMarkdown(markdown)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
