package extract

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the full SHA-256 hex digest of the text. The full digest
// is what the rewrite engine compares against; filenames use ShortHash.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first length hex characters of the digest, used
// for cache-busting filenames. Truncation weakens collision resistance
// for the filename only; matching always uses the full digest.
func ShortHash(text string, length int) string {
	digest := Hash(text)
	if length <= 0 || length >= len(digest) {
		return digest
	}
	return digest[:length]
}
