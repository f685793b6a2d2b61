package recorder

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxHashSize is the maximum number of bytes hashed from one input.
const MaxHashSize = 1024 * 1024

// HashContent returns the hex SHA-256 of content, truncated to MaxHashSize
// bytes. Empty content hashes to "".
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
