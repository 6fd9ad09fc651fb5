// Package checksum derives content hashes used as HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong, quoted entity tag for the JSON encoding of v.
// Equal values always produce the same tag.
func ETag(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("etag: %w", err)
	}
	return `"` + Sum(data)[:32] + `"`, nil
}
