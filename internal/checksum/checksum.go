// Package checksum fingerprints corpus content.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded SHA-256 digest of data. It is the ETag
// clients send back in If-Match.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint is a fast non-cryptographic hash used to skip reloading
// content that has not changed.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}
