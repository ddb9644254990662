package testutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ContentID returns the attachment id expected for data: the first 16 hex
// characters of its SHA-256 checksum.
func ContentID(data []byte) string {
	return SHA256Hex(data)[:16]
}
