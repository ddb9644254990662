package testutil

import (
	"pxs/internal/encryption"
	"pxs/internal/px"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() px.Encryptor {
	return encryption.NewTestEncryptor()
}
