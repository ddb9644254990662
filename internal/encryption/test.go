package encryption

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"pxs/internal/px"
)

// testHeader marks TestEncryptor output so ciphertext never equals plaintext.
var testHeader = []byte("PXSENC\x00\x01")

// TestEncryptor is a deterministic, crypto-free encryptor for tests.
// Encrypt prepends testHeader; decryption strips it. Once Setup has been
// called, Unlock only succeeds with the same passphrase.
type TestEncryptor struct {
	mu         sync.Mutex
	passphrase string
	configured bool
}

var _ px.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.configured {
		return ErrKeysExist
	}
	e.passphrase = passphrase
	e.configured = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (px.DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.configured && passphrase != e.passphrase {
		return nil, ErrBadPassphrase
	}
	return &TestDecryptionContext{}, nil
}

// IsConfigured is always true; the test encryptor needs no key files.
func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ px.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
