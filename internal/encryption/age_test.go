package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pxs/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "pxs.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "pxs.key"),
	}
	return NewAgeEncryptor(cfg)
}

func TestAgeEncryptor_IsConfigured(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
	if err := e.Setup("attach-secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}
}

func TestAgeEncryptor_SetupKeyFiles(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup("attach-secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	pub, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		t.Fatalf("reading public key: %v", err)
	}
	if !bytes.HasPrefix(pub, []byte("age1")) {
		t.Errorf("public key = %q, want age1 recipient", pub)
	}

	priv, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		t.Fatalf("reading private key: %v", err)
	}
	if bytes.Contains(priv, []byte("AGE-SECRET-KEY")) {
		t.Error("private key is stored in plaintext")
	}

	info, err := os.Stat(e.privateKeyPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("private key permissions = %o, want 600", perm)
	}
}

func TestAgeEncryptor_SetupRefusesOverwrite(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup("first"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	err := e.Setup("second")
	if !errors.Is(err, ErrKeysExist) {
		t.Fatalf("second Setup() error = %v, want ErrKeysExist", err)
	}
	if _, err := e.Unlock("first"); err != nil {
		t.Errorf("Unlock() with original passphrase error = %v", err)
	}
}

func TestAgeEncryptor_SetupEmptyPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup(""); err == nil {
		t.Error("Setup(\"\") should return error")
	}
	if e.IsConfigured() {
		t.Error("IsConfigured() = true after failed Setup")
	}
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "text attachment", input: []byte("meeting notes")},
		{name: "empty", input: []byte{}},
		{name: "png header", input: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}},
		{name: "large", input: bytes.Repeat([]byte("prompt "), 20000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			passphrase := "attach-secret"
			e := newTestAgeEncryptor(t)
			if err := e.Setup(passphrase); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(encrypted.Bytes(), tt.input) {
				t.Error("ciphertext contains the plaintext")
			}

			ctx, err := e.Unlock(passphrase)
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var decrypted bytes.Buffer
			if err := ctx.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_EncryptWithFreshInstance(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup("attach-secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	// A second instance must load the recipient from disk.
	fresh := NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  e.publicKeyPath,
		PrivateKeyPath: e.privateKeyPath,
	})
	var encrypted bytes.Buffer
	if err := fresh.Encrypt(bytes.NewReader([]byte("hello")), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	ctx, err := e.Unlock("attach-secret")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var out bytes.Buffer
	if err := ctx.Decrypt(&encrypted, &out); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if out.String() != "hello" {
		t.Errorf("Decrypt() = %q, want %q", out.String(), "hello")
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup("correct-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	_, err := e.Unlock("wrong-passphrase")
	if !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("Unlock() error = %v, want ErrBadPassphrase", err)
	}
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	var buf bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &buf); err == nil {
		t.Error("Encrypt() before Setup should return error")
	}
	if _, err := e.Unlock("passphrase"); err == nil {
		t.Error("Unlock() before Setup should return error")
	}
}
