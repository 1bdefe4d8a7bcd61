package gpg

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// signedFixture writes a data file, its armored detached signature and the
// signer's armored public key into a temp dir
type signedFixture struct {
	dataPath string
	sigPath  string
	keyPath  string
}

func newSignedFixture(t *testing.T, content []byte) signedFixture {
	t.Helper()
	dir := t.TempDir()

	entity, err := openpgp.NewEntity("Test Signer", "", "signer@example.com", nil)
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("ArmoredDetachSign() error = %v", err)
	}

	var key bytes.Buffer
	aw, err := armor.Encode(&key, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode() error = %v", err)
	}
	if err := entity.Serialize(aw); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("armor close error = %v", err)
	}

	fx := signedFixture{
		dataPath: filepath.Join(dir, "sample.bin"),
		sigPath:  filepath.Join(dir, "sample.bin.asc"),
		keyPath:  filepath.Join(dir, "signer.asc"),
	}
	for path, data := range map[string][]byte{fx.dataPath: content, fx.sigPath: sig.Bytes(), fx.keyPath: key.Bytes()} {
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return fx
}

func TestVerifier_VerifySignatureFromFile_Valid(t *testing.T) {
	fx := newSignedFixture(t, []byte("signed payload"))

	v := NewVerifier()
	if err := v.ImportKeyFromFile(fx.keyPath); err != nil {
		t.Fatalf("ImportKeyFromFile() error = %v", err)
	}
	if v.GetKeyringSize() != 1 {
		t.Errorf("keyring size = %d, want 1", v.GetKeyringSize())
	}

	signer, err := v.VerifySignatureFromFile(fx.dataPath, fx.sigPath)
	if err != nil {
		t.Fatalf("VerifySignatureFromFile() error = %v", err)
	}
	if !strings.Contains(signer, "signer@example.com") {
		t.Errorf("signer = %q, want it to contain signer@example.com", signer)
	}
}

func TestVerifier_VerifySignatureFromFile_TamperedData(t *testing.T) {
	fx := newSignedFixture(t, []byte("signed payload"))
	if err := os.WriteFile(fx.dataPath, []byte("signed payloaD"), 0600); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier()
	if err := v.ImportKeyFromFile(fx.keyPath); err != nil {
		t.Fatalf("ImportKeyFromFile() error = %v", err)
	}

	_, err := v.VerifySignatureFromFile(fx.dataPath, fx.sigPath)
	if err == nil {
		t.Fatal("Expected verification error for tampered data, got nil")
	}
	if !strings.Contains(err.Error(), "signature verification failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifier_VerifySignatureFromFile_NoKeys(t *testing.T) {
	v := NewVerifier()

	_, err := v.VerifySignatureFromFile("/tmp/file", "/tmp/file.asc")
	if err == nil || !strings.Contains(err.Error(), "no GPG keys imported") {
		t.Errorf("Expected 'no GPG keys imported' error, got: %v", err)
	}
}

func TestVerifier_ImportKeyFromFile_NonexistentFile(t *testing.T) {
	v := NewVerifier()

	err := v.ImportKeyFromFile("/nonexistent/key.asc")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to open key file") {
		t.Errorf("Expected 'failed to open key file' error, got: %v", err)
	}
}

func TestVerifier_ImportKeyFromFile_InvalidKey(t *testing.T) {
	v := NewVerifier()
	keyPath := filepath.Join(t.TempDir(), "bogus.asc")
	if err := os.WriteFile(keyPath, []byte("not a gpg key"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := v.ImportKeyFromFile(keyPath); err == nil {
		t.Fatal("Expected error for invalid key file, got nil")
	}
	if v.GetKeyringSize() != 0 {
		t.Errorf("keyring size = %d, want 0", v.GetKeyringSize())
	}
}
