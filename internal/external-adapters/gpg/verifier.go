// Package gpg provides GPG signature verification capabilities.
package gpg

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier implements detached signature verification using ProtonMail's go-crypto
// A maintained, modern fork of golang.org/x/crypto/openpgp
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a new GPG verifier
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile imports public keys from an armored or binary key file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for GPG key import
	f, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// Try reading as binary
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to reset file: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return fmt.Errorf("no keys found in file")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifySignatureFromFile verifies a detached signature of filePath and
// returns the signer's identity
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no GPG keys imported, call ImportKeyFromFile first")
	}

	//nolint:gosec // G304: sigPath is user-provided for GPG verification
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	//nolint:gosec // G304: filePath is user-provided for GPG verification
	dataFile, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	// Peek at signature file to determine if it's armored
	peekBuf := make([]byte, len(armoredSignaturePrefix))
	n, _ := io.ReadFull(sigFile, peekBuf)
	isArmored := n == len(peekBuf) && string(peekBuf) == armoredSignaturePrefix

	if _, seekErr := sigFile.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset signature file: %w", seekErr)
	}

	var (
		signer    *openpgp.Entity
		verifyErr error
	)
	if isArmored {
		signer, verifyErr = openpgp.CheckArmoredDetachedSignature(v.keyring, dataFile, sigFile, nil)
	} else {
		signer, verifyErr = openpgp.CheckDetachedSignature(v.keyring, dataFile, sigFile, nil)
	}
	if verifyErr != nil {
		return "", fmt.Errorf("signature verification failed: %w", verifyErr)
	}

	return identityOf(signer), nil
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

// identityOf picks a stable display name for the signing entity
func identityOf(e *openpgp.Entity) string {
	if e == nil {
		return ""
	}
	names := make([]string, 0, len(e.Identities))
	for name := range e.Identities {
		names = append(names, name)
	}
	if len(names) == 0 {
		return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
	}
	sort.Strings(names)
	return names[0]
}
