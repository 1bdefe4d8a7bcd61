package entities

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestLength is the hex length of a SHA-256 digest
const DigestLength = 64

// Digest is the lowercase hex SHA-256 of a file's contents.
// The remote service uses it as the resource identifier.
type Digest string

// ParseDigest validates s and normalizes it to lowercase
func ParseDigest(s string) (Digest, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != DigestLength {
		return "", fmt.Errorf("invalid digest length %d, want %d", len(s), DigestLength)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("invalid digest: %w", err)
	}
	return Digest(s), nil
}

func (d Digest) String() string {
	return string(d)
}
