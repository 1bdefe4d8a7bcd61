package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ochairo/vtscan/internal/domain/entities"
)

// digestChunkSize is the read size used when streaming a file through the hash
const digestChunkSize = 64 * 1024

// digestCalculator implements SHA-256 file digests using pure Go
type digestCalculator struct {
	chunkSize int
}

// NewDigestCalculator creates a new digest calculator
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewDigestCalculator() *digestCalculator {
	return &digestCalculator{chunkSize: digestChunkSize}
}

// CalculateDigest streams filePath through SHA-256 in fixed-size chunks, so
// memory use does not depend on the file size
func (c *digestCalculator) CalculateDigest(ctx context.Context, filePath string) (entities.Digest, error) {
	//nolint:gosec // G304: File path is user-provided for digest calculation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, c.chunkSize)
	if _, err := io.CopyBuffer(h, &contextReader{ctx: ctx, r: f}, buf); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return entities.Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// VerifyDigest checks a file's SHA-256 against an expected value
func (c *digestCalculator) VerifyDigest(ctx context.Context, filePath, expected string) error {
	want, err := entities.ParseDigest(expected)
	if err != nil {
		return err
	}

	actual, err := c.CalculateDigest(ctx, filePath)
	if err != nil {
		return err
	}

	if actual != want {
		return fmt.Errorf("%w: expected %s, got %s", entities.ErrDigestMismatch, want, actual)
	}

	return nil
}

// contextReader stops a long read once ctx is done.
// It hides any WriterTo on the file, so CopyBuffer really uses the buffer.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
