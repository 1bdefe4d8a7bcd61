// Package gateways defines contracts for infrastructure the domain depends on.
package gateways

import (
	"context"

	"github.com/ochairo/vtscan/internal/domain/entities"
)

// ThreatIntelGateway talks to the remote threat-intelligence service
type ThreatIntelGateway interface {
	// GetReport looks up the latest report for a digest. It performs a single
	// request and never retries.
	GetReport(ctx context.Context, digest entities.Digest) (*entities.ScanReport, error)

	// SubmitFile uploads a file for fresh analysis
	SubmitFile(ctx context.Context, file *entities.FileReference) (*entities.SubmissionReceipt, error)
}

// DigestCalculator computes content digests of local files
type DigestCalculator interface {
	CalculateDigest(ctx context.Context, filePath string) (entities.Digest, error)

	// VerifyDigest re-hashes the file and fails with entities.ErrDigestMismatch
	// when it does not match expected
	VerifyDigest(ctx context.Context, filePath, expected string) error
}

// SignatureVerifier checks a detached signature of a local file and returns
// the identity of the signer
type SignatureVerifier interface {
	VerifySignatureFromFile(filePath, sigPath string) (string, error)
}
