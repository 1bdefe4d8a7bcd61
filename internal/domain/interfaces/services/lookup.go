// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/vtscan/internal/domain/entities"
)

// LookupService resolves a digest to a finished scan report
type LookupService interface {
	// ResolveReport queries the service and keeps polling while the resource
	// is queued. It returns the final report and the number of queries made.
	ResolveReport(ctx context.Context, digest entities.Digest, policy entities.PollPolicy) (*entities.ScanReport, int, error)

	// Submit uploads a file and rejects receipts with a zero response code
	Submit(ctx context.Context, file *entities.FileReference) (*entities.SubmissionReceipt, error)
}
