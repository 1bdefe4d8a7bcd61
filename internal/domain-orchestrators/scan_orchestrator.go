// Package orchestrators coordinates domain services into complete use cases.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ochairo/vtscan/internal/domain/entities"
	"github.com/ochairo/vtscan/internal/domain/interfaces"
	"github.com/ochairo/vtscan/internal/domain/interfaces/gateways"
	"github.com/ochairo/vtscan/internal/domain/interfaces/services"
)

// ErrSignatureCheck wraps every failure of the detached signature check
var ErrSignatureCheck = errors.New("signature check failed")

// ScanOrchestrator coordinates the lookup workflow for a single file
type ScanOrchestrator struct {
	lookup     services.LookupService
	digests    gateways.DigestCalculator
	signatures gateways.SignatureVerifier
	progress   interfaces.ProgressIndicator
	logger     interfaces.Logger
}

// NewScanOrchestrator creates a new scan orchestrator. signatures may be nil
// when no signature check will be requested.
func NewScanOrchestrator(
	lookup services.LookupService,
	digests gateways.DigestCalculator,
	signatures gateways.SignatureVerifier,
	progress interfaces.ProgressIndicator,
	logger interfaces.Logger,
) *ScanOrchestrator {
	if progress == nil {
		progress = interfaces.NoOpProgress{}
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ScanOrchestrator{
		lookup:     lookup,
		digests:    digests,
		signatures: signatures,
		progress:   progress,
		logger:     logger,
	}
}

// ScanWorkflowResult contains everything learned about the file
type ScanWorkflowResult struct {
	File             *entities.FileReference
	Digest           entities.Digest
	Signer           string
	Receipt          *entities.SubmissionReceipt
	Report           *entities.ScanReport
	Attempts         int
	WorkflowDuration time.Duration
}

// PerformScanWorkflow runs signature check, digest, optional submission and
// report resolution, in that order. Any failure aborts the workflow.
func (o *ScanOrchestrator) PerformScanWorkflow(ctx context.Context, file *entities.FileReference, cfg entities.RunConfig) (*ScanWorkflowResult, error) {
	startTime := time.Now()
	result := &ScanWorkflowResult{File: file}

	// Step 1: Provenance, before anything leaves the machine
	if cfg.VerifySignature() {
		signer, err := o.checkSignature(file, cfg.SignaturePath)
		if err != nil {
			return nil, err
		}
		result.Signer = signer
		o.logger.Info("Signature verified", interfaces.F("signer", signer))
	}

	// Step 2: Digest
	digest, err := o.digests.CalculateDigest(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("digest computation failed: %w", err)
	}
	result.Digest = digest
	o.logger.Debug("Computed digest", interfaces.F("sha256", digest))

	// Step 3: Fresh analysis
	if cfg.Submit {
		o.logger.Info("Submitting file for analysis", interfaces.F("file", file.Name))
		receipt, err := o.lookup.Submit(ctx, file)
		if err != nil {
			return nil, err
		}
		result.Receipt = receipt
		o.logger.Info(receipt.VerboseMsg)

		// The service echoes the digest of what it received
		if receipt.SHA256 != "" {
			if err := o.digests.VerifyDigest(ctx, file.Path, receipt.SHA256); err != nil {
				return nil, fmt.Errorf("uploaded content check failed: %w", err)
			}
		}

		if err := o.wait(ctx, cfg.SubmitDelay); err != nil {
			return nil, err
		}
	}

	// Step 4: Report, polling while queued
	o.logger.Debug("Requesting report", interfaces.F("resource", digest))
	report, attempts, err := o.lookup.ResolveReport(ctx, digest, cfg.Poll)
	result.Attempts = attempts
	if err != nil {
		return nil, err
	}
	result.Report = report

	result.WorkflowDuration = time.Since(startTime)
	return result, nil
}

func (o *ScanOrchestrator) checkSignature(file *entities.FileReference, sigPath string) (string, error) {
	if o.signatures == nil {
		return "", fmt.Errorf("%w: no verifier configured", ErrSignatureCheck)
	}

	signer, err := o.signatures.VerifySignatureFromFile(file.Path, sigPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSignatureCheck, err)
	}
	return signer, nil
}

// wait blocks for d while the progress indicator runs
func (o *ScanOrchestrator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	o.progress.Start(fmt.Sprintf("Waiting %s for the service to process the upload", d))
	defer o.progress.Stop()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
