// Package services implements domain business logic and use cases.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/vtscan/internal/domain/entities"
	"github.com/ochairo/vtscan/internal/domain/interfaces"
	"github.com/ochairo/vtscan/internal/domain/interfaces/gateways"
	"github.com/ochairo/vtscan/internal/domain/interfaces/services"
)

// lookupService implements LookupService on top of a ThreatIntelGateway
type lookupService struct {
	gateway gateways.ThreatIntelGateway
	logger  interfaces.Logger
}

// NewLookupService creates a new lookup service with dependency injection
func NewLookupService(gateway gateways.ThreatIntelGateway, logger interfaces.Logger) services.LookupService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &lookupService{gateway: gateway, logger: logger}
}

// ResolveReport queries the report for digest, polling at policy.Interval while
// the service keeps it queued. When a poll limit is hit the last queued report
// is returned without error.
func (s *lookupService) ResolveReport(ctx context.Context, digest entities.Digest, policy entities.PollPolicy) (*entities.ScanReport, int, error) {
	interval := policy.Interval
	if interval <= 0 {
		interval = entities.DefaultPollInterval
	}

	start := time.Now()
	attempts := 0

	for {
		report, err := s.gateway.GetReport(ctx, digest)
		attempts++
		if err != nil {
			return nil, attempts, fmt.Errorf("report lookup failed: %w", err)
		}

		if report.ResponseCode == entities.ResponseNotFound {
			return nil, attempts, fmt.Errorf("%w: %s", entities.ErrUnknownResource, report.VerboseMsg)
		}
		if !report.ResponseCode.IsQueued() {
			return report, attempts, nil
		}

		if policy.MaxAttempts > 0 && attempts >= policy.MaxAttempts {
			s.logger.Warn("Giving up on queued resource",
				interfaces.F("attempts", attempts))
			return report, attempts, nil
		}
		if policy.MaxWait > 0 && time.Since(start)+interval > policy.MaxWait {
			s.logger.Warn("Giving up on queued resource",
				interfaces.F("waited", time.Since(start).Round(time.Millisecond)))
			return report, attempts, nil
		}

		s.logger.Info("Analysis queued, polling again",
			interfaces.F("in", interval),
			interfaces.F("attempt", attempts))

		if err := sleep(ctx, interval); err != nil {
			return nil, attempts, err
		}
	}
}

// Submit uploads file and treats a zero response code as a hard failure
func (s *lookupService) Submit(ctx context.Context, file *entities.FileReference) (*entities.SubmissionReceipt, error) {
	receipt, err := s.gateway.SubmitFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("file submission failed: %w", err)
	}

	if receipt.ResponseCode == entities.ResponseNotFound {
		return nil, &entities.SubmissionError{
			Code:    receipt.ResponseCode,
			Message: receipt.VerboseMsg,
		}
	}

	return receipt, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
