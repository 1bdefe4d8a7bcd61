package entities

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownResource   = errors.New("resource unknown to the service")
	ErrEmptyResponse     = errors.New("empty response")
	ErrRateLimited       = errors.New("request rate limit exceeded")
	ErrForbidden         = errors.New("access forbidden, check the API key")
	ErrMalformedResponse = errors.New("malformed response")
	ErrDigestMismatch    = errors.New("digest mismatch")
)

// SubmissionError is returned when the service refuses an uploaded file
type SubmissionError struct {
	Code    ResponseCode
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected (response code %d): %s", e.Code, e.Message)
}
