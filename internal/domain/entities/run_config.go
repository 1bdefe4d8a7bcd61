package entities

import "time"

// DefaultPollInterval is how long to wait between lookups of a queued resource
const DefaultPollInterval = 17 * time.Second

// PollPolicy bounds the wait for a queued resource.
// Zero MaxAttempts or MaxWait means no limit.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	MaxWait     time.Duration
}

// DefaultPollPolicy polls every 17 seconds until the resource leaves the queue
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: DefaultPollInterval}
}

// RunConfig holds the settings of a single invocation.
// It is built once at startup and never mutated afterwards.
type RunConfig struct {
	APIKey      string
	APIURL      string
	UserAgent   string
	HTTPTimeout time.Duration

	Verbose     bool
	Submit      bool
	ShowEngines bool
	NoColor     bool

	Poll        PollPolicy
	SubmitDelay time.Duration

	SignaturePath string
	KeyringPath   string
}

// VerifySignature reports whether a detached signature check was requested
func (c RunConfig) VerifySignature() bool {
	return c.SignaturePath != ""
}
