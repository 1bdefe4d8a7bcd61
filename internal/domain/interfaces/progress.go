package interfaces

// ProgressIndicator shows activity while the workflow waits.
// Stop must be safe to call when Start was never called.
type ProgressIndicator interface {
	Start(message string)
	Stop()
}

// NoOpProgress displays nothing
type NoOpProgress struct{}

// Start does nothing
func (NoOpProgress) Start(_ string) {}

// Stop does nothing
func (NoOpProgress) Stop() {}
