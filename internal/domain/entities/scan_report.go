package entities

// ResponseCode is the service's verdict on a resource lookup or submission
type ResponseCode int

const (
	ResponseNotFound ResponseCode = 0
	ResponseFound    ResponseCode = 1
	ResponseQueued   ResponseCode = -2
)

// IsQueued reports whether analysis of the resource is still in progress
func (c ResponseCode) IsQueued() bool {
	return c == ResponseQueued
}

// ScanReport represents a file report returned by the threat-intelligence service
type ScanReport struct {
	ResponseCode ResponseCode
	VerboseMsg   string
	Resource     string
	ScanID       string
	SHA256       string
	Permalink    string
	ScanDate     string
	Positives    int
	Total        int
	Scans        map[string]EngineResult

	// Raw holds the complete decoded payload, including fields not mapped above
	Raw map[string]any
}

// EngineResult is a single antivirus engine's verdict
type EngineResult struct {
	Detected bool
	Version  string
	Result   string // malware name, empty when not detected
	Update   string
}

// Detections returns the engines that flagged the resource
func (r *ScanReport) Detections() map[string]EngineResult {
	out := make(map[string]EngineResult)
	for name, res := range r.Scans {
		if res.Detected {
			out[name] = res
		}
	}
	return out
}

// SubmissionReceipt acknowledges a file upload
type SubmissionReceipt struct {
	ResponseCode ResponseCode
	VerboseMsg   string
	ScanID       string
	Resource     string
	SHA256       string
	Permalink    string
}
