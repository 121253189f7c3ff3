package domain

// Status is the client-side lifecycle state of a generation job
type Status string

// Generation status constants
const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further polling happens in this state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Backend status values as reported by GET /status/{job_id}
const (
	BackendStatusProcessing = "processing"
	BackendStatusCompleted  = "completed"
	BackendStatusFailed     = "failed"
)

// User-facing messages set by the client itself
const (
	MessageInitializing  = "Initializing magic..."
	MessageSubmitFailed  = "Failed to start generation"
	MessageLostContact   = "Lost contact with generation backend"
	MessagePollTimeout   = "Generation timed out"
	VideoFilenamePrefix  = "pixeldojo_"
	VideoFilenameSuffix  = ".mp4"
	SampleImageFilename  = "test_image.png"
	SampleImageMediaType = "image/png"
)

// VideoFilename returns the download filename for a finished job
func VideoFilename(jobID string) string {
	return VideoFilenamePrefix + jobID + VideoFilenameSuffix
}
