package domain

import "errors"

var (
	// ErrImageRequired is returned when a submission has no image selected
	ErrImageRequired = errors.New("an image is required")

	// ErrPromptRequired is returned when the prompt is empty or whitespace only
	ErrPromptRequired = errors.New("a prompt is required")

	// ErrInvalidDuration is returned when the duration is outside [MinDuration, MaxDuration]
	ErrInvalidDuration = errors.New("duration must be between 5 and 60 seconds")

	// ErrNotAnImage is returned when a selected file is not an image
	ErrNotAnImage = errors.New("selected file is not an image")

	// ErrNoSampleImage is returned when no sample image is configured
	ErrNoSampleImage = errors.New("no sample image configured")

	// ErrJobInProgress is returned when submitting while a job is processing
	ErrJobInProgress = errors.New("a generation is already in progress")

	// ErrNoResult is returned when downloading without a completed job
	ErrNoResult = errors.New("no completed video available")

	// ErrJobNotFound is returned when the backend does not know the job
	ErrJobNotFound = errors.New("job not found")

	// ErrStaleEvent is returned when an event belongs to a job that was reset or replaced
	ErrStaleEvent = errors.New("event does not belong to the current job")

	// ErrInvalidTransition is returned when an event is not allowed in the current state
	ErrInvalidTransition = errors.New("invalid state transition")
)

// IsValidationError reports whether err is a local input validation failure
func IsValidationError(err error) bool {
	return errors.Is(err, ErrImageRequired) ||
		errors.Is(err, ErrPromptRequired) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrNotAnImage)
}
