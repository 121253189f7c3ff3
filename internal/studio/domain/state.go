package domain

import (
	"fmt"
	"time"
)

// State is the single authoritative snapshot of a generation
type State struct {
	Status    Status    `json:"status"`
	JobID     string    `json:"job_id,omitempty"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	ResultURL string    `json:"result_url,omitempty"`
	Attempt   uint64    `json:"attempt"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventType names a state machine input
type EventType string

const (
	// EventSubmitted starts a new attempt before the backend has answered
	EventSubmitted EventType = "submitted"
	// EventAccepted records the job id issued by the backend
	EventAccepted EventType = "accepted"
	// EventSubmitFailed reports a transport or non-2xx failure on submit
	EventSubmitFailed EventType = "submit_failed"
	// EventProgressed carries a non-terminal poll response
	EventProgressed EventType = "progressed"
	// EventCompleted carries a terminal success poll response
	EventCompleted EventType = "completed"
	// EventFailed carries a terminal failure poll response or an exceeded poll bound
	EventFailed EventType = "failed"
	// EventReset returns to idle
	EventReset EventType = "reset"
)

// Event is an input to Reduce. Attempt scopes submit-time events, JobID scopes poll events.
type Event struct {
	Type      EventType
	Attempt   uint64
	JobID     string
	Progress  int
	Message   string
	ResultURL string
	At        time.Time
}

// Reduce applies an event and returns the next state. The input state is never modified.
func Reduce(s State, e Event) (State, error) {
	next := s
	next.UpdatedAt = e.At

	switch e.Type {
	case EventSubmitted:
		if s.Status == StatusProcessing {
			return s, ErrJobInProgress
		}
		return State{
			Status:    StatusProcessing,
			Progress:  0,
			Message:   MessageInitializing,
			Attempt:   s.Attempt + 1,
			UpdatedAt: e.At,
		}, nil

	case EventAccepted:
		if err := expectAttempt(s, e); err != nil {
			return s, err
		}
		if s.JobID != "" {
			return s, fmt.Errorf("%w: job %s already accepted", ErrInvalidTransition, s.JobID)
		}
		next.JobID = e.JobID
		return next, nil

	case EventSubmitFailed:
		if err := expectAttempt(s, e); err != nil {
			return s, err
		}
		next.Status = StatusFailed
		next.Message = e.Message
		next.ResultURL = ""
		return next, nil

	case EventProgressed, EventCompleted, EventFailed:
		if err := expectJob(s, e); err != nil {
			return s, err
		}
		next.Progress = ClampProgress(e.Progress)
		switch e.Type {
		case EventProgressed:
			next.Message = e.Message
		case EventCompleted:
			next.Status = StatusCompleted
			next.Message = e.Message
			next.ResultURL = e.ResultURL
		case EventFailed:
			next.Status = StatusFailed
			if e.Message != "" {
				next.Message = e.Message
			}
		}
		return next, nil

	case EventReset:
		return State{
			Status:    StatusIdle,
			Attempt:   s.Attempt,
			UpdatedAt: e.At,
		}, nil

	default:
		return s, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, e.Type)
	}
}

func expectAttempt(s State, e Event) error {
	if s.Status != StatusProcessing || s.Attempt != e.Attempt {
		return fmt.Errorf("%w: attempt %d, current %d (%s)", ErrStaleEvent, e.Attempt, s.Attempt, s.Status)
	}
	return nil
}

func expectJob(s State, e Event) error {
	if s.Status != StatusProcessing || s.JobID == "" || s.JobID != e.JobID {
		return fmt.Errorf("%w: job %q, current %q (%s)", ErrStaleEvent, e.JobID, s.JobID, s.Status)
	}
	return nil
}

// ClampProgress bounds a reported percentage to [0, 100]
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
