package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func processingState(jobID string) State {
	return State{
		Status:   StatusProcessing,
		JobID:    jobID,
		Message:  MessageInitializing,
		Attempt:  1,
		Progress: 0,
	}
}

func TestReduce_Submitted(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr error
	}{
		{name: "from idle", state: State{Status: StatusIdle}},
		{name: "from completed", state: State{Status: StatusCompleted, JobID: "old", Progress: 100, ResultURL: "http://x/video/old", Attempt: 4}},
		{name: "from failed", state: State{Status: StatusFailed, JobID: "old", Message: "OOM", Attempt: 2}},
		{name: "from processing", state: processingState("job-1"), wantErr: ErrJobInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Reduce(tt.state, Event{Type: EventSubmitted, At: testTime})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.state, next)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, StatusProcessing, next.Status)
			assert.Equal(t, 0, next.Progress)
			assert.Equal(t, MessageInitializing, next.Message)
			assert.Empty(t, next.JobID)
			assert.Empty(t, next.ResultURL)
			assert.Equal(t, tt.state.Attempt+1, next.Attempt)
			assert.Equal(t, testTime, next.UpdatedAt)
		})
	}
}

func TestReduce_Accepted(t *testing.T) {
	s := processingState("")

	next, err := Reduce(s, Event{Type: EventAccepted, Attempt: 1, JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", next.JobID)
	assert.Equal(t, StatusProcessing, next.Status)

	_, err = Reduce(s, Event{Type: EventAccepted, Attempt: 2, JobID: "job-2"})
	require.ErrorIs(t, err, ErrStaleEvent)

	_, err = Reduce(next, Event{Type: EventAccepted, Attempt: 1, JobID: "job-3"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReduce_SubmitFailed(t *testing.T) {
	next, err := Reduce(processingState(""), Event{Type: EventSubmitFailed, Attempt: 1, Message: MessageSubmitFailed})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, next.Status)
	assert.Equal(t, MessageSubmitFailed, next.Message)

	// A reset in between makes the late failure stale
	reset, err := Reduce(processingState(""), Event{Type: EventReset})
	require.NoError(t, err)
	_, err = Reduce(reset, Event{Type: EventSubmitFailed, Attempt: 1})
	require.ErrorIs(t, err, ErrStaleEvent)
}

func TestReduce_PollSequence(t *testing.T) {
	s := processingState("job-1")

	for _, p := range []int{10, 45, 80} {
		var err error
		s, err = Reduce(s, Event{Type: EventProgressed, JobID: "job-1", Progress: p, Message: "Rendering"})
		require.NoError(t, err)
		assert.Equal(t, p, s.Progress)
		assert.Equal(t, StatusProcessing, s.Status)
		assert.Empty(t, s.ResultURL)
	}

	s, err := Reduce(s, Event{Type: EventCompleted, JobID: "job-1", Progress: 100, Message: "Generation complete", ResultURL: "http://localhost:8001/video/job-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, "http://localhost:8001/video/job-1", s.ResultURL)

	_, err = Reduce(s, Event{Type: EventProgressed, JobID: "job-1", Progress: 10})
	require.ErrorIs(t, err, ErrStaleEvent)
}

func TestReduce_Failed(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantMessage string
	}{
		{name: "backend message", message: "OOM", wantMessage: "OOM"},
		{name: "keeps latest message when empty", message: "", wantMessage: "Rendering chunk 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := processingState("job-1")
			s.Message = "Rendering chunk 2"

			next, err := Reduce(s, Event{Type: EventFailed, JobID: "job-1", Message: tt.message})
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, next.Status)
			assert.Equal(t, tt.wantMessage, next.Message)
			assert.Empty(t, next.ResultURL)
		})
	}
}

func TestReduce_WrongJob(t *testing.T) {
	_, err := Reduce(processingState("job-1"), Event{Type: EventProgressed, JobID: "job-2", Progress: 50})
	require.ErrorIs(t, err, ErrStaleEvent)

	_, err = Reduce(State{Status: StatusIdle}, Event{Type: EventCompleted, JobID: "job-1"})
	require.ErrorIs(t, err, ErrStaleEvent)
}

func TestReduce_Reset(t *testing.T) {
	s := State{Status: StatusFailed, JobID: "job-1", Progress: 30, Message: "OOM", Attempt: 3}

	next, err := Reduce(s, Event{Type: EventReset, At: testTime})
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, next.Status)
	assert.Equal(t, 0, next.Progress)
	assert.Empty(t, next.Message)
	assert.Empty(t, next.ResultURL)
	assert.Empty(t, next.JobID)
	assert.Equal(t, uint64(3), next.Attempt)
}

func TestReduce_UnknownEvent(t *testing.T) {
	_, err := Reduce(State{}, Event{Type: "bogus"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0, ClampProgress(-5))
	assert.Equal(t, 42, ClampProgress(42))
	assert.Equal(t, 100, ClampProgress(250))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusIdle.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}
