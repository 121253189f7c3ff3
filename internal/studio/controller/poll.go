package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/backend"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/poller"
)

// pollJob returns the tick function for one job. It runs on the poller
// goroutine only, so the failure counter needs no locking.
func (c *Controller) pollJob(jobID string) poller.TickFunc {
	startedAt := c.now()
	failures := 0
	logger := c.logger.With(slog.String("job_id", jobID))

	return func(ctx context.Context) bool {
		resp, err := c.backend.Status(ctx, jobID)
		if ctx.Err() != nil {
			return false
		}

		if err != nil {
			failures++
			logger.Warn("Status poll failed",
				slog.Int("consecutive_failures", failures),
				slog.Any("error", err),
			)
			if c.maxPollFailures > 0 && failures >= c.maxPollFailures {
				c.failJob(jobID, domain.MessageLostContact)
				logger.Error("Giving up on unreachable backend",
					slog.Int("consecutive_failures", failures),
				)
				return false
			}
			return c.withinDeadline(jobID, startedAt)
		}
		failures = 0

		state, err := c.dispatch(c.statusEvent(jobID, resp))
		if err != nil {
			logger.Debug("Discarding stale status response", slog.Any("error", err))
			return false
		}

		logger.Debug("Status polled",
			slog.String("status", string(state.Status)),
			slog.Int("progress", state.Progress),
			slog.String("message", state.Message),
		)

		switch state.Status {
		case domain.StatusCompleted:
			logger.Info("Generation completed", slog.String("result_url", state.ResultURL))
			return false
		case domain.StatusFailed:
			logger.Warn("Generation failed", slog.String("message", state.Message))
			return false
		}

		return c.withinDeadline(jobID, startedAt)
	}
}

// withinDeadline fails the job once it has been polled for longer than maxPollDuration
func (c *Controller) withinDeadline(jobID string, startedAt time.Time) bool {
	if c.maxPollDuration <= 0 || c.now().Sub(startedAt) < c.maxPollDuration {
		return true
	}

	c.failJob(jobID, domain.MessagePollTimeout)
	c.logger.Error("Generation exceeded maximum poll duration",
		slog.String("job_id", jobID),
		slog.Duration("max_poll_duration", c.maxPollDuration),
	)
	return false
}

// failJob fails the current job locally, keeping its last reported progress
func (c *Controller) failJob(jobID, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = c.applyLocked(domain.Event{
		Type:     domain.EventFailed,
		JobID:    jobID,
		Progress: c.state.Progress,
		Message:  message,
	})
}

// statusEvent maps a poll response to a reducer event. The result location
// is only resolved for completed jobs.
func (c *Controller) statusEvent(jobID string, resp backend.StatusResponse) domain.Event {
	evt := domain.Event{
		JobID:    jobID,
		Progress: resp.Progress,
		Message:  resp.Message,
	}

	switch resp.Status {
	case domain.BackendStatusCompleted:
		evt.Type = domain.EventCompleted
		evt.ResultURL = c.backend.VideoURL(jobID)
	case domain.BackendStatusFailed:
		evt.Type = domain.EventFailed
	default:
		evt.Type = domain.EventProgressed
	}

	return evt
}
