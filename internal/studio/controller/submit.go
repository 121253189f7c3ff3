package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/poller"
)

// Submit validates the input against the selected image, starts a backend job
// and begins polling it. Validation failures never reach the backend.
func (c *Controller) Submit(ctx context.Context, in SubmitInput) (domain.State, error) {
	req := domain.GenerationRequest{
		Prompt:   in.Prompt,
		Duration: in.Duration,
		FastMode: in.FastMode,
	}.Normalize()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.State{}, ErrClosed
	}

	req.Image = c.image
	if err := req.Validate(); err != nil {
		state := c.state
		c.mu.Unlock()
		c.logger.Warn("Rejected generation request", slog.Any("error", err))
		return state, err
	}

	started, err := c.applyLocked(domain.Event{Type: domain.EventSubmitted})
	if err != nil {
		c.mu.Unlock()
		return started, err
	}

	// At most one poller may exist; drop any leftover before starting over
	stale := c.poller
	c.poller = nil
	c.mu.Unlock()

	stale.Stop()

	c.logger.Info("Submitting generation",
		slog.Uint64("attempt", started.Attempt),
		slog.String("filename", req.Image.Filename),
		slog.Int("duration", req.Duration),
		slog.Bool("fast_mode", req.FastMode),
	)

	resp, err := c.backend.Submit(ctx, req)
	if err != nil {
		c.logger.Error("Failed to start generation",
			slog.Uint64("attempt", started.Attempt),
			slog.Any("error", err),
		)

		state, derr := c.dispatch(domain.Event{
			Type:    domain.EventSubmitFailed,
			Attempt: started.Attempt,
			Message: domain.MessageSubmitFailed,
		})
		if derr != nil {
			c.logger.Debug("Discarding submit failure for superseded attempt", slog.Any("error", derr))
		}
		return state, fmt.Errorf("failed to submit generation: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		// No poller can run after Close, so the job must not look active
		closedState, _ := c.applyLocked(domain.Event{
			Type:    domain.EventSubmitFailed,
			Attempt: started.Attempt,
			Message: domain.MessageSubmitFailed,
		})
		c.mu.Unlock()
		c.logger.Info("Controller closed while submitting, not polling", slog.String("job_id", resp.JobID))
		return closedState, ErrClosed
	}

	accepted, err := c.applyLocked(domain.Event{
		Type:    domain.EventAccepted,
		Attempt: started.Attempt,
		JobID:   resp.JobID,
	})
	if err != nil {
		c.mu.Unlock()
		c.logger.Info("Generation accepted after reset, not polling",
			slog.String("job_id", resp.JobID),
			slog.Any("error", err),
		)
		return accepted, err
	}
	c.poller = poller.Start(c.baseCtx, c.pollInterval, c.pollJob(resp.JobID))
	c.mu.Unlock()

	c.logger.Info("Generation started",
		slog.String("job_id", resp.JobID),
		slog.Duration("poll_interval", c.pollInterval),
	)

	return accepted, nil
}
