package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
)

// Result describes a finished video
type Result struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Result returns the finished video, if the current job completed
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state.Status != domain.StatusCompleted || state.ResultURL == "" {
		return Result{}, false
	}

	return Result{
		JobID:    state.JobID,
		Filename: domain.VideoFilename(state.JobID),
		URL:      state.ResultURL,
	}, true
}

// Download streams the finished video into w. Without a result it returns
// domain.ErrNoResult and writes nothing.
func (c *Controller) Download(ctx context.Context, w io.Writer) (int64, error) {
	result, ok := c.Result()
	if !ok {
		return 0, domain.ErrNoResult
	}

	n, err := c.backend.DownloadVideo(ctx, result.JobID, w)
	if err != nil {
		return n, fmt.Errorf("failed to download video: %w", err)
	}

	c.logger.Info("Video downloaded",
		slog.String("job_id", result.JobID),
		slog.Int64("bytes", n),
	)
	return n, nil
}

// SaveResult downloads the finished video into dir as pixeldojo_{job_id}.mp4
// and returns the file path. Nothing is created when there is no result.
func (c *Controller) SaveResult(ctx context.Context, dir string) (string, error) {
	result, ok := c.Result()
	if !ok {
		return "", domain.ErrNoResult
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pixeldojo-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := c.Download(ctx, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write video: %w", err)
	}

	path := filepath.Join(dir, result.Filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save video: %w", err)
	}

	return path, nil
}
