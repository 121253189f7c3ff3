package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/controller"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
)

// Studio is the generation client driven by the HTTP API
type Studio interface {
	SelectImage(src domain.ImageSource) (controller.ImageSummary, error)
	SelectSampleImage() (controller.ImageSummary, error)
	RemoveImage()
	Image() (controller.ImageSummary, bool)
	Submit(ctx context.Context, in controller.SubmitInput) (domain.State, error)
	Snapshot() controller.Snapshot
	Reset() domain.State
	Result() (controller.Result, bool)
	Download(ctx context.Context, w io.Writer) (int64, error)
}

// HealthChecker reports whether the generation backend is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger          *slog.Logger
	Studio          Studio
	Backend         HealthChecker
	ServiceName     string
	MaxUploadBytes  int64
	DefaultDuration int
}

// StudioHandler handles studio HTTP requests
type StudioHandler struct {
	logger          *slog.Logger
	studio          Studio
	maxUploadBytes  int64
	defaultDuration int
}

// NewStudioHandler creates a new StudioHandler instance
func NewStudioHandler(deps *Dependencies) *StudioHandler {
	defaultDuration := deps.DefaultDuration
	if defaultDuration == 0 {
		defaultDuration = domain.DefaultDuration
	}

	return &StudioHandler{
		logger:          deps.Logger,
		studio:          deps.Studio,
		maxUploadBytes:  deps.MaxUploadBytes,
		defaultDuration: defaultDuration,
	}
}

// HealthHandler serves GET /health
type HealthHandler struct {
	logger      *slog.Logger
	backend     HealthChecker
	serviceName string
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		logger:      deps.Logger,
		backend:     deps.Backend,
		serviceName: deps.ServiceName,
	}
}
