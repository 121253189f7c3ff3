// Package controller implements the Generation Client: it owns the selected
// image and the generation state, submits jobs, polls them to a terminal
// state and saves the finished video.
package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/backend"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/events"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/poller"
)

const (
	// DefaultPollInterval is the status polling cadence
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPollFailures fails a job after this many consecutive unreachable polls
	DefaultMaxPollFailures = 30
	// DefaultMaxPollDuration fails a job that is still processing after this long
	DefaultMaxPollDuration = 30 * time.Minute

	defaultPublishTimeout = 5 * time.Second
	outboxSize            = 64
)

// ErrClosed is returned by operations on a closed controller
var ErrClosed = errors.New("controller is closed")

// Backend is the generation API as seen by the controller
type Backend interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (backend.SubmitResponse, error)
	Status(ctx context.Context, jobID string) (backend.StatusResponse, error)
	VideoURL(jobID string) string
	DownloadVideo(ctx context.Context, jobID string, w io.Writer) (int64, error)
}

// Config holds controller dependencies and polling bounds.
// A zero MaxPollFailures or MaxPollDuration disables that bound.
type Config struct {
	Backend         Backend
	Publisher       events.Publisher
	Logger          *slog.Logger
	PollInterval    time.Duration
	MaxPollFailures int
	MaxPollDuration time.Duration
	PublishTimeout  time.Duration
	SampleImagePath string
	Now             func() time.Time
}

// Controller is safe for concurrent use
type Controller struct {
	backend         Backend
	publisher       events.Publisher
	logger          *slog.Logger
	pollInterval    time.Duration
	maxPollFailures int
	maxPollDuration time.Duration
	publishTimeout  time.Duration
	sampleImagePath string
	now             func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc

	outbox        chan events.Event
	publisherDone chan struct{}

	mu          sync.Mutex
	state       domain.State
	image       *domain.Image
	poller      *poller.Task
	subscribers map[int]chan domain.State
	nextSubID   int
	closed      bool
}

// SubmitInput is what the user fills in besides the image
type SubmitInput struct {
	Prompt   string
	Duration int
	FastMode bool
}

// New creates a controller in the idle state
func New(cfg *Config) *Controller {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		backend:         cfg.Backend,
		publisher:       publisher,
		logger:          logger,
		pollInterval:    pollInterval,
		maxPollFailures: cfg.MaxPollFailures,
		maxPollDuration: cfg.MaxPollDuration,
		publishTimeout:  publishTimeout,
		sampleImagePath: cfg.SampleImagePath,
		now:             now,
		baseCtx:         ctx,
		cancel:          cancel,
		outbox:          make(chan events.Event, outboxSize),
		publisherDone:   make(chan struct{}),
		state:           domain.State{Status: domain.StatusIdle, UpdatedAt: now()},
		subscribers:     make(map[int]chan domain.State),
	}

	go c.runPublisher()

	return c
}

// State returns a copy of the current generation state
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset returns to idle, clearing job id, progress, message and result.
// Any active poller is stopped; the backend job itself keeps running.
func (c *Controller) Reset() domain.State {
	c.mu.Lock()
	task := c.poller
	c.poller = nil
	next, _ := c.applyLocked(domain.Event{Type: domain.EventReset})
	c.mu.Unlock()

	task.Stop()

	c.logger.Info("Generation reset")
	return next
}

// Close stops polling and event publishing. The controller cannot be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	task := c.poller
	c.poller = nil
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
	c.mu.Unlock()

	task.Stop()
	c.cancel()

	close(c.outbox)
	<-c.publisherDone
}

// Subscribe returns a channel receiving the state after every transition.
// A slow reader only misses intermediate states, never the latest one.
func (c *Controller) Subscribe() (<-chan domain.State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan domain.State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
}

// applyLocked is the only place the state changes. Callers hold c.mu.
func (c *Controller) applyLocked(evt domain.Event) (domain.State, error) {
	evt.At = c.now()

	next, err := domain.Reduce(c.state, evt)
	if err != nil {
		return c.state, err
	}
	c.state = next

	if next.Status != domain.StatusProcessing {
		// Terminal polls end their task by returning false; idle callers stop it themselves.
		c.poller = nil
	}

	for _, ch := range c.subscribers {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}

	if e, ok := events.FromTransition(evt.Type, next); ok && !c.closed {
		select {
		case c.outbox <- e:
		default:
			c.logger.Warn("Event outbox full, dropping lifecycle event",
				slog.String("type", e.Type),
				slog.String("job_id", e.JobID),
			)
		}
	}

	return next, nil
}

func (c *Controller) dispatch(evt domain.Event) (domain.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(evt)
}

func (c *Controller) runPublisher() {
	defer close(c.publisherDone)

	for evt := range c.outbox {
		ctx, cancel := context.WithTimeout(context.Background(), c.publishTimeout)
		if err := c.publisher.Publish(ctx, evt); err != nil {
			c.logger.Warn("Failed to publish lifecycle event",
				slog.String("type", evt.Type),
				slog.String("job_id", evt.JobID),
				slog.Any("error", err),
			)
		}
		cancel()
	}
}

// activePoller is used by tests
func (c *Controller) activePoller() *poller.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller
}
