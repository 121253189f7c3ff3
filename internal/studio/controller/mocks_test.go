package controller

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/backend"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/events"
)

type BackendMock struct {
	mock.Mock
}

func (m *BackendMock) Submit(ctx context.Context, req domain.GenerationRequest) (backend.SubmitResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(backend.SubmitResponse), args.Error(1)
}

func (m *BackendMock) Status(ctx context.Context, jobID string) (backend.StatusResponse, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(backend.StatusResponse), args.Error(1)
}

func (m *BackendMock) VideoURL(jobID string) string {
	args := m.Called(jobID)
	return args.String(0)
}

func (m *BackendMock) DownloadVideo(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	args := m.Called(ctx, jobID, w)
	return args.Get(0).(int64), args.Error(1)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
