// Package events publishes generation lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
)

// Routing keys, one per published lifecycle transition
const (
	TypeSubmitted = "generation.submitted"
	TypeCompleted = "generation.completed"
	TypeFailed    = "generation.failed"
	TypeReset     = "generation.reset"
)

// Event is the JSON body published for a lifecycle transition
type Event struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"type"`
	JobID      string    `json:"job_id,omitempty"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message,omitempty"`
	VideoURL   string    `json:"video_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers lifecycle events somewhere
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// FromTransition builds the event for a state machine transition.
// Progress updates and pre-acceptance submits are not published.
func FromTransition(eventType domain.EventType, s domain.State) (Event, bool) {
	var typ string
	switch eventType {
	case domain.EventAccepted:
		typ = TypeSubmitted
	case domain.EventCompleted:
		typ = TypeCompleted
	case domain.EventFailed, domain.EventSubmitFailed:
		typ = TypeFailed
	case domain.EventReset:
		typ = TypeReset
	default:
		return Event{}, false
	}

	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		JobID:      s.JobID,
		Status:     string(s.Status),
		Progress:   s.Progress,
		Message:    s.Message,
		VideoURL:   s.ResultURL,
		OccurredAt: s.UpdatedAt,
	}, true
}

// amqpPublisher is the subset of the RabbitMQ client used here
type amqpPublisher interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// AMQPPublisher sends events to a RabbitMQ exchange using the event type as routing key
type AMQPPublisher struct {
	client amqpPublisher
	logger *slog.Logger
}

// NewAMQPPublisher wraps a connected RabbitMQ client
func NewAMQPPublisher(client amqpPublisher, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		client: client,
		logger: logger,
	}
}

// Publish encodes and sends one event
func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := p.client.PublishWithRetry(ctx, evt.Type, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", evt.Type, err)
	}

	p.logger.Debug("Lifecycle event published",
		slog.String("event_id", evt.ID),
		slog.String("type", evt.Type),
		slog.String("job_id", evt.JobID),
	)
	return nil
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(context.Context, Event) error { return nil }
