package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/pkg/logger"
)

const deletionEventType = "MEDIA_DELETE_REQUESTED"

// DeletionEvent asks the worker tier to remove one stored object and settle
// its media row.
type DeletionEvent struct {
	MediaID uuid.UUID `json:"media_id"`
	GCSKey  string    `json:"gcs_key"`
}

// EventPublisher emits media lifecycle events to Pub/Sub.
type EventPublisher struct {
	publisher *pubsub.Publisher
	logg      *logger.Logger
}

// NewEventPublisher constructs a publisher for the media deletion topic.
func NewEventPublisher(publisher *pubsub.Publisher, logg *logger.Logger) (*EventPublisher, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &EventPublisher{publisher: publisher, logg: logg}, nil
}

// PublishDeletion requests asynchronous removal of a stored object. The call
// blocks until the broker accepts the message.
func (p *EventPublisher) PublishDeletion(ctx context.Context, event DeletionEvent) error {
	if event.MediaID == uuid.Nil || event.GCSKey == "" {
		return fmt.Errorf("deletion event requires media id and gcs key")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling deletion event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type": deletionEventType,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing deletion event: %w", err)
	}

	fields := map[string]any{"media_id": event.MediaID.String(), "gcs_key": event.GCSKey}
	p.logg.Info(p.logg.WithFields(ctx, fields), "media deletion event published")
	return nil
}
