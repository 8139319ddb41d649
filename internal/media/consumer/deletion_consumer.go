package consumer

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openannounce/announce-backend/internal/media"
	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
	"github.com/openannounce/announce-backend/pkg/logger"
)

const deletionEventType = "MEDIA_DELETE_REQUESTED"

type deletionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MediaStatus) error
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

type processResult struct {
	ack  bool
	nack bool
}

// DeletionConsumer drains media deletion events: it removes the stored
// object and settles the media row's lifecycle status.
type DeletionConsumer struct {
	repo         deletionRepository
	store        objectDeleter
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewDeletionConsumer wires the dependencies for asynchronous media cleanup.
func NewDeletionConsumer(repo deletionRepository, store objectDeleter, subscription *pubsub.Subscriber, logg *logger.Logger) (*DeletionConsumer, error) {
	if repo == nil {
		return nil, errors.New("media repository is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if subscription == nil {
		return nil, errors.New("media deletion subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &DeletionConsumer{
		repo:         repo,
		store:        store,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes deletion events until the context is canceled.
func (c *DeletionConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *DeletionConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	if eventType := msg.Attributes["event_type"]; eventType != deletionEventType {
		c.logg.Info(c.logg.WithField(logCtx, "event_type", eventType), "skipping unrelated event")
		return processResult{ack: true}
	}

	var event media.DeletionEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal deletion event", err)
		return processResult{ack: true}
	}
	if event.MediaID == uuid.Nil || event.GCSKey == "" {
		c.logg.Warn(logCtx, "deletion event missing media id or gcs key")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"media_id": event.MediaID.String(),
		"gcs_key":  event.GCSKey,
	})

	row, err := c.repo.FindByID(logCtx, event.MediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(logCtx, "media row already gone, deleting object anyway")
			if derr := c.store.DeleteObject(logCtx, event.GCSKey); derr != nil {
				c.logg.Error(logCtx, "failed to delete orphan object", derr)
				return processResult{nack: true}
			}
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "failed to load media row", err)
		return processResult{nack: true}
	}

	if row.Status == enums.MediaStatusDeleted {
		c.logg.Info(logCtx, "media already deleted, dropping duplicate event")
		return processResult{ack: true}
	}

	if err := c.store.DeleteObject(logCtx, event.GCSKey); err != nil {
		c.logg.Error(logCtx, "failed to delete stored object", err)
		if serr := c.repo.UpdateStatus(logCtx, row.ID, enums.MediaStatusDeleteFailed); serr != nil {
			c.logg.Error(logCtx, "failed to mark delete failure", serr)
		}
		return processResult{nack: true}
	}

	if err := c.repo.UpdateStatus(logCtx, row.ID, enums.MediaStatusDeleted); err != nil {
		c.logg.Error(logCtx, "failed to mark media deleted", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "media object deleted")
	return processResult{ack: true}
}
