package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/openannounce/announce-backend/internal/media"
	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
	"github.com/openannounce/announce-backend/pkg/logger"
)

const (
	deletionRetryRetentionDays = 1
	deletionRetryLimit         = 200
)

type deletionRetryRepo interface {
	ListByStatusBefore(ctx context.Context, status enums.MediaStatus, cutoff time.Time, limit int) ([]models.Media, error)
}

type deletionRetryPublisher interface {
	PublishDeletion(ctx context.Context, event media.DeletionEvent) error
}

// DeletionRetryJobParams configure the deletion re-publish job.
type DeletionRetryJobParams struct {
	Logger        *logger.Logger
	MediaRepo     deletionRetryRepo
	Publisher     deletionRetryPublisher
	RetentionDays int
}

// NewDeletionRetryJob builds the job that re-publishes deletion events for
// rows still marked delete_requested or delete_failed after the retention
// window. Covers lost events and worker outages.
func NewDeletionRetryJob(params DeletionRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.MediaRepo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = deletionRetryRetentionDays
	}
	return &deletionRetryJob{
		logg:          params.Logger,
		repo:          params.MediaRepo,
		publisher:     params.Publisher,
		retentionDays: retention,
		now:           time.Now,
	}, nil
}

type deletionRetryJob struct {
	logg          *logger.Logger
	repo          deletionRetryRepo
	publisher     deletionRetryPublisher
	retentionDays int
	now           func() time.Time
}

func (j *deletionRetryJob) Name() string { return "media-deletion-retry" }

func (j *deletionRetryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retentionDays) * 24 * time.Hour)

	var republished int
	for _, status := range []enums.MediaStatus{enums.MediaStatusDeleteRequested, enums.MediaStatusDeleteFailed} {
		rows, err := j.repo.ListByStatusBefore(ctx, status, cutoff, deletionRetryLimit)
		if err != nil {
			return fmt.Errorf("query %s media: %w", status, err)
		}
		for _, row := range rows {
			event := media.DeletionEvent{MediaID: row.ID, GCSKey: row.GCSKey}
			if err := j.publisher.PublishDeletion(ctx, event); err != nil {
				j.logg.Error(j.logg.WithField(ctx, "media_id", row.ID.String()),
					"failed to re-publish deletion event", err)
				continue
			}
			republished++
		}
	}

	j.logg.Info(j.logg.WithField(ctx, "republished", republished), "deletion retry finished")
	return nil
}
