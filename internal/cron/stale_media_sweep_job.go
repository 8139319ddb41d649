package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
	"github.com/openannounce/announce-backend/pkg/logger"
)

const (
	staleMediaRetentionDays = 7
	staleMediaSweepLimit    = 500
)

type staleMediaRepo interface {
	ListByStatusBefore(ctx context.Context, status enums.MediaStatus, cutoff time.Time, limit int) ([]models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type sweepObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// StaleMediaSweepJobParams configure the pending-media sweep.
type StaleMediaSweepJobParams struct {
	Logger        *logger.Logger
	MediaRepo     staleMediaRepo
	Store         sweepObjectDeleter
	RetentionDays int
}

// NewStaleMediaSweepJob builds the job that removes media rows stuck in
// pending. Rows get stuck when a batch dies between object upload and row
// settlement; after the retention window their objects are garbage.
func NewStaleMediaSweepJob(params StaleMediaSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.MediaRepo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = staleMediaRetentionDays
	}
	return &staleMediaSweepJob{
		logg:          params.Logger,
		repo:          params.MediaRepo,
		store:         params.Store,
		retentionDays: retention,
		now:           time.Now,
	}, nil
}

type staleMediaSweepJob struct {
	logg          *logger.Logger
	repo          staleMediaRepo
	store         sweepObjectDeleter
	retentionDays int
	now           func() time.Time
}

func (j *staleMediaSweepJob) Name() string { return "stale-media-sweep" }

func (j *staleMediaSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retentionDays) * 24 * time.Hour)

	rows, err := j.repo.ListByStatusBefore(ctx, enums.MediaStatusPending, cutoff, staleMediaSweepLimit)
	if err != nil {
		return fmt.Errorf("query stale media: %w", err)
	}

	var swept int
	for _, row := range rows {
		rowCtx := j.logg.WithFields(ctx, map[string]any{
			"media_id": row.ID.String(),
			"gcs_key":  row.GCSKey,
		})
		if row.GCSKey != "" {
			if err := j.store.DeleteObject(rowCtx, row.GCSKey); err != nil {
				j.logg.Error(rowCtx, "failed to delete stale object, row kept for next sweep", err)
				continue
			}
		}
		if err := j.repo.Delete(rowCtx, row.ID); err != nil {
			j.logg.Error(rowCtx, "failed to delete stale media row", err)
			continue
		}
		swept++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"swept":      swept,
		"cutoff":     cutoff.Format(time.RFC3339),
	}), "stale media sweep finished")
	return nil
}
