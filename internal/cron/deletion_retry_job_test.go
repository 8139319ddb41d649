package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/internal/media"
	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
	"github.com/openannounce/announce-backend/pkg/logger"
)

type fakeRetryRepo struct {
	byStatus map[enums.MediaStatus][]models.Media
	queried  []enums.MediaStatus
}

func (f *fakeRetryRepo) ListByStatusBefore(_ context.Context, status enums.MediaStatus, _ time.Time, _ int) ([]models.Media, error) {
	f.queried = append(f.queried, status)
	return f.byStatus[status], nil
}

type fakeRetryPublisher struct {
	events  []media.DeletionEvent
	failKey string
}

func (f *fakeRetryPublisher) PublishDeletion(_ context.Context, event media.DeletionEvent) error {
	if event.GCSKey == f.failKey {
		return errors.New("broker down")
	}
	f.events = append(f.events, event)
	return nil
}

func TestDeletionRetryRepublishesBothStatuses(t *testing.T) {
	requested := models.Media{ID: uuid.New(), GCSKey: "a", Status: enums.MediaStatusDeleteRequested}
	failed := models.Media{ID: uuid.New(), GCSKey: "b", Status: enums.MediaStatusDeleteFailed}
	repo := &fakeRetryRepo{byStatus: map[enums.MediaStatus][]models.Media{
		enums.MediaStatusDeleteRequested: {requested},
		enums.MediaStatusDeleteFailed:    {failed},
	}}
	publisher := &fakeRetryPublisher{}

	job, err := NewDeletionRetryJob(DeletionRetryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		MediaRepo: repo,
		Publisher: publisher,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(repo.queried) != 2 {
		t.Errorf("queried statuses = %v", repo.queried)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("republished %d events, want 2", len(publisher.events))
	}
	if publisher.events[0].GCSKey != "a" || publisher.events[1].GCSKey != "b" {
		t.Errorf("events = %v", publisher.events)
	}
}

func TestDeletionRetryContinuesPastPublishFailure(t *testing.T) {
	first := models.Media{ID: uuid.New(), GCSKey: "fails", Status: enums.MediaStatusDeleteRequested}
	second := models.Media{ID: uuid.New(), GCSKey: "ok", Status: enums.MediaStatusDeleteRequested}
	repo := &fakeRetryRepo{byStatus: map[enums.MediaStatus][]models.Media{
		enums.MediaStatusDeleteRequested: {first, second},
	}}
	publisher := &fakeRetryPublisher{failKey: "fails"}

	job, err := NewDeletionRetryJob(DeletionRetryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		MediaRepo: repo,
		Publisher: publisher,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(publisher.events) != 1 || publisher.events[0].GCSKey != "ok" {
		t.Errorf("events = %v", publisher.events)
	}
}
