package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/internal/collection"
	"github.com/openannounce/announce-backend/internal/ingest"
	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
)

type batchRunner interface {
	Run(ctx context.Context, input ingest.BatchInput) (ingest.BatchResult, error)
}

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MediaStatus) error
	ListHashesByAnnouncement(ctx context.Context, announcementID uuid.UUID) ([]string, error)
}

type collectionService interface {
	List(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot) ([]collection.Item, error)
	Append(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, entries []collection.Entry) error
	Remove(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, index int) (collection.Item, error)
	Reorder(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, urls []string) error
}

type announcementChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type deletionPublisher interface {
	PublishDeletion(ctx context.Context, event DeletionEvent) error
}

type progressReader interface {
	Get(ctx context.Context, batchID string) (*ingest.Progress, error)
}

// BatchOutput is the API-facing result of one upload batch.
type BatchOutput struct {
	BatchID string             `json:"batch_id"`
	Message string             `json:"message"`
	Result  ingest.BatchResult `json:"result"`
}

// Service coordinates batch ingestion with persistence: accepted uploads get
// a media row and a collection slot, removals publish cleanup events.
type Service interface {
	UploadBatch(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, profile ingest.Profile, files []ingest.MediaFile) (*BatchOutput, error)
	Progress(ctx context.Context, batchID string) (*ingest.Progress, error)
	RemoveAt(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, index int) error
	Reorder(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, urls []string) error
}

type service struct {
	runner        batchRunner
	repo          mediaRepository
	collections   collectionService
	announcements announcementChecker
	events        deletionPublisher
	progress      progressReader
	logg          *logger.Logger
}

// NewService wires the media service.
func NewService(runner batchRunner, repo mediaRepository, collections collectionService, announcements announcementChecker, events deletionPublisher, progress progressReader, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, errors.New("batch runner is required")
	}
	if repo == nil {
		return nil, errors.New("media repository is required")
	}
	if collections == nil {
		return nil, errors.New("collection service is required")
	}
	if announcements == nil {
		return nil, errors.New("announcement checker is required")
	}
	if events == nil {
		return nil, errors.New("event publisher is required")
	}
	if progress == nil {
		return nil, errors.New("progress reader is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{
		runner:        runner,
		repo:          repo,
		collections:   collections,
		announcements: announcements,
		events:        events,
		progress:      progress,
		logg:          logg,
	}, nil
}

// UploadBatch drives one batch through the pipeline and lands successful
// files in the announcement's collection.
func (s *service) UploadBatch(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, profile ingest.Profile, files []ingest.MediaFile) (*BatchOutput, error) {
	if err := s.requireAnnouncement(ctx, announcementID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch contains no files")
	}

	known, err := s.repo.ListHashesByAnnouncement(ctx, announcementID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading collection hashes")
	}

	batchID := uuid.NewString()
	ctx = s.logg.WithAnnouncementID(s.logg.WithBatchID(ctx, batchID), announcementID.String())

	result, runErr := s.runner.Run(ctx, ingest.BatchInput{
		BatchID:     batchID,
		Files:       files,
		Profile:     profile,
		KnownHashes: known,
	})

	entries := s.persistOutcomes(ctx, announcementID, slot, &result)
	if len(entries) > 0 {
		if err := s.collections.Append(ctx, announcementID, slot, entries); err != nil {
			return nil, err
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	if result.Uploaded() == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBatchFailed, "no files were uploaded")
	}

	output := &BatchOutput{
		BatchID: batchID,
		Message: fmt.Sprintf("%d of %d uploaded", result.Uploaded(), result.Accepted),
		Result:  result,
	}
	if result.Capped {
		output.Message = fmt.Sprintf("%s (selection capped at %d files)", output.Message, result.Accepted)
	}
	return output, nil
}

// persistOutcomes records a media row per uploaded file and returns the
// collection entries to append, in completion order. Rows are written as
// pending and promoted to ready once the insert lands; a row stuck in
// pending is reclaimed by the stale-media sweep. A file whose row cannot be
// written at all is downgraded to a failure and its stored object is handed
// to the deletion worker so it does not linger in the bucket.
func (s *service) persistOutcomes(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, result *ingest.BatchResult) []collection.Entry {
	var entries []collection.Entry
	for i := range result.Outcomes {
		outcome := &result.Outcomes[i]
		if !outcome.Succeeded() {
			continue
		}

		row := &models.Media{
			ID:             uuid.New(),
			AnnouncementID: &announcementID,
			Slot:           slot,
			Class:          outcome.Class,
			Status:         enums.MediaStatusPending,
			GCSKey:         outcome.GCSKey,
			URL:            &outcome.URL,
			FileName:       outcome.FileName,
			MimeType:       outcome.MimeType,
			SizeBytes:      outcome.Size,
			Width:          outcome.Width,
			Height:         outcome.Height,
		}
		if outcome.Hash != "" {
			row.PerceptualHash = &outcome.Hash
		}

		created, err := s.repo.Create(ctx, row)
		if err != nil {
			s.logg.Error(s.logg.WithFileName(ctx, outcome.FileName), "persisting media row", err)
			s.discardOutcome(outcome, err, "recording upload")
			if pubErr := s.events.PublishDeletion(ctx, DeletionEvent{MediaID: row.ID, GCSKey: outcome.GCSKey}); pubErr != nil {
				s.logg.Error(s.logg.WithFileName(ctx, outcome.FileName), "queueing orphaned object for deletion", pubErr)
			}
			continue
		}
		if err := s.repo.UpdateStatus(ctx, created.ID, enums.MediaStatusReady); err != nil {
			s.logg.Error(s.logg.WithFileName(ctx, outcome.FileName), "promoting media row", err)
			s.discardOutcome(outcome, err, "recording upload")
			continue
		}
		entries = append(entries, collection.Entry{MediaID: created.ID, URL: *created.URL})
	}
	return entries
}

// discardOutcome downgrades an uploaded file to a failure after its row
// could not be recorded.
func (s *service) discardOutcome(outcome *ingest.FileOutcome, cause error, op string) {
	outcome.Err = pkgerrors.Wrap(pkgerrors.CodeInternal, cause, op)
	outcome.URL = ""
	outcome.Warning = fmt.Sprintf("%s: upload could not be recorded", outcome.FileName)
}

// Progress returns the latest snapshot for a batch.
func (s *service) Progress(ctx context.Context, batchID string) (*ingest.Progress, error) {
	return s.progress.Get(ctx, batchID)
}

// RemoveAt drops the collection item at index and requests storage cleanup
// for its object. The collection mutation is immediate; the object delete
// happens asynchronously in the worker tier.
func (s *service) RemoveAt(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, index int) error {
	if err := s.requireAnnouncement(ctx, announcementID); err != nil {
		return err
	}

	removed, err := s.collections.Remove(ctx, announcementID, slot, index)
	if err != nil {
		return err
	}

	row, err := s.repo.FindByID(ctx, removed.MediaID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "media_id", removed.MediaID.String()),
			"removed collection item has no media row")
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, row.ID, enums.MediaStatusDeleteRequested); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking media for deletion")
	}

	if err := s.events.PublishDeletion(ctx, DeletionEvent{MediaID: row.ID, GCSKey: row.GCSKey}); err != nil {
		// row stays delete_requested; the cron sweep re-publishes
		s.logg.Error(s.logg.WithField(ctx, "media_id", row.ID.String()),
			"publishing deletion event", err)
	}
	return nil
}

// Reorder replaces a collection's full ordering.
func (s *service) Reorder(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, urls []string) error {
	if err := s.requireAnnouncement(ctx, announcementID); err != nil {
		return err
	}
	return s.collections.Reorder(ctx, announcementID, slot, urls)
}

func (s *service) requireAnnouncement(ctx context.Context, announcementID uuid.UUID) error {
	if announcementID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "announcement id is required")
	}
	exists, err := s.announcements.Exists(ctx, announcementID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking announcement")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "announcement not found")
	}
	return nil
}
