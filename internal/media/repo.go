package media

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
)

// Repository exposes media metadata persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a media record.
func (r *Repository) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// FindByID retrieves a media record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByGCSKey retrieves a media record by its storage key.
func (r *Repository) FindByGCSKey(ctx context.Context, gcsKey string) (*models.Media, error) {
	var m models.Media
	if err := r.db.WithContext(ctx).First(&m, "gcs_key = ?", gcsKey).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateStatus transitions a media record to the given lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MediaStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

// ListByStatusBefore returns media rows in the given status created before
// the cutoff, oldest first. The cron sweep uses it to find stuck rows.
func (r *Repository) ListByStatusBefore(ctx context.Context, status enums.MediaStatus, cutoff time.Time, limit int) ([]models.Media, error) {
	var rows []models.Media
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListHashesByAnnouncement returns the perceptual hashes of ready media
// attached to one announcement, for batch dedup.
func (r *Repository) ListHashesByAnnouncement(ctx context.Context, announcementID uuid.UUID) ([]string, error) {
	var hashes []string
	err := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("announcement_id = ? AND status = ? AND perceptual_hash IS NOT NULL", announcementID, enums.MediaStatusReady).
		Pluck("perceptual_hash", &hashes).
		Error
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

// Delete removes a media record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{}).Error
}
