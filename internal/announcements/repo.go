package announcements

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openannounce/announce-backend/pkg/db/models"
)

// Repository handles announcement persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to announcement operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new announcement row.
func (r *Repository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement == nil {
		return fmt.Errorf("announcement is required")
	}
	return r.db.WithContext(ctx).Create(announcement).Error
}

// FindByID loads an announcement by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Announcement, error) {
	var announcement models.Announcement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&announcement).Error; err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Exists reports whether an announcement row with the given id is present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Announcement{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update saves the provided announcement.
func (r *Repository) Update(ctx context.Context, announcement *models.Announcement) error {
	if announcement == nil {
		return fmt.Errorf("announcement is required")
	}
	return r.db.WithContext(ctx).Save(announcement).Error
}

// List returns announcements newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Announcement, error) {
	var rows []models.Announcement
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the announcement row. Media rows keep their object keys and
// are detached by the FK, so cleanup jobs can still reach them.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Announcement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is GORM's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
