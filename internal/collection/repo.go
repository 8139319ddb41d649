package collection

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
)

// Repository persists ordered media collections.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a collection repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns one collection's items ordered by position.
func (r *Repository) List(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot) ([]models.MediaItem, error) {
	var items []models.MediaItem
	err := r.db.WithContext(ctx).
		Where("announcement_id = ? AND slot = ?", announcementID, slot).
		Order("position ASC").
		Find(&items).
		Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Replace swaps a collection's full contents in one transaction. Positions
// are rewritten from the slice order.
func (r *Repository) Replace(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, items []models.MediaItem) error {
	if announcementID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("announcement_id = ? AND slot = ?", announcementID, slot).
			Delete(&models.MediaItem{}).
			Error; err != nil {
			return err
		}

		for i := range items {
			items[i].AnnouncementID = announcementID
			items[i].Slot = slot
			items[i].Position = i
			if items[i].ID == uuid.Nil {
				items[i].ID = uuid.New()
			}
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}
