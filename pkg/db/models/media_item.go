package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/pkg/enums"
)

// MediaItem is one entry of an announcement's ordered media collection.
// Position 0 is the collection's cover item everywhere it is consumed.
type MediaItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AnnouncementID uuid.UUID       `gorm:"column:announcement_id;type:uuid;not null;index:idx_media_items_collection"`
	Slot           enums.MediaSlot `gorm:"column:slot;not null;index:idx_media_items_collection"`
	MediaID        uuid.UUID       `gorm:"column:media_id;type:uuid;not null"`
	URL            string          `gorm:"column:url;not null"`
	Position       int             `gorm:"column:position;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
