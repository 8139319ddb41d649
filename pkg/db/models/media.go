package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/pkg/enums"
)

// Media captures metadata for objects pushed to storage by the ingestion pipeline.
type Media struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AnnouncementID *uuid.UUID        `gorm:"column:announcement_id;type:uuid"`
	Slot           enums.MediaSlot   `gorm:"column:slot;not null"`
	Class          enums.FileClass   `gorm:"column:class;not null"`
	Status         enums.MediaStatus `gorm:"column:status;not null;default:'pending'"`
	GCSKey         string            `gorm:"column:gcs_key;not null;unique"`
	URL            *string           `gorm:"column:url"`
	FileName       string            `gorm:"column:file_name;not null"`
	MimeType       string            `gorm:"column:mime_type;not null"`
	SizeBytes      int64             `gorm:"column:size_bytes;not null"`
	Width          int               `gorm:"column:width;not null;default:0"`
	Height         int               `gorm:"column:height;not null;default:0"`
	PerceptualHash *string           `gorm:"column:perceptual_hash"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
