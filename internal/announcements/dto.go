package announcements

import (
	"time"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/internal/collection"
	"github.com/openannounce/announce-backend/pkg/db/models"
)

// AnnouncementDTO is the API-facing shape of an announcement.
type AnnouncementDTO struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	CoverURL    string            `json:"cover_url,omitempty"`
	Media       []collection.Item `json:"media"`
	Additional  []collection.Item `json:"additional_media"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CreateAnnouncementInput holds creation-time fields.
type CreateAnnouncementInput struct {
	Title       string
	Description string
}

// UpdateAnnouncementInput carries optional field updates.
type UpdateAnnouncementInput struct {
	Title       *string
	Description *string
}

// FromModel maps the persisted row into a DTO. Media is attached by the
// service, not here.
func FromModel(m *models.Announcement) *AnnouncementDTO {
	if m == nil {
		return nil
	}
	return &AnnouncementDTO{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Media:       []collection.Item{},
		Additional:  []collection.Item{},
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
