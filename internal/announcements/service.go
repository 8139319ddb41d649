package announcements

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/internal/collection"
	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
)

const maxTitleLength = 200

type announcementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Announcement, error)
	Update(ctx context.Context, announcement *models.Announcement) error
	List(ctx context.Context, limit, offset int) ([]models.Announcement, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type mediaLister interface {
	List(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot) ([]collection.Item, error)
}

// Service exposes announcement operations.
type Service interface {
	Create(ctx context.Context, input CreateAnnouncementInput) (*AnnouncementDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*AnnouncementDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAnnouncementInput) (*AnnouncementDTO, error)
	List(ctx context.Context, limit, offset int) ([]AnnouncementDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo  announcementRepository
	media mediaLister
}

// NewService builds an announcement service with the provided dependencies.
func NewService(repo announcementRepository, media mediaLister) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("announcement repository required")
	}
	if media == nil {
		return nil, fmt.Errorf("media lister required")
	}
	return &service{repo: repo, media: media}, nil
}

func (s *service) Create(ctx context.Context, input CreateAnnouncementInput) (*AnnouncementDTO, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	announcement := &models.Announcement{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create announcement")
	}
	return FromModel(announcement), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*AnnouncementDTO, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "announcement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load announcement")
	}
	return s.withMedia(ctx, announcement)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateAnnouncementInput) (*AnnouncementDTO, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "announcement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load announcement")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		announcement.Title = title
	}
	if input.Description != nil {
		announcement.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.repo.Update(ctx, announcement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update announcement")
	}
	return s.withMedia(ctx, announcement)
}

func (s *service) List(ctx context.Context, limit, offset int) ([]AnnouncementDTO, error) {
	rows, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list announcements")
	}

	dtos := make([]AnnouncementDTO, 0, len(rows))
	for i := range rows {
		dto, err := s.withMedia(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, *dto)
	}
	return dtos, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "announcement not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete announcement")
	}
	return nil
}

func (s *service) withMedia(ctx context.Context, announcement *models.Announcement) (*AnnouncementDTO, error) {
	dto := FromModel(announcement)

	primary, err := s.media.List(ctx, announcement.ID, enums.MediaSlotPrimary)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load announcement media")
	}
	additional, err := s.media.List(ctx, announcement.ID, enums.MediaSlotAdditional)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load announcement media")
	}
	dto.Media = primary
	dto.Additional = additional
	dto.CoverURL = collection.CoverURL(primary)
	return dto, nil
}

func validateTitle(title string) error {
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if len(title) > maxTitleLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "title too long")
	}
	return nil
}
