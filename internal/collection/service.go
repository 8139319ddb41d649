package collection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/pkg/db/models"
	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
)

type collectionRepo interface {
	List(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot) ([]models.MediaItem, error)
	Replace(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, items []models.MediaItem) error
}

// Entry is one accepted upload queued for appending to a collection.
type Entry struct {
	MediaID uuid.UUID
	URL     string
}

// Item is one positioned element of a collection as exposed to callers.
type Item struct {
	MediaID  uuid.UUID `json:"media_id"`
	URL      string    `json:"url"`
	Position int       `json:"position"`
}

// Service owns the ordered media collections attached to announcements.
// Position 0 is the cover item for every downstream consumer.
type Service interface {
	List(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot) ([]Item, error)
	Append(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, entries []Entry) error
	Remove(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, index int) (Item, error)
	Reorder(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, urls []string) error
}

type service struct {
	repo     collectionRepo
	maxItems int
}

// NewService constructs the collection service. maxItems bounds collection
// growth across batches.
func NewService(repo collectionRepo, maxItems int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("collection repository required")
	}
	if maxItems <= 0 {
		return nil, fmt.Errorf("max items must be positive")
	}
	return &service{repo: repo, maxItems: maxItems}, nil
}

func (s *service) List(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot) ([]Item, error) {
	records, err := s.repo.List(ctx, announcementID, slot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing collection")
	}
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, Item{MediaID: rec.MediaID, URL: rec.URL, Position: rec.Position})
	}
	return items, nil
}

// Append adds entries at the end in arrival order.
func (s *service) Append(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	current, err := s.repo.List(ctx, announcementID, slot)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing collection")
	}
	if len(current)+len(entries) > s.maxItems {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("collection limited to %d items", s.maxItems))
	}

	for _, entry := range entries {
		current = append(current, models.MediaItem{
			MediaID: entry.MediaID,
			URL:     entry.URL,
		})
	}
	if err := s.repo.Replace(ctx, announcementID, slot, current); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "appending to collection")
	}
	return nil
}

// Remove deletes the item at index; later items shift down. The removed item
// is returned so callers can request storage cleanup.
func (s *service) Remove(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, index int) (Item, error) {
	current, err := s.repo.List(ctx, announcementID, slot)
	if err != nil {
		return Item{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing collection")
	}
	if index < 0 || index >= len(current) {
		return Item{}, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("no media item at index %d", index))
	}

	removed := current[index]
	remaining := append(current[:index:index], current[index+1:]...)
	if err := s.repo.Replace(ctx, announcementID, slot, remaining); err != nil {
		return Item{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing from collection")
	}
	return Item{MediaID: removed.MediaID, URL: removed.URL, Position: removed.Position}, nil
}

// Reorder replaces the full ordering. The new list must be a permutation of
// the current multiset of URLs.
func (s *service) Reorder(ctx context.Context, announcementID uuid.UUID, slot enums.MediaSlot, urls []string) error {
	current, err := s.repo.List(ctx, announcementID, slot)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing collection")
	}
	if len(urls) != len(current) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("reorder expects %d urls, got %d", len(current), len(urls)))
	}

	// Consume current items url by url so duplicate URLs keep their
	// one-to-one pairing.
	pool := make(map[string][]models.MediaItem, len(current))
	for _, item := range current {
		pool[item.URL] = append(pool[item.URL], item)
	}

	reordered := make([]models.MediaItem, 0, len(urls))
	for _, url := range urls {
		candidates := pool[url]
		if len(candidates) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("url %q is not part of the collection", url))
		}
		reordered = append(reordered, candidates[0])
		pool[url] = candidates[1:]
	}

	if err := s.repo.Replace(ctx, announcementID, slot, reordered); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reordering collection")
	}
	return nil
}

// CoverURL returns the designated cover for a collection listing, or empty
// when the collection has no items.
func CoverURL(items []Item) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].URL
}
