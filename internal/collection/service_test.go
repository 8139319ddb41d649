package collection

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
)

func newTestService(t *testing.T, maxItems int) (Service, uuid.UUID) {
	t.Helper()

	svc, err := NewService(NewRepository(setupCollectionTestDB(t)), maxItems)
	require.NoError(t, err)
	return svc, uuid.New()
}

func urlsOf(items []Item) []string {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	return urls
}

func TestAppendPreservesArrivalOrder(t *testing.T) {
	svc, announcementID := newTestService(t, 30)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/a.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/b.webp"},
	}))
	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/c.webp"},
	}))

	items, err := svc.List(ctx, announcementID, enums.MediaSlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.webp", "https://cdn/b.webp", "https://cdn/c.webp"}, urlsOf(items))
}

func TestAppendEnforcesMaxItems(t *testing.T) {
	svc, announcementID := newTestService(t, 2)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/a.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/b.webp"},
	}))

	err := svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/c.webp"},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRemoveAppendRoundTrip(t *testing.T) {
	svc, announcementID := newTestService(t, 30)
	ctx := context.Background()

	base := []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/a.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/b.webp"},
	}
	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, base))

	extra := Entry{MediaID: uuid.New(), URL: "https://cdn/x.webp"}
	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{extra}))

	removed, err := svc.Remove(ctx, announcementID, enums.MediaSlotPrimary, 2)
	require.NoError(t, err)
	assert.Equal(t, extra.URL, removed.URL)

	items, err := svc.List(ctx, announcementID, enums.MediaSlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.webp", "https://cdn/b.webp"}, urlsOf(items))
}

func TestRemoveShiftsCover(t *testing.T) {
	svc, announcementID := newTestService(t, 30)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/A.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/B.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/C.webp"},
	}))

	removed, err := svc.Remove(ctx, announcementID, enums.MediaSlotPrimary, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/A.webp", removed.URL)

	items, err := svc.List(ctx, announcementID, enums.MediaSlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/B.webp", "https://cdn/C.webp"}, urlsOf(items))
	assert.Equal(t, "https://cdn/B.webp", CoverURL(items))
	assert.Equal(t, 0, items[0].Position)
}

func TestRemoveIndexOutOfRange(t *testing.T) {
	svc, announcementID := newTestService(t, 30)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/a.webp"},
	}))

	_, err := svc.Remove(ctx, announcementID, enums.MediaSlotPrimary, 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Remove(ctx, announcementID, enums.MediaSlotPrimary, -1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReorderIsPermutation(t *testing.T) {
	svc, announcementID := newTestService(t, 30)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/a.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/b.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/c.webp"},
	}))

	require.NoError(t, svc.Reorder(ctx, announcementID, enums.MediaSlotPrimary,
		[]string{"https://cdn/c.webp", "https://cdn/a.webp", "https://cdn/b.webp"}))

	items, err := svc.List(ctx, announcementID, enums.MediaSlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/c.webp", "https://cdn/a.webp", "https://cdn/b.webp"}, urlsOf(items))
	assert.Equal(t, "https://cdn/c.webp", CoverURL(items))
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	svc, announcementID := newTestService(t, 30)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: uuid.New(), URL: "https://cdn/a.webp"},
		{MediaID: uuid.New(), URL: "https://cdn/b.webp"},
	}))

	// wrong length
	err := svc.Reorder(ctx, announcementID, enums.MediaSlotPrimary, []string{"https://cdn/a.webp"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// unknown url
	err = svc.Reorder(ctx, announcementID, enums.MediaSlotPrimary,
		[]string{"https://cdn/a.webp", "https://cdn/z.webp"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// duplicate replacing a distinct entry
	err = svc.Reorder(ctx, announcementID, enums.MediaSlotPrimary,
		[]string{"https://cdn/a.webp", "https://cdn/a.webp"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// collection unchanged after rejected reorders
	items, listErr := svc.List(ctx, announcementID, enums.MediaSlotPrimary)
	require.NoError(t, listErr)
	assert.Equal(t, []string{"https://cdn/a.webp", "https://cdn/b.webp"}, urlsOf(items))
}

func TestReorderHandlesDuplicateURLs(t *testing.T) {
	svc, announcementID := newTestService(t, 30)
	ctx := context.Background()

	dup := "https://cdn/same.webp"
	first := uuid.New()
	second := uuid.New()
	require.NoError(t, svc.Append(ctx, announcementID, enums.MediaSlotPrimary, []Entry{
		{MediaID: first, URL: dup},
		{MediaID: uuid.New(), URL: "https://cdn/other.webp"},
		{MediaID: second, URL: dup},
	}))

	require.NoError(t, svc.Reorder(ctx, announcementID, enums.MediaSlotPrimary,
		[]string{dup, dup, "https://cdn/other.webp"}))

	items, err := svc.List(ctx, announcementID, enums.MediaSlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{dup, dup, "https://cdn/other.webp"}, urlsOf(items))
}
