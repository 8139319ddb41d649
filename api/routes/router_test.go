package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/openannounce/announce-backend/internal/announcements"
	"github.com/openannounce/announce-backend/internal/ingest"
	"github.com/openannounce/announce-backend/internal/media"
	"github.com/openannounce/announce-backend/pkg/config"
	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
)

type noopAnnouncements struct{}

func (noopAnnouncements) Create(context.Context, announcements.CreateAnnouncementInput) (*announcements.AnnouncementDTO, error) {
	return &announcements.AnnouncementDTO{}, nil
}

func (noopAnnouncements) GetByID(context.Context, uuid.UUID) (*announcements.AnnouncementDTO, error) {
	return &announcements.AnnouncementDTO{}, nil
}

func (noopAnnouncements) Update(context.Context, uuid.UUID, announcements.UpdateAnnouncementInput) (*announcements.AnnouncementDTO, error) {
	return &announcements.AnnouncementDTO{}, nil
}

func (noopAnnouncements) List(context.Context, int, int) ([]announcements.AnnouncementDTO, error) {
	return nil, nil
}

func (noopAnnouncements) Delete(context.Context, uuid.UUID) error { return nil }

type noopMedia struct{}

func (noopMedia) UploadBatch(context.Context, uuid.UUID, enums.MediaSlot, ingest.Profile, []ingest.MediaFile) (*media.BatchOutput, error) {
	return &media.BatchOutput{}, nil
}

func (noopMedia) Progress(context.Context, string) (*ingest.Progress, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown batch")
}

func (noopMedia) RemoveAt(context.Context, uuid.UUID, enums.MediaSlot, int) error { return nil }

func (noopMedia) Reorder(context.Context, uuid.UUID, enums.MediaSlot, []string) error { return nil }

func newTestRouter() http.Handler {
	cfg := &config.Config{
		App:    config.AppConfig{Env: "test"},
		Ingest: config.IngestConfig{MaxUploadMB: 5},
	}
	return NewRouter(cfg, nil, Deps{
		Announcements: noopAnnouncements{},
		Media:         noopMedia{},
	})
}

func TestRouterServesHealthEndpoints(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestRouterServesMetrics(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", w.Code)
	}
}

func TestRouterRoutesAnnouncementPaths(t *testing.T) {
	router := newTestRouter()
	id := uuid.NewString()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/ping", http.StatusOK},
		{http.MethodGet, "/api/v1/announcements/", http.StatusOK},
		{http.MethodGet, "/api/v1/announcements/" + id, http.StatusOK},
		{http.MethodDelete, "/api/v1/announcements/" + id, http.StatusOK},
		{http.MethodDelete, "/api/v1/announcements/" + id + "/media/0", http.StatusOK},
		{http.MethodGet, "/api/v1/uploads/some-batch/progress", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}
}
