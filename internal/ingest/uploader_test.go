package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
)

type fakeStore struct {
	calls    int
	failures int
	keys     []string
}

func (f *fakeStore) PutObject(_ context.Context, key, _, _ string, _ []byte) error {
	f.calls++
	f.keys = append(f.keys, key)
	if f.calls <= f.failures {
		return fmt.Errorf("storage unavailable")
	}
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func fastRetryProfile(maxRetries int) Profile {
	p := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)
	p.MaxRetries = maxRetries
	p.RetryDelay = time.Millisecond
	return p
}

func newTestUploader(t *testing.T, store *fakeStore) *Uploader {
	t.Helper()

	up, err := NewUploader(store, "announcements/media", "public, max-age=31536000", discardLogger())
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}
	return up
}

func TestUploadResolvesPublicURL(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	up := newTestUploader(t, store)

	processed := ProcessedFile{Name: "photo.webp", MimeType: "image/webp", Data: []byte("blob")}
	res, err := up.Upload(context.Background(), processed, fastRetryProfile(2))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !strings.HasPrefix(res.Key, "announcements/media/") {
		t.Errorf("key = %q, want prefix announcements/media/", res.Key)
	}
	if !strings.HasSuffix(res.Key, ".webp") {
		t.Errorf("key = %q, want .webp extension preserved", res.Key)
	}
	if res.URL != "https://cdn.example.com/"+res.Key {
		t.Errorf("url = %q", res.URL)
	}
	if store.calls != 1 {
		t.Errorf("backend called %d times, want 1", store.calls)
	}
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 2}
	up := newTestUploader(t, store)

	processed := ProcessedFile{Name: "photo.jpg", MimeType: "image/jpeg", Data: []byte("blob")}
	res, err := up.Upload(context.Background(), processed, fastRetryProfile(2))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.URL == "" {
		t.Error("expected resolved url")
	}
	if store.calls != 3 {
		t.Errorf("backend called %d times, want exactly 3", store.calls)
	}
}

func TestUploadExhaustsRetries(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 100}
	up := newTestUploader(t, store)

	processed := ProcessedFile{Name: "photo.jpg", MimeType: "image/jpeg", Data: []byte("blob")}
	_, err := up.Upload(context.Background(), processed, fastRetryProfile(2))
	if !pkgerrors.IsCode(err, pkgerrors.CodeUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if store.calls != 3 {
		t.Errorf("backend called %d times, want 3 (1 + 2 retries)", store.calls)
	}
}

func TestUploadRandomizesKeyPerAttempt(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 1}
	up := newTestUploader(t, store)

	processed := ProcessedFile{Name: "photo.jpg", MimeType: "image/jpeg", Data: []byte("blob")}
	if _, err := up.Upload(context.Background(), processed, fastRetryProfile(2)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(store.keys) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(store.keys))
	}
	if store.keys[0] == store.keys[1] {
		t.Error("attempts reused the same object key")
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	up := newTestUploader(t, &fakeStore{})
	_, err := up.Upload(context.Background(), ProcessedFile{Name: "x.jpg"}, fastRetryProfile(1))
	if !pkgerrors.IsCode(err, pkgerrors.CodeUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
}
