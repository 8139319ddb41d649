package ingest

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
)

type objectStore interface {
	PutObject(ctx context.Context, key, contentType, cacheControl string, data []byte) error
	PublicURL(key string) string
}

// UploadResult names the stored object and its public address.
type UploadResult struct {
	URL string
	Key string
}

// Uploader pushes processed files to object storage under randomized names,
// retrying per the active profile's budget.
type Uploader struct {
	store        objectStore
	prefix       string
	cacheControl string
	logg         *logger.Logger
}

// NewUploader constructs an uploader writing under the given key prefix.
func NewUploader(store objectStore, prefix, cacheControl string, logg *logger.Logger) (*Uploader, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if prefix == "" {
		return nil, fmt.Errorf("object prefix required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Uploader{
		store:        store,
		prefix:       strings.Trim(prefix, "/"),
		cacheControl: cacheControl,
		logg:         logg,
	}, nil
}

// Upload stores one processed file and resolves its public URL. Every attempt
// writes a fresh random key, so a name collision simply burns one retry.
func (u *Uploader) Upload(ctx context.Context, processed ProcessedFile, profile Profile) (UploadResult, error) {
	if len(processed.Data) == 0 {
		return UploadResult{}, pkgerrors.New(pkgerrors.CodeUpload, "empty processed file")
	}

	backoff := linearBackoff(profile.RetryDelay)
	backoff = retry.WithMaxRetries(uint64(profile.MaxRetries), backoff)

	var key string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		key = u.objectKey(processed.Name)
		if err := u.store.PutObject(ctx, key, processed.MimeType, u.cacheControl, processed.Data); err != nil {
			fields := map[string]any{"gcs_key": key, "error": err.Error()}
			u.logg.Warn(u.logg.WithFields(ctx, fields), "object put failed, will retry")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return UploadResult{}, pkgerrors.Wrap(pkgerrors.CodeUpload, err,
			fmt.Sprintf("upload failed after %d retries", profile.MaxRetries))
	}

	return UploadResult{URL: u.store.PublicURL(key), Key: key}, nil
}

func (u *Uploader) objectKey(fileName string) string {
	ext := path.Ext(fileName)
	return path.Join(u.prefix, uuid.NewString()+ext)
}

// linearBackoff scales the base delay by the attempt number.
func linearBackoff(delay time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * delay, false
	})
}
