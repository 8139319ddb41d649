package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
	pkgredis "github.com/openannounce/announce-backend/pkg/redis"
)

// BatchState names the orchestrator's position in one batch run.
type BatchState string

const (
	BatchStateIdle       BatchState = "idle"
	BatchStatePreparing  BatchState = "preparing"
	BatchStateProcessing BatchState = "processing"
	BatchStateUploading  BatchState = "uploading"
	BatchStateCompleted  BatchState = "completed"
	BatchStateFailed     BatchState = "failed"
)

// Progress is the advisory snapshot published while a batch runs. Percent is
// an estimate blended from completed files and the current file's sub-phase,
// not a byte-level measure.
type Progress struct {
	BatchID      string     `json:"batch_id"`
	State        BatchState `json:"state"`
	CurrentIndex int        `json:"current_index"`
	CurrentFile  string     `json:"current_file,omitempty"`
	TotalFiles   int        `json:"total_files"`
	Percent      int        `json:"percent"`
	Message      string     `json:"message,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type progressBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	ProgressKey(batchID string) string
}

// ProgressStore persists batch progress snapshots in redis with a TTL, so
// abandoned batches age out on their own.
type ProgressStore struct {
	backend progressBackend
	ttl     time.Duration
	logg    *logger.Logger
}

// NewProgressStore constructs a redis-backed progress store.
func NewProgressStore(backend progressBackend, ttl time.Duration, logg *logger.Logger) (*ProgressStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("progress backend required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("progress ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ProgressStore{backend: backend, ttl: ttl, logg: logg}, nil
}

// Publish writes the latest snapshot. Publish failures are logged and
// swallowed; progress is advisory and must never fail a batch.
func (s *ProgressStore) Publish(ctx context.Context, progress Progress) {
	progress.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(progress)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "marshaling progress snapshot")
		return
	}
	if err := s.backend.Set(ctx, s.backend.ProgressKey(progress.BatchID), payload, s.ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "publishing progress snapshot")
	}
}

// Get returns the latest snapshot for a batch.
func (s *ProgressStore) Get(ctx context.Context, batchID string) (*Progress, error) {
	raw, err := s.backend.Get(ctx, s.backend.ProgressKey(batchID))
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading progress snapshot")
	}

	var progress Progress
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding progress snapshot")
	}
	return &progress, nil
}
