package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
)

type capturingProgress struct {
	snapshots []Progress
}

func (c *capturingProgress) Publish(_ context.Context, p Progress) {
	c.snapshots = append(c.snapshots, p)
}

func (c *capturingProgress) last() Progress {
	if len(c.snapshots) == 0 {
		return Progress{}
	}
	return c.snapshots[len(c.snapshots)-1]
}

func newTestOrchestrator(t *testing.T, store *fakeStore, remote *fakeRemote, progress *capturingProgress, dedup bool) *Orchestrator {
	t.Helper()

	conv := newTestConverter(t, remote)
	up := newTestUploader(t, store)
	orch, err := NewOrchestrator(conv, up, progress, nil, discardLogger(), dedup)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch
}

func jpegFile(t *testing.T, name string, w, h int) MediaFile {
	t.Helper()
	return MediaFile{Name: name, MimeType: "image/jpeg", Data: encodeTestJPEG(t, w, h)}
}

func TestRunUploadsAllValidFiles(t *testing.T) {
	t.Parallel()

	progress := &capturingProgress{}
	orch := newTestOrchestrator(t, &fakeStore{}, &fakeRemote{}, progress, false)

	input := BatchInput{
		BatchID: "batch-a",
		Profile: ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast),
		Files: []MediaFile{
			jpegFile(t, "one.jpg", 100, 80),
			jpegFile(t, "two.jpg", 200, 160),
			jpegFile(t, "three.jpg", 300, 240),
		},
	}

	result, err := orch.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Uploaded() != 3 {
		t.Errorf("uploaded = %d, want 3", result.Uploaded())
	}
	for _, o := range result.Outcomes {
		if o.URL == "" {
			t.Errorf("file %s has no url", o.FileName)
		}
	}
	final := progress.last()
	if final.State != BatchStateCompleted {
		t.Errorf("final state = %q", final.State)
	}
	if final.Message != "3 of 3 uploaded" {
		t.Errorf("message = %q", final.Message)
	}
}

func TestRunPartialFailureNamesFile(t *testing.T) {
	t.Parallel()

	progress := &capturingProgress{}
	orch := newTestOrchestrator(t, &fakeStore{}, &fakeRemote{}, progress, false)

	input := BatchInput{
		BatchID: "batch-b",
		Profile: ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast),
		Files: []MediaFile{
			jpegFile(t, "good-one.jpg", 100, 80),
			{Name: "corrupt.jpg", MimeType: "image/jpeg", Data: []byte("garbage")},
			jpegFile(t, "good-two.jpg", 200, 160),
		},
	}

	result, err := orch.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("partial success must not return a batch error: %v", err)
	}
	if result.Uploaded() != 2 {
		t.Errorf("uploaded = %d, want 2", result.Uploaded())
	}

	var failed *FileOutcome
	for i := range result.Outcomes {
		if !result.Outcomes[i].Succeeded() {
			failed = &result.Outcomes[i]
		}
	}
	if failed == nil {
		t.Fatal("expected one failed outcome")
	}
	if failed.FileName != "corrupt.jpg" {
		t.Errorf("failed file = %q", failed.FileName)
	}
	if !strings.Contains(failed.Warning, "corrupt.jpg") {
		t.Errorf("warning %q does not name the file", failed.Warning)
	}
	if progress.last().Message != "2 of 3 uploaded" {
		t.Errorf("message = %q", progress.last().Message)
	}
}

func TestRunZeroSuccessesIsBatchFailure(t *testing.T) {
	t.Parallel()

	progress := &capturingProgress{}
	orch := newTestOrchestrator(t, &fakeStore{}, &fakeRemote{}, progress, false)

	input := BatchInput{
		BatchID: "batch-z",
		Profile: ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast),
		Files: []MediaFile{
			{Name: "junk.bin", MimeType: "application/octet-stream", Data: []byte("x")},
			{Name: "broken.jpg", MimeType: "image/jpeg", Data: []byte("y")},
		},
	}

	result, err := orch.Run(context.Background(), input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeBatchFailed) {
		t.Fatalf("expected batch failure, got %v", err)
	}
	if result.Uploaded() != 0 {
		t.Errorf("uploaded = %d, want 0", result.Uploaded())
	}
	if progress.last().State != BatchStateFailed {
		t.Errorf("final state = %q", progress.last().State)
	}
}

func TestRunRetriesUploadThenSucceeds(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 2}
	progress := &capturingProgress{}
	conv := newTestConverter(t, &fakeRemote{})
	up := newTestUploader(t, store)
	orch, err := NewOrchestrator(conv, up, progress, nil, discardLogger(), false)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	input := BatchInput{
		BatchID: "batch-d",
		Profile: fastRetryProfile(2),
		Files:   []MediaFile{jpegFile(t, "flaky.jpg", 100, 80)},
	}

	result, runErr := orch.Run(context.Background(), input)
	if runErr != nil {
		t.Fatalf("run: %v", runErr)
	}
	if result.Uploaded() != 1 {
		t.Errorf("uploaded = %d, want 1", result.Uploaded())
	}
	if store.calls != 3 {
		t.Errorf("backend called %d times, want exactly 3", store.calls)
	}
}

func TestRunEnforcesBatchCap(t *testing.T) {
	t.Parallel()

	progress := &capturingProgress{}
	orch := newTestOrchestrator(t, &fakeStore{}, &fakeRemote{}, progress, false)

	profile := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)
	profile.BatchCap = 3

	files := make([]MediaFile, 0, 6)
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"} {
		files = append(files, jpegFile(t, name, 60, 40))
	}

	result, err := orch.Run(context.Background(), BatchInput{BatchID: "batch-f", Profile: profile, Files: files})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Capped {
		t.Error("expected capped batch")
	}
	if result.Requested != 6 || result.Accepted != 3 {
		t.Errorf("requested/accepted = %d/%d, want 6/3", result.Requested, result.Accepted)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(result.Outcomes))
	}
	for i, want := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if result.Outcomes[i].FileName != want {
			t.Errorf("outcome %d = %q, want %q (first files win)", i, result.Outcomes[i].FileName, want)
		}
	}
}

func TestRunSkipsDuplicateImages(t *testing.T) {
	t.Parallel()

	progress := &capturingProgress{}
	orch := newTestOrchestrator(t, &fakeStore{}, &fakeRemote{}, progress, true)

	same := jpegFile(t, "first.jpg", 100, 80)
	dupe := MediaFile{Name: "second.jpg", MimeType: "image/jpeg", Data: same.Data}

	result, err := orch.Run(context.Background(), BatchInput{
		BatchID: "batch-dup",
		Profile: ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast),
		Files:   []MediaFile{same, dupe},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Uploaded() != 1 {
		t.Fatalf("uploaded = %d, want 1", result.Uploaded())
	}
	second := result.Outcomes[1]
	if second.Succeeded() {
		t.Error("duplicate should have been skipped")
	}
	if !pkgerrors.IsCode(second.Err, pkgerrors.CodeConflict) {
		t.Errorf("duplicate error = %v", second.Err)
	}
}

func TestRunProgressMovesForward(t *testing.T) {
	t.Parallel()

	progress := &capturingProgress{}
	orch := newTestOrchestrator(t, &fakeStore{}, &fakeRemote{}, progress, false)

	_, err := orch.Run(context.Background(), BatchInput{
		BatchID: "batch-p",
		Profile: ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast),
		Files: []MediaFile{
			jpegFile(t, "one.jpg", 100, 80),
			jpegFile(t, "two.jpg", 100, 80),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	prev := -1
	for _, snap := range progress.snapshots {
		if snap.Percent < prev {
			t.Fatalf("progress went backwards: %d after %d", snap.Percent, prev)
		}
		prev = snap.Percent
	}
	if progress.last().Percent != 100 {
		t.Errorf("final percent = %d", progress.last().Percent)
	}
}
