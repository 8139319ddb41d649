package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
	"github.com/openannounce/announce-backend/pkg/metrics"
)

// Sub-phase weights for the advisory percentage: conversion dominates
// wall-clock time for large images, upload takes the rest.
const (
	convertPhaseWeight = 0.6
	uploadPhaseWeight  = 0.4
)

type fileConverter interface {
	Convert(ctx context.Context, file MediaFile, class enums.FileClass, profile Profile) (ProcessedFile, error)
}

type fileUploader interface {
	Upload(ctx context.Context, processed ProcessedFile, profile Profile) (UploadResult, error)
}

type progressPublisher interface {
	Publish(ctx context.Context, progress Progress)
}

// BatchInput describes one batch run. KnownHashes carries the perceptual
// hashes already present in the target collection so duplicates get skipped.
type BatchInput struct {
	BatchID     string
	Files       []MediaFile
	Profile     Profile
	KnownHashes []string
}

// Orchestrator drains a batch sequentially, one file fully through
// classify, convert and upload before the next starts. Serial on purpose:
// peak memory stays bounded to a single decoded image.
type Orchestrator struct {
	converter fileConverter
	uploader  fileUploader
	progress  progressPublisher
	metrics   *metrics.IngestMetrics
	logg      *logger.Logger
	dedup     bool
}

// NewOrchestrator wires the batch pipeline.
func NewOrchestrator(converter fileConverter, uploader fileUploader, progress progressPublisher, m *metrics.IngestMetrics, logg *logger.Logger, dedup bool) (*Orchestrator, error) {
	if converter == nil {
		return nil, fmt.Errorf("converter required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	if progress == nil {
		return nil, fmt.Errorf("progress publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Orchestrator{
		converter: converter,
		uploader:  uploader,
		progress:  progress,
		metrics:   m,
		logg:      logg,
		dedup:     dedup,
	}, nil
}

// Run processes a batch to completion. Per-file failures are collected, not
// propagated; the returned error is non-nil only when no file succeeded.
func (o *Orchestrator) Run(ctx context.Context, input BatchInput) (BatchResult, error) {
	ctx = o.logg.WithBatchID(ctx, input.BatchID)

	result := BatchResult{
		BatchID:   input.BatchID,
		Requested: len(input.Files),
	}

	files := input.Files
	if limit := input.Profile.BatchCap; limit > 0 && len(files) > limit {
		o.logg.Warn(o.logg.WithFields(ctx, map[string]any{
			"selected": len(files),
			"cap":      limit,
		}), "batch exceeds file cap, excess dropped")
		files = files[:limit]
		result.Capped = true
	}
	result.Accepted = len(files)

	o.progress.Publish(ctx, Progress{
		BatchID:    input.BatchID,
		State:      BatchStatePreparing,
		TotalFiles: len(files),
	})

	known := append([]string(nil), input.KnownHashes...)

	for i, file := range files {
		outcome := o.processFile(ctx, input, files, i, file, known)
		if outcome.Succeeded() {
			o.metrics.IncFile("uploaded")
			o.metrics.AddUploadedBytes(int(outcome.Size))
			if outcome.Hash != "" {
				known = append(known, outcome.Hash)
			}
		} else {
			o.metrics.IncFile("failed")
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return o.finish(ctx, input, result)
}

func (o *Orchestrator) processFile(ctx context.Context, input BatchInput, files []MediaFile, i int, file MediaFile, known []string) FileOutcome {
	ctx = o.logg.WithFileName(ctx, file.Name)
	outcome := FileOutcome{FileName: file.Name}

	o.publishPhase(ctx, input.BatchID, BatchStateProcessing, i, len(files), file.Name, 0)

	class, err := Classify(file.MimeType, file.Name)
	if err != nil {
		o.logg.Warn(ctx, "unsupported file skipped")
		outcome.Err = err
		outcome.Warning = fmt.Sprintf("%s: unsupported file type", file.Name)
		return outcome
	}
	outcome.Class = class

	convertStart := time.Now()
	processed, err := o.converter.Convert(ctx, file, class, input.Profile)
	o.metrics.ObserveStage("convert", time.Since(convertStart))
	if err != nil {
		o.logg.Error(ctx, "conversion failed, file skipped", err)
		outcome.Err = err
		outcome.Warning = fmt.Sprintf("%s: conversion failed", file.Name)
		return outcome
	}

	if o.dedup && class != enums.FileClassVideo {
		outcome.Hash = PerceptualHash(processed.Data)
		if IsDuplicateHash(outcome.Hash, known) {
			o.logg.Warn(ctx, "duplicate image skipped")
			outcome.Err = pkgerrors.New(pkgerrors.CodeConflict, "duplicate of an image already in the collection")
			outcome.Warning = fmt.Sprintf("%s: already in the collection", file.Name)
			return outcome
		}
	}

	o.publishPhase(ctx, input.BatchID, BatchStateUploading, i, len(files), file.Name, convertPhaseWeight)

	uploadStart := time.Now()
	res, err := o.uploader.Upload(ctx, processed, input.Profile)
	o.metrics.ObserveStage("upload", time.Since(uploadStart))
	if err != nil {
		o.logg.Error(ctx, "upload failed, file skipped", err)
		outcome.Err = err
		outcome.Warning = fmt.Sprintf("%s: upload failed", file.Name)
		return outcome
	}

	outcome.URL = res.URL
	outcome.GCSKey = res.Key
	outcome.MimeType = processed.MimeType
	outcome.Size = int64(len(processed.Data))
	outcome.Width = processed.Width
	outcome.Height = processed.Height
	return outcome
}

func (o *Orchestrator) finish(ctx context.Context, input BatchInput, result BatchResult) (BatchResult, error) {
	uploaded := result.Uploaded()

	if result.Accepted > 0 && uploaded == 0 {
		var combined error
		for _, outcome := range result.Outcomes {
			combined = multierr.Append(combined, outcome.Err)
		}
		err := pkgerrors.Wrap(pkgerrors.CodeBatchFailed, combined, "no files uploaded")
		o.metrics.IncBatch("failed")
		o.progress.Publish(ctx, Progress{
			BatchID:    input.BatchID,
			State:      BatchStateFailed,
			TotalFiles: result.Accepted,
			Percent:    100,
			Message:    "no files uploaded",
		})
		return result, err
	}

	outcome := "succeeded"
	if uploaded < result.Accepted {
		outcome = "partial"
	}
	o.metrics.IncBatch(outcome)

	o.progress.Publish(ctx, Progress{
		BatchID:    input.BatchID,
		State:      BatchStateCompleted,
		TotalFiles: result.Accepted,
		Percent:    100,
		Message:    fmt.Sprintf("%d of %d uploaded", uploaded, result.Accepted),
	})
	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"uploaded": uploaded,
		"accepted": result.Accepted,
		"capped":   result.Capped,
	}), "batch completed")

	return result, nil
}

func (o *Orchestrator) publishPhase(ctx context.Context, batchID string, state BatchState, index, total int, fileName string, phase float64) {
	percent := 0
	if total > 0 {
		percent = int((float64(index) + phase) / float64(total) * 100)
	}
	o.progress.Publish(ctx, Progress{
		BatchID:      batchID,
		State:        state,
		CurrentIndex: index,
		CurrentFile:  fileName,
		TotalFiles:   total,
		Percent:      percent,
	})
}
