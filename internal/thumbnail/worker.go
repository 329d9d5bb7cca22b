package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/filedepot/filedepot/internal/catalog"
	"github.com/filedepot/filedepot/internal/common"
	"github.com/filedepot/filedepot/internal/storage"
	"github.com/filedepot/filedepot/pkg/config"
	"github.com/filedepot/filedepot/pkg/types"
)

// VariantWidths are the fixed pixel widths derived for every image.
var VariantWidths = []int{500, 250, 100}

// fatalError marks a failure that retrying can never fix.
type fatalError struct {
	reason string
}

func (e *fatalError) Error() string {
	return e.reason
}

func fatal(reason string) error {
	return &fatalError{reason: reason}
}

// Worker drains the queue and populates size variants. Failures never
// propagate to the client that triggered the upload; they end up in the
// job record and the log.
type Worker struct {
	queue   Queue
	db      *common.Database
	blobs   storage.BlobStore
	catalog *catalog.Service
	cfg     config.WorkerConfig
}

// NewWorker creates a worker over the given queue and stores.
func NewWorker(queue Queue, db *common.Database, blobs storage.BlobStore, cat *catalog.Service, cfg config.WorkerConfig) *Worker {
	return &Worker{queue: queue, db: db, blobs: blobs, catalog: cat, cfg: cfg}
}

// Run starts the worker pool and blocks until ctx is cancelled and all
// workers have drained.
func (w *Worker) Run(ctx context.Context) {
	count := w.cfg.Count
	if count < 1 {
		count = 1
	}

	log.Info().Int("workers", count).Msg("starting thumbnail workers")

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug().Int("worker", id).Msg("thumbnail worker stopping")
				return
			}
			log.Error().Err(err).Int("worker", id).Msg("failed to dequeue job")
			continue
		}
		w.Process(ctx, job)
	}
}

// Process runs a single job under the configured timeout and applies the
// retry policy. Exposed for the worker tests.
func (w *Worker) Process(ctx context.Context, job Job) {
	jobCtx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	attempt := job.Attempt + 1
	w.updateJob(ctx, job.ID, types.JobProcessing, attempt, "")

	err := w.derive(jobCtx, job)
	if err == nil {
		w.updateJob(ctx, job.ID, types.JobCompleted, attempt, "")
		log.Info().
			Str("job_id", job.ID.String()).
			Str("file_id", job.FileID.String()).
			Msg("thumbnails generated")
		return
	}

	var fe *fatalError
	if errors.As(err, &fe) {
		w.updateJob(ctx, job.ID, types.JobFailed, attempt, fe.reason)
		log.Error().
			Str("job_id", job.ID.String()).
			Str("file_id", job.FileID.String()).
			Str("reason", fe.reason).
			Msg("thumbnail job failed terminally")
		return
	}

	// A timed-out job is requeued like any transient failure.
	if attempt >= w.cfg.MaxRetries {
		w.updateJob(ctx, job.ID, types.JobFailed, attempt, err.Error())
		log.Error().Err(err).
			Str("job_id", job.ID.String()).
			Int("attempts", attempt).
			Msg("thumbnail job exhausted retries")
		return
	}

	w.updateJob(ctx, job.ID, types.JobQueued, attempt, err.Error())
	log.Warn().Err(err).
		Str("job_id", job.ID.String()).
		Int("attempt", attempt).
		Msg("thumbnail job failed, requeueing")

	w.backoff(ctx, attempt)
	job.Attempt = attempt
	if requeueErr := w.queue.Requeue(ctx, job); requeueErr != nil {
		w.updateJob(ctx, job.ID, types.JobFailed, attempt, requeueErr.Error())
		log.Error().Err(requeueErr).Str("job_id", job.ID.String()).Msg("failed to requeue job")
	}
}

// derive produces all variants or none: every width is resized and encoded
// before the first write, so a failed job never commits a partial set as
// success.
func (w *Worker) derive(ctx context.Context, job Job) error {
	if job.FileID == uuid.Nil {
		return fatal("Missing fileId")
	}
	if job.UserID == uuid.Nil {
		return fatal("Missing userId")
	}

	node, err := w.catalog.GetNodeForJob(ctx, job.FileID, job.UserID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fatal("File not found")
		}
		return fmt.Errorf("failed to load node: %w", err)
	}

	if node.Kind != types.KindImage {
		return fatal("File is not an image")
	}

	content, err := w.blobs.Read(ctx, node.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return fatal("File content not found")
		}
		return fmt.Errorf("failed to read original: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return fatal("File content is not a decodable image")
	}

	format, err := imaging.FormatFromExtension(filepath.Ext(node.Name))
	if err != nil {
		format = imaging.PNG
	}

	variants := make(map[int][]byte, len(VariantWidths))
	for _, width := range VariantWidths {
		resized := imaging.Resize(img, width, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, format); err != nil {
			return fmt.Errorf("failed to encode %dpx variant: %w", width, err)
		}
		variants[width] = buf.Bytes()
	}

	for _, width := range VariantWidths {
		if _, err := w.blobs.WriteVariant(ctx, node.StoragePath, width, variants[width]); err != nil {
			return fmt.Errorf("failed to write %dpx variant: %w", width, err)
		}
	}

	return nil
}

func (w *Worker) backoff(ctx context.Context, attempt int) {
	delay := w.cfg.RetryBackoff * time.Duration(attempt)
	if delay <= 0 {
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (w *Worker) updateJob(ctx context.Context, jobID uuid.UUID, status types.JobStatus, attempts int, lastError string) {
	err := w.db.WithContext(ctx).Model(&types.ThumbnailJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to update job record")
	}
}
