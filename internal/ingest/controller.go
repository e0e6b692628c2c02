// Package ingest drives a single CSV upload from file selection to its
// terminal outcome.
package ingest

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/observer"
)

// DefaultBatchSize is used when the caller passes a non-positive default.
const DefaultBatchSize = 32

var (
	// ErrNoFile is returned by Submit when no valid file is selected.
	ErrNoFile = domain.ValidationError("ingest", "please select a file first")
	// ErrUploadInFlight is returned when an action arrives mid-upload.
	ErrUploadInFlight = domain.ValidationError("ingest", "an upload is already in progress")
)

// Uploader is the subset of the API gateway the controller needs.
type Uploader interface {
	Ingest(ctx context.Context, file domain.UploadFile, batchSize int) (domain.IngestResult, error)
}

// StatusRefresher is told about successful ingests.
type StatusRefresher interface {
	MarkAvailable()
	Refresh(ctx context.Context) (domain.VectorStoreStats, error)
}

// Controller owns the current UploadJob.
type Controller struct {
	uploader Uploader
	status   StatusRefresher
	logger   *zap.Logger

	mu        sync.Mutex
	job       domain.UploadJob
	batchSize int

	observers observer.Set[domain.UploadJob]
}

// NewController creates a controller in the Idle state.
func NewController(uploader Uploader, status StatusRefresher, batchSize int, logger *zap.Logger) *Controller {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		uploader:  uploader,
		status:    status,
		logger:    logger.Named("ingest"),
		batchSize: batchSize,
		job:       domain.UploadJob{State: domain.UploadIdle, BatchSize: batchSize},
	}
}

// Job returns a snapshot of the current job.
func (c *Controller) Job() domain.UploadJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job
}

// BatchSize returns the batch size the next submission will use.
func (c *Controller) BatchSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batchSize
}

// Subscribe registers fn for every job change.
func (c *Controller) Subscribe(fn func(domain.UploadJob)) (unsubscribe func()) {
	return c.observers.Subscribe(fn)
}

// SelectFile replaces the selection. A file without a csv extension is
// rejected locally and leaves the controller Idle with nothing selected.
func (c *Controller) SelectFile(file domain.UploadFile) error {
	c.mu.Lock()
	if c.job.State == domain.UploadUploading {
		c.mu.Unlock()
		return ErrUploadInFlight
	}
	var err error
	if file.IsCSV() {
		f := file
		c.job = domain.UploadJob{File: &f, BatchSize: c.batchSize, State: domain.UploadReady}
	} else {
		err = domain.ErrInvalidFileType
		c.job = domain.UploadJob{BatchSize: c.batchSize, State: domain.UploadIdle, Message: domain.Detail(err)}
	}
	job := c.job
	c.mu.Unlock()

	if err != nil {
		c.logger.Info("rejected file selection", zap.String("file", file.Name))
	} else {
		c.logger.Debug("file selected", zap.String("file", file.Name), zap.Int64("size", file.Size))
	}
	c.observers.Notify(job)
	return err
}

// SetBatchSize accepts any integer >= 1 while no upload runs. Anything else
// is ignored and the previous value kept. It reports whether input was taken.
func (c *Controller) SetBatchSize(input string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 {
		return false
	}
	c.mu.Lock()
	if c.job.State == domain.UploadUploading {
		c.mu.Unlock()
		return false
	}
	c.batchSize = n
	if !c.job.State.Terminal() {
		c.job.BatchSize = n
	}
	job := c.job
	c.mu.Unlock()

	c.observers.Notify(job)
	return true
}

// Submit uploads the selected file and blocks until the server answers.
// It returns the terminal job; the error is the upload failure, or
// ErrNoFile / ErrUploadInFlight when nothing was started.
func (c *Controller) Submit(ctx context.Context) (domain.UploadJob, error) {
	c.mu.Lock()
	if c.job.State == domain.UploadUploading {
		job := c.job
		c.mu.Unlock()
		return job, ErrUploadInFlight
	}
	if c.job.File == nil {
		c.job.Message = domain.Detail(ErrNoFile)
		job := c.job
		c.mu.Unlock()
		c.observers.Notify(job)
		return job, ErrNoFile
	}
	c.job = domain.UploadJob{
		ID:        uuid.NewString(),
		File:      c.job.File,
		BatchSize: c.batchSize,
		State:     domain.UploadUploading,
		Message:   "Uploading file and processing data...",
		StartedAt: time.Now(),
	}
	job := c.job
	c.mu.Unlock()

	log := c.logger.With(zap.String("job_id", job.ID), zap.String("file", job.File.Name))
	log.Info("upload started", zap.Int("batch_size", job.BatchSize))
	c.observers.Notify(job)

	res, err := c.uploader.Ingest(ctx, *job.File, job.BatchSize)

	c.mu.Lock()
	c.job.FinishedAt = time.Now()
	if err != nil {
		c.job.State = domain.UploadFailed
		c.job.Message = domain.Detail(err)
	} else {
		c.job.State = domain.UploadSucceeded
		c.job.Message = "Success! " + res.Message
		c.job.Stats = &domain.UploadStats{Total: res.TotalEntries, Processed: res.ProcessedEntries}
	}
	job = c.job
	c.mu.Unlock()

	if err != nil {
		log.Warn("upload failed", zap.Error(err), zap.Duration("elapsed", job.FinishedAt.Sub(job.StartedAt)))
		c.observers.Notify(job)
		return job, err
	}

	log.Info("upload succeeded",
		zap.Int("total_entries", res.TotalEntries),
		zap.Int("processed_entries", res.ProcessedEntries),
		zap.Duration("elapsed", job.FinishedAt.Sub(job.StartedAt)))
	if res.ProcessedEntries > 0 {
		c.status.MarkAvailable()
	}
	c.observers.Notify(job)

	// The ingest response already established availability, so a failed
	// refresh only leaves the stats stale.
	if _, rerr := c.status.Refresh(ctx); rerr != nil {
		log.Warn("status refresh after ingest failed", zap.Error(rerr))
	}
	return job, nil
}
