// Package service assembles the feedback explorer from its controllers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/ingest"
	"feedbackexplorer/internal/session"
	"feedbackexplorer/internal/status"
)

// ErrBackendUnavailable means the initial status fetch failed, so nothing is
// known about the data and the conversation cannot be entered.
var ErrBackendUnavailable = errors.New("feedback service unavailable")

// API is everything the explorer needs from the remote feedback service.
type API interface {
	status.Fetcher
	ingest.Uploader
	session.Querier
}

// Options tunes the assembled components.
type Options struct {
	BatchSize       int
	TopK            int
	GenerateSummary bool
}

// Explorer wires the status tracker, ingest controller and conversation
// session around one API client.
type Explorer struct {
	Tracker *status.Tracker
	Ingest  *ingest.Controller
	Session *session.Session

	logger *zap.Logger
}

// NewExplorer builds the components. Nothing is fetched until Start.
func NewExplorer(api API, opts Options, logger *zap.Logger) *Explorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	tracker := status.NewTracker(api, logger)
	return &Explorer{
		Tracker: tracker,
		Ingest:  ingest.NewController(api, tracker, opts.BatchSize, logger),
		Session: session.New(api, session.Options{
			TopK:            opts.TopK,
			GenerateSummary: opts.GenerateSummary,
			Gate:            tracker,
			Logger:          logger,
		}),
		logger: logger,
	}
}

// Start performs the initial status fetch. Its failure is terminal.
func (e *Explorer) Start(ctx context.Context) error {
	stats, err := e.Tracker.Refresh(ctx)
	if err != nil {
		e.logger.Error("initial status fetch failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	e.logger.Info("explorer started",
		zap.Int("total_entries", stats.TotalEntries),
		zap.Bool("data_loaded", e.Tracker.DataLoaded()))
	return nil
}

// DataLoaded reports whether the conversation is unlocked.
func (e *Explorer) DataLoaded() bool { return e.Tracker.DataLoaded() }

// Upload selects the file at path and submits it, blocking until done.
// A non-positive batchSize keeps the configured default.
func (e *Explorer) Upload(ctx context.Context, path string, batchSize int) (domain.UploadJob, error) {
	file, err := domain.FileFromPath(path)
	if err != nil {
		return domain.UploadJob{}, fmt.Errorf("open upload: %w", err)
	}
	if err := e.Ingest.SelectFile(file); err != nil {
		return e.Ingest.Job(), err
	}
	if batchSize > 0 {
		e.Ingest.SetBatchSize(strconv.Itoa(batchSize))
	}
	return e.Ingest.Submit(ctx)
}

// Ask submits question and waits for its terminal turn.
func (e *Explorer) Ask(ctx context.Context, question string) (domain.Turn, error) {
	ch, err := e.Session.Submit(ctx, question)
	if err != nil {
		return domain.Turn{}, err
	}
	select {
	case turn := <-ch:
		return turn, nil
	case <-ctx.Done():
		// The query goroutine observes the same context and will still
		// append its error turn.
		return domain.Turn{}, ctx.Err()
	}
}
