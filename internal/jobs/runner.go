package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fileforge/internal/models"
	"fileforge/internal/processor"
	"fileforge/internal/progress"
	"fileforge/internal/store"
)

type workItem struct {
	jobID     string
	historyID string
	inputPath string
	op        models.OperationType
	opts      Options
}

// Runner executes dispatched batches in the background. Files within a
// batch run sequentially; the semaphore bounds how many batches run at
// once. A file's failure never stops the rest of its batch.
type Runner struct {
	store      store.Store
	procs      processor.Set
	hub        *progress.Hub
	log        zerolog.Logger
	sem        chan struct{}
	jobTimeout time.Duration
	wg         sync.WaitGroup
}

// NewRunner bounds concurrency to maxBatches simultaneous batches. A
// jobTimeout of zero disables per-job deadlines.
func NewRunner(s store.Store, procs processor.Set, hub *progress.Hub, log zerolog.Logger, maxBatches int, jobTimeout time.Duration) *Runner {
	if maxBatches < 1 {
		maxBatches = 1
	}
	return &Runner{
		store:      s,
		procs:      procs,
		hub:        hub,
		log:        log,
		sem:        make(chan struct{}, maxBatches),
		jobTimeout: jobTimeout,
	}
}

// Dispatch schedules a batch and returns immediately.
func (r *Runner) Dispatch(batch []workItem) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		for _, item := range batch {
			r.runOne(item)
		}
	}()
}

// WaitIdle blocks until every dispatched batch has finished.
func (r *Runner) WaitIdle() {
	r.wg.Wait()
}

func (r *Runner) runOne(item workItem) {
	ctx := context.Background()
	if r.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.jobTimeout)
		defer cancel()
	}

	// Terminal-state writes must land even when the job context has
	// expired, otherwise a timed-out job is stranded in processing.
	writeCtx := context.WithoutCancel(ctx)

	log := r.log.With().Str("job_id", item.jobID).Str("operation", string(item.op)).Logger()

	if err := r.store.StartJob(ctx, item.jobID); err != nil {
		log.Error().Err(err).Msg("failed to start job")
		return
	}
	r.record(ctx, item.jobID, 0, startMessage(item.op))

	tracker := &progressTracker{runner: r, ctx: ctx, jobID: item.jobID}

	result, err := r.process(ctx, item, tracker.update)
	if err != nil {
		tracker.close()
		r.failJob(writeCtx, item, tracker.last, err)
		log.Warn().Err(err).Msg("job failed")
		return
	}
	tracker.close()

	if err := r.store.CompleteHistory(writeCtx, item.historyID, result.Filename, result.Path, result.Size, result.ProcessingTime); err != nil {
		log.Error().Err(err).Msg("failed to mark history completed")
	}
	if err := r.store.FinishJob(writeCtx, item.jobID, models.StatusCompleted, 100); err != nil {
		log.Error().Err(err).Msg("failed to mark job completed")
	}
	if len(result.Metadata) > 0 {
		if err := r.store.AddMetadata(writeCtx, item.historyID, result.Metadata); err != nil {
			log.Error().Err(err).Msg("failed to record metadata")
		}
	}
	r.record(writeCtx, item.jobID, 100, "Processing completed successfully")
	log.Info().Float64("seconds", result.ProcessingTime).Msg("job completed")
}

func (r *Runner) process(ctx context.Context, item workItem, onProgress processor.ProgressFunc) (*processor.Result, error) {
	switch opts := item.opts.(type) {
	case ConversionOptions:
		return r.procs.Converter.Convert(ctx, item.inputPath, opts.TargetFormat, onProgress)
	case CompressionOptions:
		return r.procs.Compressor.Compress(ctx, item.inputPath, opts.Level, opts.PreserveQuality, opts.RemoveMetadata, onProgress)
	case ExtractionOptions:
		return r.procs.Extractor.Extract(ctx, item.inputPath, opts.Mode, opts.IncludeMetadata, opts.Language, onProgress)
	case ArchiveOptions:
		return r.procs.Archive.ExtractArchive(ctx, item.inputPath, processor.ArchiveOptions{
			ExtractPath:       opts.ExtractPath,
			OverwriteExisting: opts.OverwriteExisting,
		}, onProgress)
	default:
		return nil, fmt.Errorf("no processor for operation %s", item.op)
	}
}

func (r *Runner) failJob(ctx context.Context, item workItem, lastProgress int, cause error) {
	if err := r.store.FailHistory(ctx, item.historyID, cause.Error()); err != nil {
		r.log.Error().Err(err).Str("job_id", item.jobID).Msg("failed to mark history failed")
	}
	if err := r.store.FinishJob(ctx, item.jobID, models.StatusFailed, lastProgress); err != nil {
		r.log.Error().Err(err).Str("job_id", item.jobID).Msg("failed to mark job failed")
	}
	r.record(ctx, item.jobID, lastProgress, fmt.Sprintf("Processing failed: %s", cause.Error()))
}

// record appends a log line and notifies subscribers. Persistence errors
// are logged and do not interrupt the job.
func (r *Runner) record(ctx context.Context, jobID string, pct int, message string) {
	if err := r.store.AppendJobLog(ctx, jobID, message); err != nil {
		r.log.Error().Err(err).Str("job_id", jobID).Msg("failed to append job log")
	}
	r.hub.Publish(progress.Update{JobID: jobID, Progress: pct, Message: message, Timestamp: time.Now()})
}

// progressTracker clamps reported progress to 0..100, keeps it monotonic,
// and drops callbacks once the job has reached a terminal state.
type progressTracker struct {
	runner *Runner
	ctx    context.Context
	jobID  string

	mu     sync.Mutex
	last   int
	closed bool
}

func (t *progressTracker) update(pct int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct < t.last {
		pct = t.last
	}
	t.last = pct

	// The store write stays under the lock so concurrent callbacks
	// cannot persist progress values out of order.
	if err := t.runner.store.SetJobProgress(t.ctx, t.jobID, pct); err != nil {
		t.runner.log.Error().Err(err).Str("job_id", t.jobID).Msg("failed to persist progress")
	}
	t.runner.record(t.ctx, t.jobID, pct, message)
}

func (t *progressTracker) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func startMessage(op models.OperationType) string {
	switch op {
	case models.OperationConversion:
		return "Starting conversion..."
	case models.OperationCompression:
		return "Starting compression..."
	case models.OperationExtraction:
		return "Starting text extraction..."
	case models.OperationArchiveExtraction:
		return "Starting archive extraction..."
	default:
		return "Starting processing..."
	}
}
