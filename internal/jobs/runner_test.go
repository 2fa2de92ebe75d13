package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileforge/internal/models"
	"fileforge/internal/processor"
	"fileforge/internal/progress"
	"fileforge/internal/store"
)

type fakeStep struct {
	pct int
	msg string
}

// scriptedProcessor serves all four operations with a scripted progress
// sequence. Inputs listed in failFor return their error after the script
// has run.
type scriptedProcessor struct {
	steps   []fakeStep
	failFor map[string]error

	mu    sync.Mutex
	calls []string
}

func (p *scriptedProcessor) run(inputPath string, onProgress processor.ProgressFunc) (*processor.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, inputPath)
	p.mu.Unlock()

	for _, s := range p.steps {
		if onProgress != nil {
			onProgress(s.pct, s.msg)
		}
	}
	if err, ok := p.failFor[inputPath]; ok {
		return nil, err
	}
	name := filepath.Base(inputPath) + "-out"
	return &processor.Result{
		Filename:       name,
		Path:           filepath.Join("/tmp/processed", name),
		Size:           42,
		ProcessingTime: 0.01,
	}, nil
}

func (p *scriptedProcessor) Convert(_ context.Context, inputPath, _ string, onProgress processor.ProgressFunc) (*processor.Result, error) {
	return p.run(inputPath, onProgress)
}

func (p *scriptedProcessor) Compress(_ context.Context, inputPath, _ string, _, _ bool, onProgress processor.ProgressFunc) (*processor.Result, error) {
	return p.run(inputPath, onProgress)
}

func (p *scriptedProcessor) Extract(_ context.Context, inputPath, _ string, _ bool, _ string, onProgress processor.ProgressFunc) (*processor.Result, error) {
	return p.run(inputPath, onProgress)
}

func (p *scriptedProcessor) ExtractArchive(_ context.Context, inputPath string, _ processor.ArchiveOptions, onProgress processor.ProgressFunc) (*processor.Result, error) {
	return p.run(inputPath, onProgress)
}

func newTestRunner(t *testing.T, proc *scriptedProcessor) (*Runner, *Dispatcher, *store.MemoryStore, *progress.Hub) {
	t.Helper()
	s := store.NewMemoryStore()
	hub := progress.NewHub()
	procs := processor.Set{Converter: proc, Compressor: proc, Extractor: proc, Archive: proc}
	runner := NewRunner(s, procs, hub, zerolog.Nop(), 2, 0)
	dispatcher := NewDispatcher(s, runner, zerolog.Nop())
	return runner, dispatcher, s, hub
}

func testFiles(n int) []FileInput {
	files := make([]FileInput, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, FileInput{
			OriginalName: fmt.Sprintf("file-%d.txt", i),
			StoredPath:   fmt.Sprintf("/tmp/uploads/file-%d.txt", i),
			Size:         100,
		})
	}
	return files
}

func TestRunnerCompletesBatch(t *testing.T) {
	proc := &scriptedProcessor{steps: []fakeStep{{10, "working"}, {80, "almost"}}}
	runner, dispatcher, s, _ := newTestRunner(t, proc)

	receipt, err := dispatcher.Dispatch(context.Background(), "", testFiles(2),
		CompressionOptions{Level: "medium", PreserveQuality: true})
	require.NoError(t, err)
	require.Len(t, receipt.Jobs, 2)

	runner.WaitIdle()

	for _, ref := range receipt.Jobs {
		job, err := s.GetJob(context.Background(), ref.JobID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, job.Status)
		assert.Equal(t, 100, job.Progress)
		require.NotEmpty(t, job.Logs)
		assert.Equal(t, "Starting compression...", job.Logs[0].Message)

		history, err := s.GetHistory(context.Background(), ref.HistoryID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, history.Status)
		require.NotNil(t, history.ProcessedPath)
		require.NotNil(t, history.ProcessedSize)
		assert.Equal(t, int64(42), *history.ProcessedSize)
		require.NotNil(t, history.ProcessingTime)
		assert.Nil(t, history.ErrorMessage)
	}
}

func TestRunnerFailureIsolation(t *testing.T) {
	proc := &scriptedProcessor{
		steps:   []fakeStep{{30, "working"}},
		failFor: map[string]error{"/tmp/uploads/file-1.txt": errors.New("corrupt input")},
	}
	runner, dispatcher, s, _ := newTestRunner(t, proc)

	receipt, err := dispatcher.Dispatch(context.Background(), "", testFiles(3),
		ExtractionOptions{Mode: "native"})
	require.NoError(t, err)

	runner.WaitIdle()

	// every file was attempted despite the middle failure
	proc.mu.Lock()
	assert.Len(t, proc.calls, 3)
	proc.mu.Unlock()

	for i, ref := range receipt.Jobs {
		job, err := s.GetJob(context.Background(), ref.JobID)
		require.NoError(t, err)
		history, err := s.GetHistory(context.Background(), ref.HistoryID)
		require.NoError(t, err)

		if i == 1 {
			assert.Equal(t, models.StatusFailed, job.Status)
			assert.Equal(t, 30, job.Progress)
			assert.Equal(t, models.StatusFailed, history.Status)
			require.NotNil(t, history.ErrorMessage)
			assert.Equal(t, "corrupt input", *history.ErrorMessage)
			assert.Nil(t, history.ProcessedPath)
		} else {
			assert.Equal(t, models.StatusCompleted, job.Status)
			assert.Equal(t, 100, job.Progress)
		}
	}
}

func TestRunnerProgressMonotonicAndClamped(t *testing.T) {
	proc := &scriptedProcessor{steps: []fakeStep{{150, "a"}, {-5, "b"}, {50, "c"}, {30, "d"}}}
	runner, _, s, hub := newTestRunner(t, proc)

	history := &models.FileHistory{
		ID:               "h1",
		OriginalFilename: "a.txt",
		OriginalPath:     "/tmp/uploads/a.txt",
		OperationType:    models.OperationExtraction,
		FileSize:         10,
		Status:           models.StatusPending,
	}
	require.NoError(t, s.CreateHistory(context.Background(), history))
	job := &models.ProcessingJob{
		ID:            "b1-h1",
		FileHistoryID: "h1",
		OperationType: models.OperationExtraction,
		Status:        models.StatusPending,
	}
	require.NoError(t, s.CreateJob(context.Background(), job))

	updates, cancel := hub.Subscribe(job.ID)
	defer cancel()

	runner.runOne(workItem{
		jobID:     job.ID,
		historyID: history.ID,
		inputPath: history.OriginalPath,
		op:        models.OperationExtraction,
		opts:      ExtractionOptions{Mode: "native"},
	})

	last := -1
	for {
		select {
		case u := <-updates:
			assert.GreaterOrEqual(t, u.Progress, 0)
			assert.LessOrEqual(t, u.Progress, 100)
			assert.GreaterOrEqual(t, u.Progress, last, "progress went backwards")
			last = u.Progress
			if u.Progress == 100 {
				final, err := s.GetJob(context.Background(), job.ID)
				require.NoError(t, err)
				assert.Equal(t, models.StatusCompleted, final.Status)
				assert.Equal(t, 100, final.Progress)
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for progress updates")
		}
	}
}

// ctxCheckedStore rejects writes once the caller's context has expired,
// the way GormStore does through WithContext.
type ctxCheckedStore struct {
	*store.MemoryStore
}

func (s *ctxCheckedStore) CompleteHistory(ctx context.Context, id, filename, path string, size int64, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.CompleteHistory(ctx, id, filename, path, size, seconds)
}

func (s *ctxCheckedStore) FailHistory(ctx context.Context, id, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.FailHistory(ctx, id, message)
}

func (s *ctxCheckedStore) FinishJob(ctx context.Context, id string, status models.Status, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.FinishJob(ctx, id, status, progress)
}

func (s *ctxCheckedStore) AppendJobLog(ctx context.Context, id, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.AppendJobLog(ctx, id, message)
}

// slowProcessor overruns any deadline on its context and reports the
// context error, like a real processor stuck in a long operation.
type slowProcessor struct {
	delay time.Duration
}

func (p *slowProcessor) run(ctx context.Context) (*processor.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.delay):
		return &processor.Result{Filename: "out", Path: "/tmp/processed/out", Size: 1}, nil
	}
}

func (p *slowProcessor) Convert(ctx context.Context, _, _ string, _ processor.ProgressFunc) (*processor.Result, error) {
	return p.run(ctx)
}

func (p *slowProcessor) Compress(ctx context.Context, _, _ string, _, _ bool, _ processor.ProgressFunc) (*processor.Result, error) {
	return p.run(ctx)
}

func (p *slowProcessor) Extract(ctx context.Context, _, _ string, _ bool, _ string, _ processor.ProgressFunc) (*processor.Result, error) {
	return p.run(ctx)
}

func (p *slowProcessor) ExtractArchive(ctx context.Context, _ string, _ processor.ArchiveOptions, _ processor.ProgressFunc) (*processor.Result, error) {
	return p.run(ctx)
}

func TestRunnerTimeoutMarksJobFailed(t *testing.T) {
	s := &ctxCheckedStore{MemoryStore: store.NewMemoryStore()}
	hub := progress.NewHub()
	proc := &slowProcessor{delay: time.Second}
	procs := processor.Set{Converter: proc, Compressor: proc, Extractor: proc, Archive: proc}
	runner := NewRunner(s, procs, hub, zerolog.Nop(), 1, 10*time.Millisecond)
	dispatcher := NewDispatcher(s, runner, zerolog.Nop())

	receipt, err := dispatcher.Dispatch(context.Background(), "", testFiles(1),
		CompressionOptions{Level: "medium", PreserveQuality: true})
	require.NoError(t, err)

	runner.WaitIdle()

	// The forced-failed transition must land even though the job context
	// expired, otherwise the record is stuck in a non-terminal state.
	ref := receipt.Jobs[0]
	job, err := s.GetJob(context.Background(), ref.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.Status)

	history, err := s.GetHistory(context.Background(), ref.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, history.Status)
	require.NotNil(t, history.ErrorMessage)
	assert.Equal(t, context.DeadlineExceeded.Error(), *history.ErrorMessage)
}

// orderedProgressStore records SetJobProgress calls in arrival order.
type orderedProgressStore struct {
	*store.MemoryStore

	mu   sync.Mutex
	seen []int
}

func (s *orderedProgressStore) SetJobProgress(ctx context.Context, id string, progress int) error {
	s.mu.Lock()
	s.seen = append(s.seen, progress)
	s.mu.Unlock()
	return s.MemoryStore.SetJobProgress(ctx, id, progress)
}

func TestProgressPersistsInOrder(t *testing.T) {
	s := &orderedProgressStore{MemoryStore: store.NewMemoryStore()}
	hub := progress.NewHub()
	runner := NewRunner(s, processor.Set{}, hub, zerolog.Nop(), 1, 0)

	require.NoError(t, s.CreateHistory(context.Background(), &models.FileHistory{
		ID:               "h1",
		OriginalFilename: "a.txt",
		OriginalPath:     "/tmp/a.txt",
		OperationType:    models.OperationCompression,
		Status:           models.StatusPending,
	}))
	require.NoError(t, s.CreateJob(context.Background(), &models.ProcessingJob{
		ID:            "b1-h1",
		FileHistoryID: "h1",
		OperationType: models.OperationCompression,
		Status:        models.StatusProcessing,
	}))

	tracker := &progressTracker{runner: runner, ctx: context.Background(), jobID: "b1-h1"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for pct := base; pct <= 100; pct += 10 {
				tracker.update(pct, "working")
			}
		}(i * 10)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.seen)
	for i := 1; i < len(s.seen); i++ {
		assert.GreaterOrEqual(t, s.seen[i], s.seen[i-1], "persisted progress regressed")
	}
}

func TestProgressTrackerIgnoresUpdatesAfterClose(t *testing.T) {
	s := store.NewMemoryStore()
	hub := progress.NewHub()
	runner := NewRunner(s, processor.Set{}, hub, zerolog.Nop(), 1, 0)

	require.NoError(t, s.CreateHistory(context.Background(), &models.FileHistory{
		ID:               "h1",
		OriginalFilename: "a.txt",
		OriginalPath:     "/tmp/a.txt",
		OperationType:    models.OperationCompression,
		Status:           models.StatusPending,
	}))
	require.NoError(t, s.CreateJob(context.Background(), &models.ProcessingJob{
		ID:            "b1-h1",
		FileHistoryID: "h1",
		OperationType: models.OperationCompression,
		Status:        models.StatusProcessing,
	}))

	tracker := &progressTracker{runner: runner, ctx: context.Background(), jobID: "b1-h1"}
	tracker.update(50, "halfway")
	tracker.close()
	tracker.update(80, "late callback")

	job, err := s.GetJob(context.Background(), "b1-h1")
	require.NoError(t, err)
	assert.Equal(t, 50, job.Progress)
}
