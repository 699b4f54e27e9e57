package async

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
)

type fakeProcessor struct {
	mu      sync.Mutex
	taskIDs []string
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, path string, _ pipeline.Options) (*pipeline.Result, error) {
	f.mu.Lock()
	f.taskIDs = append(f.taskIDs, common.TaskIDFromContext(ctx))
	f.mu.Unlock()

	res := &pipeline.Result{FilePath: path}
	if filepath.Ext(path) == ".bad" {
		res.Errors = []string{"Extraction failed: unsupported file format"}
		return res, fmt.Errorf("%w: unsupported", common.ErrExtraction)
	}
	res.PhasesCompleted = []constants.Phase{constants.PhaseExtraction}
	return res, nil
}

type fakeStore struct {
	mu         sync.Mutex
	processing []string
	completed  map[string]*pipeline.Result
	failed     map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{completed: map[string]*pipeline.Result{}, failed: map[string]string{}}
}

func (s *fakeStore) MarkProcessing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = append(s.processing, id)
	return nil
}

func (s *fakeStore) Complete(_ context.Context, id string, res *pipeline.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[id] = res
	return nil
}

func (s *fakeStore) Fail(_ context.Context, id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = msg
	return nil
}

func TestProcessorQueueRecordsOutcomes(t *testing.T) {
	proc := &fakeProcessor{}
	store := newFakeStore()
	q := NewProcessorQueue(proc, store, nil, WithWorkers(3), WithQueueSize(1), WithProcessTimeout(time.Second))

	var dirs []string
	for i := range 5 {
		dir := t.TempDir()
		path := filepath.Join(dir, fmt.Sprintf("doc%d.pdf", i))
		if i == 2 {
			path = filepath.Join(dir, "doc2.bad")
		}
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		dirs = append(dirs, dir)
		require.NoError(t, q.Enqueue(context.Background(), Job{
			TaskID:     fmt.Sprintf("task-%d", i),
			FilePath:   path,
			Options:    pipeline.DefaultOptions(),
			CleanupDir: dir,
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Len(t, store.processing, 5)
	assert.Len(t, store.completed, 4)
	assert.Equal(t, map[string]string{"task-2": "Extraction failed: unsupported file format"}, store.failed)
	assert.ElementsMatch(t, []string{"task-0", "task-1", "task-2", "task-3", "task-4"}, proc.taskIDs)
	for _, dir := range dirs {
		assert.NoDirExists(t, dir)
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, newFakeStore(), nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{TaskID: "late"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

type blockingProcessor struct{ release chan struct{} }

func (b blockingProcessor) ProcessDocument(_ context.Context, path string, _ pipeline.Options) (*pipeline.Result, error) {
	<-b.release
	return &pipeline.Result{FilePath: path}, nil
}

func TestEnqueueHonoursContextWhenFull(t *testing.T) {
	proc := blockingProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{TaskID: "running"}))
	// wait until the worker has taken the first job off the channel
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{TaskID: "queued"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{TaskID: "rejected"}), context.DeadlineExceeded)

	close(proc.release)
	q.Shutdown(context.Background())
}
