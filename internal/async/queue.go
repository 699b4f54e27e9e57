package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one uploaded document awaiting the pipeline.
type Job struct {
	TaskID      string
	FilePath    string
	Options     pipeline.Options
	CleanupDir  string // removed once the job finishes; empty keeps the file
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
