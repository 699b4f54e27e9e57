package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
)

const (
	tasksTable      = "processing_tasks"
	colID           = "id"
	colFileName     = "file_name"
	colStatus       = "status"
	colProgress     = "progress"
	colErrorMessage = "error_message"
	colCreatedAt    = "created_at"
	colCompletedAt  = "completed_at"
	colResult       = "result"
)

var taskColumns = []string{colID, colFileName, colStatus, colProgress, colErrorMessage, colCreatedAt, colCompletedAt}

// Task is one background processing request.
type Task struct {
	ID           string               `json:"task_id"`
	FileName     string               `json:"file_name"`
	Status       constants.TaskStatus `json:"status"`
	Progress     int                  `json:"progress"`
	ErrorMessage string               `json:"error_message,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

type TaskRepository interface {
	Create(ctx context.Context, fileName string) (*Task, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result *pipeline.Result) error
	Fail(ctx context.Context, id string, message string) error
	Get(ctx context.Context, id string) (*Task, error)
	GetResult(ctx context.Context, id string) (*pipeline.Result, error)
	List(ctx context.Context, limit int) ([]*Task, error)
	Delete(ctx context.Context, id string) error
}

type taskRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewTaskRepository(db *DB, log *slog.Logger) TaskRepository {
	if log == nil {
		log = slog.Default()
	}
	return &taskRepo{db: db, log: log, now: time.Now}
}

func (r *taskRepo) Create(ctx context.Context, fileName string) (*Task, error) {
	t := &Task{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Status:    constants.TaskStatusPending,
		CreatedAt: r.now().UTC().Truncate(time.Microsecond),
	}
	q, args := r.db.builder().Insert(tasksTable).
		Columns(colID, colFileName, colStatus, colProgress, colCreatedAt).
		Values(t.ID, t.FileName, string(t.Status), t.Progress, t.CreatedAt.UnixMicro()).
		Query()
	if err := r.db.Driver.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("task create failed", "file_name", fileName, "err", err)
		return nil, fmt.Errorf("%w: create task: %w", common.ErrDatabase, err)
	}
	r.log.Info("task created", "task_id", t.ID, "file_name", fileName)
	return t, nil
}

func (r *taskRepo) MarkProcessing(ctx context.Context, id string) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set(colStatus, string(constants.TaskStatusProcessing)).Set(colProgress, 10)
	})
}

func (r *taskRepo) Complete(ctx context.Context, id string, result *pipeline.Result) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	err = r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set(colStatus, string(constants.TaskStatusCompleted)).
			Set(colProgress, 100).
			Set(colResult, string(b)).
			Set(colCompletedAt, r.now().UnixMicro())
	})
	if err == nil {
		r.log.Info("task completed", "task_id", id, "status", result.Status())
	}
	return err
}

func (r *taskRepo) Fail(ctx context.Context, id string, message string) error {
	err := r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set(colStatus, string(constants.TaskStatusFailed)).
			Set(colErrorMessage, message).
			Set(colCompletedAt, r.now().UnixMicro())
	})
	if err == nil {
		r.log.Warn("task failed", "task_id", id, "error", message)
	}
	return err
}

func (r *taskRepo) update(ctx context.Context, id string, set func(*entsql.UpdateBuilder)) error {
	u := r.db.builder().Update(tasksTable)
	set(u)
	q, args := u.Where(entsql.EQ(colID, id)).Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, q, args, &res); err != nil {
		r.log.Error("task update failed", "task_id", id, "err", err)
		return fmt.Errorf("%w: update task: %w", common.ErrDatabase, err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if n == 0 {
		return common.NotFoundf("task %s", id)
	}
	return nil
}

func (r *taskRepo) Get(ctx context.Context, id string) (*Task, error) {
	q, args := r.db.builder().Select(taskColumns...).
		From(entsql.Table(tasksTable)).
		Where(entsql.EQ(colID, id)).
		Query()
	tasks, err := r.queryTasks(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, common.NotFoundf("task %s", id)
	}
	return tasks[0], nil
}

// GetResult returns the stored result of a completed task. Tasks in any
// other state fail with common.ErrInvalidInput.
func (r *taskRepo) GetResult(ctx context.Context, id string) (*pipeline.Result, error) {
	q, args := r.db.builder().Select(colStatus, colResult).
		From(entsql.Table(tasksTable)).
		Where(entsql.EQ(colID, id)).
		Query()
	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: get result: %w", common.ErrDatabase, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
		}
		return nil, common.NotFoundf("task %s", id)
	}
	var (
		status string
		raw    sql.NullString
	)
	if err := rows.Scan(&status, &raw); err != nil {
		return nil, fmt.Errorf("%w: scan result: %w", common.ErrDatabase, err)
	}
	if constants.TaskStatus(status) != constants.TaskStatusCompleted || !raw.Valid {
		return nil, common.InvalidInputf("task %s is %s, not completed", id, status)
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(raw.String), &res); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	return &res, nil
}

// List returns the newest tasks first; limit <= 0 returns all.
func (r *taskRepo) List(ctx context.Context, limit int) ([]*Task, error) {
	s := r.db.builder().Select(taskColumns...).
		From(entsql.Table(tasksTable)).
		OrderBy(entsql.Desc(colCreatedAt))
	if limit > 0 {
		s.Limit(limit)
	}
	q, args := s.Query()
	return r.queryTasks(ctx, q, args)
}

func (r *taskRepo) Delete(ctx context.Context, id string) error {
	q, args := r.db.builder().Delete(tasksTable).Where(entsql.EQ(colID, id)).Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, q, args, &res); err != nil {
		r.log.Error("task delete failed", "task_id", id, "err", err)
		return fmt.Errorf("%w: delete task: %w", common.ErrDatabase, err)
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	r.log.Info("task deleted", "task_id", id)
	return nil
}

func (r *taskRepo) queryTasks(ctx context.Context, q string, args []any) ([]*Task, error) {
	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: query tasks: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		var (
			t         Task
			status    string
			errMsg    sql.NullString
			created   int64
			completed sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.FileName, &status, &t.Progress, &errMsg, &created, &completed); err != nil {
			return nil, fmt.Errorf("%w: scan task: %w", common.ErrDatabase, err)
		}
		t.Status = constants.TaskStatus(status)
		t.ErrorMessage = errMsg.String
		t.CreatedAt = time.UnixMicro(created).UTC()
		if completed.Valid {
			ts := time.UnixMicro(completed.Int64).UTC()
			t.CompletedAt = &ts
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}
