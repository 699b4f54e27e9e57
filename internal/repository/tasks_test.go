package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := common.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "nested", "tasks.db")}
	db, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	return db
}

func completedResult() *pipeline.Result {
	return &pipeline.Result{
		FilePath:        "/uploads/plan.xlsx",
		Timestamp:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		PhasesCompleted: []constants.Phase{constants.PhaseExtraction},
		Errors:          []string{},
		Warnings:        []string{"Anonymization not available (NER model not loaded)"},
		Data: &document.Record{
			FilePath: "/uploads/plan.xlsx",
			Content:  &document.Excel{Sheets: []document.Sheet{{SheetName: "Team"}}},
		},
	}
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)

	task, err := repo.Create(ctx, "plan.xlsx")
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusPending, task.Status)
	assert.Len(t, task.ID, 36)

	_, err = repo.GetResult(ctx, task.ID)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	require.NoError(t, repo.MarkProcessing(ctx, task.ID))
	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusProcessing, got.Status)
	assert.Equal(t, 10, got.Progress)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, repo.Complete(ctx, task.ID, completedResult()))
	got, err = repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)

	res, err := repo.GetResult(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/plan.xlsx", res.FilePath)
	assert.Equal(t, []constants.Phase{constants.PhaseExtraction}, res.PhasesCompleted)
	assert.Equal(t, constants.ResultCompleted, res.Status())
	require.NotNil(t, res.Data)
	assert.Equal(t, document.KindExcel, res.Data.Kind())
}

func TestTaskFail(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)

	task, err := repo.Create(ctx, "broken.pdf")
	require.NoError(t, err)
	require.NoError(t, repo.Fail(ctx, task.ID, "Extraction failed: PDF is encrypted and requires a password"))

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "encrypted")

	_, err = repo.GetResult(ctx, task.ID)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestTaskListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil).(*taskRepo)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		repo.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		task, err := repo.Create(ctx, "f.pdf")
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestTaskNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, repo.MarkProcessing(ctx, "missing"), common.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), common.ErrNotFound)
}

func TestTaskDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)

	task, err := repo.Create(ctx, "a.pdf")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, task.ID))
	_, err = repo.Get(ctx, task.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOpenIsIdempotentAndRejectsUnknownDriver(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tasks.db")
	for range 2 {
		db, err := Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: dsn}, nil)
		require.NoError(t, err)
		require.NoError(t, db.HealthCheck(context.Background(), time.Second))
		db.Close(nil)
	}

	_, err := Open(context.Background(), common.DatabaseConfig{Driver: "mysql"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestMigrateOnFreshDatabase(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "fresh.db")

	db, err := Open(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	task, err := NewTaskRepository(db, nil).Create(ctx, "urlaub.pdf")
	require.NoError(t, err)
	db.Close(nil)

	db, err = Open(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	defer db.Close(nil)
	got, err := NewTaskRepository(db, nil).Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "urlaub.pdf", got.FileName)
	assert.Equal(t, constants.TaskStatusPending, got.Status)
	assert.Zero(t, got.Progress)
}
