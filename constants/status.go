package constants

// TaskStatus is the canonical status for rows in processing_tasks.
type TaskStatus string

// Stable values (store these exact strings in DB).
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// ResultStatus is the user-visible outcome of one processed document.
type ResultStatus string

const (
	ResultCompleted           ResultStatus = "completed"
	ResultCompletedWithErrors ResultStatus = "completed_with_errors"
	ResultFailed              ResultStatus = "failed"
)
