package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of an import task.
type TaskStatus string

// Possible task status values. pending and running are non-terminal;
// completed, failed and cancelled are terminal and immutable once reached.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskTypeBulkImport is the task type for the bulk-import job. It is the only
// task type the engine models.
const TaskTypeBulkImport = "bulk_import"

// Common validation errors for ImportTask
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrInvalidTaskLimit  = errors.New("task limit must be greater than zero")
)

// TaskParams is the immutable snapshot of an import request, captured when
// the task is created.
type TaskParams struct {
	Limit       int  `json:"limit"`
	Offset      int  `json:"offset"`
	BatchSize   int  `json:"batch_size"`
	ForceUpdate bool `json:"force_update"`
}

// TaskResult holds the aggregate counts of a completed import.
type TaskResult struct {
	TotalRequested int `json:"total_requested"`
	Loaded         int `json:"loaded"`
	Updated        int `json:"updated"`
	Skipped        int `json:"skipped"`
	Errors         int `json:"errors"`
}

// ImportTask is one persisted bulk-import job.
type ImportTask struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	Status         TaskStatus  `json:"status"`
	Params         TaskParams  `json:"params"`
	Result         *TaskResult `json:"result,omitempty"`
	Error          string      `json:"error,omitempty"`
	Progress       int         `json:"progress"`
	ProcessedItems int         `json:"processed_items"`
	TotalItems     int         `json:"total_items"`
	CreatedAt      time.Time   `json:"created_at"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// NewImportTask creates a new ImportTask in pending state with a generated
// ID and the given params snapshot.
// Returns an error if validation fails.
func NewImportTask(params TaskParams) (*ImportTask, error) {
	id := uuid.New()
	task := &ImportTask{
		ID:         fmt.Sprintf("import_%x_%d", id[:4], time.Now().Unix()),
		Type:       TaskTypeBulkImport,
		Status:     TaskStatusPending,
		Params:     params,
		Progress:   0,
		TotalItems: params.Limit,
		CreatedAt:  time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the ImportTask has valid data.
func (t *ImportTask) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}

	switch t.Status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTaskStatus, t.Status)
	}

	if t.Params.Limit <= 0 {
		return ErrInvalidTaskLimit
	}

	return nil
}

// IsTerminal reports whether the task has reached a final state.
func (t *ImportTask) IsTerminal() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// EstimatedRemaining derives a non-authoritative time-remaining estimate from
// elapsed time and progress: elapsed/progress*100 - elapsed. The second return
// value is false when the estimate is undefined (not running, no start time,
// or zero progress).
func (t *ImportTask) EstimatedRemaining(now time.Time) (time.Duration, bool) {
	if t.Status != TaskStatusRunning || t.StartedAt == nil || t.Progress <= 0 {
		return 0, false
	}

	elapsed := now.Sub(*t.StartedAt)
	remaining := time.Duration(float64(elapsed)/float64(t.Progress)*100) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
