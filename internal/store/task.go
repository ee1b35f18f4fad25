package store

import (
	"context"
	"database/sql"

	"github.com/athorsen/bestiary-api/internal/domain"
)

// TaskFilter narrows an import-task listing.
type TaskFilter struct {
	Status domain.TaskStatus
	Type   string
	Offset int
	Limit  int
}

// TaskStore defines the interface for persisting import tasks.
type TaskStore interface {
	// Create persists a new task row in pending state with its params
	// snapshot.
	Create(ctx context.Context, task *domain.ImportTask) error

	// GetByID retrieves a task snapshot.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id string) (*domain.ImportTask, error)

	// List returns one page of tasks matching the filter, newest first,
	// plus the total count of matches before pagination.
	List(ctx context.Context, filter TaskFilter) ([]*domain.ImportTask, int, error)

	// UpdateProgress persists the per-batch progress snapshot. The first
	// progress update of a pending task flips it to running and stamps
	// started_at.
	UpdateProgress(ctx context.Context, id string, progress, processed, total int) error

	// Complete marks the task completed with its aggregate result,
	// progress 100 and completed_at. Writes unconditionally: if a cancel
	// raced in first, the completion overwrites it (last writer wins).
	Complete(ctx context.Context, id string, result domain.TaskResult) error

	// Fail marks the task failed with the captured error message and
	// completed_at.
	Fail(ctx context.Context, id string, errorMsg string) error

	// Cancel marks a non-terminal task cancelled with completed_at.
	// Cancelling an already-terminal task is a no-op; the returned bool
	// reports whether the row was actually transitioned.
	Cancel(ctx context.Context, id string) (bool, error)

	// FailOrphaned marks every task still in running state as failed with
	// the given reason and returns how many rows were transitioned. Called
	// at startup: a running row with no in-process owner can never finish.
	FailOrphaned(ctx context.Context, reason string) (int, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) TaskStore
}
