package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/platform/logger"
	"github.com/athorsen/bestiary-api/internal/store"
)

const taskColumns = `id, task_type, status, params, result, error,
	progress, processed_items, total_items, created_at, started_at, completed_at`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a new store instance bound to the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.ImportTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	params, err := json.Marshal(task.Params)
	if err != nil {
		return fmt.Errorf("failed to encode task params: %w", err)
	}

	query := `
		INSERT INTO import_tasks (id, task_type, status, params, progress,
			processed_items, total_items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID, task.Type, task.Status, params,
		task.Progress, task.ProcessedItems, task.TotalItems, task.CreatedAt)
	if err != nil {
		log.Error("failed to save import task",
			slog.String("task_id", task.ID),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id string) (*domain.ImportTask, error) {
	query := fmt.Sprintf("SELECT %s FROM import_tasks WHERE id = $1", taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.ImportTask, int, error) {
	var clauses []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		clauses = append(clauses, fmt.Sprintf("task_type = $%d", len(args)))
	}

	where := ""
	for i, clause := range clauses {
		if i == 0 {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM import_tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, MapError(err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf("SELECT %s FROM import_tasks%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		taskColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.ImportTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}

	return tasks, total, nil
}

// UpdateProgress implements store.TaskStore.UpdateProgress.
// The first progress update of a pending task flips it to running and stamps
// started_at; progress is persisted before the next batch starts so pollers
// always observe a consistent snapshot.
func (s *PostgresTaskStore) UpdateProgress(ctx context.Context, id string, progress, processed, total int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE import_tasks
		SET progress = $1,
			processed_items = $2,
			total_items = $3,
			status = CASE WHEN status = 'pending' THEN 'running' ELSE status END,
			started_at = COALESCE(started_at, $4)
		WHERE id = $5 AND status IN ('pending', 'running')
	`
	result, err := s.db.ExecContext(ctx, query, progress, processed, total, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update task progress",
			slog.String("task_id", id),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		// Terminal row (e.g. cancellation raced in) or unknown id. Either
		// way the snapshot must not regress, so the update is dropped.
		log.Debug("progress update skipped, task not in updatable state",
			slog.String("task_id", id))
	}

	return nil
}

// Complete implements store.TaskStore.Complete. The write is unconditional
// over non-completed states: if a cancellation raced with natural
// completion, the last writer wins.
func (s *PostgresTaskStore) Complete(ctx context.Context, id string, result domain.TaskResult) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}

	query := `
		UPDATE import_tasks
		SET status = 'completed', result = $1, error = NULL,
			progress = 100, completed_at = $2
		WHERE id = $3
	`
	if _, err := s.db.ExecContext(ctx, query, encoded, time.Now().UTC(), id); err != nil {
		log.Error("failed to complete task",
			slog.String("task_id", id),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// Fail implements store.TaskStore.Fail
func (s *PostgresTaskStore) Fail(ctx context.Context, id string, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE import_tasks
		SET status = 'failed', error = $1, result = NULL, completed_at = $2
		WHERE id = $3
	`
	if _, err := s.db.ExecContext(ctx, query, errorMsg, time.Now().UTC(), id); err != nil {
		log.Error("failed to mark task failed",
			slog.String("task_id", id),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// Cancel implements store.TaskStore.Cancel. Only non-terminal tasks
// transition; cancelling a terminal task leaves result/error/completed_at
// untouched.
func (s *PostgresTaskStore) Cancel(ctx context.Context, id string) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE import_tasks
		SET status = 'cancelled', completed_at = $1
		WHERE id = $2 AND status IN ('pending', 'running')
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to cancel task",
			slog.String("task_id", id),
			slog.String("error", err.Error()))
		return false, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}
	return affected > 0, nil
}

// FailOrphaned implements store.TaskStore.FailOrphaned
func (s *PostgresTaskStore) FailOrphaned(ctx context.Context, reason string) (int, error) {
	query := `
		UPDATE import_tasks
		SET status = 'failed', error = $1, completed_at = $2
		WHERE status = 'running'
	`
	result, err := s.db.ExecContext(ctx, query, reason, time.Now().UTC())
	if err != nil {
		return 0, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}
	return int(affected), nil
}

func scanTask(row rowScanner) (*domain.ImportTask, error) {
	var (
		task        domain.ImportTask
		params      []byte
		result      []byte
		errorMsg    sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&task.ID, &task.Type, &task.Status, &params, &result, &errorMsg,
		&task.Progress, &task.ProcessedItems, &task.TotalItems,
		&task.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &task.Params); err != nil {
			return nil, fmt.Errorf("failed to decode params for task %s: %w", task.ID, err)
		}
	}
	if len(result) > 0 {
		task.Result = &domain.TaskResult{}
		if err := json.Unmarshal(result, task.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result for task %s: %w", task.ID, err)
		}
	}
	task.Error = errorMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}

	return &task, nil
}
