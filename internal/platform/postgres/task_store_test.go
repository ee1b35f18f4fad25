package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/store"
)

func createTestTask(t *testing.T, ctx context.Context, tasks store.TaskStore, limit int) *domain.ImportTask {
	t.Helper()

	task, err := domain.NewImportTask(domain.TaskParams{Limit: limit, BatchSize: 50})
	require.NoError(t, err, "Failed to build task")
	require.NoError(t, tasks.Create(ctx, task), "Failed to save task")
	return task
}

// The conditional-transition SQL is the source of truth for which status
// changes are allowed, so it is exercised against a real database rather
// than an in-memory stand-in.
func TestPostgresTaskStore_Integration(t *testing.T) {
	db := openIntegrationDB(t)
	tx := beginTestTx(t, db)

	ctx := context.Background()
	tasks := NewPostgresTaskStore(tx, nil)

	t.Run("CreateAndGet", func(t *testing.T) {
		task := createTestTask(t, ctx, tasks, 100)

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
		assert.Equal(t, 100, got.Params.Limit)
		assert.Equal(t, 50, got.Params.BatchSize)
		assert.Equal(t, 0, got.Progress)
		assert.Nil(t, got.StartedAt)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("GetMissingTask", func(t *testing.T) {
		_, err := tasks.GetByID(ctx, "import_ffffffff_0")
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("FirstProgressUpdateStartsTask", func(t *testing.T) {
		task := createTestTask(t, ctx, tasks, 50)

		require.NoError(t, tasks.UpdateProgress(ctx, task.ID, 10, 5, 50))

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusRunning, got.Status)
		assert.Equal(t, 10, got.Progress)
		assert.Equal(t, 5, got.ProcessedItems)
		require.NotNil(t, got.StartedAt)
		started := *got.StartedAt

		// A later update must not re-stamp started_at.
		require.NoError(t, tasks.UpdateProgress(ctx, task.ID, 40, 20, 50))
		got, err = tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, 40, got.Progress)
		assert.True(t, got.StartedAt.Equal(started), "started_at changed on second update")
	})

	t.Run("ProgressUpdateSkipsCancelledTask", func(t *testing.T) {
		task := createTestTask(t, ctx, tasks, 50)

		cancelled, err := tasks.Cancel(ctx, task.ID)
		require.NoError(t, err)
		require.True(t, cancelled)

		// A worker that lost the cancellation race writes late progress;
		// the terminal snapshot must not regress.
		require.NoError(t, tasks.UpdateProgress(ctx, task.ID, 80, 40, 50))

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCancelled, got.Status)
		assert.Equal(t, 0, got.Progress)
		assert.Equal(t, 0, got.ProcessedItems)
	})

	t.Run("CancelTerminalTaskIsNoOp", func(t *testing.T) {
		task := createTestTask(t, ctx, tasks, 50)
		require.NoError(t, tasks.Fail(ctx, task.ID, "source unreachable"))

		cancelled, err := tasks.Cancel(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, cancelled)

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, got.Status)
		assert.Equal(t, "source unreachable", got.Error)
	})

	t.Run("CancelMissingTask", func(t *testing.T) {
		cancelled, err := tasks.Cancel(ctx, "import_ffffffff_0")
		require.NoError(t, err)
		assert.False(t, cancelled)
	})

	t.Run("CompleteAfterCancelLastWriterWins", func(t *testing.T) {
		task := createTestTask(t, ctx, tasks, 4)

		cancelled, err := tasks.Cancel(ctx, task.ID)
		require.NoError(t, err)
		require.True(t, cancelled)

		result := domain.TaskResult{TotalRequested: 4, Loaded: 3, Skipped: 1}
		require.NoError(t, tasks.Complete(ctx, task.ID, result))

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, got.Status)
		assert.Equal(t, 100, got.Progress)
		assert.Empty(t, got.Error)
		require.NotNil(t, got.Result)
		assert.Equal(t, result, *got.Result)
	})

	t.Run("FailClearsResult", func(t *testing.T) {
		task := createTestTask(t, ctx, tasks, 10)
		require.NoError(t, tasks.Complete(ctx, task.ID, domain.TaskResult{TotalRequested: 10, Loaded: 10}))

		require.NoError(t, tasks.Fail(ctx, task.ID, "rewritten"))

		got, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, got.Status)
		assert.Nil(t, got.Result)
		assert.Equal(t, "rewritten", got.Error)
	})

	t.Run("FailOrphanedOnlyHitsRunning", func(t *testing.T) {
		// Sweep running rows left by earlier subtests so the count below
		// covers exactly this test's fixtures.
		_, err := tasks.FailOrphaned(ctx, "sweep")
		require.NoError(t, err)

		orphan := createTestTask(t, ctx, tasks, 50)
		require.NoError(t, tasks.UpdateProgress(ctx, orphan.ID, 20, 10, 50))

		finished := createTestTask(t, ctx, tasks, 10)
		require.NoError(t, tasks.Complete(ctx, finished.ID, domain.TaskResult{TotalRequested: 10, Loaded: 10}))

		pending := createTestTask(t, ctx, tasks, 10)

		count, err := tasks.FailOrphaned(ctx, "owning process restarted")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got, err := tasks.GetByID(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, got.Status)
		assert.Equal(t, "owning process restarted", got.Error)

		got, err = tasks.GetByID(ctx, finished.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, got.Status)

		got, err = tasks.GetByID(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
	})
}
