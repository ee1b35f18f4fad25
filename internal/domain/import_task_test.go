package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImportTask(t *testing.T) {
	t.Parallel()

	params := TaskParams{Limit: 100, Offset: 0, BatchSize: 50}

	task, err := NewImportTask(params)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(task.ID, "import_"))
	assert.Equal(t, TaskTypeBulkImport, task.Type)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, params, task.Params)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, 100, task.TotalItems)
	assert.Nil(t, task.Result)
	assert.Empty(t, task.Error)
	assert.Nil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)
}

func TestNewImportTask_UniqueIDs(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		task, err := NewImportTask(TaskParams{Limit: 1})
		require.NoError(t, err)
		assert.False(t, seen[task.ID], "duplicate task ID %s", task.ID)
		seen[task.ID] = true
	}
}

func TestNewImportTask_InvalidLimit(t *testing.T) {
	t.Parallel()

	_, err := NewImportTask(TaskParams{Limit: 0})
	assert.ErrorIs(t, err, ErrInvalidTaskLimit)
}

func TestImportTask_IsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskStatusPending, false},
		{TaskStatusRunning, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
		{TaskStatusCancelled, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.status), func(t *testing.T) {
			t.Parallel()
			task := &ImportTask{Status: tc.status}
			assert.Equal(t, tc.terminal, task.IsTerminal())
		})
	}
}

func TestImportTask_EstimatedRemaining(t *testing.T) {
	t.Parallel()

	started := time.Now().UTC().Add(-30 * time.Second)

	t.Run("undefined at zero progress", func(t *testing.T) {
		t.Parallel()
		task := &ImportTask{Status: TaskStatusRunning, StartedAt: &started, Progress: 0}
		_, ok := task.EstimatedRemaining(time.Now().UTC())
		assert.False(t, ok)
	})

	t.Run("undefined when not running", func(t *testing.T) {
		t.Parallel()
		task := &ImportTask{Status: TaskStatusCompleted, StartedAt: &started, Progress: 50}
		_, ok := task.EstimatedRemaining(time.Now().UTC())
		assert.False(t, ok)
	})

	t.Run("half done doubles elapsed", func(t *testing.T) {
		t.Parallel()
		task := &ImportTask{Status: TaskStatusRunning, StartedAt: &started, Progress: 50}
		remaining, ok := task.EstimatedRemaining(started.Add(30 * time.Second))
		require.True(t, ok)
		assert.InDelta(t, (30 * time.Second).Seconds(), remaining.Seconds(), 0.1)
	})
}
