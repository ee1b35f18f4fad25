package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athorsen/bestiary-api/internal/config"
	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/importer"
	"github.com/athorsen/bestiary-api/internal/store"
)

// emptyCreatureStore satisfies store.CreatureStore with a vacant catalog.
type emptyCreatureStore struct{}

func (emptyCreatureStore) Create(context.Context, *domain.Creature) error { return nil }
func (emptyCreatureStore) GetByID(context.Context, int64) (*domain.Creature, error) {
	return nil, store.ErrCreatureNotFound
}
func (emptyCreatureStore) GetByName(context.Context, string) (*domain.Creature, error) {
	return nil, store.ErrCreatureNotFound
}
func (emptyCreatureStore) GetByNameFold(context.Context, string) (*domain.Creature, error) {
	return nil, store.ErrCreatureNotFound
}
func (emptyCreatureStore) List(context.Context, store.CreatureFilter) ([]*domain.Creature, int, error) {
	return nil, 0, nil
}
func (emptyCreatureStore) Update(context.Context, *domain.Creature) error { return nil }
func (emptyCreatureStore) Delete(context.Context, int64) error            { return nil }
func (emptyCreatureStore) Summary(context.Context) (*store.CreatureSummary, error) {
	return &store.CreatureSummary{}, nil
}
func (s emptyCreatureStore) WithTx(*sql.Tx) store.CreatureStore { return s }

// emptyTaskStore satisfies store.TaskStore with no persisted tasks.
type emptyTaskStore struct{}

func (emptyTaskStore) Create(context.Context, *domain.ImportTask) error { return nil }
func (emptyTaskStore) GetByID(context.Context, string) (*domain.ImportTask, error) {
	return nil, store.ErrTaskNotFound
}
func (emptyTaskStore) List(context.Context, store.TaskFilter) ([]*domain.ImportTask, int, error) {
	return nil, 0, nil
}
func (emptyTaskStore) UpdateProgress(context.Context, string, int, int, int) error { return nil }
func (emptyTaskStore) Complete(context.Context, string, domain.TaskResult) error   { return nil }
func (emptyTaskStore) Fail(context.Context, string, string) error                  { return nil }
func (emptyTaskStore) Cancel(context.Context, string) (bool, error)                { return false, nil }
func (emptyTaskStore) FailOrphaned(context.Context, string) (int, error)           { return 0, nil }
func (s emptyTaskStore) WithTx(*sql.Tx) store.TaskStore                            { return s }

func newTestApplication(t *testing.T) *application {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	taskStore := emptyTaskStore{}

	orch := importer.NewOrchestrator(taskStore, nil, nil, importer.DefaultOrchestratorConfig(), logger)
	t.Cleanup(orch.Stop)

	return &application{
		config: &config.Config{
			Server: config.ServerConfig{Port: 8080, LogLevel: "info"},
		},
		logger:        logger,
		creatureStore: emptyCreatureStore{},
		taskStore:     taskStore,
		orchestrator:  orch,
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	t.Parallel()

	router := newTestApplication(t).setupRouter()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "OK", recorder.Body.String())
}

func TestRouter_RoutesRegistered(t *testing.T) {
	t.Parallel()

	router := newTestApplication(t).setupRouter()

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/creatures", http.StatusOK},
		{http.MethodGet, "/api/creatures/summary", http.StatusOK},
		{http.MethodGet, "/api/creatures/42", http.StatusNotFound},
		{http.MethodGet, "/api/creatures/name/mew", http.StatusNotFound},
		{http.MethodGet, "/api/import/tasks", http.StatusOK},
		{http.MethodGet, "/api/import/tasks/import_nope_0", http.StatusNotFound},
		{http.MethodPost, "/api/import/tasks/import_nope_0/cancel", http.StatusNotFound},
		{http.MethodGet, "/does-not-exist", http.StatusNotFound},
	}
	for _, tc := range tests {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.wantStatus, recorder.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_ResponsesCarryTraceID(t *testing.T) {
	t.Parallel()

	router := newTestApplication(t).setupRouter()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/creatures/9000", nil))

	require.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "trace_id")
}
