package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/athorsen/bestiary-api/internal/api/shared"
	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/store"
)

// ImportService is the task-engine surface the import endpoints drive.
type ImportService interface {
	// Start launches a new bulk-import task.
	Start(ctx context.Context, params domain.TaskParams) (*domain.ImportTask, error)

	// Cancel requests cancellation of a task and returns its state after
	// the request.
	Cancel(ctx context.Context, id string) (*domain.ImportTask, error)

	// IsActive reports whether the task is running in this process.
	IsActive(id string) bool
}

// StartImportRequest is the request body for launching a bulk import.
// A zero limit means "everything the source has".
type StartImportRequest struct {
	Limit       int  `json:"limit"        validate:"gte=0"`
	Offset      int  `json:"offset"       validate:"gte=0"`
	BatchSize   int  `json:"batch_size"   validate:"gte=0,lte=500"`
	ForceUpdate bool `json:"force_update"`
}

// The source admits roughly importFetchRate records at a time and one such
// wave takes about importSecondsPerWave of wall clock.
const (
	importFetchRate      = 10
	importSecondsPerWave = 2
)

// estimateImportSeconds is a rough wall-clock guess for importing the given
// number of records, derived from the source's concurrency cap.
func estimateImportSeconds(limit int) int {
	return importSecondsPerWave * limit / importFetchRate
}

// StartImportResponse acknowledges an accepted import request.
type StartImportResponse struct {
	TaskID               string `json:"task_id"`
	Status               string `json:"status"`
	StatusURL            string `json:"status_url"`
	CancelURL            string `json:"cancel_url"`
	Message              string `json:"message"`
	TotalRequested       int    `json:"total_requested"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
}

// TaskResponse is the client view of an import task. IsActive and the
// remaining-time estimate are derived per request, not persisted.
type TaskResponse struct {
	ID                        string             `json:"id"`
	Type                      string             `json:"type"`
	Status                    string             `json:"status"`
	Params                    domain.TaskParams  `json:"params"`
	Progress                  int                `json:"progress"`
	ProcessedItems            int                `json:"processed_items"`
	TotalItems                int                `json:"total_items"`
	Result                    *domain.TaskResult `json:"result,omitempty"`
	Error                     string             `json:"error,omitempty"`
	IsActive                  bool               `json:"is_active"`
	EstimatedRemainingSeconds *int               `json:"estimated_remaining_seconds,omitempty"`
	CreatedAt                 time.Time          `json:"created_at"`
	StartedAt                 *time.Time         `json:"started_at,omitempty"`
	CompletedAt               *time.Time         `json:"completed_at,omitempty"`
}

// TaskListResponse is one page of tasks plus the total match count.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// ImportHandler handles the bulk-import HTTP endpoints.
type ImportHandler struct {
	service   ImportService
	tasks     store.TaskStore
	validator *validator.Validate
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(service ImportService, tasks store.TaskStore) *ImportHandler {
	return &ImportHandler{
		service:   service,
		tasks:     tasks,
		validator: validator.New(),
	}
}

// StartImport handles POST /api/import/start requests. The import itself
// runs asynchronously; the response acknowledges the accepted task.
func (h *ImportHandler) StartImport(w http.ResponseWriter, r *http.Request) {
	var req StartImportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.service.Start(r.Context(), domain.TaskParams{
		Limit:       req.Limit,
		Offset:      req.Offset,
		BatchSize:   req.BatchSize,
		ForceUpdate: req.ForceUpdate,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, StartImportResponse{
		TaskID:         task.ID,
		Status:         string(task.Status),
		StatusURL:            "/api/import/tasks/" + task.ID,
		CancelURL:            "/api/import/tasks/" + task.ID + "/cancel",
		Message:              "Import started in the background",
		TotalRequested:       task.Params.Limit,
		EstimatedTimeSeconds: estimateImportSeconds(task.Params.Limit),
	})
}

// GetTask handles GET /api/import/tasks/{taskID} requests.
func (h *ImportHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskToResponse(task))
}

// ListTasks handles GET /api/import/tasks requests. Supports optional
// status filtering and pagination.
func (h *ImportHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := store.TaskFilter{
		Type:   domain.TaskTypeBulkImport,
		Limit:  20,
		Offset: 0,
	}

	if status := r.URL.Query().Get("status"); status != "" {
		parsed := domain.TaskStatus(status)
		switch parsed {
		case domain.TaskStatusPending, domain.TaskStatusRunning,
			domain.TaskStatusCompleted, domain.TaskStatusFailed,
			domain.TaskStatusCancelled:
			filter.Status = parsed
		default:
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status filter")
			return
		}
	}

	var ok bool
	if filter.Limit, ok = queryInt(r, "limit", 20, 1, 100); !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
		return
	}
	if filter.Offset, ok = queryInt(r, "offset", 0, 0, math.MaxInt32); !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid offset parameter")
		return
	}

	tasks, total, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := TaskListResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Total: total,
	}
	for _, task := range tasks {
		response.Tasks = append(response.Tasks, h.taskToResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// CancelTask handles POST /api/import/tasks/{taskID}/cancel requests.
// Cancelling a task that already finished is not an error; the response
// simply reflects the terminal state the task is in.
func (h *ImportHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.service.Cancel(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskToResponse(task))
}

func (h *ImportHandler) taskToResponse(task *domain.ImportTask) TaskResponse {
	response := TaskResponse{
		ID:             task.ID,
		Type:           task.Type,
		Status:         string(task.Status),
		Params:         task.Params,
		Progress:       task.Progress,
		ProcessedItems: task.ProcessedItems,
		TotalItems:     task.TotalItems,
		Result:         task.Result,
		Error:          task.Error,
		IsActive:       h.service.IsActive(task.ID),
		CreatedAt:      task.CreatedAt,
		StartedAt:      task.StartedAt,
		CompletedAt:    task.CompletedAt,
	}

	if remaining, ok := task.EstimatedRemaining(time.Now()); ok {
		seconds := int(remaining.Round(time.Second) / time.Second)
		response.EstimatedRemainingSeconds = &seconds
	}

	return response
}

// queryInt parses an optional integer query parameter, clamping nothing:
// out-of-range values are rejected, not silently adjusted.
func queryInt(r *http.Request, name string, fallback, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		return 0, false
	}
	return value, true
}
