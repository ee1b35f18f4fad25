package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/store"
)

// Orchestrator-level request errors, mapped to client errors by the API
// layer.
var (
	// ErrLimitExceeded is returned when an import request asks for more
	// records than one call may import.
	ErrLimitExceeded = errors.New("import limit exceeds maximum")

	// ErrSourceUnavailable is returned when the source count needed to
	// resolve an omitted limit cannot be fetched.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// OrchestratorConfig tunes the task engine.
type OrchestratorConfig struct {
	// MaxLimit bounds the limit of one import request.
	MaxLimit int

	// DefaultBatchSize is applied when a request omits batch_size.
	DefaultBatchSize int

	// InterBatchPause is the throttle pause between batches. The pause is
	// also a cancellation check point.
	InterBatchPause time.Duration
}

// DefaultOrchestratorConfig returns an OrchestratorConfig with reasonable
// defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxLimit:         5000,
		DefaultBatchSize: 50,
		InterBatchPause:  500 * time.Millisecond,
	}
}

// BatchRunner is the unit of work the orchestrator drives per batch.
type BatchRunner interface {
	LoadBatch(ctx context.Context, limit, offset int, forceUpdate bool) BatchResult
}

// Orchestrator owns the import-task state machine. It launches one worker
// goroutine per task, persists progress after every batch, and tracks
// in-flight tasks in a process-wide registry of cancellation handles. The
// registry is not durable: a restart loses the ability to cancel whatever
// was running, which is why startup marks ownerless running rows as failed.
type Orchestrator struct {
	tasks  store.TaskStore
	loader BatchRunner
	source Source
	config OrchestratorConfig
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(tasks store.TaskStore, loader BatchRunner, src Source, config OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if config.MaxLimit <= 0 {
		config.MaxLimit = 5000
	}
	if config.DefaultBatchSize <= 0 {
		config.DefaultBatchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Orchestrator{
		tasks:      tasks,
		loader:     loader,
		source:     src,
		config:     config,
		logger:     logger.With(slog.String("component", "orchestrator")),
		active:     make(map[string]context.CancelFunc),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Start validates the request params, persists a pending task row and
// launches its worker goroutine. A zero limit is resolved from the source's
// total count. Validation failures are returned synchronously; no row is
// created.
func (o *Orchestrator) Start(ctx context.Context, params domain.TaskParams) (*domain.ImportTask, error) {
	if params.Limit == 0 {
		total, err := o.source.Count(ctx)
		if err != nil || total == 0 {
			return nil, fmt.Errorf("%w: could not resolve record count: %v", ErrSourceUnavailable, err)
		}
		params.Limit = total
	}
	if params.Limit > o.config.MaxLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, params.Limit, o.config.MaxLimit)
	}
	if params.BatchSize <= 0 {
		params.BatchSize = o.config.DefaultBatchSize
	}

	task, err := domain.NewImportTask(params)
	if err != nil {
		return nil, err
	}

	if err := o.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	// The worker context descends from the orchestrator's lifetime, not
	// the request: the HTTP request ends long before the import does.
	runCtx, cancel := context.WithCancel(o.baseCtx)
	o.mu.Lock()
	o.active[task.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(runCtx, task)

	o.logger.Info("import task launched",
		slog.String("task_id", task.ID),
		slog.Int("limit", params.Limit),
		slog.Int("offset", params.Offset),
		slog.Int("batch_size", params.BatchSize),
		slog.Bool("force_update", params.ForceUpdate))

	return task, nil
}

// run executes one import job across sequential batches.
func (o *Orchestrator) run(ctx context.Context, task *domain.ImportTask) {
	defer o.wg.Done()
	defer o.deregister(task.ID)

	log := o.logger.With(slog.String("task_id", task.ID))

	// A panic anywhere in the pipeline must not leave the row running
	// forever with a dead worker.
	defer func() {
		if r := recover(); r != nil {
			o.fail(task.ID, log, fmt.Errorf("unexpected panic: %v", r))
		}
	}()

	params := task.Params
	totalBatches := (params.Limit + params.BatchSize - 1) / params.BatchSize

	// First progress write flips the row from pending to running.
	if err := o.tasks.UpdateProgress(ctx, task.ID, 0, 0, params.Limit); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.fail(task.ID, log, err)
		return
	}

	aggregate := domain.TaskResult{TotalRequested: params.Limit}

	for batch := 0; batch < totalBatches; batch++ {
		// Batch boundary is a cancellation check point. The row was
		// already marked cancelled by the cancel handler.
		if ctx.Err() != nil {
			log.Info("import task cancelled", slog.Int("batches_done", batch))
			return
		}

		batchLimit := params.BatchSize
		if remaining := params.Limit - batch*params.BatchSize; remaining < batchLimit {
			batchLimit = remaining
		}
		batchOffset := params.Offset + batch*params.BatchSize

		result := o.loader.LoadBatch(ctx, batchLimit, batchOffset, params.ForceUpdate)
		aggregate.Loaded += result.Loaded
		aggregate.Updated += result.Updated
		aggregate.Skipped += result.Skipped
		aggregate.Errors += result.Errors

		progress := int(math.Round(float64(batch+1) / float64(totalBatches) * 100))
		processed := (batch + 1) * params.BatchSize
		if processed > params.Limit {
			processed = params.Limit
		}

		// Progress must be persisted before the next batch starts so any
		// poller sees a consistent snapshot. A write that failed only
		// because the task was cancelled must not overwrite the cancelled
		// row with a failure.
		if err := o.tasks.UpdateProgress(ctx, task.ID, progress, processed, params.Limit); err != nil {
			if ctx.Err() != nil {
				return
			}
			o.fail(task.ID, log, err)
			return
		}

		// Inter-batch throttle pause, itself a cancellation check point.
		if batch+1 < totalBatches && o.config.InterBatchPause > 0 {
			select {
			case <-ctx.Done():
				log.Info("import task cancelled during pause", slog.Int("batches_done", batch+1))
				return
			case <-time.After(o.config.InterBatchPause):
			}
		}
	}

	// The final commit deliberately ignores a cancellation that raced in
	// after the last batch: last writer wins.
	if err := o.tasks.Complete(context.Background(), task.ID, aggregate); err != nil {
		log.Error("failed to persist task result", slog.String("error", err.Error()))
		return
	}

	log.Info("import task completed",
		slog.Int("loaded", aggregate.Loaded),
		slog.Int("updated", aggregate.Updated),
		slog.Int("skipped", aggregate.Skipped),
		slog.Int("errors", aggregate.Errors))
}

// fail transitions the task to its terminal failed state. Uses a background
// context so the write still lands when the worker context is gone.
func (o *Orchestrator) fail(id string, log *slog.Logger, cause error) {
	log.Error("import task failed", slog.String("error", cause.Error()))
	if err := o.tasks.Fail(context.Background(), id, cause.Error()); err != nil {
		log.Error("failed to persist task failure", slog.String("error", err.Error()))
	}
}

// Cancel marks the task cancelled and signals its worker, if any, to stop at
// the next check point. Cancelling an unknown id returns
// store.ErrTaskNotFound; cancelling a finished or already-cancelled task is
// a no-op that leaves the terminal row untouched.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*domain.ImportTask, error) {
	if _, err := o.tasks.GetByID(ctx, id); err != nil {
		return nil, err
	}

	transitioned, err := o.tasks.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	cancel, ok := o.active[id]
	delete(o.active, id)
	o.mu.Unlock()
	if ok {
		cancel()
	}

	if transitioned {
		o.logger.Info("import task cancelled", slog.String("task_id", id))
	}

	return o.tasks.GetByID(ctx, id)
}

// IsActive reports whether the task is currently owned by a worker in this
// process.
func (o *Orchestrator) IsActive(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[id]
	return ok
}

// RecoverOrphans marks persisted running tasks with no in-process owner as
// failed. Called once at startup, before any new task can be launched.
func (o *Orchestrator) RecoverOrphans(ctx context.Context) error {
	count, err := o.tasks.FailOrphaned(ctx, "orphaned at startup: owning process restarted mid-run")
	if err != nil {
		return fmt.Errorf("failed to recover orphaned tasks: %w", err)
	}
	if count > 0 {
		o.logger.Warn("marked orphaned running tasks as failed", slog.Int("count", count))
	}
	return nil
}

// Stop signals every in-flight worker to cancel and waits for them to
// drain.
func (o *Orchestrator) Stop() {
	o.baseCancel()
	o.wg.Wait()
}

// deregister removes a finished task from the in-memory registry.
func (o *Orchestrator) deregister(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, id)
}
