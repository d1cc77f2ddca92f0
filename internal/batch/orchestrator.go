// Package batch runs recognition tasks as a batch: bounded concurrency,
// per-task isolation, and a single aggregate result. One task failing
// never aborts its siblings; cancellation stops dispatch at the next task
// boundary without interrupting in-flight extractions.
package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/normalize"
	"github.com/purrup/auto-overtime/internal/port"
	"github.com/purrup/auto-overtime/internal/salvage"
	"github.com/purrup/auto-overtime/internal/vision"
)

const (
	minConcurrency = 1
	maxConcurrency = 3
)

// CancelledReason is recorded on tasks that were still queued when the run
// context was cancelled.
const CancelledReason = "batch cancelled"

// Orchestrator drives batches of recognition tasks through the
// extract-validate-normalize pipeline.
type Orchestrator struct {
	extractor   port.VisionExtractor
	opts        normalize.Options
	concurrency int

	// OnUpdate, when set, is invoked with a snapshot of the batch after
	// every task state change. It runs on the orchestrator's goroutines
	// and must not block.
	OnUpdate func(domain.BatchResult)
}

// NewOrchestrator creates an Orchestrator. Concurrency is clamped to the
// supported range; the vision API's rate limits make anything wider
// counterproductive.
func NewOrchestrator(extractor port.VisionExtractor, opts normalize.Options, concurrency int) *Orchestrator {
	if concurrency < minConcurrency {
		concurrency = minConcurrency
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}
	return &Orchestrator{
		extractor:   extractor,
		opts:        opts,
		concurrency: concurrency,
	}
}

// NewBatch constructs a pending batch for the given tasks, with every task
// queued. Task order follows the slice order. The task IDs must be unique;
// intake guarantees that for tasks it built.
func NewBatch(label string, tasks []domain.RecognitionTask) (*domain.BatchResult, error) {
	result := &domain.BatchResult{
		ID:        uuid.New(),
		Label:     label,
		State:     domain.BatchStatePending,
		Statuses:  make(map[string]domain.TaskStatus, len(tasks)),
		TaskOrder: make([]string, 0, len(tasks)),
		CreatedAt: time.Now().UTC(),
	}
	for _, task := range tasks {
		if _, exists := result.Statuses[task.ID]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateTaskID, task.ID)
		}
		result.Statuses[task.ID] = domain.TaskStatus{
			TaskID:         task.ID,
			SourceFilename: task.SourceFilename,
			State:          domain.TaskStateQueued,
		}
		result.TaskOrder = append(result.TaskOrder, task.ID)
	}
	return result, nil
}

// run holds the mutable state of a single batch execution. All writes go
// through its mutex; the BatchResult is shared with OnUpdate snapshots.
type run struct {
	mu     sync.Mutex
	result *domain.BatchResult
	// entries collected per task, keyed by position in TaskOrder, so the
	// final Entries slice is deterministic regardless of completion order.
	perTask  [][]domain.OvertimeEntry
	onUpdate func(domain.BatchResult)
}

// Run executes every task of the batch and returns when the batch reaches
// a terminal state. The batch must be pending with all tasks queued.
func (o *Orchestrator) Run(ctx context.Context, result *domain.BatchResult, tasks []domain.RecognitionTask) {
	r := &run{
		result:   result,
		perTask:  make([][]domain.OvertimeEntry, len(tasks)),
		onUpdate: o.OnUpdate,
	}
	r.setBatchState(domain.BatchStateRunning)
	log.Printf("batch.Run: batch %s started (%d tasks, concurrency=%d)",
		result.ID, len(tasks), o.concurrency)

	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	cancelled := false
	for i := range tasks {
		sem <- struct{}{}
		// Cancellation checkpoint between tasks, after a slot opens so a
		// cancel during the previous task is seen. In-flight tasks
		// finish; everything not yet dispatched fails with a uniform
		// reason.
		if err := ctx.Err(); err != nil {
			<-sem
			cancelled = true
			for _, task := range tasks[i:] {
				r.failTask(task.ID, CancelledReason)
			}
			break
		}

		task := tasks[i]
		idx := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			o.runTask(ctx, r, idx, task)
		}()
	}
	wg.Wait()

	r.finish(cancelled)
	log.Printf("batch.Run: batch %s finished state=%s entries=%d cost=%.6f USD",
		result.ID, result.State, len(result.Entries), result.CostUSD)
}

// runTask moves one task through extraction, validation, and
// normalization. Any failure is recorded on the task alone.
func (o *Orchestrator) runTask(ctx context.Context, r *run, idx int, task domain.RecognitionTask) {
	r.setTaskState(task.ID, domain.TaskStateExtracting)
	raw, err := o.extractor.Extract(ctx, task)
	if err != nil {
		log.Printf("batch.runTask: task %s extraction failed: %v", task.ID, err)
		r.failTask(task.ID, vision.FailureReason(err))
		return
	}
	r.addUsage(raw.Usage, raw.CostUSD)

	r.setTaskState(task.ID, domain.TaskStateValidating)
	// A nil row slice means the payload was structurally unusable. An
	// empty non-nil slice is a well-formed response with no entries, which
	// is a legitimate outcome for a blank or entry-free slip.
	rows, report := salvage.Validate(raw)
	if rows == nil {
		log.Printf("batch.runTask: task %s produced no usable entries", task.ID)
		r.failTask(task.ID, "response contained no recognizable entries")
		return
	}

	r.setTaskState(task.ID, domain.TaskStateNormalizing)
	entries := make([]domain.OvertimeEntry, 0, len(rows))
	for _, row := range rows {
		entry, notes := normalize.BuildEntry(task.ID, row, o.opts)
		for _, note := range notes {
			log.Printf("batch.runTask: task %s: %s", task.ID, note)
		}
		entries = append(entries, entry)
	}

	outcome := domain.TaskResultSuccess
	if !report.Clean() {
		outcome = domain.TaskResultPartialSuccess
	}
	r.completeTask(task.ID, idx, entries, outcome, report.SalvagedFields())
}

func (r *run) setBatchState(state domain.BatchState) {
	r.mu.Lock()
	r.result.State = state
	r.notifyLocked()
	r.mu.Unlock()
}

func (r *run) setTaskState(taskID string, state domain.TaskState) {
	r.mu.Lock()
	st := r.result.Statuses[taskID]
	st.State = state
	r.result.Statuses[taskID] = st
	r.notifyLocked()
	r.mu.Unlock()
}

func (r *run) failTask(taskID, reason string) {
	r.mu.Lock()
	st := r.result.Statuses[taskID]
	st.State = domain.TaskStateFailed
	st.Result = domain.TaskResultFailed
	st.FailureReason = reason
	r.result.Statuses[taskID] = st
	r.notifyLocked()
	r.mu.Unlock()
}

func (r *run) completeTask(taskID string, idx int, entries []domain.OvertimeEntry, outcome domain.TaskResult, salvaged []string) {
	r.mu.Lock()
	r.perTask[idx] = entries
	st := r.result.Statuses[taskID]
	st.State = domain.TaskStateDone
	st.Result = outcome
	st.SalvagedFields = salvaged
	st.EntryCount = len(entries)
	r.result.Statuses[taskID] = st
	r.notifyLocked()
	r.mu.Unlock()
}

func (r *run) addUsage(usage domain.TokenUsage, costUSD float64) {
	r.mu.Lock()
	r.result.Usage.Add(usage)
	r.result.CostUSD += costUSD
	r.mu.Unlock()
}

// finish assembles the ordered entry list and moves the batch to its
// terminal state. Entries only become visible on the batch here, never
// mid-run.
func (r *run) finish(cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.Entries = r.result.Entries[:0]
	for _, entries := range r.perTask {
		r.result.Entries = append(r.result.Entries, entries...)
	}

	state := domain.BatchStateCompleted
	if cancelled {
		state = domain.BatchStateCompletedWithFailures
	} else {
		for _, st := range r.result.Statuses {
			if st.State == domain.TaskStateFailed {
				state = domain.BatchStateCompletedWithFailures
				break
			}
		}
	}
	r.result.State = state
	now := time.Now().UTC()
	r.result.CompletedAt = &now
	r.notifyLocked()
}

// notifyLocked hands observers a deep copy so they never share mutable
// state with the running orchestrator.
func (r *run) notifyLocked() {
	if r.onUpdate != nil {
		r.onUpdate(*r.result.Clone())
	}
}
