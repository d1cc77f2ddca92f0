package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchState is the lifecycle of a recognition batch.
type BatchState string

const (
	BatchStatePending               BatchState = "pending"
	BatchStateRunning               BatchState = "running"
	BatchStateCompleted             BatchState = "completed"
	BatchStateCompletedWithFailures BatchState = "completed_with_failures"
)

// Terminal reports whether the batch has finished.
func (s BatchState) Terminal() bool {
	return s == BatchStateCompleted || s == BatchStateCompletedWithFailures
}

// TaskState is the per-task stage within a batch run.
type TaskState string

const (
	TaskStateQueued      TaskState = "queued"
	TaskStateExtracting  TaskState = "extracting"
	TaskStateValidating  TaskState = "validating"
	TaskStateNormalizing TaskState = "normalizing"
	TaskStateDone        TaskState = "done"
	TaskStateFailed      TaskState = "failed"
)

// TaskResult is the terminal outcome of a task.
type TaskResult string

const (
	TaskResultSuccess        TaskResult = "success"
	TaskResultPartialSuccess TaskResult = "partial_success"
	TaskResultFailed         TaskResult = "failed"
)

// TaskStatus is the per-task entry in a batch's status mapping. A failed
// task carries its reason so the caller can resubmit it as a new task; a
// partially successful one lists the fields recovered by salvage.
type TaskStatus struct {
	TaskID         string     `json:"task_id"`
	SourceFilename string     `json:"source_filename"`
	State          TaskState  `json:"state"`
	Result         TaskResult `json:"result,omitempty"`
	SalvagedFields []string   `json:"salvaged_fields,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	EntryCount     int        `json:"entry_count"`
}

// BatchResult is the aggregate a run hands to the editor and exporter
// collaborators: the ordered entries plus one status per submitted task.
type BatchResult struct {
	ID          uuid.UUID             `json:"id"`
	Label       string                `json:"label"`
	State       BatchState            `json:"state"`
	Entries     []OvertimeEntry       `json:"entries"`
	Statuses    map[string]TaskStatus `json:"statuses"`
	TaskOrder   []string              `json:"task_order"`
	Usage       TokenUsage            `json:"usage"`
	CostUSD     float64               `json:"cost_usd"`
	CreatedAt   time.Time             `json:"created_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

// Clone returns a deep copy sharing no mutable state with b. Stage
// boundaries hand batches over by value; anything that keeps a reference
// past the handoff must clone first.
func (b *BatchResult) Clone() *BatchResult {
	out := *b
	out.Entries = make([]OvertimeEntry, len(b.Entries))
	for i := range b.Entries {
		out.Entries[i] = b.Entries[i].Clone()
	}
	out.TaskOrder = append([]string(nil), b.TaskOrder...)
	out.Statuses = make(map[string]TaskStatus, len(b.Statuses))
	for id, st := range b.Statuses {
		st.SalvagedFields = append([]string(nil), st.SalvagedFields...)
		out.Statuses[id] = st
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// FailedTaskIDs returns the IDs of tasks that ended in the failed state,
// in submission order.
func (b *BatchResult) FailedTaskIDs() []string {
	var failed []string
	for _, id := range b.TaskOrder {
		if st, ok := b.Statuses[id]; ok && st.State == TaskStateFailed {
			failed = append(failed, id)
		}
	}
	return failed
}
