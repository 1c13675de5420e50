package domain

import "time"

// TaskState is the lifecycle state of a study task.
type TaskState string

const (
	TaskNotStarted TaskState = "NOT_STARTED"
	TaskInProgress TaskState = "IN_PROGRESS"
	TaskCompleted  TaskState = "COMPLETED"
	TaskSkipped    TaskState = "SKIPPED"
)

// Terminal reports whether the state admits no further transition.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskSkipped
}

// Task tracks one unit of study work within a session. It is owned by
// the session's task history and mutated only through the transition
// methods below.
type Task struct {
	ID    string    `json:"id"`
	State TaskState `json:"state"`

	// StartedAt is set by the start transition, EndedAt by whichever
	// terminal transition fires. Nil until then.
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`

	// Metadata is an opaque mapping supplied by the caller (task name,
	// instructions, ordering hints). Never interpreted here.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewTask returns a task in NOT_STARTED.
func NewTask(id string) *Task {
	return &Task{ID: id, State: TaskNotStarted}
}

// Start moves the task from NOT_STARTED to IN_PROGRESS and stamps
// StartedAt. Any other origin state is an InvalidTransitionError.
func (t *Task) Start(now time.Time) error {
	if t.State != TaskNotStarted {
		return &InvalidTransitionError{TaskID: t.ID, From: t.State, Op: "start"}
	}
	t.State = TaskInProgress
	t.StartedAt = &now
	return nil
}

// Complete moves the task from IN_PROGRESS to COMPLETED and stamps
// EndedAt. A task that was never started cannot complete.
func (t *Task) Complete(now time.Time) error {
	if t.State != TaskInProgress {
		return &InvalidTransitionError{TaskID: t.ID, From: t.State, Op: "end"}
	}
	t.State = TaskCompleted
	t.EndedAt = &now
	return nil
}

// Skip moves the task to SKIPPED from NOT_STARTED or IN_PROGRESS and
// stamps EndedAt. Terminal states stay put.
func (t *Task) Skip(now time.Time) error {
	if t.State != TaskNotStarted && t.State != TaskInProgress {
		return &InvalidTransitionError{TaskID: t.ID, From: t.State, Op: "skip"}
	}
	t.State = TaskSkipped
	t.EndedAt = &now
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	cp := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		cp.StartedAt = &started
	}
	if t.EndedAt != nil {
		ended := *t.EndedAt
		cp.EndedAt = &ended
	}
	if t.Metadata != nil {
		cp.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// Snapshot returns the task's wire representation for command results.
func (t *Task) Snapshot() map[string]any {
	snap := map[string]any{
		"taskId": t.ID,
		"state":  string(t.State),
	}
	if t.StartedAt != nil {
		snap["startedAt"] = t.StartedAt.UTC().Format(time.RFC3339Nano)
	}
	if t.EndedAt != nil {
		snap["endedAt"] = t.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	if len(t.Metadata) > 0 {
		snap["metadata"] = t.Metadata
	}
	return snap
}
