package handlers

import (
	"context"
	"fmt"

	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
	"github.com/voxlane/vox/pkg/router"
)

// Tasks handles the task lifecycle commands. Transitions run through
// the state machine on domain.Task; this group adds the session-level
// precondition (one task IN_PROGRESS at a time), maintains
// ActiveTaskID, and persists each transition as a session patch.
//
// A persistence failure never rolls back an applied transition: session
// state stays available to the live caller and the spooled patch
// converges the durable store in the background.
type Tasks struct {
	data ports.DataService
	config
}

// NewTasks creates the task handler group.
func NewTasks(data ports.DataService, opts ...Option) *Tasks {
	return &Tasks{data: data, config: newConfig(opts...)}
}

// Register binds the three task commands on the router.
func (h *Tasks) Register(r *router.Router) error {
	for method, handler := range map[domain.Method]router.Handler{
		domain.MethodTaskStart: h.Start,
		domain.MethodTaskEnd:   h.End,
		domain.MethodTaskSkip:  h.Skip,
	} {
		if err := r.Register(method, handler); err != nil {
			return err
		}
	}
	return nil
}

type taskPayload struct {
	TaskID   string         `mapstructure:"taskId"`
	Metadata map[string]any `mapstructure:"metadata"`
}

// Start begins a task. Illegal while another task is IN_PROGRESS for
// the session; a task the session has never seen is created on the fly.
func (h *Tasks) Start(ctx context.Context, sess *domain.Session, payload map[string]any) (map[string]any, error) {
	p, err := taskRequest(payload)
	if err != nil {
		return nil, err
	}

	if active := sess.ActiveTask(); active != nil && active.State == domain.TaskInProgress {
		return nil, &domain.InvalidTransitionError{
			TaskID: p.TaskID,
			From:   domain.TaskNotStarted,
			Op:     "start",
			Reason: fmt.Sprintf("task %q is already in progress", active.ID),
		}
	}

	t := sess.Task(p.TaskID)
	if t == nil {
		t = domain.NewTask(p.TaskID)
		sess.AddTask(t)
	}

	// Transition first; a rejected start must leave the task untouched,
	// metadata included.
	if err := t.Start(h.now()); err != nil {
		return nil, err
	}
	if len(p.Metadata) > 0 {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			t.Metadata[k] = v
		}
	}
	sess.ActiveTaskID = t.ID

	return h.commit(ctx, sess, t)
}

// End completes the addressed task. Legal only from IN_PROGRESS. When
// the payload names no task, the session's active task is addressed.
func (h *Tasks) End(ctx context.Context, sess *domain.Session, payload map[string]any) (map[string]any, error) {
	t, err := h.resolve(sess, payload, "end")
	if err != nil {
		return nil, err
	}

	if err := t.Complete(h.now()); err != nil {
		return nil, err
	}
	if sess.ActiveTaskID == t.ID {
		sess.ActiveTaskID = ""
	}

	h.notify(ctx, fmt.Sprintf("session %s: task %s completed", sess.ID, t.ID))
	return h.commit(ctx, sess, t)
}

// Skip abandons the addressed task. Legal from NOT_STARTED or
// IN_PROGRESS; a task the session has never seen counts as NOT_STARTED
// and is created so the skip lands in the history.
func (h *Tasks) Skip(ctx context.Context, sess *domain.Session, payload map[string]any) (map[string]any, error) {
	p, err := taskRequest(payload)
	if err != nil {
		return nil, err
	}

	t := sess.Task(p.TaskID)
	if t == nil {
		t = domain.NewTask(p.TaskID)
		sess.AddTask(t)
	}

	if err := t.Skip(h.now()); err != nil {
		return nil, err
	}
	if sess.ActiveTaskID == t.ID {
		sess.ActiveTaskID = ""
	}

	h.notify(ctx, fmt.Sprintf("session %s: task %s skipped", sess.ID, t.ID))
	return h.commit(ctx, sess, t)
}

// taskRequest decodes and validates the common task payload.
func taskRequest(payload map[string]any) (taskPayload, error) {
	var p taskPayload
	if err := decode(payload, &p); err != nil {
		return p, err
	}
	if p.TaskID == "" {
		return p, domain.MissingField("taskId")
	}
	return p, nil
}

// resolve finds the task an end command addresses: the named task, or
// the active one when the payload names none. A task the session never
// started cannot be ended.
func (h *Tasks) resolve(sess *domain.Session, payload map[string]any, op string) (*domain.Task, error) {
	var p taskPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if p.TaskID == "" {
		p.TaskID = sess.ActiveTaskID
	}
	if p.TaskID == "" {
		return nil, domain.MissingField("taskId")
	}

	t := sess.Task(p.TaskID)
	if t == nil {
		return nil, &domain.InvalidTransitionError{
			TaskID: p.TaskID,
			From:   domain.TaskNotStarted,
			Op:     op,
			Reason: "task was never started",
		}
	}
	return t, nil
}

// commit persists the applied transition as a session patch and returns
// the task snapshot. On terminal failure the patch is spooled and the
// snapshot rides along with the PersistenceError.
func (h *Tasks) commit(ctx context.Context, sess *domain.Session, t *domain.Task) (map[string]any, error) {
	snapshot := t.Snapshot()
	patch := map[string]any{
		"activeTaskId": sess.ActiveTaskID,
		"tasks":        map[string]any{t.ID: snapshot},
	}

	_, err := h.data.UpdateSessionData(ctx, sess.Meta.DatabaseID, sess.Meta.StudyID, sess.Meta.ParticipantID, sess.ID, patch)
	if err == nil {
		return snapshot, nil
	}

	h.spill(ctx, domain.PatchWrite(sess.Meta, sess.ID, patch, h.now()))
	h.notify(ctx, fmt.Sprintf("session %s: task %s state not persisted: %v", sess.ID, t.ID, err))
	return snapshot, &domain.PersistenceError{Classification: classification(err), Err: err}
}
