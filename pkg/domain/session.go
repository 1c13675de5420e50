package domain

import "time"

// SessionMeta identifies the study context a session belongs to. The
// triple travels on every call to the backing data service.
type SessionMeta struct {
	DatabaseID    string `json:"databaseId"`
	StudyID       string `json:"studyId"`
	ParticipantID string `json:"participantId"`
}

// Session is the live, in-memory record of one participant connection.
// It is created when the connection is established and torn down when it
// ends; durable copies live behind the backing data service, never here.
//
// Sessions are not safe for concurrent use on their own. All mutation
// happens inside the session's exclusive execution slot (see the session
// registry), which serializes commands per session.
type Session struct {
	ID   string      `json:"id"`
	Meta SessionMeta `json:"meta"`

	// CurrentFrame is the frame id of the screen the participant last
	// navigated to. Empty until the first screen change.
	CurrentFrame string `json:"currentFrame,omitempty"`

	// CurrentScreen is the human-readable name of CurrentFrame, filled
	// best-effort from the design collection. May lag or stay empty.
	CurrentScreen string `json:"currentScreen,omitempty"`

	// ActiveTaskID references the single task currently IN_PROGRESS.
	// Empty when no task is running. Weak reference: the task itself is
	// owned by Tasks.
	ActiveTaskID string `json:"activeTaskId,omitempty"`

	// Tasks in insertion order; insertion order is chronological.
	Tasks []*Task `json:"tasks"`

	StartedAt time.Time `json:"startedAt"`
}

// NewSession creates a session with an empty task history.
func NewSession(id string, meta SessionMeta, now time.Time) *Session {
	return &Session{
		ID:        id,
		Meta:      meta,
		Tasks:     []*Task{},
		StartedAt: now,
	}
}

// Task returns the task with the given id, or nil if the session has
// never seen it.
func (s *Session) Task(id string) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ActiveTask returns the task referenced by ActiveTaskID, or nil.
func (s *Session) ActiveTask() *Task {
	if s.ActiveTaskID == "" {
		return nil
	}
	return s.Task(s.ActiveTaskID)
}

// AddTask appends a task to the history. Callers must have checked that
// the id is not already present.
func (s *Session) AddTask(t *Task) {
	s.Tasks = append(s.Tasks, t)
}

// Clone returns a deep copy, safe to hand out without holding the
// session's execution slot.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Tasks = make([]*Task, len(s.Tasks))
	for i, t := range s.Tasks {
		cp.Tasks[i] = t.Clone()
	}
	return &cp
}
