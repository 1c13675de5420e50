package session

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/domain"
)

// slotEntry holds one session's execution slot and its reference count.
type slotEntry struct {
	mu   sync.Mutex
	refs int
}

// Registry tracks the live sessions of this process and owns each
// session's exclusive execution slot. All session state mutation happens
// inside WithSession, which serializes commands per session while
// letting distinct sessions run fully in parallel.
//
// Slot entries are reference counted and garbage collected when the last
// waiter leaves, so the registry does not accumulate a mutex per session
// ever seen.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	slots    map[string]*slotEntry

	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger configures a logger for attach/detach events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty session registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*domain.Session),
		slots:    make(map[string]*slotEntry),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// acquire gets or creates a slot entry and increments its reference
// count. The caller must Lock entry.mu and later call release(sessionID)
// after unlocking.
func (r *Registry) acquire(sessionID string) *slotEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.slots[sessionID]
	if !exists {
		entry = &slotEntry{}
		r.slots[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (r *Registry) release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.slots[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(r.slots, sessionID)
	}
}

func (r *Registry) lookup(sessionID string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// Attach registers a new live session. Returns domain.ErrSessionExists
// if the id is already attached.
func (r *Registry) Attach(sessionID string, meta domain.SessionMeta) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sessionID]; exists {
		return nil, domain.ErrSessionExists
	}

	sess := domain.NewSession(sessionID, meta, r.now())
	r.sessions[sessionID] = sess

	r.logger.Info("session attached",
		"session_id", sessionID,
		"study_id", meta.StudyID,
		"participant_id", meta.ParticipantID,
	)
	return sess, nil
}

// Detach removes a session. It acquires the session's execution slot
// first, so an in-flight command always completes before teardown;
// commands arriving afterwards fail with UnknownSessionError.
func (r *Registry) Detach(ctx context.Context, sessionID string) error {
	if _, ok := r.lookup(sessionID); !ok {
		return &domain.UnknownSessionError{SessionID: sessionID}
	}

	entry := r.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(sessionID)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return &domain.UnknownSessionError{SessionID: sessionID}
	}
	delete(r.sessions, sessionID)

	r.logger.Info("session detached", "session_id", sessionID)
	return nil
}

// WithSession executes fn while holding the session's exclusive
// execution slot. The session is re-resolved after the slot is acquired:
// a teardown that won the race surfaces as UnknownSessionError, never as
// a handler running against a dead session.
//
// The slot is released on every exit path, including a panic inside fn.
func (r *Registry) WithSession(ctx context.Context, sessionID string, fn func(context.Context, *domain.Session) error) error {
	if _, ok := r.lookup(sessionID); !ok {
		return &domain.UnknownSessionError{SessionID: sessionID}
	}

	entry := r.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(sessionID)
	}()

	sess, ok := r.lookup(sessionID)
	if !ok {
		return &domain.UnknownSessionError{SessionID: sessionID}
	}
	return fn(ctx, sess)
}

// Snapshot returns a deep copy of the session taken under its execution
// slot, safe to read without further synchronization.
func (r *Registry) Snapshot(ctx context.Context, sessionID string) (*domain.Session, error) {
	var snap *domain.Session
	err := r.WithSession(ctx, sessionID, func(_ context.Context, sess *domain.Session) error {
		snap = sess.Clone()
		return nil
	})
	return snap, err
}

// List returns the ids of all live sessions.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
