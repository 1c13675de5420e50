package vox

import (
	"context"
	"io"
	"time"

	"log/slog"

	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/handlers"
	"github.com/voxlane/vox/pkg/ports"
	"github.com/voxlane/vox/pkg/reconcile"
	"github.com/voxlane/vox/pkg/router"
	"github.com/voxlane/vox/pkg/session"
)

// Agent is the high-level entry point for the vox command router. It
// owns the session registry, the command router with its registered
// handlers, and the optional background reconciler, all built around
// one explicitly injected data service client.
type Agent struct {
	sessions *session.Registry
	router   *router.Router
	data     ports.DataService

	spool          ports.WriteSpool
	notifier       ports.Notifier
	reconcilerOpts []reconcile.Option
	reconciler     *reconcile.Reconciler
	stopReconciler context.CancelFunc

	hooks  domain.DispatchHooks
	logger *slog.Logger
	now    func() time.Time
}

// Option defines a functional option for configuring the Agent.
type Option func(*Agent)

// WithLogger sets a structured logger for the agent and everything it
// builds.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithSpool enables the write spool for durable writes that exhaust the
// data client's retries, and starts a background reconciler over it.
func WithSpool(spool ports.WriteSpool) Option {
	return func(a *Agent) {
		a.spool = spool
	}
}

// WithReconcilerOptions tunes the background reconciler. Only
// meaningful together with WithSpool.
func WithReconcilerOptions(opts ...reconcile.Option) Option {
	return func(a *Agent) {
		a.reconcilerOpts = opts
	}
}

// WithNotifier sets the fire-and-forget notification sink.
func WithNotifier(n ports.Notifier) Option {
	return func(a *Agent) {
		a.notifier = n
	}
}

// WithHooks registers observability callbacks for dispatches and spool
// activity.
func WithHooks(hooks domain.DispatchHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		a.now = now
	}
}

// New initializes an Agent over the given data service. The six
// command handlers are registered here; a duplicate registration is a
// programming error and fails construction.
func New(data ports.DataService, opts ...Option) (*Agent, error) {
	a := &Agent{
		data:   data,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.sessions = session.NewRegistry(
		session.WithLogger(a.logger),
		session.WithClock(a.now),
	)
	a.router = router.New(a.sessions,
		router.WithLogger(a.logger),
		router.WithHooks(a.hooks),
		router.WithClock(a.now),
	)

	handlerOpts := []handlers.Option{
		handlers.WithLogger(a.logger),
		handlers.WithHooks(a.hooks),
		handlers.WithClock(a.now),
	}
	if a.spool != nil {
		handlerOpts = append(handlerOpts, handlers.WithSpool(a.spool))
	}
	if a.notifier != nil {
		handlerOpts = append(handlerOpts, handlers.WithNotifier(a.notifier))
	}

	if err := handlers.NewInteractions(data, handlerOpts...).Register(a.router); err != nil {
		return nil, err
	}
	if err := handlers.NewTasks(data, handlerOpts...).Register(a.router); err != nil {
		return nil, err
	}

	if a.spool != nil {
		recOpts := append([]reconcile.Option{
			reconcile.WithLogger(a.logger),
			reconcile.WithHooks(a.hooks),
		}, a.reconcilerOpts...)
		a.reconciler = reconcile.New(a.spool, data, recOpts...)

		ctx, cancel := context.WithCancel(context.Background())
		a.stopReconciler = cancel
		go a.reconciler.Run(ctx)
	}

	return a, nil
}

// Dispatch routes one command envelope and always returns a response.
func (a *Agent) Dispatch(ctx context.Context, env domain.Envelope) domain.Response {
	return a.router.Dispatch(ctx, env)
}

// AttachSession registers a new live session and seeds its task list
// from the study document. Seeding is best effort: a data service
// failure degrades to lazy task creation and never blocks the attach.
func (a *Agent) AttachSession(ctx context.Context, sessionID string, meta domain.SessionMeta) (*domain.Session, error) {
	if _, err := a.sessions.Attach(sessionID, meta); err != nil {
		return nil, err
	}
	a.seedTasks(ctx, sessionID, meta)
	return a.sessions.Snapshot(ctx, sessionID)
}

// seedTasks preloads the study's task list so callers see the full
// history from the first command on.
func (a *Agent) seedTasks(ctx context.Context, sessionID string, meta domain.SessionMeta) {
	if meta.StudyID == "" {
		return
	}
	study, err := a.data.GetStudyData(ctx, meta.DatabaseID, meta.StudyID)
	if err != nil {
		a.logger.Warn("task seeding skipped",
			"session_id", sessionID,
			"study_id", meta.StudyID,
			"err", err,
		)
		return
	}

	raw, _ := study["tasks"].([]any)
	if len(raw) == 0 {
		return
	}

	_ = a.sessions.WithSession(ctx, sessionID, func(_ context.Context, sess *domain.Session) error {
		for _, item := range raw {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, _ := fields["taskId"].(string)
			if id == "" {
				id, _ = fields["id"].(string)
			}
			if id == "" || sess.Task(id) != nil {
				continue
			}
			t := domain.NewTask(id)
			t.Metadata = fields
			sess.AddTask(t)
		}
		return nil
	})
}

// DetachSession tears a session down. In-flight commands complete
// first; later commands fail with UnknownSessionError.
func (a *Agent) DetachSession(ctx context.Context, sessionID string) error {
	return a.sessions.Detach(ctx, sessionID)
}

// SessionSnapshot returns a deep copy of one live session.
func (a *Agent) SessionSnapshot(ctx context.Context, sessionID string) (*domain.Session, error) {
	return a.sessions.Snapshot(ctx, sessionID)
}

// Sessions returns the ids of all live sessions.
func (a *Agent) Sessions() []string {
	return a.sessions.List()
}

// Methods returns the registered command names.
func (a *Agent) Methods() []domain.Method {
	return a.router.Methods()
}

// HealthCheck probes the backing data service.
func (a *Agent) HealthCheck(ctx context.Context) error {
	return a.data.HealthCheck(ctx)
}

// Close stops the background reconciler and releases the notifier.
// Live sessions are simply forgotten; their durable copies are already
// behind the data service.
func (a *Agent) Close() error {
	if a.stopReconciler != nil {
		a.stopReconciler()
		<-a.reconciler.Done()
	}
	if closer, ok := a.notifier.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
