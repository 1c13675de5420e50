package router

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/session"
)

// Handler executes one command against a session. It runs inside the
// session's exclusive execution slot, so it may mutate the session
// freely. The returned map becomes the response result; a returned
// error is classified into the wire taxonomy by the router.
type Handler func(ctx context.Context, sess *domain.Session, payload map[string]any) (map[string]any, error)

// Router maps command names to handlers and dispatches inbound
// envelopes. Registration happens once at startup; Dispatch is safe for
// concurrent use and serializes commands per session through the
// session registry.
type Router struct {
	sessions *session.Registry
	handlers map[domain.Method]Handler

	logger *slog.Logger
	hooks  domain.DispatchHooks
	now    func() time.Time
}

// Option configures the Router.
type Option func(*Router)

// WithLogger sets the logger for envelope/response pairs.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithHooks registers observability callbacks.
func WithHooks(hooks domain.DispatchHooks) Option {
	return func(r *Router) {
		r.hooks = hooks
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// New creates a router over the given session registry.
func New(sessions *session.Registry, opts ...Option) *Router {
	r := &Router{
		sessions: sessions,
		handlers: make(map[domain.Method]Handler),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a handler to a method name. A second registration under
// the same name returns DuplicateMethodError; callers treat that as a
// boot failure, not a runtime condition.
func (r *Router) Register(method domain.Method, handler Handler) error {
	if _, exists := r.handlers[method]; exists {
		return &domain.DuplicateMethodError{Method: method}
	}
	r.handlers[method] = handler
	return nil
}

// Methods returns the registered method names.
func (r *Router) Methods() []domain.Method {
	methods := make([]domain.Method, 0, len(r.handlers))
	for m := range r.handlers {
		methods = append(methods, m)
	}
	return methods
}

// Dispatch routes one envelope to its handler and always produces a
// response: every failure, including a handler panic, is classified
// into the wire taxonomy. Commands for one session run strictly one at
// a time; commands for distinct sessions run in parallel.
func (r *Router) Dispatch(ctx context.Context, env domain.Envelope) domain.Response {
	started := r.now()

	handler, ok := r.handlers[env.Method]
	if !ok {
		return r.finish(ctx, env, started, domain.ErrResponse(&domain.UnknownMethodError{Method: env.Method}))
	}

	var result map[string]any
	err := r.sessions.WithSession(ctx, env.SessionID, func(ctx context.Context, sess *domain.Session) error {
		var handlerErr error
		result, handlerErr = r.invoke(ctx, handler, sess, env.Payload)
		return handlerErr
	})
	if err != nil {
		resp := domain.ErrResponse(err)
		// A persistence failure keeps its local effects; the handler's
		// partial result rides along so the caller sees them.
		if result != nil && resp.Error.Type == domain.ErrTypePersistence {
			resp.Result = result
		}
		return r.finish(ctx, env, started, resp)
	}
	return r.finish(ctx, env, started, domain.OKResponse(result))
}

// invoke runs the handler with panic containment. A panicking handler
// must not take down the dispatch loop or leave the session slot held.
func (r *Router) invoke(ctx context.Context, handler Handler, sess *domain.Session, payload map[string]any) (result map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked",
				"session_id", sess.ID,
				"panic", rec,
			)
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return handler(ctx, sess, payload)
}

// finish logs the envelope/response pair and fires the dispatch hook.
func (r *Router) finish(ctx context.Context, env domain.Envelope, started time.Time, resp domain.Response) domain.Response {
	duration := r.now().Sub(started)

	if resp.OK {
		r.logger.Info("command dispatched",
			"method", env.Method,
			"session_id", env.SessionID,
			"caller", env.CallerIdentity,
			"duration", duration,
		)
	} else {
		r.logger.Warn("command failed",
			"method", env.Method,
			"session_id", env.SessionID,
			"caller", env.CallerIdentity,
			"duration", duration,
			"error_type", resp.Error.Type,
			"err", resp.Error.Message,
		)
	}

	if r.hooks.OnDispatch != nil {
		event := &domain.DispatchEvent{
			Method:    env.Method,
			SessionID: env.SessionID,
			Duration:  duration,
			OK:        resp.OK,
		}
		if resp.Error != nil {
			event.ErrorType = resp.Error.Type
		}
		r.hooks.OnDispatch(ctx, event)
	}
	return resp
}
