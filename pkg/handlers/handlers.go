package handlers

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/mitchellh/mapstructure"
	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/dataclient"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
)

// config holds the optional collaborators shared by both handler groups.
type config struct {
	spool    ports.WriteSpool
	notifier ports.Notifier
	logger   *slog.Logger
	hooks    domain.DispatchHooks
	now      func() time.Time
}

// Option configures a handler group.
type Option func(*config)

// WithSpool sets the write spool failed durable writes fall back to.
// Without one, a write that exhausts its retries is reported and lost.
func WithSpool(spool ports.WriteSpool) Option {
	return func(c *config) {
		c.spool = spool
	}
}

// WithNotifier sets the fire-and-forget notification sink.
func WithNotifier(n ports.Notifier) Option {
	return func(c *config) {
		c.notifier = n
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithHooks registers observability callbacks for spool activity.
func WithHooks(hooks domain.DispatchHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

func newConfig(opts ...Option) config {
	c := config{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// decode maps a raw command payload onto a typed payload struct.
// Unknown keys are tolerated (payloads carry opaque extras); a payload
// that cannot decode at all is a validation failure.
func decode(payload map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(payload); err != nil {
		return &domain.ValidationError{Field: "payload", Reason: "is malformed"}
	}
	return nil
}

// spill queues a durable write that exhausted the data client's retry
// budget. Spool failures are logged, never propagated: the command
// already carries its PersistenceError.
func (c *config) spill(ctx context.Context, w domain.PendingWrite) {
	if c.spool == nil {
		c.logger.Error("durable write lost, no spool configured",
			"kind", w.Kind,
			"session_id", w.SessionID,
		)
		return
	}
	if err := c.spool.Enqueue(ctx, w); err != nil {
		c.logger.Error("failed to spool durable write",
			"kind", w.Kind,
			"session_id", w.SessionID,
			"err", err,
		)
		return
	}
	c.logger.Warn("durable write spooled for reconciliation",
		"kind", w.Kind,
		"session_id", w.SessionID,
	)
	if c.hooks.OnSpool != nil {
		c.hooks.OnSpool(ctx, &domain.SpoolEvent{Action: domain.SpoolEnqueued, Kind: w.Kind, Depth: -1})
	}
}

// classification extracts the data client's terminal verdict from a
// failed call, falling back to UNKNOWN for anything unstructured.
func classification(err error) string {
	var de *dataclient.Error
	if errors.As(err, &de) {
		return string(de.Classification)
	}
	return string(dataclient.ClassUnknown)
}

// notify posts a fire-and-forget operational notice. Failures are
// logged and swallowed.
func (c *config) notify(ctx context.Context, text string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Post(ctx, text); err != nil {
		c.logger.Warn("notification failed", "err", err)
	}
}
