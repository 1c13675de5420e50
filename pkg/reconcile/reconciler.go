package reconcile

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
)

// Defaults applied by New when the corresponding option is unset.
const (
	DefaultInterval   = 5 * time.Second
	DefaultMaxBackoff = 2 * time.Minute
	DefaultBatchSize  = 16
)

// Reconciler drains the write spool through the data service on an
// interval. A write that still fails goes back on the spool with its
// attempt count bumped, and the loop backs off exponentially until a
// replay succeeds again.
type Reconciler struct {
	spool ports.WriteSpool
	data  ports.DataService

	interval   time.Duration
	maxBackoff time.Duration
	batchSize  int

	logger *slog.Logger
	hooks  domain.DispatchHooks

	done chan struct{}
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithInterval sets the drain interval.
func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxBackoff caps the wait between failed drain passes.
func WithMaxBackoff(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.maxBackoff = d
		}
	}
}

// WithBatchSize sets how many writes one pass replays.
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger sets the reconciler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithHooks registers observability callbacks for drain activity.
func WithHooks(hooks domain.DispatchHooks) Option {
	return func(r *Reconciler) {
		r.hooks = hooks
	}
}

// New creates a reconciler over the given spool and data service.
func New(spool ports.WriteSpool, data ports.DataService, opts ...Option) *Reconciler {
	r := &Reconciler{
		spool:      spool,
		data:       data,
		interval:   DefaultInterval,
		maxBackoff: DefaultMaxBackoff,
		batchSize:  DefaultBatchSize,
		logger:     logging.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains the spool until ctx is canceled. It blocks; callers start
// it in a goroutine and cancel the context to stop it.
func (r *Reconciler) Run(ctx context.Context) {
	defer close(r.done)

	wait := r.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		drained, failed := r.drain(ctx)
		if failed > 0 {
			wait = min(wait*2, r.maxBackoff)
			r.logger.Warn("reconciliation pass incomplete",
				"drained", drained,
				"requeued", failed,
				"next_pass", wait,
			)
			continue
		}
		wait = r.interval
	}
}

// Done is closed when Run has returned.
func (r *Reconciler) Done() <-chan struct{} { return r.done }

// drain replays one batch. Writes that fail again are re-enqueued with
// their attempt count bumped; the batch stops at the first failure so a
// down service costs one probe per pass, not one per spooled write.
func (r *Reconciler) drain(ctx context.Context) (drained, failed int) {
	batch, err := r.spool.DequeueBatch(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("spool dequeue failed", "err", err)
		return 0, 1
	}

	for i, w := range batch {
		if err := r.replay(ctx, w); err != nil {
			r.logger.Warn("replay failed",
				"kind", w.Kind,
				"session_id", w.SessionID,
				"attempts", w.Attempts+1,
				"err", err,
			)
			r.requeue(ctx, batch[i:])
			return drained, len(batch) - i
		}
		drained++
		r.emit(ctx, domain.SpoolDrained, w.Kind)
	}

	if drained > 0 {
		r.logger.Info("reconciled spooled writes", "count", drained)
	}
	return drained, 0
}

// replay applies one pending write against the data service.
func (r *Reconciler) replay(ctx context.Context, w domain.PendingWrite) error {
	switch w.Kind {
	case domain.PendingEvent:
		return r.data.AppendInteractionEvent(ctx, w.DatabaseID, w.StudyID, w.ParticipantID, *w.Event)
	case domain.PendingSessionPatch:
		_, err := r.data.UpdateSessionData(ctx, w.DatabaseID, w.StudyID, w.ParticipantID, w.SessionID, w.Patch)
		return err
	default:
		return fmt.Errorf("unknown pending write kind %q", w.Kind)
	}
}

// requeue puts unreplayed writes back on the spool, oldest first, so
// FIFO order survives a failed pass.
func (r *Reconciler) requeue(ctx context.Context, writes []domain.PendingWrite) {
	for _, w := range writes {
		w.Attempts++
		if err := r.spool.Enqueue(ctx, w); err != nil {
			r.logger.Error("requeue failed, write lost",
				"kind", w.Kind,
				"session_id", w.SessionID,
				"err", err,
			)
			continue
		}
		r.emit(ctx, domain.SpoolRequeued, w.Kind)
	}
}

func (r *Reconciler) emit(ctx context.Context, action domain.SpoolAction, kind domain.PendingWriteKind) {
	if r.hooks.OnSpool == nil {
		return
	}
	depth := -1
	if n, err := r.spool.Len(ctx); err == nil {
		depth = n
	}
	r.hooks.OnSpool(ctx, &domain.SpoolEvent{Action: action, Kind: kind, Depth: depth})
}
