package ports

import (
	"context"

	"github.com/voxlane/vox/pkg/domain"
)

// WriteSpool queues durable writes that exhausted the data client's
// retry budget, so a background reconciler can replay them once the
// service recovers. Ordering is FIFO per spool; implementations must be
// safe for concurrent use.
type WriteSpool interface {
	// Enqueue appends a pending write. A bounded spool may drop the
	// oldest entry to make room; it reports the drop, not an error.
	Enqueue(ctx context.Context, w domain.PendingWrite) error

	// DequeueBatch removes and returns up to max entries, oldest first.
	// An empty spool returns an empty slice, not an error.
	DequeueBatch(ctx context.Context, max int) ([]domain.PendingWrite, error)

	// Len reports the number of queued writes.
	Len(ctx context.Context) (int, error)
}
