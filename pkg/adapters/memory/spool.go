// Package memory provides the in-process write spool.
package memory

import (
	"context"
	"sync"

	"log/slog"

	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
)

// DefaultCapacity bounds the spool when no capacity option is given.
const DefaultCapacity = 1024

// Spool implements ports.WriteSpool in memory. Bounded: when full, the
// oldest entry is dropped with a warning so recent writes survive a
// long outage. Safe for concurrent use. Contents die with the process;
// deployments that need the spool to survive a restart use the Redis
// spool instead.
type Spool struct {
	mu      sync.Mutex
	entries []domain.PendingWrite

	capacity int
	logger   *slog.Logger
}

// Option configures the Spool.
type Option func(*Spool)

// WithCapacity bounds the number of queued writes.
func WithCapacity(n int) Option {
	return func(s *Spool) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger used to report dropped writes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spool) {
		s.logger = logger
	}
}

// NewSpool creates an empty in-memory spool.
func NewSpool(opts ...Option) *Spool {
	s := &Spool{
		capacity: DefaultCapacity,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.WriteSpool = (*Spool)(nil)

// Enqueue appends a pending write, dropping the oldest entry when the
// spool is at capacity.
func (s *Spool) Enqueue(_ context.Context, w domain.PendingWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.capacity {
		dropped := s.entries[0]
		s.entries = s.entries[1:]
		s.logger.Warn("spool full, dropping oldest write",
			"kind", dropped.Kind,
			"session_id", dropped.SessionID,
		)
	}
	s.entries = append(s.entries, w)
	return nil
}

// DequeueBatch removes and returns up to max entries, oldest first.
func (s *Spool) DequeueBatch(_ context.Context, max int) ([]domain.PendingWrite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(max, len(s.entries))
	if n <= 0 {
		return nil, nil
	}
	batch := make([]domain.PendingWrite, n)
	copy(batch, s.entries[:n])
	s.entries = append(s.entries[:0], s.entries[n:]...)
	return batch, nil
}

// Len reports the number of queued writes.
func (s *Spool) Len(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}
