// Package redis provides the Redis-backed write spool.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
)

// Spool implements ports.WriteSpool on a Redis list, so spooled writes
// survive a process restart. Entries are JSON encoded; RPUSH/LPOP keeps
// FIFO order.
type Spool struct {
	client *backend.Client
	key    string
}

// Option configures the Spool.
type Option func(*Spool)

// WithKey sets the Redis list key.
func WithKey(key string) Option {
	return func(s *Spool) {
		s.key = key
	}
}

// New creates a Redis spool with its own client.
func New(address, password string, db int, opts ...Option) *Spool {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis spool from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Spool {
	s := &Spool{
		client: client,
		key:    "vox:spool",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.WriteSpool = (*Spool)(nil)

// Enqueue appends a pending write to the tail of the list.
func (s *Spool) Enqueue(ctx context.Context, w domain.PendingWrite) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal pending write: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue to redis: %w", err)
	}
	return nil
}

// DequeueBatch pops up to max entries from the head of the list.
func (s *Spool) DequeueBatch(ctx context.Context, max int) ([]domain.PendingWrite, error) {
	if max <= 0 {
		return nil, nil
	}

	raw, err := s.client.LPopCount(ctx, s.key, max).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue from redis: %w", err)
	}

	batch := make([]domain.PendingWrite, 0, len(raw))
	for _, item := range raw {
		var w domain.PendingWrite
		if err := json.Unmarshal([]byte(item), &w); err != nil {
			return batch, fmt.Errorf("failed to unmarshal pending write: %w", err)
		}
		batch = append(batch, w)
	}
	return batch, nil
}

// Len reports the list length.
func (s *Spool) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read spool length: %w", err)
	}
	return int(n), nil
}

// Close releases the underlying client.
func (s *Spool) Close() error {
	return s.client.Close()
}
