package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoster records posted messages and can simulate a slow or failing
// Slack API.
type fakePoster struct {
	mu       sync.Mutex
	messages []slack.MsgOption
	delay    time.Duration
	err      error
}

func (f *fakePoster) PostMessageContext(_ context.Context, _ string, options ...slack.MsgOption) (string, string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	f.messages = append(f.messages, options...)
	return "C123", "ts", nil
}

func (f *fakePoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func TestSlack_CloseFlushesQueue(t *testing.T) {
	poster := &fakePoster{}
	n := NewSlack("", "C123", withPoster(poster))

	for i := 0; i < 5; i++ {
		require.NoError(t, n.Post(context.Background(), "task completed"))
	}
	require.NoError(t, n.Close())

	assert.Equal(t, 5, poster.count())
}

func TestSlack_PostNeverBlocks(t *testing.T) {
	poster := &fakePoster{delay: time.Second}
	n := NewSlack("", "C123", withPoster(poster), WithQueueSize(1))
	defer func() {
		// Don't wait for the slow flush in this test.
		go n.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more notices than the queue holds; overflow must drop,
		// not block the caller.
		for i := 0; i < 50; i++ {
			_ = n.Post(context.Background(), "notice")
		}
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Post blocked on a slow sink")
	}
}

func TestSlack_PostAfterCloseIsDropped(t *testing.T) {
	poster := &fakePoster{}
	n := NewSlack("", "C123", withPoster(poster))
	require.NoError(t, n.Close())

	// A notice racing past Close must be dropped, never panic.
	require.NoError(t, n.Post(context.Background(), "late notice"))
	require.NoError(t, n.Close())

	assert.Zero(t, poster.count())
}

func TestSlack_PostFailureIsSwallowed(t *testing.T) {
	poster := &fakePoster{err: errors.New("channel_not_found")}
	n := NewSlack("", "C123", withPoster(poster))

	require.NoError(t, n.Post(context.Background(), "notice"))
	require.NoError(t, n.Close())
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Post(context.Background(), "ignored"))
}
