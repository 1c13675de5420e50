package notify

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/slack-go/slack"
	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/ports"
)

const (
	defaultQueueSize   = 64
	defaultPostTimeout = 10 * time.Second
)

// poster is the slice of the Slack API the notifier uses.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts notices to one Slack channel through a background worker.
// Post enqueues without blocking; when the queue is full the notice is
// dropped with a log line. Close flushes what is queued.
type Slack struct {
	api       poster
	channelID string
	logger    *slog.Logger

	queue chan string
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// SlackOption configures the Slack notifier.
type SlackOption func(*Slack)

// WithLogger sets the notifier logger.
func WithLogger(logger *slog.Logger) SlackOption {
	return func(n *Slack) {
		n.logger = logger
	}
}

// WithQueueSize bounds the pending-notice queue.
func WithQueueSize(size int) SlackOption {
	return func(n *Slack) {
		if size > 0 {
			n.queue = make(chan string, size)
		}
	}
}

// withPoster overrides the Slack API client. Used by tests.
func withPoster(p poster) SlackOption {
	return func(n *Slack) {
		n.api = p
	}
}

// NewSlack creates a Slack notifier and starts its worker.
func NewSlack(token, channelID string, opts ...SlackOption) *Slack {
	n := &Slack{
		api:       slack.New(token),
		channelID: channelID,
		logger:    logging.NewNop(),
		queue:     make(chan string, defaultQueueSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	go n.run()
	return n
}

var _ ports.Notifier = (*Slack)(nil)

// Post enqueues a notice. It never blocks: a full queue drops the
// notice and reports nothing, per the fire-and-forget contract. A
// notice posted after Close is dropped the same way.
func (n *Slack) Post(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	select {
	case n.queue <- text:
	default:
		n.logger.Warn("notification queue full, dropping notice")
	}
	return nil
}

// Close stops accepting notices and flushes the queue.
func (n *Slack) Close() error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
	return nil
}

func (n *Slack) run() {
	defer close(n.done)
	for text := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultPostTimeout)
		_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(text, false))
		cancel()
		if err != nil {
			n.logger.Warn("slack post failed", "err", err)
		}
	}
}

// Nop is the notifier used when no sink is configured.
type Nop struct{}

var _ ports.Notifier = Nop{}

func (Nop) Post(context.Context, string) error { return nil }
