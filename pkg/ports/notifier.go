package ports

import "context"

// Notifier posts fire-and-forget operational notices. Failures are the
// implementation's problem (log and move on); callers never propagate a
// notification error into a command response.
type Notifier interface {
	Post(ctx context.Context, text string) error
}
