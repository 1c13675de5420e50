package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/voxlane/vox/pkg/domain"
)

func TestRegistry_SlotLifecycle(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	count := 10000

	// Attach, touch, and detach many sessions.
	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		if _, err := reg.Attach(sid, domain.SessionMeta{}); err != nil {
			t.Fatalf("attach %s: %v", sid, err)
		}
		_ = reg.WithSession(ctx, sid, func(context.Context, *domain.Session) error { return nil })
		if err := reg.Detach(ctx, sid); err != nil {
			t.Fatalf("detach %s: %v", sid, err)
		}
	}

	// Slot entries are reference counted; none may outlive their waiters.
	reg.mu.Lock()
	slotCount := len(reg.slots)
	sessionCount := len(reg.sessions)
	reg.mu.Unlock()

	if slotCount != 0 {
		t.Errorf("memory leak: %d slot entries remaining after detach", slotCount)
	}
	if sessionCount != 0 {
		t.Errorf("%d sessions remaining after detach", sessionCount)
	}
}
