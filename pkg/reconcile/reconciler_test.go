package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/vox/internal/testutils"
	"github.com/voxlane/vox/pkg/adapters/memory"
	"github.com/voxlane/vox/pkg/dataclient"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/reconcile"
)

var testMeta = domain.SessionMeta{DatabaseID: "db", StudyID: "study-1", ParticipantID: "p-1"}

func spoolEvent(t *testing.T, spool *memory.Spool, sessionID string) domain.InteractionEvent {
	t.Helper()
	event := domain.NewInteractionEvent(domain.EventScreenChange, sessionID, map[string]any{"newFrameId": "9:2"}, time.Now())
	require.NoError(t, spool.Enqueue(context.Background(), domain.EventWrite(testMeta, event, time.Now())))
	return event
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestReconciler_DrainsSpooledWrites(t *testing.T) {
	data := testutils.NewFakeDataService()
	spool := memory.NewSpool()

	event := spoolEvent(t, spool, "sess-1")
	require.NoError(t, spool.Enqueue(context.Background(),
		domain.PatchWrite(testMeta, "sess-1", map[string]any{"activeTaskId": "t1"}, time.Now())))

	r := reconcile.New(spool, data, reconcile.WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	waitFor(t, func() bool {
		n, _ := spool.Len(context.Background())
		return n == 0 && data.EventCount() == 1 && data.Calls("UpdateSessionData") == 1
	}, "spool never drained")

	cancel()
	<-r.Done()

	require.Len(t, data.Events, 1)
	assert.Equal(t, event.ID, data.Events[0].ID)
	require.Len(t, data.Patches, 1)
	assert.Equal(t, "t1", data.Patches[0]["activeTaskId"])
}

func TestReconciler_RequeuesWhileServiceDown(t *testing.T) {
	data := testutils.NewFakeDataService()
	data.SetWriteFailures(
		&dataclient.Error{Op: "AppendInteractionEvent", Classification: dataclient.ClassNetwork},
		nil,
	)
	spool := memory.NewSpool()
	spoolEvent(t, spool, "sess-1")

	r := reconcile.New(spool, data,
		reconcile.WithInterval(5*time.Millisecond),
		reconcile.WithMaxBackoff(20*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	// The write must survive failed passes.
	waitFor(t, func() bool { return data.Calls("AppendInteractionEvent") >= 2 }, "no replay attempts")
	n, err := spool.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed write must be requeued, not dropped")

	// Service recovers; the write lands.
	data.SetWriteFailures(nil, nil)
	waitFor(t, func() bool { return data.EventCount() == 1 }, "write never landed after recovery")

	cancel()
	<-r.Done()
}

func TestReconciler_StopsOnCancel(t *testing.T) {
	data := testutils.NewFakeDataService()
	spool := memory.NewSpool()

	r := reconcile.New(spool, data, reconcile.WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	cancel()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestReconciler_CountsAttempts(t *testing.T) {
	data := testutils.NewFakeDataService()
	data.SetWriteFailures(
		&dataclient.Error{Op: "AppendInteractionEvent", Classification: dataclient.ClassNetwork},
		nil,
	)
	spool := memory.NewSpool()
	spoolEvent(t, spool, "sess-1")

	r := reconcile.New(spool, data,
		reconcile.WithInterval(time.Millisecond),
		reconcile.WithMaxBackoff(10*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	waitFor(t, func() bool { return data.Calls("AppendInteractionEvent") >= 3 }, "no replay attempts")
	cancel()
	<-r.Done()

	batch, err := spool.DequeueBatch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.GreaterOrEqual(t, batch[0].Attempts, 2)
}
