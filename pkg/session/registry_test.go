package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/session"
)

func TestRegistry_AttachAndGet(t *testing.T) {
	reg := session.NewRegistry()
	meta := domain.SessionMeta{DatabaseID: "db", StudyID: "study-1", ParticipantID: "p-1"}

	sess, err := reg.Attach("s1", meta)
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, meta, sess.Meta)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Attach("s1", meta)
	assert.ErrorIs(t, err, domain.ErrSessionExists)
}

func TestRegistry_WithSessionUnknown(t *testing.T) {
	reg := session.NewRegistry()

	err := reg.WithSession(context.Background(), "ghost", func(context.Context, *domain.Session) error {
		t.Fatal("fn must not run for an unknown session")
		return nil
	})

	var unknown *domain.UnknownSessionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.SessionID)
}

func TestRegistry_SerializesSameSession(t *testing.T) {
	reg := session.NewRegistry()
	_, err := reg.Attach("race", domain.SessionMeta{})
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	writers := 50

	// Unsynchronized read-modify-write on the session. Lost updates mean
	// the execution slot failed to serialize.
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := reg.WithSession(ctx, "race", func(_ context.Context, sess *domain.Session) error {
				n := len(sess.Tasks)
				time.Sleep(time.Millisecond)
				sess.AddTask(domain.NewTask(time.Now().String() + "-" + string(rune('a'+n%26))))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := reg.Snapshot(ctx, "race")
	require.NoError(t, err)
	assert.Len(t, snap.Tasks, writers)
}

func TestRegistry_ParallelAcrossSessions(t *testing.T) {
	reg := session.NewRegistry()
	_, err := reg.Attach("slow", domain.SessionMeta{})
	require.NoError(t, err)
	_, err = reg.Attach("fast", domain.SessionMeta{})
	require.NoError(t, err)

	ctx := context.Background()
	slowHolding := make(chan struct{})
	releaseSlow := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = reg.WithSession(ctx, "slow", func(context.Context, *domain.Session) error {
			close(slowHolding)
			<-releaseSlow
			return nil
		})
		close(done)
	}()

	<-slowHolding

	// The fast session must not queue behind the slow one.
	fastDone := make(chan struct{})
	go func() {
		err := reg.WithSession(ctx, "fast", func(context.Context, *domain.Session) error { return nil })
		assert.NoError(t, err)
		close(fastDone)
	}()

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("command for an idle session blocked behind another session's slot")
	}

	close(releaseSlow)
	<-done
}

func TestRegistry_DetachWaitsForInflight(t *testing.T) {
	reg := session.NewRegistry()
	_, err := reg.Attach("s1", domain.SessionMeta{})
	require.NoError(t, err)

	ctx := context.Background()
	inHandler := make(chan struct{})
	finishHandler := make(chan struct{})
	var handlerDone, detachDone time.Time

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		err := reg.WithSession(ctx, "s1", func(context.Context, *domain.Session) error {
			close(inHandler)
			<-finishHandler
			handlerDone = time.Now()
			return nil
		})
		assert.NoError(t, err, "in-flight command must complete despite teardown")
	}()

	go func() {
		defer wg.Done()
		<-inHandler
		go func() {
			time.Sleep(20 * time.Millisecond)
			close(finishHandler)
		}()
		require.NoError(t, reg.Detach(ctx, "s1"))
		detachDone = time.Now()
	}()

	wg.Wait()

	assert.False(t, detachDone.Before(handlerDone), "detach must wait for the in-flight handler")

	// Anything after teardown is rejected.
	err = reg.WithSession(ctx, "s1", func(context.Context, *domain.Session) error { return nil })
	var unknown *domain.UnknownSessionError
	assert.ErrorAs(t, err, &unknown)
}

func TestRegistry_SnapshotIsDetached(t *testing.T) {
	reg := session.NewRegistry()
	_, err := reg.Attach("s1", domain.SessionMeta{StudyID: "study"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, reg.WithSession(ctx, "s1", func(_ context.Context, sess *domain.Session) error {
		task := domain.NewTask("t1")
		task.Metadata = map[string]any{"taskName": "first"}
		sess.AddTask(task)
		return nil
	}))

	snap, err := reg.Snapshot(ctx, "s1")
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the live session.
	snap.Tasks[0].Metadata["taskName"] = "mutated"
	snap.CurrentFrame = "9:9"

	live, err := reg.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "first", live.Tasks[0].Metadata["taskName"])
	assert.Empty(t, live.CurrentFrame)
}
