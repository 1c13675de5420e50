package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/vox/pkg/domain"
)

// RunWriteSpoolContract verifies that a WriteSpool implementation adheres
// to the interface contract. Adapter test suites call it against a fresh,
// empty spool.
func RunWriteSpoolContract(t *testing.T, spool WriteSpool) {
	ctx := context.Background()
	meta := domain.SessionMeta{DatabaseID: "db", StudyID: "study", ParticipantID: "p1"}

	t.Run("EmptyDequeue", func(t *testing.T) {
		batch, err := spool.DequeueBatch(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, batch)

		n, err := spool.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("FIFOOrder", func(t *testing.T) {
		now := time.Now()
		for i, sid := range []string{"s1", "s2", "s3"} {
			event := domain.NewInteractionEvent(domain.EventScreenChange, sid, map[string]any{"seq": i}, now)
			require.NoError(t, spool.Enqueue(ctx, domain.EventWrite(meta, event, now)))
		}

		n, err := spool.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		batch, err := spool.DequeueBatch(ctx, 2)
		require.NoError(t, err)
		require.Len(t, batch, 2)
		assert.Equal(t, "s1", batch[0].SessionID)
		assert.Equal(t, "s2", batch[1].SessionID)

		rest, err := spool.DequeueBatch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "s3", rest[0].SessionID)
	})

	t.Run("PatchRoundTrip", func(t *testing.T) {
		now := time.Now()
		patch := map[string]any{"activeTaskId": "t1", "currentFrameId": "9:2"}
		require.NoError(t, spool.Enqueue(ctx, domain.PatchWrite(meta, "sess-7", patch, now)))

		batch, err := spool.DequeueBatch(ctx, 1)
		require.NoError(t, err)
		require.Len(t, batch, 1)

		got := batch[0]
		assert.Equal(t, domain.PendingSessionPatch, got.Kind)
		assert.Equal(t, "sess-7", got.SessionID)
		assert.Equal(t, meta.DatabaseID, got.DatabaseID)
		assert.Nil(t, got.Event)
		assert.Equal(t, "t1", got.Patch["activeTaskId"])
	})
}
