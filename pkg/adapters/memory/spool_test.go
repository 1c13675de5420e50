package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
)

func TestSpoolContract(t *testing.T) {
	ports.RunWriteSpoolContract(t, NewSpool())
}

func TestSpoolDropsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	spool := NewSpool(WithCapacity(2))
	meta := domain.SessionMeta{DatabaseID: "db", StudyID: "study", ParticipantID: "p1"}
	now := time.Now()

	for _, sid := range []string{"s1", "s2", "s3"} {
		event := domain.NewInteractionEvent(domain.EventComponentClick, sid, nil, now)
		require.NoError(t, spool.Enqueue(ctx, domain.EventWrite(meta, event, now)))
	}

	n, err := spool.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	batch, err := spool.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "s2", batch[0].SessionID)
	assert.Equal(t, "s3", batch[1].SessionID)
}

func TestSpoolConcurrentEnqueue(t *testing.T) {
	ctx := context.Background()
	spool := NewSpool()
	meta := domain.SessionMeta{DatabaseID: "db", StudyID: "study", ParticipantID: "p1"}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 20; j++ {
				event := domain.NewInteractionEvent(domain.EventScreenChange, "s", nil, time.Now())
				_ = spool.Enqueue(ctx, domain.EventWrite(meta, event, time.Now()))
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	n, err := spool.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, n)
}
