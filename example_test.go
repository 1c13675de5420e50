package vox_test

import (
	"context"
	"fmt"

	"github.com/voxlane/vox"
	"github.com/voxlane/vox/internal/testutils"
	"github.com/voxlane/vox/pkg/domain"
)

func ExampleAgent_Dispatch() {
	agent, err := vox.New(testutils.NewFakeDataService())
	if err != nil {
		panic(err)
	}
	defer agent.Close()

	ctx := context.Background()
	meta := domain.SessionMeta{
		DatabaseID:    "db-1",
		StudyID:       "study-1",
		ParticipantID: "participant-1",
	}
	if _, err := agent.AttachSession(ctx, "session-123", meta); err != nil {
		panic(err)
	}

	resp := agent.Dispatch(ctx, domain.Envelope{
		Method:    domain.MethodTaskStart,
		SessionID: "session-123",
		Payload:   map[string]any{"taskId": "t1"},
	})
	fmt.Println(resp.OK, resp.Result["state"])

	// A second start while t1 runs violates the single-active-task
	// invariant and is rejected before any mutation.
	resp = agent.Dispatch(ctx, domain.Envelope{
		Method:    domain.MethodTaskStart,
		SessionID: "session-123",
		Payload:   map[string]any{"taskId": "t2"},
	})
	fmt.Println(resp.OK, resp.Error.Type)

	// Output:
	// true IN_PROGRESS
	// false InvalidTransitionError
}
