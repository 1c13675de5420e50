/*
Package vox is a real-time command router for voice-session agents: remote
callers invoke named commands against a running session, and the agent
dispatches each command to its handler, evolves session and task state, and
persists outcomes to a backing data service.

The core is the command dispatch layer and the task lifecycle state machine.
Commands for one session run strictly one at a time through the session's
exclusive execution slot; distinct sessions run fully in parallel. Tasks move
through a fixed lifecycle (NOT_STARTED, IN_PROGRESS, COMPLETED, SKIPPED) with
at most one task in progress per session, and a persistence failure never
rolls back an applied transition: session state stays available to the live
caller while the write spool converges the durable store in the background.

# Usage

Construct the Agent around an explicitly injected data service client,
attach a session, then dispatch command envelopes against it:

	package main

	import (
		"context"
		"log"

		"github.com/voxlane/vox"
		"github.com/voxlane/vox/pkg/dataclient"
		"github.com/voxlane/vox/pkg/domain"
	)

	func main() {
		data, err := dataclient.New(dataclient.Config{
			BaseURL: "http://localhost:3000",
		})
		if err != nil {
			log.Fatal(err)
		}

		agent, err := vox.New(data)
		if err != nil {
			log.Fatal(err)
		}
		defer agent.Close()

		ctx := context.Background()
		meta := domain.SessionMeta{
			DatabaseID:    "db-1",
			StudyID:       "study-1",
			ParticipantID: "participant-1",
		}
		if _, err := agent.AttachSession(ctx, "session-123", meta); err != nil {
			log.Fatal(err)
		}

		resp := agent.Dispatch(ctx, domain.Envelope{
			Method:    domain.MethodTaskStart,
			SessionID: "session-123",
			Payload:   map[string]any{"taskId": "t1"},
		})
		if !resp.OK {
			log.Printf("command rejected: %s", resp.Error.Message)
		}
	}

The handlers, session registry, and data client contract live under pkg/;
the HTTP gateway and spool backends live under pkg/adapters/.
*/
package vox
