package domain

import "time"

// PendingWriteKind selects which durable write a spooled entry replays.
type PendingWriteKind string

const (
	PendingEvent        PendingWriteKind = "event"
	PendingSessionPatch PendingWriteKind = "session_patch"
)

// PendingWrite is a durable write that exhausted the data client's retry
// budget while the session kept going. The reconciler replays it against
// the data service until it lands. Exactly one of Event or Patch is set,
// according to Kind.
type PendingWrite struct {
	Kind PendingWriteKind `json:"kind"`

	DatabaseID    string `json:"databaseId"`
	StudyID       string `json:"studyId"`
	ParticipantID string `json:"participantId"`
	SessionID     string `json:"sessionId"`

	Event *InteractionEvent `json:"event,omitempty"`
	Patch map[string]any    `json:"patch,omitempty"`

	// Attempts counts reconciliation replays, not the data client's own
	// in-call retries.
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// EventWrite spools an interaction event for replay.
func EventWrite(meta SessionMeta, event InteractionEvent, now time.Time) PendingWrite {
	return PendingWrite{
		Kind:          PendingEvent,
		DatabaseID:    meta.DatabaseID,
		StudyID:       meta.StudyID,
		ParticipantID: meta.ParticipantID,
		SessionID:     event.SessionID,
		Event:         &event,
		EnqueuedAt:    now,
	}
}

// PatchWrite spools a session patch for replay.
func PatchWrite(meta SessionMeta, sessionID string, patch map[string]any, now time.Time) PendingWrite {
	return PendingWrite{
		Kind:          PendingSessionPatch,
		DatabaseID:    meta.DatabaseID,
		StudyID:       meta.StudyID,
		ParticipantID: meta.ParticipantID,
		SessionID:     sessionID,
		Patch:         patch,
		EnqueuedAt:    now,
	}
}
