package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an interaction event.
type EventType string

const (
	EventComponentClick  EventType = "COMPONENT_CLICK"
	EventScreenChange    EventType = "SCREEN_CHANGE"
	EventTranscribedText EventType = "TRANSCRIBED_TEXT"
)

// InteractionEvent is an append-only record of participant activity,
// persisted through the backing data service. Write-once: never mutated
// after creation.
type InteractionEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"sessionId"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewInteractionEvent stamps a fresh event with a unique id.
func NewInteractionEvent(t EventType, sessionID string, payload map[string]any, now time.Time) InteractionEvent {
	return InteractionEvent{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: sessionID,
		Timestamp: now,
		Payload:   payload,
	}
}
