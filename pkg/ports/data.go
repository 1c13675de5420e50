package ports

import (
	"context"

	"github.com/voxlane/vox/pkg/domain"
)

// DataService is the outbound port to the backing data service. Every
// durable read and write the handlers perform goes through it.
//
// Implementations own retry, backoff, and error classification: a failed
// call returns a single structured error carrying a terminal
// classification (see pkg/dataclient), never raw transport detail.
// Result mappings are the service's decoded `data` payloads.
type DataService interface {
	// GetStudyData fetches the study document, including the task list
	// used to seed a session's task history.
	GetStudyData(ctx context.Context, databaseID, studyID string) (map[string]any, error)

	// UpdateSessionData applies a partial patch to the durable session
	// record. Idempotent: safe to retry and to replay.
	UpdateSessionData(ctx context.Context, databaseID, studyID, participantID, sessionID string, patch map[string]any) (map[string]any, error)

	// GetFrameData fetches design metadata for one frame of a file
	// (frame name, node descriptions).
	GetFrameData(ctx context.Context, databaseID, fileKey, frameID string) (map[string]any, error)

	// AppendInteractionEvent persists one interaction event. Events are
	// write-once and carry their own ids, so replays are idempotent.
	AppendInteractionEvent(ctx context.Context, databaseID, studyID, participantID string, event domain.InteractionEvent) error

	// HealthCheck probes the service.
	HealthCheck(ctx context.Context) error
}
