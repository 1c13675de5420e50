/*
Package domain contains the core domain models for the vox agent.

It defines the fundamental entities of a live voice session: the Session
record, the Task lifecycle state machine, command envelopes and responses,
and the interaction events persisted for audit. This package is kept pure
and free of I/O or persistence concerns, following Hexagonal Architecture
principles.

# Key Entities

  - Session: the in-memory record of one participant's live connection
    (current screen, active task, task history).
  - Task: a unit of study work tracked through a fixed lifecycle
    (NOT_STARTED, IN_PROGRESS, COMPLETED, SKIPPED).
  - Envelope / Response: one named command invocation and its uniform,
    classified result.
  - InteractionEvent: an immutable, timestamped record of participant
    activity, persisted through the backing data service.
*/
package domain
