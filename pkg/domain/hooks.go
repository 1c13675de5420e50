package domain

import (
	"context"
	"time"
)

// DispatchEvent describes one routed command for observers.
type DispatchEvent struct {
	Method    Method        `json:"method"`
	SessionID string        `json:"sessionId"`
	Duration  time.Duration `json:"duration"`
	OK        bool          `json:"ok"`

	// ErrorType is the wire-level error type when OK is false, empty
	// otherwise.
	ErrorType string `json:"errorType,omitempty"`
}

// SpoolAction tags write-spool activity.
type SpoolAction string

const (
	SpoolEnqueued SpoolAction = "enqueued"
	SpoolDrained  SpoolAction = "drained"
	SpoolRequeued SpoolAction = "requeued"
	SpoolDropped  SpoolAction = "dropped"
)

// SpoolEvent describes one write-spool state change for observers.
type SpoolEvent struct {
	Action SpoolAction      `json:"action"`
	Kind   PendingWriteKind `json:"kind"`

	// Depth is the spool size after the action, when the spool can
	// report it cheaply; -1 otherwise.
	Depth int `json:"depth"`
}

// DispatchHooks defines callbacks for router and spool observability.
// Hooks run inside the session's execution slot; keep them fast and
// never blocking.
type DispatchHooks struct {
	OnDispatch func(context.Context, *DispatchEvent)
	OnSpool    func(context.Context, *SpoolEvent)
}
