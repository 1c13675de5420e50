// Package testutils provides shared fakes for the test suites.
package testutils

import (
	"context"
	"sync"

	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
)

// FakeDataService implements ports.DataService in memory, recording
// every call and failing on demand. Safe for concurrent use.
type FakeDataService struct {
	mu sync.Mutex

	// Recorded writes, in arrival order.
	Events  []domain.InteractionEvent
	Patches []map[string]any

	// Canned read results.
	StudyDoc map[string]any
	FrameDoc map[string]any

	// Per-operation failure injection. A nil entry means success.
	FailAppend error
	FailUpdate error
	FailStudy  error
	FailFrame  error
	FailHealth error

	// GateUpdate, when set, blocks UpdateSessionData until the channel
	// is closed. Lets tests hold a session slot mid-command.
	GateUpdate <-chan struct{}

	calls map[string]int
}

var _ ports.DataService = (*FakeDataService)(nil)

// NewFakeDataService creates an empty fake.
func NewFakeDataService() *FakeDataService {
	return &FakeDataService{calls: make(map[string]int)}
}

// Calls reports how many times the named operation ran.
func (f *FakeDataService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// EventCount reports the number of persisted events.
func (f *FakeDataService) EventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Events)
}

// SetWriteFailures swaps the write failure injection under the lock, so
// tests can flip the fake between down and up while the agent runs.
func (f *FakeDataService) SetWriteFailures(appendErr, updateErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailAppend = appendErr
	f.FailUpdate = updateErr
}

func (f *FakeDataService) GetStudyData(_ context.Context, _, _ string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetStudyData"]++
	if f.FailStudy != nil {
		return nil, f.FailStudy
	}
	return f.StudyDoc, nil
}

func (f *FakeDataService) UpdateSessionData(_ context.Context, _, _, _, _ string, patch map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.calls["UpdateSessionData"]++
	gate := f.GateUpdate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailUpdate != nil {
		return nil, f.FailUpdate
	}
	f.Patches = append(f.Patches, patch)
	return patch, nil
}

func (f *FakeDataService) GetFrameData(_ context.Context, _, _, _ string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetFrameData"]++
	if f.FailFrame != nil {
		return nil, f.FailFrame
	}
	return f.FrameDoc, nil
}

func (f *FakeDataService) AppendInteractionEvent(_ context.Context, _, _, _ string, event domain.InteractionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AppendInteractionEvent"]++
	if f.FailAppend != nil {
		return f.FailAppend
	}
	f.Events = append(f.Events, event)
	return nil
}

func (f *FakeDataService) HealthCheck(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["HealthCheck"]++
	return f.FailHealth
}
