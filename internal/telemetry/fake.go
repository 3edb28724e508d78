package telemetry

import (
	"sync"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

// FakePublisher records what was published, for tests.
type FakePublisher struct {
	mu sync.Mutex

	Transitions []models.FurnaceEvent
	States      []models.FurnaceState

	// PublishError, if set, is returned by both publish methods.
	PublishError error

	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishTransition(ev models.FurnaceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Transitions = append(f.Transitions, ev)
	return nil
}

func (f *FakePublisher) PublishState(st models.FurnaceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.States = append(f.States, st)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// TransitionCount is safe to call while a recorder is publishing.
func (f *FakePublisher) TransitionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Transitions)
}

// LastState returns the most recent snapshot, if any.
func (f *FakePublisher) LastState() (models.FurnaceState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.States) == 0 {
		return models.FurnaceState{}, false
	}
	return f.States[len(f.States)-1], true
}
