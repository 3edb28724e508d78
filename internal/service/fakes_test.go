package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
)

type fakeStateRepo struct {
	mu         sync.Mutex
	loadResp   models.FurnaceState
	loadErr    error
	saveErr    error
	savedCalls []models.FurnaceState
}

func (f *fakeStateRepo) Load(ctx context.Context) (models.FurnaceState, error) {
	return f.loadResp, f.loadErr
}

func (f *fakeStateRepo) Save(ctx context.Context, s models.FurnaceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedCalls = append(f.savedCalls, s)
	return f.saveErr
}

func (f *fakeStateRepo) saved() []models.FurnaceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FurnaceState(nil), f.savedCalls...)
}

type localEventRepo struct {
	mu        sync.Mutex
	appendErr error
	events    []models.FurnaceEvent
	listErr   error
	gotFilter repository.EventFilter
}

func (f *localEventRepo) Append(ctx context.Context, e models.FurnaceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.appendErr
}

func (f *localEventRepo) List(ctx context.Context, rf repository.EventFilter) ([]models.FurnaceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotFilter = rf
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.FurnaceEvent
	for _, e := range f.events {
		if !rf.From.IsZero() && e.OccurredAt.Before(rf.From) {
			continue
		}
		if !rf.To.IsZero() && e.OccurredAt.After(rf.To) {
			continue
		}
		if rf.Type != "" && e.Type != rf.Type {
			continue
		}
		out = append(out, e)
	}
	if rf.Limit > 0 && len(out) > rf.Limit {
		out = out[len(out)-rf.Limit:]
	}
	return out, nil
}

func (f *localEventRepo) ofType(typ string) []models.FurnaceEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FurnaceEvent
	for _, e := range f.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fakeProgramRepo struct {
	programs map[string]models.Program
	saveErr  error
}

func newFakeProgramRepo(ps ...models.Program) *fakeProgramRepo {
	f := &fakeProgramRepo{programs: map[string]models.Program{}}
	for _, p := range ps {
		f.programs[p.Name] = p
	}
	return f
}

func (f *fakeProgramRepo) Save(ctx context.Context, p models.Program) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.programs[p.Name] = p
	return nil
}

func (f *fakeProgramRepo) Get(ctx context.Context, name string) (models.Program, error) {
	p, ok := f.programs[name]
	if !ok {
		return models.Program{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProgramRepo) List(ctx context.Context) ([]models.Program, error) {
	out := make([]models.Program, 0, len(f.programs))
	for _, p := range f.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeProgramRepo) Delete(ctx context.Context, name string) error {
	if _, ok := f.programs[name]; !ok {
		return repository.ErrNotFound
	}
	delete(f.programs, name)
	return nil
}

// recObserver records what the controller reported.
type recObserver struct {
	mu       sync.Mutex
	commands []string
	cycles   []fsm.Snapshot
}

func (o *recObserver) Command(name string, meta map[string]any) {
	o.mu.Lock()
	o.commands = append(o.commands, name)
	o.mu.Unlock()
}

func (o *recObserver) Cycle(s fsm.Snapshot) {
	o.mu.Lock()
	o.cycles = append(o.cycles, s)
	o.mu.Unlock()
}

func (o *recObserver) cycleCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.cycles)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
