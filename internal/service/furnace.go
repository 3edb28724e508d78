package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/logger"
	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
)

// Observer sees controller activity. Both calls happen on producer or control
// goroutines and must not block.
type Observer interface {
	Command(name string, meta map[string]any)
	Cycle(s fsm.Snapshot)
}

// Plant is a simulated furnace body advanced by the control loop. Real
// hardware has none.
type Plant interface {
	Advance(dt time.Duration) bool
}

type ControllerConfig struct {
	MaxSafeC float64
	Measure  fsm.TempSource
	Plant    Plant
	Observer Observer
}

// Controller is the only producer-facing entry to the state machine and the
// only goroutine that runs ProcessQueue.
type Controller struct {
	machine  *fsm.FurnaceFsm
	programs repository.ProgramRepo
	log      *logger.Logger

	measure  fsm.TempSource
	plant    Plant
	observer Observer
	maxSafe  float64

	wake    chan struct{}
	tripped bool
	now     func() time.Time
}

var _ Furnace = (*Controller)(nil)

func NewController(machine *fsm.FurnaceFsm, programs repository.ProgramRepo, log *logger.Logger, cfg ControllerConfig) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	measure := cfg.Measure
	if measure == nil {
		measure = func() float64 { return fsm.AmbientTemp }
	}
	return &Controller{
		machine:  machine,
		programs: programs,
		log:      log,
		measure:  measure,
		plant:    cfg.Plant,
		observer: cfg.Observer,
		maxSafe:  cfg.MaxSafeC,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Machine exposes the state machine for read-only callers.
func (c *Controller) Machine() *fsm.FurnaceFsm { return c.machine }

// LoadProfile validates p and queues a copy of it.
func (c *Controller) LoadProfile(ctx context.Context, p *profile.Profile) error {
	if p == nil {
		return fmt.Errorf("%w: no program", ErrInvalidProfile)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return c.post(ctx, "load", fsm.LoadProfileEvent(p.Clone()), fsm.PriorityUI, map[string]any{"program": p.Name})
}

// LoadProgram fetches a named program from the library and loads it.
func (c *Controller) LoadProgram(ctx context.Context, name string) error {
	m, err := c.programs.Get(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrProgramNotFound, name)
		}
		return err
	}
	p, err := programToProfile(m)
	if err != nil {
		return err
	}
	return c.LoadProfile(ctx, p)
}

func (c *Controller) Start(ctx context.Context) error {
	return c.post(ctx, "start", fsm.StartEvent(), fsm.PriorityUI, nil)
}

// StartAt positions playback then starts. Both events share a priority, so
// they are dispatched in order.
func (c *Controller) StartAt(ctx context.Context, segment uint16, offset time.Duration) error {
	if err := c.SetNextSegment(ctx, segment, offset); err != nil {
		return err
	}
	return c.Start(ctx)
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.post(ctx, "pause", fsm.PauseEvent(), fsm.PriorityUI, nil)
}

func (c *Controller) Resume(ctx context.Context) error {
	return c.post(ctx, "resume", fsm.ResumeEvent(), fsm.PriorityUI, nil)
}

func (c *Controller) Cancel(ctx context.Context) error {
	return c.post(ctx, "cancel", fsm.CancelEvent(), fsm.PriorityUI, nil)
}

func (c *Controller) ClearProgram(ctx context.Context) error {
	return c.post(ctx, "clear", fsm.ClearProgramEvent(), fsm.PriorityUI, nil)
}

func (c *Controller) Reset(ctx context.Context) error {
	return c.post(ctx, "reset", fsm.ResetEvent(), fsm.PriorityUI, nil)
}

// SetManualTemp rejects targets outside [0, max_safe_c] before they reach the
// machine.
func (c *Controller) SetManualTemp(ctx context.Context, temp float64) error {
	if math.IsNaN(temp) || math.IsInf(temp, 0) || temp < 0 || temp > c.maxSafe {
		return fmt.Errorf("%w: %.1f outside 0..%.1f", ErrInvalidTemperature, temp, c.maxSafe)
	}
	return c.post(ctx, "set_temp", fsm.SetManualTempEvent(temp), fsm.PriorityUI, map[string]any{"target_c": temp})
}

// SetNextSegment is refused outside the states that handle it, so a stray
// request cannot trip the unknown-event policy.
func (c *Controller) SetNextSegment(ctx context.Context, segment uint16, offset time.Duration) error {
	if cur := c.machine.GetCurrentState(); !fsm.Accepts(cur, fsm.EventSetNextSegment) {
		return fmt.Errorf("%w: SetNextSegment in %s", ErrNotAllowed, cur)
	}
	if offset < 0 {
		return fmt.Errorf("%w: negative offset", ErrNotAllowed)
	}
	meta := map[string]any{"segment": segment, "offset_s": offset.Seconds()}
	return c.post(ctx, "set_segment", fsm.SetNextSegmentEvent(segment, offset), fsm.PriorityUI, meta)
}

// RaiseFault queues an Error at critical priority.
func (c *Controller) RaiseFault(ctx context.Context, code fsm.ErrorCode, domain fsm.Domain, message string) error {
	meta := map[string]any{"code": code.String(), "domain": domain.String(), "message": message}
	return c.post(ctx, "fault", fsm.ErrorEvent(code, domain, message), fsm.PriorityCritical, meta)
}

func (c *Controller) post(ctx context.Context, name string, ev fsm.Event, prio fsm.EventPriority, meta map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.machine.Post(ev, prio) {
		c.log.Warnw("command_dropped", "command", name, "overflow", c.machine.GetOverflowCount())
		return ErrQueueFull
	}
	if c.observer != nil {
		c.observer.Command(name, meta)
	}
	c.kick()
	return nil
}

// kick asks the control loop to drain now instead of on the next tick.
func (c *Controller) kick() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
