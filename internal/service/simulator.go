package service

import (
	"context"
	"fmt"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/metrics"
)

// Run is the control loop: every tick it advances the plant, checks the
// over-temperature limit, posts a Tick and drains the queue. Commands wake it
// between ticks. It returns when ctx is canceled.
func (c *Controller) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = fsm.DefaultTick
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	c.log.Infow("control_loop_started", "tick", tick.String(), "max_safe_c", c.maxSafe)
	return c.loop(ctx, t.C)
}

func (c *Controller) loop(ctx context.Context, ticks <-chan time.Time) error {
	c.drain()

	last := c.now()
	for {
		select {
		case <-ctx.Done():
			c.log.Infow("control_loop_stopped", "state", c.machine.GetCurrentState().String())
			return nil
		case <-ticks:
			last = c.settle(last)
			// A zero-length Tick would be read as DefaultTick.
			if now := c.now(); now.After(last) {
				c.Step(now.Sub(last))
				last = now
			}
		case <-c.wake:
			last = c.settle(last)
		}
	}
}

// settle applies queued commands ahead of the next tick. When they put the
// machine into Running the interval restarts, so time spent Paused or Loaded
// never reaches the profile clock.
func (c *Controller) settle(last time.Time) time.Time {
	if c.machine.QueueLen() == 0 {
		return last
	}
	before := c.machine.GetCurrentState()
	c.drain()
	if before != fsm.StateRunning && c.machine.GetCurrentState() == fsm.StateRunning {
		return c.now()
	}
	return last
}

// Step runs one control cycle of length dt. Run calls it on every tick; tests
// call it directly.
func (c *Controller) Step(dt time.Duration) {
	if c.plant != nil && dt > 0 {
		c.plant.Advance(dt)
	}

	measured := c.measure()
	metrics.MeasuredCelsius.Set(measured)
	c.checkLimit(measured)

	if !c.machine.Post(fsm.TickEvent(dt), fsm.PriorityFurnace) {
		c.log.Warnw("tick_dropped", "overflow", c.machine.GetOverflowCount())
	}
	c.drain()
}

func (c *Controller) drain() {
	c.machine.ProcessQueue()
	if c.observer != nil {
		c.observer.Cycle(c.machine.Snapshot())
	}
}

// checkLimit posts one TemperatureOutOfBounds fault per excursion above
// max_safe_c. It re-arms once the furnace is back under the limit.
func (c *Controller) checkLimit(measured float64) {
	if measured <= c.maxSafe {
		c.tripped = false
		return
	}
	if c.tripped {
		return
	}
	c.log.Errorw("over_temperature", "measured_c", measured, "max_safe_c", c.maxSafe)
	msg := fmt.Sprintf("measured %.1f above %.1f", measured, c.maxSafe)
	c.tripped = c.machine.Post(fsm.ErrorEvent(fsm.CodeTemperatureOutOfBounds, fsm.DomainFurnace, msg), fsm.PriorityCritical)
}
