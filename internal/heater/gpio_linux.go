//go:build linux

package heater

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// Relay switches the heating element through a solid-state relay on a GPIO
// line. It has no thermocouple input: SetTarget only records the setpoint.
type Relay struct {
	mu        sync.Mutex
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	activeLow bool
	target    float64
}

// NewRelay requests offset on chipName as an output driven to the off level.
func NewRelay(chipName string, offset int, activeLow bool) (*Relay, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(level(false, activeLow)), gpiocdev.WithConsumer("furnace-heater"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request heater line %d: %w", offset, err)
	}

	return &Relay{chip: chip, line: line, activeLow: activeLow}, nil
}

func (r *Relay) SetOn() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.line.SetValue(level(true, r.activeLow)); err != nil {
		return fmt.Errorf("heater relay on: %w", err)
	}
	return nil
}

func (r *Relay) SetOff() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.line.SetValue(level(false, r.activeLow)); err != nil {
		return fmt.Errorf("heater relay off: %w", err)
	}
	return nil
}

func (r *Relay) SetTarget(temp float64) error {
	r.mu.Lock()
	r.target = temp
	r.mu.Unlock()
	return nil
}

// Close drives the relay off and releases the line as an input, so the
// element stays de-energized across a restart.
func (r *Relay) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.SetValue(level(false, r.activeLow)); err != nil {
			errs = append(errs, fmt.Errorf("relay off: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure heater line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close heater line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
