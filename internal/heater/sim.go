// Package heater provides the furnace heater collaborators: a thermal
// simulator for bench use and a GPIO relay driver for the real kiln.
package heater

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ----------- Simulation constants -----------
const (
	AmbientC        = 25.0   // ambient temperature °C
	MaxSafeC        = 1000.0 // overheat threshold °C
	RampUpCPerSec   = 3.0    // °C per second while the element is on
	CoolDownCPerSec = 0.5    // °C per second drift while the element is off
	ToleranceC      = 2.0    // °C band for "at target"
)

var ErrInvalidTarget = errors.New("heater: target must be a finite temperature")

// SimConfig tunes the thermal model.
type SimConfig struct {
	AmbientC        float64
	RampUpCPerSec   float64
	CoolDownCPerSec float64
	ToleranceC      float64
}

// DefaultSimConfig matches the bench furnace.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		AmbientC:        AmbientC,
		RampUpCPerSec:   RampUpCPerSec,
		CoolDownCPerSec: CoolDownCPerSec,
		ToleranceC:      ToleranceC,
	}
}

// Simulated is a heater plus a first-order thermal model. The element heats at
// a fixed rate toward the target when on and drifts to ambient when off.
type Simulated struct {
	mu     sync.Mutex
	cfg    SimConfig
	on     bool
	target float64
	temp   float64
}

func NewSimulated(cfg SimConfig) *Simulated {
	if cfg.RampUpCPerSec <= 0 {
		cfg.RampUpCPerSec = RampUpCPerSec
	}
	if cfg.CoolDownCPerSec <= 0 {
		cfg.CoolDownCPerSec = CoolDownCPerSec
	}
	return &Simulated{cfg: cfg, temp: cfg.AmbientC, target: cfg.AmbientC}
}

func (s *Simulated) SetOn() error {
	s.mu.Lock()
	s.on = true
	s.mu.Unlock()
	return nil
}

func (s *Simulated) SetOff() error {
	s.mu.Lock()
	s.on = false
	s.mu.Unlock()
	return nil
}

func (s *Simulated) SetTarget(temp float64) error {
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return ErrInvalidTarget
	}
	s.mu.Lock()
	s.target = temp
	s.mu.Unlock()
	return nil
}

// Temperature is the simulated measured temperature.
func (s *Simulated) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temp
}

// IsOn reports whether the element is energized.
func (s *Simulated) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Target is the last commanded setpoint.
func (s *Simulated) Target() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Force overrides the measured temperature. Used to inject faults.
func (s *Simulated) Force(temp float64) {
	s.mu.Lock()
	s.temp = temp
	s.mu.Unlock()
}

// Advance moves the model forward by dt. Returns true if the temperature moved.
func (s *Simulated) Advance(dt time.Duration) bool {
	elapsed := dt.Seconds()
	if elapsed <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.temp
	switch {
	case s.on && s.temp < s.target-s.cfg.ToleranceC:
		s.temp = math.Min(s.temp+s.cfg.RampUpCPerSec*elapsed, s.target)
	case s.on && s.temp > s.target:
		// Element on but above target: the controller lets it coast down.
		s.temp = math.Max(s.temp-s.cfg.CoolDownCPerSec*elapsed, s.target)
	case !s.on && s.temp > s.cfg.AmbientC:
		s.temp = math.Max(s.temp-s.cfg.CoolDownCPerSec*elapsed, s.cfg.AmbientC)
	}
	return s.temp != prev
}
