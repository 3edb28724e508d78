//go:build !linux

package heater

import "errors"

// Relay is not available on non-Linux platforms.
type Relay struct{}

// NewRelay returns an error on non-Linux platforms.
func NewRelay(string, int, bool) (*Relay, error) {
	return nil, errors.New("heater: gpio relay requires Linux")
}

func (r *Relay) SetOn() error            { return errors.New("heater: gpio not supported") }
func (r *Relay) SetOff() error           { return errors.New("heater: gpio not supported") }
func (r *Relay) SetTarget(float64) error { return nil }
func (r *Relay) Close() error            { return nil }
