// Package profile holds temperature programs (ordered ramp/dwell segments) and
// the stepper that turns elapsed tick time into a heater setpoint.
package profile

import (
	"errors"
	"fmt"
	"time"
)

// Limits inherited from the controller's fixed-size program storage.
const (
	MaxSegments       = 32
	MaxNameLen        = 64
	MaxDescriptionLen = 1024
)

var (
	ErrNoSegments        = errors.New("profile: at least one segment is required")
	ErrTooManySegments   = fmt.Errorf("profile: more than %d segments", MaxSegments)
	ErrNegativeDuration  = errors.New("profile: ramp and dwell durations must be non-negative")
	ErrNameTooLong       = fmt.Errorf("profile: name longer than %d bytes", MaxNameLen)
	ErrDescriptionLength = fmt.Errorf("profile: description longer than %d bytes", MaxDescriptionLen)
	ErrSegmentIndex      = errors.New("profile: segment index out of range")
	ErrNegativeOffset    = errors.New("profile: segment offset must be non-negative")
)

// Segment is one step of a program: ramp to TargetTemp over RampTime, then hold
// for DwellTime. A zero RampTime jumps straight to the target.
type Segment struct {
	TargetTemp float64       `json:"target_temp_c" toml:"target_temp_c"`
	RampTime   time.Duration `json:"ramp_time" toml:"ramp_time"`
	DwellTime  time.Duration `json:"dwell_time" toml:"dwell_time"`
}

// Duration is the total wall time the segment occupies.
func (s Segment) Duration() time.Duration {
	return s.RampTime + s.DwellTime
}

// Position is the playback cursor inside a program.
type Position struct {
	Segment uint16        `json:"segment"`
	Elapsed time.Duration `json:"elapsed"`
}

// Profile is a named program plus its playback state. The playback fields are
// runtime only; they are never persisted with the definition.
type Profile struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Segments    []Segment `json:"segments"`

	pos       Position
	startTemp float64
	started   bool
	done      bool
}

// New builds a profile and validates it.
func New(name, description string, segments ...Segment) (*Profile, error) {
	p := &Profile{Name: name, Description: description, Segments: segments}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the program definition, not the playback state.
func (p *Profile) Validate() error {
	switch {
	case len(p.Segments) == 0:
		return ErrNoSegments
	case len(p.Segments) > MaxSegments:
		return ErrTooManySegments
	case len(p.Name) > MaxNameLen:
		return ErrNameTooLong
	case len(p.Description) > MaxDescriptionLen:
		return ErrDescriptionLength
	}
	for i, s := range p.Segments {
		if s.RampTime < 0 || s.DwellTime < 0 {
			return fmt.Errorf("segment %d: %w", i, ErrNegativeDuration)
		}
	}
	return nil
}

// Position returns the current playback cursor.
func (p *Profile) Position() Position { return p.pos }

// Started reports whether playback has begun since the last Rewind.
func (p *Profile) Started() bool { return p.started }

// Done reports whether the stepper reached the end of the last segment.
// A finished profile must be rewound before it can be replayed.
func (p *Profile) Done() bool { return p.done }

// StartTemp is the temperature the first segment ramps from.
func (p *Profile) StartTemp() float64 { return p.startTemp }

// Begin latches the ramp origin for the first segment. It is a no-op once
// playback has started, so resuming a paused run keeps the original origin.
func (p *Profile) Begin(measured float64) {
	if p.started {
		return
	}
	p.startTemp = measured
	p.started = true
}

// Rewind resets playback to the start of the first segment.
func (p *Profile) Rewind() {
	p.pos = Position{}
	p.startTemp = 0
	p.started = false
	p.done = false
}

// SetNextSegment moves playback to segment index at the given offset. The next
// Advance computes the setpoint from there.
func (p *Profile) SetNextSegment(index uint16, offset time.Duration) error {
	if int(index) >= len(p.Segments) {
		return fmt.Errorf("%w: %d of %d", ErrSegmentIndex, index, len(p.Segments))
	}
	if offset < 0 {
		return ErrNegativeOffset
	}
	p.pos = Position{Segment: index, Elapsed: offset}
	p.done = false
	return nil
}

// Advance runs the stepper for one tick interval and commits the new position.
func (p *Profile) Advance(interval time.Duration) Result {
	pos, res := Step(p.Segments, p.startTemp, p.pos, interval)
	p.pos = pos
	if res.Action == ActionEnd {
		p.done = true
	}
	return res
}

// Clone returns a copy of the definition with fresh playback state.
func (p *Profile) Clone() *Profile {
	segs := make([]Segment, len(p.Segments))
	copy(segs, p.Segments)
	return &Profile{Name: p.Name, Description: p.Description, Segments: segs}
}

// TotalDuration is the sum of every segment's ramp and dwell.
func (p *Profile) TotalDuration() time.Duration {
	var d time.Duration
	for _, s := range p.Segments {
		d += s.Duration()
	}
	return d
}
