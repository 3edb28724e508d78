package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
)

// stateRowID is the single furnace_state row.
const stateRowID = 1

func snapshotToState(s fsm.Snapshot) models.FurnaceState {
	st := models.FurnaceState{
		ID:                    stateRowID,
		State:                 s.State.String(),
		ProgramName:           s.ProgramName,
		ProgramRunning:        s.ProgramRunning,
		Segment:               int(s.Segment),
		SegmentElapsedSeconds: s.SegmentElapsed.Seconds(),
		SetpointC:             s.Setpoint,
		CurrentTempC:          s.Measured,
		ManualTargetC:         s.ManualTarget,
		HeaterOn:              s.HeaterOn,
		OverflowCount:         s.OverflowCount,
		UpdatedAt:             toUTC(s.UpdatedAt),
	}
	if s.ProgramRunning {
		st.LastAction = s.LastAction.String()
	}
	if s.HasFault {
		st.Fault = &models.Fault{
			Code:    s.Fault.Code.String(),
			Domain:  s.Fault.Domain.String(),
			Message: s.Fault.Message,
		}
	}
	return st
}

// ParseProgram turns an API program into a validated profile ready to load.
func ParseProgram(m models.Program) (*profile.Profile, error) {
	return programToProfile(m)
}

func programToProfile(m models.Program) (*profile.Profile, error) {
	segs := make([]profile.Segment, 0, len(m.Segments))
	for i, s := range m.Segments {
		ramp, err := parseDuration(s.Ramp)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d ramp: %v", ErrInvalidProfile, i, err)
		}
		dwell, err := parseDuration(s.Dwell)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d dwell: %v", ErrInvalidProfile, i, err)
		}
		segs = append(segs, profile.Segment{TargetTemp: s.TargetC, RampTime: ramp, DwellTime: dwell})
	}
	p, err := profile.New(m.Name, m.Description, segs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return p, nil
}

func profileToProgram(p *profile.Profile) models.Program {
	m := models.Program{Name: p.Name, Description: p.Description}
	for _, s := range p.Segments {
		m.Segments = append(m.Segments, models.ProgramSegment{
			TargetC: s.TargetTemp,
			Ramp:    s.RampTime.String(),
			Dwell:   s.DwellTime.String(),
		})
	}
	return m
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
