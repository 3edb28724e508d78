package profile

import "time"

// Action is the stepper's verdict for one tick.
type Action uint8

const (
	ActionStart Action = iota
	ActionHold
	ActionIncrease
	ActionDecrease
	ActionEnd
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "START"
	case ActionHold:
		return "HOLD"
	case ActionIncrease:
		return "INCREASE"
	case ActionDecrease:
		return "DECREASE"
	case ActionEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Phase is where inside a segment the playback cursor sits.
type Phase uint8

const (
	PhaseRamp Phase = iota
	PhaseDwell
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseRamp:
		return "ramp"
	case PhaseDwell:
		return "dwell"
	default:
		return "finished"
	}
}

// Result is what the stepper computed for a tick.
type Result struct {
	Action   Action
	Phase    Phase
	Setpoint float64
	Segment  uint16
}

// Step advances pos by interval and computes the setpoint. It does not touch
// any shared state: callers commit the returned Position themselves.
//
// Segments whose duration is fully consumed are skipped within the same call,
// carrying the remainder forward, so zero-length segments never stall playback.
// A zero-interval call at the very start of a program reports ActionStart.
func Step(segs []Segment, startTemp float64, pos Position, interval time.Duration) (Position, Result) {
	if len(segs) == 0 {
		return pos, Result{Action: ActionEnd, Phase: PhaseFinished, Setpoint: startTemp}
	}
	if int(pos.Segment) >= len(segs) {
		last := len(segs) - 1
		return pos, Result{Action: ActionEnd, Phase: PhaseFinished, Setpoint: segs[last].TargetTemp, Segment: uint16(last)}
	}

	fresh := pos == Position{} && interval == 0
	if interval > 0 {
		pos.Elapsed += interval
	}

	for {
		seg := segs[pos.Segment]

		if pos.Elapsed < seg.RampTime {
			from := rampOrigin(segs, startTemp, pos.Segment)
			frac := float64(pos.Elapsed) / float64(seg.RampTime)
			res := Result{
				Phase:    PhaseRamp,
				Setpoint: from + (seg.TargetTemp-from)*frac,
				Segment:  pos.Segment,
			}
			switch {
			case fresh:
				res.Action = ActionStart
			case seg.TargetTemp > from:
				res.Action = ActionIncrease
			case seg.TargetTemp < from:
				res.Action = ActionDecrease
			default:
				res.Action = ActionHold
			}
			return pos, res
		}

		if pos.Elapsed < seg.Duration() {
			res := Result{Action: ActionHold, Phase: PhaseDwell, Setpoint: seg.TargetTemp, Segment: pos.Segment}
			if fresh {
				res.Action = ActionStart
			}
			return pos, res
		}

		if int(pos.Segment) == len(segs)-1 {
			return pos, Result{Action: ActionEnd, Phase: PhaseFinished, Setpoint: seg.TargetTemp, Segment: pos.Segment}
		}
		pos.Elapsed -= seg.Duration()
		pos.Segment++
	}
}

// rampOrigin is the temperature a segment ramps from: the previous segment's
// target, or the measured start temperature for the first segment.
func rampOrigin(segs []Segment, startTemp float64, idx uint16) float64 {
	if idx == 0 {
		return startTemp
	}
	return segs[idx-1].TargetTemp
}
