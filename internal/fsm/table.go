package fsm

// route is one cell of the transition table. A cell that is not accepted
// triggers the unknown-event policy. to is NoChange for events that are handled
// in place; alt is the second legal target of a conditional transition.
type route struct {
	accepted bool
	to       StateID
	alt      StateID
}

func goTo(s StateID) route           { return route{accepted: true, to: s, alt: s} }
func either(a, b StateID) route      { return route{accepted: true, to: a, alt: b} }
func stay() route                    { return route{accepted: true, to: NoChange, alt: NoChange} }
func (r route) allows(s StateID) bool { return s == NoChange || s == StateError || s == r.to || s == r.alt }

// transitions is indexed by [state][event]. Error is listed for every state;
// the dispatcher also routes it before consulting the table.
var transitions = [numStates][numEventKinds]route{
	StateIdle: {
		EventLoadProfile:   goTo(StateLoaded),
		EventError:         goTo(StateError),
		EventSetManualTemp: goTo(StateManualTemp),
		EventTick:          stay(),
	},
	StateLoaded: {
		EventLoadProfile:    stay(),
		EventStart:          goTo(StateRunning),
		EventClearProgram:   goTo(StateIdle),
		EventError:          goTo(StateError),
		EventSetManualTemp:  goTo(StateManualTemp),
		EventTick:           stay(),
		EventSetNextSegment: stay(),
	},
	StateRunning: {
		EventPause:          goTo(StatePaused),
		EventCancel:         goTo(StateCancelled),
		EventComplete:       goTo(StateCompleted),
		EventError:          goTo(StateError),
		EventSetManualTemp:  goTo(StateProfileTempOverride),
		EventTick:           stay(),
		EventSetNextSegment: stay(),
	},
	StatePaused: {
		EventResume:         goTo(StateRunning),
		EventCancel:         goTo(StateCancelled),
		EventError:          goTo(StateError),
		EventTick:           stay(),
		EventSetNextSegment: stay(),
	},
	StateCompleted: {
		EventLoadProfile:   goTo(StateLoaded),
		EventClearProgram:  goTo(StateIdle),
		EventError:         goTo(StateError),
		EventSetManualTemp: goTo(StateManualTemp),
		EventTick:          stay(),
	},
	StateCancelled: {
		EventLoadProfile:  goTo(StateLoaded),
		EventClearProgram: goTo(StateIdle),
		EventError:        goTo(StateError),
		EventTick:         stay(),
	},
	StateError: {
		EventLoadProfile: goTo(StateLoaded),
		EventError:       stay(),
		EventReset:       goTo(StateIdle),
		EventTick:        stay(),
	},
	StateManualTemp: {
		EventResume:        either(StateLoaded, StateIdle),
		EventError:         goTo(StateError),
		EventSetManualTemp: stay(),
		EventTick:          stay(),
	},
	StateProfileTempOverride: {
		EventResume:        goTo(StateRunning),
		EventCancel:        goTo(StateCancelled),
		EventError:         goTo(StateError),
		EventSetManualTemp: stay(),
		EventTick:          stay(),
	},
}

// Accepts reports whether state s has a defined transition for kind.
func Accepts(s StateID, kind EventKind) bool {
	if !s.Valid() || kind >= numEventKinds {
		return false
	}
	return transitions[s][kind].accepted
}

// CanTransition reports whether some event moves from into to. Error is
// reachable from everywhere.
func CanTransition(from, to StateID) bool {
	if to == StateError {
		return true
	}
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	for _, r := range transitions[from] {
		if r.accepted && (r.to == to || r.alt == to) {
			return true
		}
	}
	return false
}
