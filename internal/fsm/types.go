// Package fsm is the furnace control core: a bounded priority event queue and
// the state machine that decides operating mode and setpoint.
//
// Producers call Post from any goroutine. A single consumer calls ProcessQueue
// once per control cycle; every state mutation happens there.
package fsm

// StateID identifies one of the nine operating modes.
type StateID uint8

const (
	StateIdle StateID = iota
	StateLoaded
	StateRunning
	StatePaused
	StateCompleted
	StateCancelled
	StateError
	StateManualTemp
	StateProfileTempOverride

	numStates
)

// NoChange is returned by a handler that keeps the current state.
const NoChange StateID = 0xFF

var stateNames = [numStates]string{
	StateIdle:                "Idle",
	StateLoaded:              "Loaded",
	StateRunning:             "Running",
	StatePaused:              "Paused",
	StateCompleted:           "Completed",
	StateCancelled:           "Cancelled",
	StateError:               "Error",
	StateManualTemp:          "ManualTemp",
	StateProfileTempOverride: "ProfileTempOverride",
}

func (s StateID) String() string {
	if s < numStates {
		return stateNames[s]
	}
	if s == NoChange {
		return "NoChange"
	}
	return "Unknown"
}

// Valid reports whether s names a real state.
func (s StateID) Valid() bool { return s < numStates }

// ParseState maps a state name back to its id.
func ParseState(name string) (StateID, bool) {
	for i, n := range stateNames {
		if n == name {
			return StateID(i), true
		}
	}
	return 0, false
}

// EventPriority orders queued events. Lower values are served first.
type EventPriority uint8

const (
	PriorityCritical EventPriority = iota
	PriorityFurnace
	PriorityUI
)

func (p EventPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityFurnace:
		return "furnace"
	case PriorityUI:
		return "ui"
	default:
		return "unknown"
	}
}

// ErrorCode classifies a fault.
type ErrorCode uint8

const (
	CodeUnknown ErrorCode = iota
	CodeSafetyInterlock
	CodeSensorFailure
	CodeControllerFailure
	CodeProfileInvalid
	CodeTemperatureOutOfBounds
)

func (c ErrorCode) String() string {
	switch c {
	case CodeSafetyInterlock:
		return "SAFETY_INTERLOCK"
	case CodeSensorFailure:
		return "SENSOR_FAILURE"
	case CodeControllerFailure:
		return "CONTROLLER_FAILURE"
	case CodeProfileInvalid:
		return "PROFILE_INVALID"
	case CodeTemperatureOutOfBounds:
		return "TEMPERATURE_OUT_OF_BOUNDS"
	default:
		return "UNKNOWN"
	}
}

// Domain is the subsystem a fault or log line originates from.
type Domain uint8

const (
	DomainUI Domain = iota
	DomainFurnace
	DomainStateMachine
)

func (d Domain) String() string {
	switch d {
	case DomainUI:
		return "ui"
	case DomainFurnace:
		return "furnace"
	default:
		return "state_machine"
	}
}

// maxFaultMessage bounds fault text so an Error event stays fixed-size.
const maxFaultMessage = 96

// Fault is the payload of an Error event.
type Fault struct {
	Code    ErrorCode
	Domain  Domain
	Message string
}

func (f Fault) String() string {
	return f.Domain.String() + "/" + f.Code.String() + ": " + f.Message
}

// Logger is the core's logging collaborator. It must not block.
type Logger interface {
	Log(level, domain, message string)
}

// Heater is the heater driver collaborator. Errors are reported, never
// allowed to stall a transition.
type Heater interface {
	SetOn() error
	SetOff() error
	SetTarget(temp float64) error
}

// TempSource reports the measured furnace temperature. It seeds the ramp
// origin of a program's first segment.
type TempSource func() float64
