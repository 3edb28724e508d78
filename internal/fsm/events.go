package fsm

import (
	"time"
	"unicode/utf8"

	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
)

// EventKind tags the Event union.
type EventKind uint8

const (
	EventLoadProfile EventKind = iota
	EventStart
	EventPause
	EventResume
	EventCancel
	EventComplete
	EventClearProgram
	EventError
	EventReset
	EventSetManualTemp
	EventTick
	EventSetNextSegment

	numEventKinds
)

var eventNames = [numEventKinds]string{
	EventLoadProfile:    "LoadProfile",
	EventStart:          "Start",
	EventPause:          "Pause",
	EventResume:         "Resume",
	EventCancel:         "Cancel",
	EventComplete:       "Complete",
	EventClearProgram:   "ClearProgram",
	EventError:          "Error",
	EventReset:          "Reset",
	EventSetManualTemp:  "SetManualTemp",
	EventTick:           "Tick",
	EventSetNextSegment: "SetNextSegment",
}

func (k EventKind) String() string {
	if k < numEventKinds {
		return eventNames[k]
	}
	return "Unknown"
}

// Event is a value-typed tagged union. Only the fields matching Kind are
// meaningful.
type Event struct {
	Kind EventKind

	// LoadProfile. The FSM takes ownership once the event is accepted.
	Profile *profile.Profile
	// SetManualTemp.
	Temp float64
	// Error.
	Fault Fault
	// Tick. Zero means the controller's nominal tick.
	Interval time.Duration
	// SetNextSegment.
	Segment uint16
	Offset  time.Duration
}

func (e Event) String() string {
	switch e.Kind {
	case EventError:
		return "Error(" + e.Fault.String() + ")"
	case EventLoadProfile:
		if e.Profile != nil {
			return "LoadProfile(" + e.Profile.Name + ")"
		}
	}
	return e.Kind.String()
}

func LoadProfileEvent(p *profile.Profile) Event { return Event{Kind: EventLoadProfile, Profile: p} }
func StartEvent() Event                          { return Event{Kind: EventStart} }
func PauseEvent() Event                          { return Event{Kind: EventPause} }
func ResumeEvent() Event                         { return Event{Kind: EventResume} }
func CancelEvent() Event                         { return Event{Kind: EventCancel} }
func CompleteEvent() Event                       { return Event{Kind: EventComplete} }
func ClearProgramEvent() Event                   { return Event{Kind: EventClearProgram} }
func ResetEvent() Event                          { return Event{Kind: EventReset} }
func SetManualTempEvent(t float64) Event         { return Event{Kind: EventSetManualTemp, Temp: t} }
func TickEvent(interval time.Duration) Event     { return Event{Kind: EventTick, Interval: interval} }

// ErrorEvent builds an Error event. The message is cut to at most 96 bytes
// on a rune boundary.
func ErrorEvent(code ErrorCode, domain Domain, message string) Event {
	if len(message) > maxFaultMessage {
		n := maxFaultMessage
		for n > 0 && !utf8.RuneStart(message[n]) {
			n--
		}
		message = message[:n]
	}
	return Event{Kind: EventError, Fault: Fault{Code: code, Domain: domain, Message: message}}
}

// SetNextSegmentEvent repositions playback to segment index at offset.
func SetNextSegmentEvent(index uint16, offset time.Duration) Event {
	return Event{Kind: EventSetNextSegment, Segment: index, Offset: offset}
}
