package fsm

import (
	"strconv"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/logger"
	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
)

// stateHandler is one operating mode. handle is only called for events the
// transition table accepts in that state; it returns the chosen target or
// NoChange. onEnter may return another state to redirect the transition.
type stateHandler interface {
	onEnter(e *env, cause Event) StateID
	onExit(e *env)
	handle(e *env, ev Event) StateID
}

var handlers = [numStates]stateHandler{
	StateIdle:                idleState{},
	StateLoaded:              loadedState{},
	StateRunning:             runningState{},
	StatePaused:              pausedState{},
	StateCompleted:           completedState{},
	StateCancelled:           cancelledState{},
	StateError:               errorState{},
	StateManualTemp:          manualTempState{},
	StateProfileTempOverride: overrideState{},
}

type idleState struct{}

func (idleState) onEnter(e *env, _ Event) StateID {
	e.rt.Profile = nil
	e.rt.ProgramRunning = false
	e.lastStep = profile.Result{}
	return NoChange
}

func (idleState) onExit(*env) {}

func (idleState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventLoadProfile:
		if e.loadProfile(StateIdle, ev.Profile) {
			return StateLoaded
		}
	case EventSetManualTemp:
		return StateManualTemp
	}
	return NoChange
}

type loadedState struct{}

func (loadedState) onEnter(e *env, _ Event) StateID {
	e.rt.ProgramRunning = false
	if e.rt.Profile == nil {
		e.log.Log(logger.ErrorLevel, StateLoaded.String(), "entered without a program")
		return StateIdle
	}
	if e.rt.Profile.Done() {
		e.rt.Profile.Rewind()
	}
	return NoChange
}

func (loadedState) onExit(*env) {}

func (loadedState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventLoadProfile:
		e.loadProfile(StateLoaded, ev.Profile)
	case EventStart:
		return StateRunning
	case EventClearProgram:
		return StateIdle
	case EventSetManualTemp:
		return StateManualTemp
	case EventSetNextSegment:
		e.setNextSegment(StateLoaded, ev)
	}
	return NoChange
}

type runningState struct{}

func (runningState) onEnter(e *env, _ Event) StateID {
	p := e.rt.Profile
	if p == nil {
		e.log.Log(logger.ErrorLevel, StateRunning.String(), "no program loaded, refusing to drive the heater")
		return StateIdle
	}
	if p.Done() {
		return StateCompleted
	}
	p.Begin(e.temp())
	res := p.Advance(0)
	e.lastStep = res
	e.rt.ProgramRunning = true
	if res.Action == profile.ActionEnd {
		return StateCompleted
	}
	if err := e.drive(StateRunning, res.Setpoint); err != nil {
		return e.fail(CodeControllerFailure, DomainFurnace, "heater: "+err.Error())
	}
	return NoChange
}

func (runningState) onExit(e *env) { e.heaterOff(StateRunning) }

func (runningState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventPause:
		return StatePaused
	case EventCancel:
		return StateCancelled
	case EventComplete:
		return StateCompleted
	case EventSetManualTemp:
		return StateProfileTempOverride
	case EventSetNextSegment:
		e.setNextSegment(StateRunning, ev)
	case EventTick:
		return e.step(ev.Interval)
	}
	return NoChange
}

type pausedState struct{}

func (pausedState) onEnter(e *env, _ Event) StateID {
	if e.heaterOn {
		e.heaterOff(StatePaused)
	}
	return NoChange
}

func (pausedState) onExit(*env) {}

func (pausedState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventResume:
		return StateRunning
	case EventCancel:
		return StateCancelled
	case EventSetNextSegment:
		e.setNextSegment(StatePaused, ev)
	}
	return NoChange
}

type completedState struct{}

func (completedState) onEnter(e *env, _ Event) StateID {
	e.rt.ProgramRunning = false
	return NoChange
}

func (completedState) onExit(*env) {}

func (completedState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventLoadProfile:
		if e.loadProfile(StateCompleted, ev.Profile) {
			return StateLoaded
		}
	case EventClearProgram:
		return StateIdle
	case EventSetManualTemp:
		return StateManualTemp
	}
	return NoChange
}

type cancelledState struct{}

func (cancelledState) onEnter(e *env, _ Event) StateID {
	e.rt.ProgramRunning = false
	return NoChange
}

func (cancelledState) onExit(*env) {}

func (cancelledState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventLoadProfile:
		if e.loadProfile(StateCancelled, ev.Profile) {
			return StateLoaded
		}
	case EventClearProgram:
		return StateIdle
	}
	return NoChange
}

type errorState struct{}

func (errorState) onEnter(e *env, cause Event) StateID {
	e.heaterOff(StateError)
	e.rt.ProgramRunning = false
	e.rt.HasManualTarget = false
	e.rt.ManualTarget = 0
	if cause.Kind == EventError {
		e.fault = cause.Fault
	} else {
		e.fault = Fault{Code: CodeUnknown, Domain: DomainStateMachine, Message: "entered on " + cause.Kind.String()}
	}
	e.hasFault = true
	e.log.Log(logger.ErrorLevel, StateError.String(), e.fault.String())
	return NoChange
}

func (errorState) onExit(e *env) {
	e.fault = Fault{}
	e.hasFault = false
}

func (errorState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventLoadProfile:
		if e.loadProfile(StateError, ev.Profile) {
			return StateLoaded
		}
	case EventReset:
		return StateIdle
	}
	return NoChange
}

type manualTempState struct{}

func (manualTempState) onEnter(e *env, cause Event) StateID {
	e.rt.ProgramRunning = false
	e.rt.ManualTarget = cause.Temp
	e.rt.HasManualTarget = true
	if err := e.drive(StateManualTemp, cause.Temp); err != nil {
		return e.fail(CodeControllerFailure, DomainFurnace, "heater: "+err.Error())
	}
	return NoChange
}

func (manualTempState) onExit(e *env) {
	e.heaterOff(StateManualTemp)
	e.rt.ManualTarget = 0
	e.rt.HasManualTarget = false
}

func (manualTempState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventResume:
		if e.rt.Profile != nil {
			return StateLoaded
		}
		return StateIdle
	case EventSetManualTemp:
		return e.retarget(StateManualTemp, ev.Temp)
	}
	return NoChange
}

type overrideState struct{}

func (overrideState) onEnter(e *env, cause Event) StateID {
	e.rt.ManualTarget = cause.Temp
	e.rt.HasManualTarget = true
	if err := e.drive(StateProfileTempOverride, cause.Temp); err != nil {
		return e.fail(CodeControllerFailure, DomainFurnace, "heater: "+err.Error())
	}
	return NoChange
}

func (overrideState) onExit(e *env) {
	e.heaterOff(StateProfileTempOverride)
	e.rt.ManualTarget = 0
	e.rt.HasManualTarget = false
}

func (overrideState) handle(e *env, ev Event) StateID {
	switch ev.Kind {
	case EventResume:
		return StateRunning
	case EventCancel:
		return StateCancelled
	case EventSetManualTemp:
		return e.retarget(StateProfileTempOverride, ev.Temp)
	}
	return NoChange
}

// step runs the profile stepper for one tick while Running.
func (e *env) step(interval time.Duration) StateID {
	p := e.rt.Profile
	if p == nil || p.Done() {
		return NoChange
	}
	if interval <= 0 {
		interval = e.tick
	}
	res := p.Advance(interval)
	e.lastStep = res
	if res.Action == profile.ActionEnd {
		e.log.Log(logger.InfoLevel, StateRunning.String(), "program "+p.Name+" finished")
		e.deferPost(StateRunning, CompleteEvent(), PriorityFurnace)
	}
	if res.Setpoint == e.setpoint {
		return NoChange
	}
	if err := e.heater.SetTarget(res.Setpoint); err != nil {
		return e.fail(CodeControllerFailure, DomainFurnace, "heater set target: "+err.Error())
	}
	e.setpoint = res.Setpoint
	return NoChange
}

// drive sets the heater target and switches it on.
func (e *env) drive(domain StateID, target float64) error {
	if err := e.heater.SetTarget(target); err != nil {
		e.log.Log(logger.ErrorLevel, domain.String(), "heater set target failed: "+err.Error())
		return err
	}
	e.setpoint = target
	if err := e.heater.SetOn(); err != nil {
		e.log.Log(logger.ErrorLevel, domain.String(), "heater on failed: "+err.Error())
		return err
	}
	e.heaterOn = true
	return nil
}

// retarget updates the setpoint of a state that already drives the heater.
func (e *env) retarget(domain StateID, target float64) StateID {
	if err := e.heater.SetTarget(target); err != nil {
		e.log.Log(logger.ErrorLevel, domain.String(), "heater set target failed: "+err.Error())
		return e.fail(CodeControllerFailure, DomainFurnace, "heater: "+err.Error())
	}
	e.setpoint = target
	e.rt.ManualTarget = target
	return NoChange
}

// heaterOff always commands the heater off. A failure is logged and the
// transition carries on.
func (e *env) heaterOff(domain StateID) {
	if err := e.heater.SetOff(); err != nil {
		e.log.Log(logger.ErrorLevel, domain.String(), "heater off failed: "+err.Error())
		return
	}
	e.heaterOn = false
	e.setpoint = 0
}

// loadProfile takes ownership of p. Playback always restarts from the top.
func (e *env) loadProfile(domain StateID, p *profile.Profile) bool {
	if p == nil {
		e.log.Log(logger.WarnLevel, domain.String(), "LoadProfile without a program")
		return false
	}
	if err := p.Validate(); err != nil {
		e.log.Log(logger.WarnLevel, domain.String(), "rejected program "+p.Name+": "+err.Error())
		return false
	}
	p.Rewind()
	e.rt.Profile = p
	e.log.Log(logger.InfoLevel, domain.String(), "program "+p.Name+" loaded, "+strconv.Itoa(len(p.Segments))+" segments")
	return true
}

func (e *env) setNextSegment(domain StateID, ev Event) {
	if e.rt.Profile == nil {
		e.log.Log(logger.WarnLevel, domain.String(), "SetNextSegment without a program")
		return
	}
	if err := e.rt.Profile.SetNextSegment(ev.Segment, ev.Offset); err != nil {
		e.log.Log(logger.WarnLevel, domain.String(), "SetNextSegment rejected: "+err.Error())
		return
	}
	e.log.Log(logger.InfoLevel, domain.String(), "playback moved to segment "+strconv.Itoa(int(ev.Segment)))
}
