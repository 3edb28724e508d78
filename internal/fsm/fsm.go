package fsm

import (
	"sync/atomic"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/logger"
	"github.com/digiexchris/HeatTreatFurnace/internal/metrics"
	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
)

const (
	// DefaultTick is the interval assumed for a Tick event that carries none.
	DefaultTick = time.Second
	// AmbientTemp is the ramp origin used when no temperature source is set.
	AmbientTemp = 25.0
)

// Runtime is the machine-owned furnace state. Only the consumer goroutine
// touches it.
type Runtime struct {
	Profile         *profile.Profile
	ProgramRunning  bool
	ManualTarget    float64
	HasManualTarget bool
}

// Transition describes one committed state change. Redirects performed by an
// onEnter are folded in, so To is always the state that was committed.
type Transition struct {
	From     StateID
	To       StateID
	Event    Event
	At       time.Time
	Snapshot Snapshot
}

// Snapshot is a read-only copy of the machine, safe to read from any goroutine.
type Snapshot struct {
	State          StateID
	ProgramName    string
	ProgramRunning bool
	Segment        uint16
	SegmentElapsed time.Duration
	Setpoint       float64
	Measured       float64
	HeaterOn       bool
	ManualTarget   float64
	HasFault       bool
	Fault          Fault
	LastAction     profile.Action
	OverflowCount  uint32
	UpdatedAt      time.Time
}

// deferredPost is only delivered if the machine is still in the state that
// produced it.
type deferredPost struct {
	from StateID
	ev   Event
	prio EventPriority
}

// env is the mutable context handed to state handlers. Handlers never keep a
// reference to it beyond the call.
type env struct {
	rt     Runtime
	log    Logger
	heater Heater
	temp   TempSource
	tick   time.Duration

	setpoint float64
	heaterOn bool
	fault    Fault
	hasFault bool
	lastStep profile.Result

	// redirect carries the cause for a handler redirect into Error.
	redirect    Event
	hasRedirect bool

	deferred  [QueueCapacity]deferredPost
	nDeferred int
}

// Option configures a FurnaceFsm.
type Option func(*FurnaceFsm)

// WithTempSource sets the measured-temperature source.
func WithTempSource(src TempSource) Option {
	return func(f *FurnaceFsm) { f.env.temp = src }
}

// WithTick sets the interval assumed for Tick events without one.
func WithTick(d time.Duration) Option {
	return func(f *FurnaceFsm) {
		if d > 0 {
			f.env.tick = d
		}
	}
}

// WithTransitionListener registers fn for every committed transition. It runs
// on the consumer goroutine with the queue locked: it must not block or Post.
func WithTransitionListener(fn func(Transition)) Option {
	return func(f *FurnaceFsm) { f.onTransition = fn }
}

// FurnaceFsm dispatches queued events to the active state handler.
type FurnaceFsm struct {
	queue        *EventQueueManager
	env          env
	current      atomic.Uint32
	snap         atomic.Pointer[Snapshot]
	onTransition func(Transition)
	now          func() time.Time
}

// New builds a machine in Idle. A nil logger or heater is replaced by a no-op.
func New(log Logger, heater Heater, opts ...Option) *FurnaceFsm {
	if log == nil {
		log = nopLogger{}
	}
	if heater == nil {
		heater = nopHeater{}
	}
	f := &FurnaceFsm{
		queue: NewEventQueueManager(log),
		env: env{
			log:    log,
			heater: heater,
			temp:   func() float64 { return AmbientTemp },
			tick:   DefaultTick,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.current.Store(uint32(StateIdle))
	metrics.CurrentState.WithLabelValues(StateIdle.String()).Set(1)
	f.publish()
	return f
}

// Receive posts ev at the priority its kind implies.
func (f *FurnaceFsm) Receive(ev Event) bool {
	return f.Post(ev, DefaultPriority(ev.Kind))
}

// Post enqueues ev. It never dispatches synchronously.
func (f *FurnaceFsm) Post(ev Event, prio EventPriority) bool {
	return f.queue.Post(ev, prio)
}

// TryPost is Post with the overflow classification exposed.
func (f *FurnaceFsm) TryPost(ev Event, prio EventPriority) PostStatus {
	return f.queue.TryPost(ev, prio)
}

// DefaultPriority maps an event kind to the priority its producer normally uses.
func DefaultPriority(kind EventKind) EventPriority {
	switch kind {
	case EventError:
		return PriorityCritical
	case EventTick, EventComplete:
		return PriorityFurnace
	default:
		return PriorityUI
	}
}

// ProcessQueue drains the queue, dispatching each event in order. Consequences
// produced during the drain and any pending overflow escalation are posted
// after the lock is released, so they run on the next call.
func (f *FurnaceFsm) ProcessQueue() int {
	n := f.queue.DrainQueue(f.dispatch)

	for i := 0; i < f.env.nDeferred; i++ {
		d := f.env.deferred[i]
		if d.from == f.GetCurrentState() {
			f.queue.TryPost(d.ev, d.prio)
		}
		f.env.deferred[i] = deferredPost{}
	}
	f.env.nDeferred = 0

	if f.queue.TakeEscalation() {
		metrics.QueueEscalationsTotal.Inc()
		f.env.log.Log(logger.ErrorLevel, "queue", "critical or furnace event dropped, escalating")
		f.queue.TryPost(ErrorEvent(CodeControllerFailure, DomainStateMachine, "event queue overflow"), PriorityCritical)
	}

	f.publish()
	return n
}

// GetCurrentState returns the committed state.
func (f *FurnaceFsm) GetCurrentState() StateID {
	return StateID(f.current.Load())
}

func (f *FurnaceFsm) GetOverflowCount() uint32 { return f.queue.GetOverflowCount() }

func (f *FurnaceFsm) ResetOverflowCount() { f.queue.ResetOverflowCount() }

// QueueLen is the number of events waiting for the next ProcessQueue.
func (f *FurnaceFsm) QueueLen() int { return f.queue.Len() }

// Snapshot returns the state published by the last ProcessQueue.
func (f *FurnaceFsm) Snapshot() Snapshot {
	return *f.snap.Load()
}

func (f *FurnaceFsm) dispatch(ev Event) {
	cur := f.GetCurrentState()
	metrics.EventsDispatchedTotal.WithLabelValues(ev.Kind.String()).Inc()

	if ev.Kind == EventError {
		if cur == StateError {
			f.env.log.Log(logger.WarnLevel, cur.String(), "already in Error, ignoring "+ev.String())
			return
		}
		f.transition(cur, StateError, ev)
		return
	}

	if ev.Kind >= numEventKinds || !transitions[cur][ev.Kind].accepted {
		f.reject(cur, ev)
		return
	}

	r := transitions[cur][ev.Kind]
	next := handlers[cur].handle(&f.env, ev)
	if !r.allows(next) {
		f.env.log.Log(logger.ErrorLevel, cur.String(), "handler returned illegal target "+next.String()+" for "+ev.String())
		next = f.env.fail(CodeControllerFailure, DomainStateMachine, "illegal transition "+cur.String()+" to "+next.String())
	}
	if next == NoChange || next == cur {
		return
	}
	if next == StateError && ev.Kind != EventError {
		ev = f.env.takeRedirect(ev)
	}
	f.transition(cur, next, ev)
}

// reject applies the unknown-event policy.
func (f *FurnaceFsm) reject(cur StateID, ev Event) {
	metrics.EventsRejectedTotal.WithLabelValues(cur.String(), ev.Kind.String()).Inc()
	if cur == StateError {
		f.env.log.Log(logger.WarnLevel, cur.String(), "ignoring "+ev.String())
		return
	}
	f.env.log.Log(logger.ErrorLevel, cur.String(), "unexpected "+ev.String()+", entering Error")
	f.transition(cur, StateError,
		ErrorEvent(CodeUnknown, DomainStateMachine, "unexpected "+ev.Kind.String()+" in "+cur.String()))
}

// transition runs onExit then onEnter and commits. An onEnter may redirect to
// another state; the half-entered state is exited again before moving on.
func (f *FurnaceFsm) transition(from, to StateID, cause Event) {
	handlers[from].onExit(&f.env)
	target := to
	for hops := 0; ; hops++ {
		redirect := handlers[target].onEnter(&f.env, cause)
		if redirect == NoChange || redirect == target {
			break
		}
		if hops >= int(numStates) {
			f.env.log.Log(logger.ErrorLevel, "fsm", "redirect loop entering "+target.String())
			break
		}
		f.env.log.Log(logger.InfoLevel, target.String(), "redirecting to "+redirect.String())
		handlers[target].onExit(&f.env)
		cause = f.env.takeRedirect(cause)
		target = redirect
	}

	f.current.Store(uint32(target))
	metrics.ObserveTransition(from.String(), target.String())
	f.env.log.Log(logger.InfoLevel, "fsm", from.String()+" -> "+target.String()+" on "+cause.Kind.String())

	snap := f.publish()
	if f.onTransition != nil {
		f.onTransition(Transition{From: from, To: target, Event: cause, At: snap.UpdatedAt, Snapshot: snap})
	}
}

func (f *FurnaceFsm) publish() Snapshot {
	e := &f.env
	s := Snapshot{
		State:          f.GetCurrentState(),
		ProgramRunning: e.rt.ProgramRunning,
		Setpoint:       e.setpoint,
		Measured:       e.temp(),
		HeaterOn:       e.heaterOn,
		ManualTarget:   e.rt.ManualTarget,
		HasFault:       e.hasFault,
		Fault:          e.fault,
		LastAction:     e.lastStep.Action,
		OverflowCount:  f.queue.GetOverflowCount(),
		UpdatedAt:      f.now(),
	}
	if p := e.rt.Profile; p != nil {
		pos := p.Position()
		s.ProgramName = p.Name
		s.Segment = pos.Segment
		s.SegmentElapsed = pos.Elapsed
	}
	f.snap.Store(&s)
	metrics.SetpointCelsius.Set(s.Setpoint)
	return s
}

// deferPost schedules ev for after the current drain.
func (e *env) deferPost(from StateID, ev Event, prio EventPriority) {
	if e.nDeferred == len(e.deferred) {
		e.log.Log(logger.ErrorLevel, "fsm", "deferred buffer full, dropping "+ev.String())
		return
	}
	e.deferred[e.nDeferred] = deferredPost{from: from, ev: ev, prio: prio}
	e.nDeferred++
}

// fail asks the transition in progress to redirect into Error with this fault.
func (e *env) fail(code ErrorCode, domain Domain, msg string) StateID {
	e.redirect = ErrorEvent(code, domain, msg)
	e.hasRedirect = true
	return StateError
}

func (e *env) takeRedirect(fallback Event) Event {
	if !e.hasRedirect {
		return fallback
	}
	e.hasRedirect = false
	return e.redirect
}
