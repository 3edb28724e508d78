package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/logger"
	"github.com/digiexchris/HeatTreatFurnace/internal/metrics"
	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
	"github.com/digiexchris/HeatTreatFurnace/internal/telemetry"
)

// flushTimeout bounds the final drain after Run's context is canceled.
const flushTimeout = 2 * time.Second

type recordKind uint8

const (
	recTransition recordKind = iota
	recCommand
	recCycle
)

type record struct {
	kind recordKind
	at   time.Time
	tr   fsm.Transition
	snap fsm.Snapshot
	cmd  string
	meta map[string]any
}

// Recorder moves controller activity off the control goroutine: it journals
// transitions and commands, keeps the furnace_state row current and publishes
// telemetry. Producers never block; when the buffer is full the record is
// dropped and counted.
type Recorder struct {
	states repository.StateRepo
	events repository.EventRepo
	pub    telemetry.Publisher
	log    *logger.Logger

	ch      chan record
	dropped atomic.Uint64
	now     func() time.Time
}

var _ Observer = (*Recorder)(nil)

func NewRecorder(states repository.StateRepo, events repository.EventRepo, pub telemetry.Publisher, log *logger.Logger, buffer int) *Recorder {
	if pub == nil {
		pub = telemetry.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Recorder{
		states: states,
		events: events,
		pub:    pub,
		log:    log,
		ch:     make(chan record, buffer),
		now:    time.Now,
	}
}

// Transition is the state machine's transition listener.
func (r *Recorder) Transition(t fsm.Transition) {
	r.offer(record{kind: recTransition, at: t.At, tr: t, snap: t.Snapshot})
}

func (r *Recorder) Command(name string, meta map[string]any) {
	r.offer(record{kind: recCommand, at: r.now(), cmd: name, meta: meta})
}

func (r *Recorder) Cycle(s fsm.Snapshot) {
	r.offer(record{kind: recCycle, at: s.UpdatedAt, snap: s})
}

// Dropped is the number of records lost to a full buffer.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

func (r *Recorder) offer(rec record) {
	select {
	case r.ch <- rec:
	default:
		r.dropped.Add(1)
		metrics.RecorderDroppedTotal.Inc()
	}
}

// Run consumes records until ctx is canceled, then flushes what is already
// buffered.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return r.flush(ctx)
		case rec := <-r.ch:
			r.handle(ctx, rec)
		}
	}
}

func (r *Recorder) flush(parent context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), flushTimeout)
	defer cancel()
	for {
		select {
		case rec := <-r.ch:
			r.handle(ctx, rec)
		default:
			if err := r.pub.Close(); err != nil {
				r.log.Warnw("telemetry_close_failed", "err", err)
			}
			return nil
		}
	}
}

func (r *Recorder) handle(ctx context.Context, rec record) {
	switch rec.kind {
	case recTransition:
		ev := transitionEvent(rec.tr)
		r.appendEvent(ctx, ev)
		if err := r.pub.PublishTransition(ev); err != nil {
			r.log.Warnw("telemetry_publish_failed", "topic", telemetry.TopicTransitions, "err", err)
		}
		r.saveState(ctx, rec.snap)
	case recCommand:
		r.appendEvent(ctx, models.FurnaceEvent{
			EventID:     uuid.NewString(),
			OccurredAt:  toUTC(rec.at),
			Type:        models.EventCommand,
			Description: "command " + rec.cmd,
			Metadata:    rec.meta,
		})
	case recCycle:
		r.saveState(ctx, rec.snap)
	}
}

func (r *Recorder) appendEvent(ctx context.Context, ev models.FurnaceEvent) {
	if err := r.events.Append(ctx, ev); err != nil {
		r.log.Errorw("journal_append_failed", "type", ev.Type, "err", err)
	}
}

func (r *Recorder) saveState(ctx context.Context, s fsm.Snapshot) {
	st := snapshotToState(s)
	if err := r.states.Save(ctx, st); err != nil {
		r.log.Errorw("state_save_failed", "state", st.State, "err", err)
	}
	if err := r.pub.PublishState(st); err != nil {
		r.log.Warnw("telemetry_publish_failed", "topic", telemetry.TopicState, "err", err)
	}
}

func transitionEvent(t fsm.Transition) models.FurnaceEvent {
	typ := models.EventTransition
	meta := map[string]any{
		"from":  t.From.String(),
		"to":    t.To.String(),
		"event": t.Event.Kind.String(),
	}
	if t.Snapshot.ProgramName != "" {
		meta["program"] = t.Snapshot.ProgramName
		meta["segment"] = int(t.Snapshot.Segment)
	}
	if t.To == fsm.StateError && t.Snapshot.HasFault {
		typ = models.EventError
		meta["code"] = t.Snapshot.Fault.Code.String()
		meta["domain"] = t.Snapshot.Fault.Domain.String()
		meta["message"] = t.Snapshot.Fault.Message
	}
	return models.FurnaceEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  toUTC(t.At),
		Type:        typ,
		Description: fmt.Sprintf("%s -> %s on %s", t.From, t.To, t.Event.Kind),
		Metadata:    meta,
	}
}

// interruptible are the states a power loss leaves a program stranded in.
var interruptible = map[string]bool{
	fsm.StateRunning.String():             true,
	fsm.StatePaused.String():              true,
	fsm.StateProfileTempOverride.String(): true,
}

// DetectInterrupted journals an INTERRUPTED entry if the last persisted
// snapshot shows a program that never finished. The machine itself always
// boots in Idle.
func DetectInterrupted(ctx context.Context, states repository.StateRepo, events repository.EventRepo) (bool, error) {
	last, err := states.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load last state: %w", err)
	}
	if last.ID == 0 || !interruptible[last.State] {
		return false, nil
	}
	err = events.Append(ctx, models.FurnaceEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventInterrupted,
		Description: fmt.Sprintf("controller restarted while %s", last.State),
		Metadata: map[string]any{
			"state":        last.State,
			"program":      last.ProgramName,
			"segment":      last.Segment,
			"segment_s":    last.SegmentElapsedSeconds,
			"temp_c":       last.CurrentTempC,
			"last_seen_at": last.UpdatedAt,
		},
	})
	if err != nil {
		return false, fmt.Errorf("journal interruption: %w", err)
	}
	return true, nil
}
