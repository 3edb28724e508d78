package fsm

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/digiexchris/HeatTreatFurnace/internal/logger"
	"github.com/digiexchris/HeatTreatFurnace/internal/metrics"
)

// PostStatus is the outcome of TryPost.
type PostStatus uint8

const (
	PostQueued PostStatus = iota
	// PostDropped is a UI-priority overflow. It is counted and otherwise ignored.
	PostDropped
	// PostDroppedEscalate is a Critical or Furnace overflow. The driving loop
	// owes the machine an Error event.
	PostDroppedEscalate
)

// EventQueueManager serializes producers onto the fixed-capacity queue.
type EventQueueManager struct {
	mu    sync.Mutex
	queue EventQueue
	seq   uint32

	overflow atomic.Uint32
	escalate atomic.Bool

	log Logger
}

func NewEventQueueManager(log Logger) *EventQueueManager {
	if log == nil {
		log = nopLogger{}
	}
	return &EventQueueManager{log: log}
}

// Post enqueues ev. It returns false, and inserts nothing, when the queue is full.
func (m *EventQueueManager) Post(ev Event, prio EventPriority) bool {
	return m.TryPost(ev, prio) == PostQueued
}

// TryPost is Post with the overflow classification exposed.
func (m *EventQueueManager) TryPost(ev Event, prio EventPriority) PostStatus {
	m.mu.Lock()
	m.seq++
	ok := m.queue.Push(QueuedMessage{Priority: prio, Sequence: m.seq, Payload: ev})
	m.mu.Unlock()
	if ok {
		return PostQueued
	}

	n := m.overflow.Add(1)
	metrics.IncQueueOverflow(prio.String())
	m.log.Log(logger.WarnLevel, "queue",
		"dropped "+ev.Kind.String()+" at "+prio.String()+" priority, overflow count "+strconv.FormatUint(uint64(n), 10))

	if prio == PriorityUI {
		return PostDropped
	}
	m.escalate.Store(true)
	return PostDroppedEscalate
}

// DrainQueue pops every queued message in (priority, sequence) order and hands
// its payload to handler. The lock is held for the whole drain, so handler must
// never call Post.
func (m *EventQueueManager) DrainQueue(handler func(Event)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for {
		msg, ok := m.queue.Pop()
		if !ok {
			return n
		}
		handler(msg.Payload)
		n++
	}
}

// Len is the number of queued messages.
func (m *EventQueueManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

func (m *EventQueueManager) GetOverflowCount() uint32 { return m.overflow.Load() }

func (m *EventQueueManager) ResetOverflowCount() { m.overflow.Store(0) }

// TakeEscalation reports and clears a pending Critical/Furnace overflow.
func (m *EventQueueManager) TakeEscalation() bool {
	return m.escalate.Swap(false)
}

type nopLogger struct{}

func (nopLogger) Log(string, string, string) {}

type nopHeater struct{}

func (nopHeater) SetOn() error             { return nil }
func (nopHeater) SetOff() error            { return nil }
func (nopHeater) SetTarget(float64) error { return nil }
