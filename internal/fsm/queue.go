package fsm

// QueueCapacity is the fixed number of messages the event queue holds.
const QueueCapacity = 48

// QueuedMessage is an event plus its ordering key.
type QueuedMessage struct {
	Priority EventPriority
	Sequence uint32
	Payload  Event
}

// before reports whether m is served ahead of o.
func (m *QueuedMessage) before(o *QueuedMessage) bool {
	if m.Priority != o.Priority {
		return m.Priority < o.Priority
	}
	// Wrap-safe: a sequence counter that rolled over still compares FIFO.
	return int32(m.Sequence-o.Sequence) < 0
}

// EventQueue is a binary min-heap over a fixed array. It never allocates and
// is not safe for concurrent use; EventQueueManager adds the lock.
type EventQueue struct {
	items [QueueCapacity]QueuedMessage
	n     int
}

func (q *EventQueue) Len() int    { return q.n }
func (q *EventQueue) Full() bool  { return q.n == QueueCapacity }
func (q *EventQueue) Empty() bool { return q.n == 0 }

// Push inserts m. It returns false when the queue is full.
func (q *EventQueue) Push(m QueuedMessage) bool {
	if q.n == QueueCapacity {
		return false
	}
	q.items[q.n] = m
	q.up(q.n)
	q.n++
	return true
}

// Pop removes the message with the lowest (priority, sequence) key.
func (q *EventQueue) Pop() (QueuedMessage, bool) {
	if q.n == 0 {
		return QueuedMessage{}, false
	}
	top := q.items[0]
	q.n--
	q.items[0] = q.items[q.n]
	q.items[q.n] = QueuedMessage{}
	q.down(0)
	return top, true
}

// Peek returns the next message without removing it.
func (q *EventQueue) Peek() (QueuedMessage, bool) {
	if q.n == 0 {
		return QueuedMessage{}, false
	}
	return q.items[0], true
}

// Clear drops every message.
func (q *EventQueue) Clear() {
	for i := 0; i < q.n; i++ {
		q.items[i] = QueuedMessage{}
	}
	q.n = 0
}

func (q *EventQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.items[i].before(&q.items[parent]) {
			return
		}
		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *EventQueue) down(i int) {
	for {
		l := 2*i + 1
		if l >= q.n {
			return
		}
		least := l
		if r := l + 1; r < q.n && q.items[r].before(&q.items[l]) {
			least = r
		}
		if !q.items[least].before(&q.items[i]) {
			return
		}
		q.items[i], q.items[least] = q.items[least], q.items[i]
		i = least
	}
}
