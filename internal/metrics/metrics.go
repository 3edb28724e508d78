// Package metrics exposes Prometheus collectors for the furnace controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueOverflowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furnace_event_queue_overflow_total",
		Help: "Events dropped because the event queue was full, by priority",
	}, []string{"priority"})

	QueueEscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furnace_event_queue_escalations_total",
		Help: "Critical or furnace priority overflows escalated to an error event",
	})

	EventsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furnace_events_dispatched_total",
		Help: "Events dispatched to the active state handler, by event",
	}, []string{"event"})

	EventsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furnace_events_rejected_total",
		Help: "Events not handled by the active state, by state and event",
	}, []string{"state", "event"})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furnace_transitions_total",
		Help: "State transitions, by source and target state",
	}, []string{"from", "to"})

	CurrentState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "furnace_state",
		Help: "1 for the active furnace state, 0 otherwise",
	}, []string{"state"})

	SetpointCelsius = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "furnace_setpoint_celsius",
		Help: "Temperature the heater is currently commanded to reach",
	})

	MeasuredCelsius = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "furnace_measured_celsius",
		Help: "Last measured furnace temperature",
	})

	RecorderDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furnace_recorder_dropped_total",
		Help: "Transition notifications dropped because the recorder fell behind",
	})
)

// IncQueueOverflow records a dropped post at the given priority.
func IncQueueOverflow(priority string) {
	if priority == "" {
		priority = "unknown"
	}
	QueueOverflowTotal.WithLabelValues(priority).Inc()
}

// ObserveTransition counts a committed transition and moves the state gauge.
func ObserveTransition(from, to string) {
	TransitionsTotal.WithLabelValues(from, to).Inc()
	CurrentState.WithLabelValues(from).Set(0)
	CurrentState.WithLabelValues(to).Set(1)
}
