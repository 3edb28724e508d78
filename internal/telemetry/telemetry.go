// Package telemetry publishes furnace transitions and state snapshots to an
// MQTT broker.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

// Topic suffixes under the configured prefix.
const (
	TopicTransitions = "transitions"
	TopicState       = "state"
	TopicStatus      = "status"
)

// Status payloads on the retained status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Publisher publishes controller telemetry. Errors are reported to the caller
// and must never stop the controller.
type Publisher interface {
	// PublishTransition sends one journal entry, not retained.
	PublishTransition(ev models.FurnaceEvent) error

	// PublishState sends the latest snapshot, retained.
	PublishState(st models.FurnaceState) error

	Close() error
}

// Topic joins prefix and suffix with a slash.
func Topic(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// TransitionPayload is the message body on the transitions topic.
type TransitionPayload struct {
	Transition TransitionInner `json:"transition"`
}

type TransitionInner struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Metadata  any    `json:"metadata,omitempty"`
}

// FormatTransition builds the JSON body for a journal entry.
func FormatTransition(ev models.FurnaceEvent) ([]byte, error) {
	return json.Marshal(TransitionPayload{
		Transition: TransitionInner{
			ID:        ev.EventID,
			Timestamp: ev.OccurredAt.UTC().Format(time.RFC3339Nano),
			Type:      ev.Type,
			Message:   ev.Description,
			Metadata:  ev.Metadata,
		},
	})
}

// FormatState builds the JSON body for a snapshot.
func FormatState(st models.FurnaceState) ([]byte, error) {
	st.UpdatedAt = st.UpdatedAt.UTC()
	return json.Marshal(st)
}

// Nop discards everything. It is used when MQTT is disabled.
type Nop struct{}

func (Nop) PublishTransition(models.FurnaceEvent) error { return nil }
func (Nop) PublishState(models.FurnaceState) error      { return nil }
func (Nop) Close() error                                { return nil }
