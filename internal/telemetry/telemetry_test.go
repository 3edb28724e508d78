package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

func TestTopic(t *testing.T) {
	if got := Topic("furnace", TopicState); got != "furnace/state" {
		t.Errorf("Topic = %q, want furnace/state", got)
	}
	if got := Topic("", TopicStatus); got != "status" {
		t.Errorf("Topic without prefix = %q, want status", got)
	}
}

func TestFormatTransition(t *testing.T) {
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.FixedZone("X", 7200))
	b, err := FormatTransition(models.FurnaceEvent{
		EventID:     "abc",
		OccurredAt:  at,
		Type:        models.EventTransition,
		Description: "Loaded -> Running on Start",
		Metadata:    map[string]any{"from": "Loaded", "to": "Running"},
	})
	if err != nil {
		t.Fatalf("FormatTransition: %v", err)
	}

	var got TransitionPayload
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Transition.Timestamp != "2025-02-03T02:05:06Z" {
		t.Errorf("timestamp = %q, want UTC RFC3339", got.Transition.Timestamp)
	}
	if got.Transition.Type != "TRANSITION" || got.Transition.ID != "abc" {
		t.Errorf("unexpected payload: %+v", got.Transition)
	}
	meta, ok := got.Transition.Metadata.(map[string]any)
	if !ok || meta["to"] != "Running" {
		t.Errorf("metadata = %#v", got.Transition.Metadata)
	}
}

func TestFormatState_OmitsEmptyFault(t *testing.T) {
	b, err := FormatState(models.FurnaceState{State: "Idle", CurrentTempC: 25})
	if err != nil {
		t.Fatalf("FormatState: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["state"] != "Idle" {
		t.Errorf("state = %v", m["state"])
	}
	if _, ok := m["fault"]; ok {
		t.Errorf("fault should be omitted when nil: %s", b)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	if _, ok := f.LastState(); ok {
		t.Fatalf("expected no state yet")
	}
	_ = f.PublishTransition(models.FurnaceEvent{EventID: "1"})
	_ = f.PublishState(models.FurnaceState{State: "Running"})
	_ = f.PublishState(models.FurnaceState{State: "Paused"})

	if f.TransitionCount() != 1 {
		t.Errorf("TransitionCount = %d, want 1", f.TransitionCount())
	}
	if st, _ := f.LastState(); st.State != "Paused" {
		t.Errorf("LastState = %q, want Paused", st.State)
	}

	f.PublishError = errors.New("broker down")
	if err := f.PublishState(models.FurnaceState{}); err == nil {
		t.Errorf("expected PublishError to be returned")
	}
	_ = f.Close()
	if !f.Closed {
		t.Errorf("Close not recorded")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishState(models.FurnaceState{}); err != nil {
		t.Fatalf("Nop.PublishState: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Nop.Close: %v", err)
	}
}
