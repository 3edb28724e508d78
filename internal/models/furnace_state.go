package models

import "time"

// FurnaceState is the snapshot served by GET furnace/state, streamed over /ws
// and persisted as the single furnace_state row.
type FurnaceState struct {
	ID                    int       `json:"id"`
	State                 string    `json:"state"`                  // Idle | Loaded | Running | Paused | ...
	ProgramName           string    `json:"program_name,omitempty"` // loaded program, if any
	ProgramRunning        bool      `json:"program_running"`
	Segment               int       `json:"segment"`
	SegmentElapsedSeconds float64   `json:"segment_elapsed_s"`
	SetpointC             float64   `json:"setpoint_c"`     // °C commanded to the heater
	CurrentTempC          float64   `json:"current_temp_c"` // °C measured
	ManualTargetC         float64   `json:"manual_target_c,omitempty"`
	HeaterOn              bool      `json:"heater_on"`
	LastAction            string    `json:"last_action,omitempty"` // Start | Hold | Increase | Decrease | End
	Fault                 *Fault    `json:"fault,omitempty"`
	OverflowCount         uint32    `json:"overflow_count"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Fault is the active error, present only while the machine is in Error.
type Fault struct {
	Code    string `json:"code"`   // e.g. TEMPERATURE_OUT_OF_BOUNDS
	Domain  string `json:"domain"` // ui | furnace | state_machine
	Message string `json:"message"`
}
