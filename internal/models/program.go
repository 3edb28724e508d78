package models

import "time"

// Program is a named temperature program as exchanged over the API and kept in
// the programs table. Durations use Go syntax ("90m", "1h30m").
type Program struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Segments    []ProgramSegment `json:"segments"`
	UpdatedAt   time.Time        `json:"updated_at,omitempty"`
}

type ProgramSegment struct {
	TargetC float64 `json:"target_c"`
	Ramp    string  `json:"ramp"`
	Dwell   string  `json:"dwell"`
}
