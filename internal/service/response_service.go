package service

import "time"

// LogFilter selects journal entries by time range and type.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "TRANSITION", "ERROR", "INTERRUPTED", "COMMAND"
	Limit int       // newest N; zero means all
}
