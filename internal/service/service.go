package service

import (
	"context"
	"errors"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
)

var (
	// ErrQueueFull means the event queue refused the command.
	ErrQueueFull = errors.New("event queue full")
	// ErrProgramNotFound is returned for an unknown program name.
	ErrProgramNotFound = errors.New("program not found")
	// ErrInvalidProfile wraps the reason a program definition was rejected.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrNotAllowed means the command makes no sense in the current state.
	ErrNotAllowed = errors.New("command not allowed in current state")
	// ErrInvalidTemperature is returned for a manual target outside the safe range.
	ErrInvalidTemperature = errors.New("invalid temperature")
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Furnace posts operator commands to the state machine. Commands are queued,
// not applied: a nil error means the event was accepted into the queue.
type Furnace interface {
	LoadProfile(ctx context.Context, p *profile.Profile) error
	LoadProgram(ctx context.Context, name string) error
	Start(ctx context.Context) error
	StartAt(ctx context.Context, segment uint16, offset time.Duration) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context) error
	ClearProgram(ctx context.Context) error
	Reset(ctx context.Context) error
	SetManualTemp(ctx context.Context, temp float64) error
	SetNextSegment(ctx context.Context, segment uint16, offset time.Duration) error
	RaiseFault(ctx context.Context, code fsm.ErrorCode, domain fsm.Domain, message string) error
}

// Monitoring exposes the live furnace snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.FurnaceState, error)
}

// EventLog exposes the transition journal with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.FurnaceEvent, error)
}

// Programs is the named program library.
type Programs interface {
	List(ctx context.Context) ([]models.Program, error)
	Get(ctx context.Context, name string) (models.Program, error)
	Save(ctx context.Context, p models.Program) error
	Delete(ctx context.Context, name string) error
	Import(ctx context.Context, dir string) (int, error)
}

// ControlLoop drives the plant, the safety monitor and the queue consumer.
// Stop via context cancellation in main() for graceful shutdown.
type ControlLoop interface {
	Run(ctx context.Context, tick time.Duration) error
}

// Service aggregates the sub-services the HTTP layer talks to.
type Service struct {
	Furnace
	Monitoring
	EventLog
	Programs
	ControlLoop
	Authorization
}

// NewService wires the repositories and a running controller into the
// aggregate. ctrl owns the state machine; everything else only reads.
func NewService(repos *repository.Repository, ctrl *Controller, signingKey string, tokenTTL time.Duration) *Service {
	return &Service{
		Furnace:       ctrl,
		Monitoring:    NewMonitoringService(ctrl),
		EventLog:      NewEventLogService(repos.EventRepo),
		Programs:      NewProgramService(repos.ProgramRepo),
		ControlLoop:   ctrl,
		Authorization: NewAuthService(repos.Auth, signingKey, tokenTTL),
	}
}
