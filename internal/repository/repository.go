package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

// ErrNotFound is returned by lookups of a named row that does not exist.
var ErrNotFound = errors.New("not found")

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// StateRepo keeps the last published furnace snapshot.
type StateRepo interface {
	Save(ctx context.Context, s models.FurnaceState) error
	Load(ctx context.Context) (models.FurnaceState, error)
}

// EventRepo is the append-only transition journal.
type EventRepo interface {
	Append(ctx context.Context, e models.FurnaceEvent) error
	List(ctx context.Context, f EventFilter) ([]models.FurnaceEvent, error)
}

// ProgramRepo is the named program library.
type ProgramRepo interface {
	Save(ctx context.Context, p models.Program) error
	Get(ctx context.Context, name string) (models.Program, error)
	List(ctx context.Context) ([]models.Program, error)
	Delete(ctx context.Context, name string) error
}

// EventFilter selects journal entries. Zero fields do not filter.
type EventFilter struct {
	From  time.Time
	To    time.Time
	Type  string
	Limit int
}

type Repository struct {
	StateRepo   StateRepo
	EventRepo   EventRepo
	ProgramRepo ProgramRepo
	Auth        Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:   NewStateSQLite(db),
		EventRepo:   NewEventSQLite(db),
		ProgramRepo: NewProgramSQLite(db),
		Auth:        NewUserRepository(db),
	}
}
