package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	furnaceStateRowID = 1

	upsertStateSQL = `
		INSERT INTO furnace_state (id, state, program, program_running, segment, segment_elapsed_s,
			setpoint_c, temp_c, heater_on, fault, overflow_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			program=excluded.program,
			program_running=excluded.program_running,
			segment=excluded.segment,
			segment_elapsed_s=excluded.segment_elapsed_s,
			setpoint_c=excluded.setpoint_c,
			temp_c=excluded.temp_c,
			heater_on=excluded.heater_on,
			fault=excluded.fault,
			overflow_count=excluded.overflow_count,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, state, program, program_running, segment, segment_elapsed_s,
			setpoint_c, temp_c, heater_on, fault, overflow_count, updated_at
		FROM furnace_state WHERE id=?
	`
)

// marshalFault stores the active fault as JSON, or NULL when there is none.
func marshalFault(f *models.Fault) (sql.NullString, error) {
	if f == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalFault(s sql.NullString) (*models.Fault, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var f models.Fault
	if err := json.Unmarshal([]byte(s.String), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save upserts the furnace_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, state models.FurnaceState) error {
	fault, err := marshalFault(state.Fault)
	if err != nil {
		return fmt.Errorf("marshal fault: %w", err)
	}

	ts := state.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	program := sql.NullString{String: state.ProgramName, Valid: state.ProgramName != ""}

	_, err = r.db.ExecContext(ctx, upsertStateSQL,
		furnaceStateRowID,
		state.State,
		program,
		state.ProgramRunning,
		state.Segment,
		state.SegmentElapsedSeconds,
		state.SetpointC,
		state.CurrentTempC,
		state.HeaterOn,
		fault,
		state.OverflowCount,
		ts,
	)
	return err
}

// Load fetches the furnace_state row. A fresh database yields the zero state.
func (r *StateSQLite) Load(ctx context.Context) (models.FurnaceState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, furnaceStateRowID)

	var (
		s       models.FurnaceState
		program sql.NullString
		fault   sql.NullString
	)
	if err := row.Scan(
		&s.ID,
		&s.State,
		&program,
		&s.ProgramRunning,
		&s.Segment,
		&s.SegmentElapsedSeconds,
		&s.SetpointC,
		&s.CurrentTempC,
		&s.HeaterOn,
		&fault,
		&s.OverflowCount,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FurnaceState{}, nil // no state yet
		}
		return models.FurnaceState{}, err
	}

	f, err := unmarshalFault(fault)
	if err != nil {
		return models.FurnaceState{}, fmt.Errorf("decode fault: %w", err)
	}
	s.Fault = f
	s.ProgramName = program.String
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
