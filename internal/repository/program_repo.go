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

type ProgramSQLite struct {
	db *sql.DB
}

func NewProgramSQLite(db *sql.DB) *ProgramSQLite { return &ProgramSQLite{db: db} }

var _ ProgramRepo = (*ProgramSQLite)(nil)

const (
	upsertProgramSQL = `
		INSERT INTO programs (name, description, segments, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description=excluded.description,
			segments=excluded.segments,
			updated_at=excluded.updated_at
	`
	selectProgramSQL  = `SELECT name, description, segments, updated_at FROM programs WHERE name = ?`
	selectProgramsSQL = `SELECT name, description, segments, updated_at FROM programs ORDER BY name ASC`
	deleteProgramSQL  = `DELETE FROM programs WHERE name = ?`
)

// Save inserts or replaces the program with p.Name.
func (r *ProgramSQLite) Save(ctx context.Context, p models.Program) error {
	segs, err := json.Marshal(p.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments of %q: %w", p.Name, err)
	}
	ts := p.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, upsertProgramSQL, p.Name, p.Description, string(segs), ts.UTC().Format(sqliteTimeLayout)); err != nil {
		return fmt.Errorf("save program %q: %w", p.Name, err)
	}
	return nil
}

// Get returns ErrNotFound when no program has that name.
func (r *ProgramSQLite) Get(ctx context.Context, name string) (models.Program, error) {
	p, err := scanProgram(r.db.QueryRowContext(ctx, selectProgramSQL, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Program{}, fmt.Errorf("program %q: %w", name, ErrNotFound)
		}
		return models.Program{}, fmt.Errorf("select program %q: %w", name, err)
	}
	return p, nil
}

func (r *ProgramSQLite) List(ctx context.Context) ([]models.Program, error) {
	rows, err := r.db.QueryContext(ctx, selectProgramsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Program, 0, 8)
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete returns ErrNotFound when nothing was removed.
func (r *ProgramSQLite) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, deleteProgramSQL, name)
	if err != nil {
		return fmt.Errorf("delete program %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete program %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("program %q: %w", name, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (models.Program, error) {
	var (
		p       models.Program
		segs    string
		updated string
	)
	if err := row.Scan(&p.Name, &p.Description, &segs, &updated); err != nil {
		return models.Program{}, err
	}
	if err := json.Unmarshal([]byte(segs), &p.Segments); err != nil {
		return models.Program{}, fmt.Errorf("decode segments of %q: %w", p.Name, err)
	}
	ts, err := parseSQLiteTime(updated)
	if err != nil {
		return models.Program{}, err
	}
	p.UpdatedAt = ts
	return p, nil
}
