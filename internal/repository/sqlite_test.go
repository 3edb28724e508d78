package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository/db"
)

func openRepo(t *testing.T) *repository.Repository {
	t.Helper()
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "furnace.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return repository.NewRepository(conn)
}

func TestSQLite_StateRoundTrip(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	in := models.FurnaceState{
		State:          "Paused",
		ProgramName:    "anneal",
		ProgramRunning: true,
		Segment:        1,
		SetpointC:      300,
		CurrentTempC:   297.5,
		OverflowCount:  2,
		UpdatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.StateRepo.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	in.State = "Running"
	if err := repo.StateRepo.Save(ctx, in); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := repo.StateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.State != "Running" || got.ProgramName != "anneal" || !got.ProgramRunning || got.OverflowCount != 2 {
		t.Fatalf("unexpected state: %+v", got)
	}
	if !got.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, in.UpdatedAt)
	}
}

func TestSQLite_EventJournalFilters(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, typ := range []string{models.EventTransition, models.EventError, models.EventTransition, models.EventTransition} {
		err := repo.EventRepo.Append(ctx, models.FurnaceEvent{
			OccurredAt:  base.Add(time.Duration(i) * time.Minute),
			Type:        typ,
			Description: typ,
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	all, err := repo.EventRepo.List(ctx, repository.EventFilter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("List all = %d, %v", len(all), err)
	}

	window, err := repo.EventRepo.List(ctx, repository.EventFilter{From: base.Add(time.Minute), To: base.Add(2 * time.Minute)})
	if err != nil || len(window) != 2 {
		t.Fatalf("List window = %d, %v", len(window), err)
	}

	last, err := repo.EventRepo.List(ctx, repository.EventFilter{Type: "transition", Limit: 2})
	if err != nil {
		t.Fatalf("List limit: %v", err)
	}
	if len(last) != 2 || !last[0].OccurredAt.Equal(base.Add(2*time.Minute)) || !last[1].OccurredAt.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("unexpected tail: %+v", last)
	}
}

func TestSQLite_ProgramsAndUsers(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	p := models.Program{Name: "temper", Segments: []models.ProgramSegment{{TargetC: 200, Ramp: "10m", Dwell: "2h"}}}
	if err := repo.ProgramRepo.Save(ctx, p); err != nil {
		t.Fatalf("Save program: %v", err)
	}
	got, err := repo.ProgramRepo.Get(ctx, "temper")
	if err != nil || len(got.Segments) != 1 || got.Segments[0].Dwell != "2h" {
		t.Fatalf("Get program = %+v, %v", got, err)
	}
	if err := repo.ProgramRepo.Delete(ctx, "temper"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.ProgramRepo.Get(ctx, "temper"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if _, err := repo.Auth.Create("op", "hash"); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if _, err := repo.Auth.Create("op", "hash2"); !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}
