package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

func TestProgramService_SaveCanonicalizes(t *testing.T) {
	repo := newFakeProgramRepo()
	svc := NewProgramService(repo)
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) }

	err := svc.Save(context.Background(), models.Program{
		Name:     "  temper ",
		Segments: []models.ProgramSegment{{TargetC: 200, Ramp: "90m", Dwell: ""}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := models.Program{
		Name:      "temper",
		Segments:  []models.ProgramSegment{{TargetC: 200, Ramp: "1h30m0s", Dwell: "0s"}},
		UpdatedAt: time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, repo.programs["temper"]); diff != "" {
		t.Fatalf("stored program mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramService_SaveRejects(t *testing.T) {
	svc := NewProgramService(newFakeProgramRepo())
	ctx := context.Background()

	cases := map[string]models.Program{
		"no name":     {Segments: []models.ProgramSegment{{TargetC: 100}}},
		"no segments": {Name: "empty"},
		"bad ramp":    {Name: "x", Segments: []models.ProgramSegment{{TargetC: 100, Ramp: "ten minutes"}}},
		"neg dwell":   {Name: "x", Segments: []models.ProgramSegment{{TargetC: 100, Dwell: "-1m"}}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if err := svc.Save(ctx, p); !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestProgramService_NotFound(t *testing.T) {
	svc := NewProgramService(newFakeProgramRepo())
	ctx := context.Background()

	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, ErrProgramNotFound) {
		t.Fatalf("Get: expected ErrProgramNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "nope"); !errors.Is(err, ErrProgramNotFound) {
		t.Fatalf("Delete: expected ErrProgramNotFound, got %v", err)
	}
}

func TestProgramService_Import(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"anneal.toml": `
name = "Anneal O1"

[[segment]]
target_c = 790
ramp = "2h"
dwell = "1h"
`,
		"stress-relief.toml": `
[[segment]]
target_c = 650
ramp = "1h"
dwell = "2h"

[[segment]]
target_c = 300
ramp = "3h"
`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	repo := newFakeProgramRepo()
	svc := NewProgramService(repo)
	n, err := svc.Import(context.Background(), dir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d programs, want 2", n)
	}

	list, _ := svc.List(context.Background())
	names := []string{list[0].Name, list[1].Name}
	if diff := cmp.Diff([]string{"Anneal O1", "stress-relief"}, names, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("imported names (-want +got):\n%s", diff)
	}
	if got := repo.programs["stress-relief"].Segments[1]; got.Ramp != "3h0m0s" || got.Dwell != "0s" {
		t.Fatalf("unexpected segment: %+v", got)
	}
}

func TestProgramService_ImportBadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("[[segment]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewProgramService(newFakeProgramRepo()).Import(context.Background(), dir); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}
