package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
)

type ProgramService struct {
	repo repository.ProgramRepo
	now  func() time.Time
}

func NewProgramService(repo repository.ProgramRepo) *ProgramService {
	return &ProgramService{repo: repo, now: time.Now}
}

func (s *ProgramService) List(ctx context.Context) ([]models.Program, error) {
	return s.repo.List(ctx)
}

func (s *ProgramService) Get(ctx context.Context, name string) (models.Program, error) {
	p, err := s.repo.Get(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Program{}, fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}
	return p, err
}

// Save validates p as a program and stores it in canonical form (durations
// re-rendered, name trimmed).
func (s *ProgramService) Save(ctx context.Context, p models.Program) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	prof, err := programToProfile(p)
	if err != nil {
		return err
	}
	canon := profileToProgram(prof)
	canon.UpdatedAt = s.now().UTC()
	return s.repo.Save(ctx, canon)
}

func (s *ProgramService) Delete(ctx context.Context, name string) error {
	err := s.repo.Delete(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}
	return err
}

// Import stores every program file in dir, replacing same-named programs.
// It returns how many were stored.
func (s *ProgramService) Import(ctx context.Context, dir string) (int, error) {
	profiles, err := profile.LoadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	for i, p := range profiles {
		m := profileToProgram(p)
		m.UpdatedAt = s.now().UTC()
		if err := s.repo.Save(ctx, m); err != nil {
			return i, err
		}
	}
	return len(profiles), nil
}
