package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

func TestNormalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	plus3 := time.FixedZone("UTC+3", 3*3600)
	tests := []struct {
		name    string
		in      LogFilter
		wantErr bool
	}{
		{
			name: "zero filter passes through",
			in:   LogFilter{},
		},
		{
			name: "times converted to UTC and type upper-cased",
			in: LogFilter{
				From: time.Date(2025, 8, 1, 12, 0, 0, 0, plus3),
				To:   time.Date(2025, 8, 1, 13, 0, 0, 0, plus3),
				Type: " transition ",
			},
		},
		{
			name:    "from after to",
			in:      LogFilter{From: time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
			wantErr: true,
		},
		{
			name:    "negative limit",
			in:      LogFilter{Limit: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeAndValidateFilter(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("expected ErrInvalidFilter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.From.IsZero() && got.From.Location() != time.UTC {
				t.Errorf("From not UTC: %v", got.From.Location())
			}
			if !got.To.IsZero() && !got.To.Equal(tt.in.To) {
				t.Errorf("To changed instant: %v vs %v", got.To, tt.in.To)
			}
			if tt.in.Type != "" && got.Type != "TRANSITION" {
				t.Errorf("Type = %q, want TRANSITION", got.Type)
			}
		})
	}
}

func TestNormalizeAndValidateFilter_CapsLimit(t *testing.T) {
	got, err := normalizeAndValidateFilter(LogFilter{Limit: 50_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != maxLogLimit {
		t.Fatalf("Limit = %d, want %d", got.Limit, maxLogLimit)
	}
}

func TestEventLogService_List(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &localEventRepo{events: []models.FurnaceEvent{
		{EventID: "1", OccurredAt: base, Type: models.EventTransition},
		{EventID: "2", OccurredAt: base.Add(time.Minute), Type: models.EventCommand},
		{EventID: "3", OccurredAt: base.Add(2 * time.Minute), Type: models.EventTransition},
		{EventID: "4", OccurredAt: base.Add(3 * time.Minute), Type: models.EventTransition},
	}}
	svc := NewEventLogService(repo)

	got, err := svc.List(context.Background(), LogFilter{Type: "transition", Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "3" || got[1].EventID != "4" {
		t.Fatalf("unexpected events: %+v", got)
	}
	if repo.gotFilter.Type != models.EventTransition {
		t.Fatalf("repo saw type %q", repo.gotFilter.Type)
	}
}

func TestEventLogService_List_RepoError(t *testing.T) {
	svc := NewEventLogService(&localEventRepo{listErr: errors.New("db down")})
	if _, err := svc.List(context.Background(), LogFilter{}); err == nil {
		t.Fatalf("expected repo error")
	}
}

func TestEventLogService_List_InvalidRangeSkipsRepo(t *testing.T) {
	repo := &localEventRepo{listErr: errors.New("must not be called")}
	svc := NewEventLogService(repo)

	_, err := svc.List(context.Background(), LogFilter{
		From: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}
