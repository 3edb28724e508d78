package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
)

// maxLogLimit caps a single journal page.
const maxLogLimit = 1000

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// ErrInvalidFilter is returned for a malformed journal query.
var ErrInvalidFilter = errors.New("invalid log filter")

// normalizeAndValidateFilter prepares query parameters and validates the range.
func normalizeAndValidateFilter(f LogFilter) (repository.EventFilter, error) {
	from := toUTC(f.From)
	to := toUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.EventFilter{}, fmt.Errorf("%w: From must be <= To", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return repository.EventFilter{}, fmt.Errorf("%w: limit must be >= 0", ErrInvalidFilter)
	}
	limit := f.Limit
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	return repository.EventFilter{
		From:  from,
		To:    to,
		Type:  strings.TrimSpace(strings.ToUpper(f.Type)),
		Limit: limit,
	}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.FurnaceEvent, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, rf)
}
