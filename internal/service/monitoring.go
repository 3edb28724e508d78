package service

import (
	"context"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

// SnapshotSource is anything that publishes machine snapshots.
type SnapshotSource interface {
	Snapshot() fsm.Snapshot
}

type MonitoringService struct {
	src SnapshotSource
}

func NewMonitoringService(ctrl *Controller) *MonitoringService {
	return &MonitoringService{src: ctrl.Machine()}
}

// GetState returns the snapshot published by the last control cycle.
func (s *MonitoringService) GetState(ctx context.Context) (models.FurnaceState, error) {
	if err := ctx.Err(); err != nil {
		return models.FurnaceState{}, err
	}
	return snapshotToState(s.src.Snapshot()), nil
}
