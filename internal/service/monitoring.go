package service

import (
	"context"

	"appliance_status/internal/detector"
	"appliance_status/internal/repository"
)

type MonitoringService struct {
	reg *registry
}

func NewMonitoringService(reg *registry) *MonitoringService {
	return &MonitoringService{reg: reg}
}

// Status returns the live snapshot of one appliance.
func (s *MonitoringService) Status(ctx context.Context, id string) (detector.Snapshot, error) {
	d, ok := s.reg.get(id)
	if !ok {
		return detector.Snapshot{}, repository.ErrApplianceNotFound
	}
	return d.Snapshot(), nil
}

// StatusAll returns snapshots for every registered appliance, keyed by id.
func (s *MonitoringService) StatusAll(ctx context.Context) (map[string]detector.Snapshot, error) {
	all := s.reg.all()
	out := make(map[string]detector.Snapshot, len(all))
	for id, d := range all {
		out[id] = d.Snapshot()
	}
	return out, nil
}
