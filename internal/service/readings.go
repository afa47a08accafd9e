package service

import (
	"context"
	"errors"
	"time"

	"appliance_status/internal/detector"
	"appliance_status/internal/logger"
	"appliance_status/internal/repository"
)

// ReadingService routes sensor readings to the right detector instance.
type ReadingService struct {
	reg *registry
	log *logger.Logger
}

func NewReadingService(reg *registry, log *logger.Logger) *ReadingService {
	return &ReadingService{reg: reg, log: log}
}

// ReportPower feeds a power reading into the appliance's detector. A zero
// timestamp means "now". Out-of-order readings are never applied; they are
// logged as a warning and reported back to the caller.
func (s *ReadingService) ReportPower(ctx context.Context, id string, powerW float64, at time.Time) error {
	d, ok := s.reg.get(id)
	if !ok {
		return repository.ErrApplianceNotFound
	}
	if at.IsZero() {
		at = time.Now()
	}
	if err := d.ReportPower(powerW, at); err != nil {
		if errors.Is(err, detector.ErrOutOfOrderReading) && s.log != nil {
			s.log.Warnw("power_reading_out_of_order", "id", id, "power_w", powerW, "at", at)
		}
		return err
	}
	return nil
}

// ReportEnergy records a cumulative energy counter reading.
func (s *ReadingService) ReportEnergy(ctx context.Context, id string, energyKWh float64, at time.Time) error {
	d, ok := s.reg.get(id)
	if !ok {
		return repository.ErrApplianceNotFound
	}
	if at.IsZero() {
		at = time.Now()
	}
	d.ReportEnergy(energyKWh, at)
	return nil
}
