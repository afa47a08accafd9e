package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"appliance_status/internal/models"
	"appliance_status/internal/repository"
)

type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (LogFilter, error) {
	f.From = normalizeToUTC(f.From)
	f.To = normalizeToUTC(f.To)
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return LogFilter{}, errInvalidTimeRange
	}
	f.Type = strings.TrimSpace(strings.ToUpper(f.Type))
	f.ApplianceID = strings.TrimSpace(f.ApplianceID)
	return f, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.CycleEvent, error) {
	f, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.events.List(ctx, f.From, f.To, f.Type, f.ApplianceID)
}
