package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appliance_status/internal/detector"
	"appliance_status/internal/logger"
	"appliance_status/internal/models"
	"appliance_status/internal/repository"

	"github.com/google/uuid"
)

var (
	errEmptyName        = errors.New("appliance name is required")
	errEmptyPowerSensor = errors.New("power sensor id is required")
)

// persistTimeout bounds the background writes triggered by detector callbacks.
const persistTimeout = 5 * time.Second

type ApplianceService struct {
	appliances repository.ApplianceRepo
	snapshots  repository.SnapshotRepo
	events     repository.EventRepo
	reg        *registry
	log        *logger.Logger
}

func NewApplianceService(
	appliances repository.ApplianceRepo,
	snapshots repository.SnapshotRepo,
	events repository.EventRepo,
	reg *registry,
	log *logger.Logger,
) *ApplianceService {
	return &ApplianceService{
		appliances: appliances,
		snapshots:  snapshots,
		events:     events,
		reg:        reg,
		log:        log,
	}
}

// Start loads all persisted appliances and brings their detectors up,
// restoring the last snapshot of each.
func (s *ApplianceService) Start(ctx context.Context) error {
	list, err := s.appliances.List(ctx)
	if err != nil {
		return fmt.Errorf("load appliances: %w", err)
	}
	for _, a := range list {
		if err := s.spawnDetector(ctx, a); err != nil {
			return fmt.Errorf("start appliance %q: %w", a.Name, err)
		}
	}
	if s.log != nil {
		s.log.Infow("appliances_started", "count", len(list))
	}
	return nil
}

// Create stores a new appliance and spins up its detector.
func (s *ApplianceService) Create(ctx context.Context, p CreateApplianceParams) (models.Appliance, error) {
	if p.Name == "" {
		return models.Appliance{}, errEmptyName
	}
	if p.PowerSensor == "" {
		return models.Appliance{}, errEmptyPowerSensor
	}

	settings := p.Settings.apply(defaultSettings())
	if err := configFromSettings(settings).Validate(); err != nil {
		return models.Appliance{}, err
	}

	a := models.Appliance{
		ID:           uuid.NewString(),
		Name:         p.Name,
		PowerSensor:  p.PowerSensor,
		EnergySensor: p.EnergySensor,
		Settings:     settings,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.appliances.Create(ctx, a); err != nil {
		return models.Appliance{}, err
	}
	if err := s.spawnDetector(ctx, a); err != nil {
		return models.Appliance{}, err
	}
	if s.log != nil {
		s.log.Infow("appliance_created", "id", a.ID, "name", a.Name, "power_sensor", a.PowerSensor)
	}
	return a, nil
}

func (s *ApplianceService) List(ctx context.Context) ([]models.Appliance, error) {
	return s.appliances.List(ctx)
}

func (s *ApplianceService) Get(ctx context.Context, id string) (models.Appliance, error) {
	return s.appliances.GetByID(ctx, id)
}

// Delete removes the appliance and releases its detector. Any pending
// transition timer is discarded with the instance.
func (s *ApplianceService) Delete(ctx context.Context, id string) error {
	if err := s.appliances.Delete(ctx, id); err != nil {
		return err
	}
	s.reg.remove(id)
	if s.log != nil {
		s.log.Infow("appliance_deleted", "id", id)
	}
	return nil
}

// UpdateSettings applies a partial settings update. An invalid combination is
// rejected up front and the previous settings stay in effect, both in the
// store and in the live detector.
func (s *ApplianceService) UpdateSettings(ctx context.Context, id string, p SettingsPatch) (models.Appliance, error) {
	a, err := s.appliances.GetByID(ctx, id)
	if err != nil {
		return models.Appliance{}, err
	}

	merged := p.apply(a.Settings)
	cfg := configFromSettings(merged)
	if err := cfg.Validate(); err != nil {
		return models.Appliance{}, err
	}

	if d, ok := s.reg.get(id); ok {
		if err := d.UpdateConfig(cfg); err != nil {
			return models.Appliance{}, err
		}
	}
	if err := s.appliances.UpdateSettings(ctx, id, merged); err != nil {
		return models.Appliance{}, err
	}
	a.Settings = merged

	if err := s.events.Append(ctx, models.CycleEvent{
		ApplianceID:   a.ID,
		ApplianceName: a.Name,
		OccurredAt:    time.Now().UTC(),
		Type:          models.EventConfigChange,
		Description:   "Detector settings updated",
		Metadata:      merged,
	}); err != nil && s.log != nil {
		s.log.Errorw("config_change_event_failed", "err", err, "id", id)
	}
	return a, nil
}

// spawnDetector builds the detector for one appliance, restores its persisted
// snapshot and hooks up the persistence and event-log callbacks.
func (s *ApplianceService) spawnDetector(ctx context.Context, a models.Appliance) error {
	d, err := detector.New(a.Name, configFromSettings(a.Settings), a.HasEnergySensor())
	if err != nil {
		return err
	}

	stored, err := s.snapshots.Load(ctx, a.ID)
	if err != nil {
		return err
	}
	if stored.ApplianceID != "" {
		d.Restore(toDetectorSnapshot(stored))
		if s.log != nil {
			s.log.Infow("appliance_state_restored", "id", a.ID, "state", stored.State, "cycles_today", stored.CyclesToday)
		}
	}

	applianceID := a.ID
	applianceName := a.Name
	d.OnChange(func(snap detector.Snapshot) {
		s.persistSnapshot(applianceID, snap)
	})
	d.OnCompleted(func(c detector.Completion) {
		s.recordCompletion(applianceID, applianceName, c)
	})

	s.reg.put(a.ID, d)
	return nil
}

func (s *ApplianceService) persistSnapshot(applianceID string, snap detector.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.snapshots.Save(ctx, fromDetectorSnapshot(applianceID, snap)); err != nil && s.log != nil {
		s.log.Errorw("snapshot_save_failed", "err", err, "id", applianceID)
	}
	if err := s.events.Append(ctx, models.CycleEvent{
		ApplianceID:   applianceID,
		ApplianceName: s.nameOf(applianceID),
		OccurredAt:    time.Now().UTC(),
		Type:          models.EventStateChange,
		Description:   "State changed to " + string(snap.InternalState),
		Metadata: map[string]any{
			"internal_state":  snap.InternalState,
			"status":          snap.Status,
			"current_power_w": snap.CurrentPowerW,
		},
	}); err != nil && s.log != nil {
		s.log.Errorw("state_change_event_failed", "err", err, "id", applianceID)
	}
}

func (s *ApplianceService) recordCompletion(applianceID, applianceName string, c detector.Completion) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	meta := map[string]any{}
	if c.CycleDurationS != nil {
		meta["cycle_duration"] = *c.CycleDurationS
	}
	if c.CycleEnergyKWh != nil {
		meta["cycle_energy_kwh"] = *c.CycleEnergyKWh
	}
	if err := s.events.Append(ctx, models.CycleEvent{
		ApplianceID:   applianceID,
		ApplianceName: applianceName,
		OccurredAt:    time.Now().UTC(),
		Type:          models.EventCycleCompleted,
		Description:   "Cycle completed",
		Metadata:      meta,
	}); err != nil && s.log != nil {
		s.log.Errorw("completion_event_failed", "err", err, "id", applianceID)
	}
	if s.log != nil {
		s.log.Infow("cycle_completed", "id", applianceID, "name", applianceName,
			"cycle_duration", c.CycleDurationS, "cycle_energy_kwh", c.CycleEnergyKWh)
	}
}

func (s *ApplianceService) nameOf(applianceID string) string {
	if d, ok := s.reg.get(applianceID); ok {
		return d.Name()
	}
	return ""
}

// --- snapshot conversion ---

func toDetectorSnapshot(m models.ApplianceSnapshot) detector.Snapshot {
	return detector.Snapshot{
		InternalState:    detector.State(m.State),
		CurrentPowerW:    m.CurrentPowerW,
		LastStarted:      m.LastStarted,
		LastCompleted:    m.LastCompleted,
		CycleDurationS:   m.CycleDurationS,
		CyclesToday:      m.CyclesToday,
		CyclesTodayDate:  m.CyclesTodayDate,
		CycleEnergyKWh:   m.CycleEnergyKWh,
		EnergyAtStartKWh: m.EnergyAtStart,
	}
}

func fromDetectorSnapshot(applianceID string, snap detector.Snapshot) models.ApplianceSnapshot {
	return models.ApplianceSnapshot{
		ApplianceID:     applianceID,
		State:           string(snap.InternalState),
		CurrentPowerW:   snap.CurrentPowerW,
		LastStarted:     snap.LastStarted,
		LastCompleted:   snap.LastCompleted,
		CycleDurationS:  snap.CycleDurationS,
		CyclesToday:     snap.CyclesToday,
		CyclesTodayDate: snap.CyclesTodayDate,
		CycleEnergyKWh:  snap.CycleEnergyKWh,
		EnergyAtStart:   snap.EnergyAtStartKWh,
		UpdatedAt:       time.Now().UTC(),
	}
}
