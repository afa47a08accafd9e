package service

import (
	"time"

	"appliance_status/internal/detector"
	"appliance_status/internal/models"
)

// CreateApplianceParams describes a new appliance. Settings overrides are
// optional; omitted fields take the detector defaults.
type CreateApplianceParams struct {
	Name         string
	PowerSensor  string
	EnergySensor string
	Settings     SettingsPatch
}

// SettingsPatch is a partial detector-settings update. Nil fields keep the
// current values.
type SettingsPatch struct {
	StandbyThresholdW *float64 `json:"standby_threshold_w,omitempty"`
	RunningThresholdW *float64 `json:"running_threshold_w,omitempty"`
	StartDelayS       *int     `json:"start_delay_s,omitempty"`
	FinishDelayS      *int     `json:"finish_delay_s,omitempty"`
	DebounceS         *int     `json:"debounce_s,omitempty"`
}

func (p SettingsPatch) apply(s models.DetectorSettings) models.DetectorSettings {
	if p.StandbyThresholdW != nil {
		s.StandbyThresholdW = *p.StandbyThresholdW
	}
	if p.RunningThresholdW != nil {
		s.RunningThresholdW = *p.RunningThresholdW
	}
	if p.StartDelayS != nil {
		s.StartDelayS = *p.StartDelayS
	}
	if p.FinishDelayS != nil {
		s.FinishDelayS = *p.FinishDelayS
	}
	if p.DebounceS != nil {
		s.DebounceS = *p.DebounceS
	}
	return s
}

// LogFilter supports history filtering by time range, type and appliance.
type LogFilter struct {
	From        time.Time // inclusive; zero means no lower bound
	To          time.Time // inclusive; zero means no upper bound
	Type        string    // "", "STATE_CHANGE", "CYCLE_COMPLETED", "CONFIG_CHANGE"
	ApplianceID string    // "" means all appliances
}

// --- settings <-> detector config conversion ---

func defaultSettings() models.DetectorSettings {
	return settingsFromConfig(detector.DefaultConfig())
}

func settingsFromConfig(c detector.Config) models.DetectorSettings {
	return models.DetectorSettings{
		StandbyThresholdW: c.StandbyThresholdW,
		RunningThresholdW: c.RunningThresholdW,
		StartDelayS:       int(c.StartConfirmDelay / time.Second),
		FinishDelayS:      int(c.FinishConfirmDelay / time.Second),
		DebounceS:         int(c.DebounceInterval / time.Second),
	}
}

func configFromSettings(s models.DetectorSettings) detector.Config {
	return detector.Config{
		StandbyThresholdW:  s.StandbyThresholdW,
		RunningThresholdW:  s.RunningThresholdW,
		StartConfirmDelay:  time.Duration(s.StartDelayS) * time.Second,
		FinishConfirmDelay: time.Duration(s.FinishDelayS) * time.Second,
		DebounceInterval:   time.Duration(s.DebounceS) * time.Second,
	}
}
