package models

import "time"

// Appliance is one monitored device: which sensors feed it and the detector
// settings its cycle state machine runs with.
type Appliance struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	PowerSensor  string           `json:"power_sensor"`
	EnergySensor string           `json:"energy_sensor,omitempty"`
	Settings     DetectorSettings `json:"settings"`
	CreatedAt    time.Time        `json:"created_at"`
}

// HasEnergySensor reports whether a cumulative energy counter feeds this
// appliance, enabling the per-cycle energy figure.
func (a Appliance) HasEnergySensor() bool {
	return a.EnergySensor != ""
}

// DetectorSettings is the wire/storage form of the detector configuration.
// Delays are whole seconds; the service layer converts to durations.
type DetectorSettings struct {
	StandbyThresholdW float64 `json:"standby_threshold_w"`
	RunningThresholdW float64 `json:"running_threshold_w"`
	StartDelayS       int     `json:"start_delay_s"`
	FinishDelayS      int     `json:"finish_delay_s"`
	DebounceS         int     `json:"debounce_s"`
}
