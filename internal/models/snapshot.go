package models

import "time"

// ApplianceSnapshot is the persisted detector snapshot, one row per appliance.
// It survives restarts so daily counters and in-flight cycles are not lost.
type ApplianceSnapshot struct {
	ApplianceID     string     `json:"appliance_id"`
	State           string     `json:"state"`
	CurrentPowerW   float64    `json:"current_power_w"`
	LastStarted     *time.Time `json:"last_started,omitempty"`
	LastCompleted   *time.Time `json:"last_completed,omitempty"`
	CycleDurationS  *float64   `json:"cycle_duration_s,omitempty"`
	CyclesToday     int        `json:"cycles_today"`
	CyclesTodayDate string     `json:"cycles_today_date,omitempty"`
	CycleEnergyKWh  *float64   `json:"cycle_energy_kwh,omitempty"`
	EnergyAtStart   *float64   `json:"energy_at_start_kwh,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
