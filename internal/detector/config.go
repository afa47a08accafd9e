package detector

import (
	"errors"
	"fmt"
	"time"
)

// Default detector settings. They suit typical dishwasher/washer load
// profiles; per-appliance overrides go through Config.
const (
	DefaultStandbyThresholdW  = 2.0
	DefaultRunningThresholdW  = 8.0
	DefaultStartConfirmDelay  = 5 * time.Minute
	DefaultFinishConfirmDelay = 2 * time.Minute
	DefaultDebounceInterval   = 20 * time.Second
)

// Accepted ranges for the configurable knobs.
const (
	MaxStandbyThresholdW  = 50.0
	MinRunningThresholdW  = 1.0
	MaxRunningThresholdW  = 500.0
	MaxStartConfirmDelay  = 30 * time.Minute
	MaxFinishConfirmDelay = 15 * time.Minute
	MaxDebounceInterval   = 120 * time.Second
)

// ErrInvalidConfig is returned when a configuration update violates the
// threshold ordering or a bound. The previous configuration stays in effect.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// Config holds the per-appliance thresholds and delays. All fields may be
// changed at runtime; changes apply on the next evaluation.
type Config struct {
	StandbyThresholdW  float64       `json:"standby_threshold_w"`
	RunningThresholdW  float64       `json:"running_threshold_w"`
	StartConfirmDelay  time.Duration `json:"start_confirm_delay"`
	FinishConfirmDelay time.Duration `json:"finish_confirm_delay"`
	DebounceInterval   time.Duration `json:"debounce_interval"`
}

// DefaultConfig returns the stock thresholds and delays.
func DefaultConfig() Config {
	return Config{
		StandbyThresholdW:  DefaultStandbyThresholdW,
		RunningThresholdW:  DefaultRunningThresholdW,
		StartConfirmDelay:  DefaultStartConfirmDelay,
		FinishConfirmDelay: DefaultFinishConfirmDelay,
		DebounceInterval:   DefaultDebounceInterval,
	}
}

// Validate checks threshold ordering and bounds.
func (c Config) Validate() error {
	if c.StandbyThresholdW <= 0 || c.StandbyThresholdW > MaxStandbyThresholdW {
		return fmt.Errorf("%w: standby threshold %.1f W outside (0, %.0f]", ErrInvalidConfig, c.StandbyThresholdW, MaxStandbyThresholdW)
	}
	if c.RunningThresholdW < MinRunningThresholdW || c.RunningThresholdW > MaxRunningThresholdW {
		return fmt.Errorf("%w: running threshold %.1f W outside [%.0f, %.0f]", ErrInvalidConfig, c.RunningThresholdW, MinRunningThresholdW, MaxRunningThresholdW)
	}
	if c.RunningThresholdW < c.StandbyThresholdW {
		return fmt.Errorf("%w: running threshold %.1f W below standby threshold %.1f W", ErrInvalidConfig, c.RunningThresholdW, c.StandbyThresholdW)
	}
	if c.StartConfirmDelay < 0 || c.StartConfirmDelay > MaxStartConfirmDelay {
		return fmt.Errorf("%w: start confirm delay %s outside [0, %s]", ErrInvalidConfig, c.StartConfirmDelay, MaxStartConfirmDelay)
	}
	if c.FinishConfirmDelay < 0 || c.FinishConfirmDelay > MaxFinishConfirmDelay {
		return fmt.Errorf("%w: finish confirm delay %s outside [0, %s]", ErrInvalidConfig, c.FinishConfirmDelay, MaxFinishConfirmDelay)
	}
	if c.DebounceInterval < 0 || c.DebounceInterval > MaxDebounceInterval {
		return fmt.Errorf("%w: debounce interval %s outside [0, %s]", ErrInvalidConfig, c.DebounceInterval, MaxDebounceInterval)
	}
	return nil
}
