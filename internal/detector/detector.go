package detector

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrOutOfOrderReading is returned for a reading timestamped earlier than the
// last evaluated one. Such readings are never applied so that replayed or
// backfilled sensor data cannot corrupt the confirm timers.
var ErrOutOfOrderReading = errors.New("power reading out of order")

const dayLayout = "2006-01-02"

// Snapshot is the derived view of one appliance, produced by the detector and
// consumed by the status API, the WebSocket stream and the snapshot store.
type Snapshot struct {
	Status           State      `json:"status"`
	InternalState    State      `json:"internal_state"`
	IsRunning        bool       `json:"is_running"`
	CurrentPowerW    float64    `json:"current_power_w"`
	LastStarted      *time.Time `json:"last_started,omitempty"`
	LastCompleted    *time.Time `json:"last_completed,omitempty"`
	CycleDurationS   *float64   `json:"cycle_duration_s,omitempty"`
	CyclesToday      int        `json:"cycles_today"`
	CyclesTodayDate  string     `json:"cycles_today_date,omitempty"`
	CycleEnergyKWh   *float64   `json:"cycle_energy_kwh,omitempty"`
	EnergyAtStartKWh *float64   `json:"energy_at_start_kwh,omitempty"`
}

// Completion is the payload of the cycle-completed event, emitted exactly once
// per confirmed Running -> Completed transition.
type Completion struct {
	ApplianceName  string   `json:"appliance_name"`
	CycleDurationS *float64 `json:"cycle_duration"`
	CycleEnergyKWh *float64 `json:"cycle_energy_kwh,omitempty"`
}

// ChangeFunc receives a snapshot after every committed state change.
type ChangeFunc func(Snapshot)

// CompletionFunc receives the cycle-completed event.
type CompletionFunc func(Completion)

// Detector is the per-appliance cycle state machine. It classifies a stream of
// instantaneous power readings into off/standby/running/completed phases,
// debouncing the readings and confirming candidate transitions over the
// configured delays before reporting them.
//
// All entry points serialize on one mutex: readings, ticks, config updates and
// snapshot reads never interleave for the same appliance. Distinct detectors
// are fully independent.
type Detector struct {
	mu sync.Mutex

	name        string
	cfg         Config
	trackEnergy bool
	now         func() time.Time

	state        State
	currentPower float64

	// pending transition, meaningful only while state is one of the Pending*
	// values: when the candidate condition was first observed.
	pendingSince time.Time

	hasReading      bool
	lastReadingAt   time.Time // out-of-order guard
	lastEvaluatedAt time.Time // debounce clock, advanced only by accepted readings

	lastStarted     *time.Time
	lastCompleted   *time.Time
	cycleDuration   *float64
	cyclesToday     int
	cyclesTodayDate string

	lastEnergy    *float64
	energyAtStart *float64
	cycleEnergy   *float64

	onChange    ChangeFunc
	onCompleted CompletionFunc
}

// New builds a detector for one appliance. trackEnergy enables the per-cycle
// energy delta; without it ReportEnergy is a no-op and the snapshot never
// carries an energy figure.
func New(name string, cfg Config, trackEnergy bool) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		name:        name,
		cfg:         cfg,
		trackEnergy: trackEnergy,
		now:         time.Now,
		state:       StateOff,
	}, nil
}

// SetNowFunc replaces the clock. Test hook; the default is time.Now.
func (d *Detector) SetNowFunc(fn func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = fn
}

// OnChange registers the state-change listener.
func (d *Detector) OnChange(fn ChangeFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

// OnCompleted registers the cycle-completed listener.
func (d *Detector) OnCompleted(fn CompletionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onCompleted = fn
}

// Name returns the appliance name the detector reports in events.
func (d *Detector) Name() string { return d.name }

// Config returns the active configuration.
func (d *Detector) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// UpdateConfig swaps the configuration atomically with respect to evaluation.
// An invalid configuration is rejected and the previous one stays in effect.
// In-flight pending timers keep their original first-observed timestamp; the
// new delays apply from the next evaluation on.
func (d *Detector) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
	return nil
}

// ReportPower feeds one power reading into the state machine.
//
// NaN and negative values are clamped to 0 (small negative noise means
// "definitely off", not a fault). Readings older than the newest one seen are
// rejected with ErrOutOfOrderReading. Readings arriving within the debounce
// interval of the last evaluated one refresh the displayed power but do not
// re-evaluate transitions.
func (d *Detector) ReportPower(powerW float64, at time.Time) error {
	if math.IsNaN(powerW) || powerW < 0 {
		powerW = 0
	}

	d.mu.Lock()
	if d.hasReading && at.Before(d.lastReadingAt) {
		d.mu.Unlock()
		return ErrOutOfOrderReading
	}
	d.lastReadingAt = at

	if d.hasReading && at.Sub(d.lastEvaluatedAt) < d.cfg.DebounceInterval {
		// Debounce filters transition evaluation, not display telemetry.
		d.currentPower = powerW
		d.mu.Unlock()
		return nil
	}
	d.hasReading = true
	d.lastEvaluatedAt = at
	d.currentPower = powerW

	changed, comp := d.evaluate(at)
	snap := d.snapshotLocked(at)
	d.mu.Unlock()

	d.dispatch(changed, comp, snap)
	return nil
}

// ReportEnergy records the latest cumulative energy counter reading. It does
// not drive the state machine; the counter is sampled at cycle start and
// completion to derive the per-cycle energy.
func (d *Detector) ReportEnergy(energyKWh float64, _ time.Time) {
	if math.IsNaN(energyKWh) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.trackEnergy {
		return
	}
	v := energyKWh
	d.lastEnergy = &v
}

// Tick re-checks the confirm timers against the last known power value, so a
// pending transition commits even when the sensor goes quiet. Ticks are not
// debounced and do not advance the reading clock.
func (d *Detector) Tick(at time.Time) {
	d.mu.Lock()
	if !d.hasReading {
		d.mu.Unlock()
		return
	}
	changed, comp := d.evaluate(at)
	snap := d.snapshotLocked(at)
	d.mu.Unlock()

	d.dispatch(changed, comp, snap)
}

// Snapshot returns the current derived metrics. Reading the snapshot also
// applies the daily-counter rollover, mirroring completion-time behavior.
func (d *Detector) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked(d.now())
}

// Restore reloads persisted metrics after a restart. Pending timers are
// discarded: a persisted pending state collapses to Running so a finish can
// still be detected, everything else is kept as stored.
func (d *Detector) Restore(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch snap.InternalState {
	case StatePendingRunning, StatePendingCompleted, StateRunning:
		d.state = StateRunning
	case StateOff, StateStandby, StateCompleted:
		d.state = snap.InternalState
	default:
		d.state = StateOff
	}
	d.lastStarted = snap.LastStarted
	d.lastCompleted = snap.LastCompleted
	d.cycleDuration = snap.CycleDurationS
	d.cyclesToday = snap.CyclesToday
	d.cyclesTodayDate = snap.CyclesTodayDate
	d.cycleEnergy = snap.CycleEnergyKWh
	d.energyAtStart = snap.EnergyAtStartKWh
	d.pendingSince = time.Time{}
}

// --- evaluation, callers hold d.mu ---

func (d *Detector) classify(powerW float64) powerLevel {
	switch {
	case powerW < d.cfg.StandbyThresholdW:
		return levelOff
	case powerW < d.cfg.RunningThresholdW:
		return levelStandby
	default:
		return levelRunning
	}
}

// evaluate runs one pass of the transition table against the current power.
// It is the single code path shared by the reading and tick entry points.
func (d *Detector) evaluate(now time.Time) (changed bool, comp *Completion) {
	level := d.classify(d.currentPower)
	prev := d.state

	switch d.state {
	case StateOff:
		switch level {
		case levelStandby:
			d.state = StateStandby
		case levelRunning:
			d.beginPendingRunning(now)
		}

	case StateStandby:
		switch level {
		case levelOff:
			d.state = StateOff
		case levelRunning:
			d.beginPendingRunning(now)
		}

	case StatePendingRunning:
		switch level {
		case levelOff:
			d.state = StateOff // false start
		case levelStandby:
			d.state = StateStandby // false start
		}

	case StateRunning:
		if level != levelRunning {
			d.state = StatePendingCompleted
			d.pendingSince = now
		}

	case StatePendingCompleted:
		if level == levelRunning {
			d.state = StateRunning // power came back, cycle continues
		}

	case StateCompleted:
		switch level {
		case levelOff:
			d.state = StateOff
		case levelStandby:
			d.state = StateStandby
		case levelRunning:
			d.beginPendingRunning(now) // new cycle candidate
		}
	}

	// Commit a pending transition whose condition held for the full delay.
	// A zero delay commits within the same evaluation.
	switch {
	case d.state == StatePendingRunning && level == levelRunning &&
		now.Sub(d.pendingSince) >= d.cfg.StartConfirmDelay:
		d.commitRunning(now)
	case d.state == StatePendingCompleted && level != levelRunning &&
		now.Sub(d.pendingSince) >= d.cfg.FinishConfirmDelay:
		comp = d.commitCompleted(now)
	}

	return d.state != prev, comp
}

func (d *Detector) beginPendingRunning(now time.Time) {
	d.state = StatePendingRunning
	d.pendingSince = now
}

func (d *Detector) commitRunning(now time.Time) {
	d.state = StateRunning
	d.pendingSince = time.Time{}
	started := now
	d.lastStarted = &started
	d.energyAtStart = nil
	if d.trackEnergy && d.lastEnergy != nil {
		v := *d.lastEnergy
		d.energyAtStart = &v
	}
}

func (d *Detector) commitCompleted(now time.Time) *Completion {
	d.state = StateCompleted
	d.pendingSince = time.Time{}

	completed := now
	d.lastCompleted = &completed
	d.cycleDuration = nil
	if d.lastStarted != nil {
		dur := now.Sub(*d.lastStarted).Seconds()
		d.cycleDuration = &dur
	}

	d.cycleEnergy = nil
	if d.trackEnergy && d.energyAtStart != nil && d.lastEnergy != nil {
		delta := math.Round((*d.lastEnergy-*d.energyAtStart)*1000) / 1000
		if delta < 0 {
			delta = 0 // counter reset mid-cycle
		}
		d.cycleEnergy = &delta
	}
	d.energyAtStart = nil

	d.rollCounterLocked(now)
	d.cyclesToday++

	return &Completion{
		ApplianceName:  d.name,
		CycleDurationS: d.cycleDuration,
		CycleEnergyKWh: d.cycleEnergy,
	}
}

// rollCounterLocked resets the daily counter when the local calendar date of
// now differs from the date the counter was last touched.
func (d *Detector) rollCounterLocked(now time.Time) {
	today := now.Local().Format(dayLayout)
	if d.cyclesTodayDate != today {
		d.cyclesToday = 0
		d.cyclesTodayDate = today
	}
}

func (d *Detector) snapshotLocked(now time.Time) Snapshot {
	d.rollCounterLocked(now)
	return Snapshot{
		Status:           d.state.External(),
		InternalState:    d.state,
		IsRunning:        d.state == StateRunning || d.state == StatePendingCompleted,
		CurrentPowerW:    d.currentPower,
		LastStarted:      d.lastStarted,
		LastCompleted:    d.lastCompleted,
		CycleDurationS:   d.cycleDuration,
		CyclesToday:      d.cyclesToday,
		CyclesTodayDate:  d.cyclesTodayDate,
		CycleEnergyKWh:   d.cycleEnergy,
		EnergyAtStartKWh: d.energyAtStart,
	}
}

// dispatch fires listeners outside the lock so a callback may call back into
// the detector without deadlocking.
func (d *Detector) dispatch(changed bool, comp *Completion, snap Snapshot) {
	if changed && d.onChange != nil {
		d.onChange(snap)
	}
	if comp != nil && d.onCompleted != nil {
		d.onCompleted(*comp)
	}
}
