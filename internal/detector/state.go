package detector

// State is the internal cycle state of a monitored appliance.
type State string

const (
	StateOff              State = "off"
	StateStandby          State = "standby"
	StatePendingRunning   State = "pending_running"
	StateRunning          State = "running"
	StatePendingCompleted State = "pending_completed"
	StateCompleted        State = "completed"
)

// External collapses the pending states onto the four statuses shown to
// consumers: a cycle is not reported as started or finished until confirmed.
func (s State) External() State {
	switch s {
	case StatePendingRunning:
		return StateStandby
	case StatePendingCompleted:
		return StateRunning
	default:
		return s
	}
}

// Valid reports whether s is one of the six known states.
func (s State) Valid() bool {
	switch s {
	case StateOff, StateStandby, StatePendingRunning, StateRunning, StatePendingCompleted, StateCompleted:
		return true
	}
	return false
}

// powerLevel is the 3-way classification of a raw reading against the thresholds.
type powerLevel int

const (
	levelOff powerLevel = iota
	levelStandby
	levelRunning
)
