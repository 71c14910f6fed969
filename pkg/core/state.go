package core

// State is the lifecycle state of the scan group scheduler.
type State string

const (
	// StateIdle waits for the next group period.
	StateIdle State = "idle"
	// StateScanning runs the technologies of one group.
	StateScanning State = "scanning"
	// StateAggregating builds and hands off the bundle.
	StateAggregating State = "aggregating"
	// StateFault stops all scanning until Reinit.
	StateFault State = "fault"
)

// Mode is the group-level scan mode.
type Mode string

const (
	// ModeStatic always waits the configured period.
	ModeStatic Mode = "static"
	// ModeMobile lets a PeriodPolicy shorten the next period.
	ModeMobile Mode = "mobile"
)
