package worker

import "go.uber.org/zap"

// Phase is an explicit state of a worker's per-cycle state machine. Keeping
// the transitions in a table (instead of implicit branching) lets tests
// assert which states are reachable from where.
type Phase int

const (
	PhaseIdle Phase = iota
	// Order sync phases
	PhaseFetching
	PhaseDeduping
	PhaseWriting
	PhaseRecording
	// Status update phases
	PhaseScanning
	PhaseLookup
	PhaseCompare
	PhaseReporting
	PhasePersisting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseFetching:
		return "Fetching"
	case PhaseDeduping:
		return "Deduping"
	case PhaseWriting:
		return "Writing"
	case PhaseRecording:
		return "Recording"
	case PhaseScanning:
		return "Scanning"
	case PhaseLookup:
		return "Lookup"
	case PhaseCompare:
		return "Compare"
	case PhaseReporting:
		return "Reporting"
	case PhasePersisting:
		return "Persisting"
	}
	return "Unknown"
}

// orderSyncTransitions: Idle → Fetching → (per order: Deduping → Writing →
// Recording) → Idle. Every phase may bail to Idle when the cycle aborts.
var orderSyncTransitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseFetching},
	PhaseFetching:  {PhaseDeduping, PhaseIdle},
	PhaseDeduping:  {PhaseWriting, PhaseDeduping, PhaseIdle},
	PhaseWriting:   {PhaseRecording, PhaseDeduping, PhaseIdle},
	PhaseRecording: {PhaseDeduping, PhaseIdle},
}

// statusUpdateTransitions: Idle → Scanning → (per snapshot: Lookup → Compare
// → Reporting → Persisting) → Idle. Reporting is never re-entered without
// going through Lookup again, so one snapshot cannot be reported twice
// within a cycle.
var statusUpdateTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseScanning},
	PhaseScanning:   {PhaseLookup, PhaseIdle},
	PhaseLookup:     {PhaseCompare, PhaseLookup, PhaseIdle},
	PhaseCompare:    {PhaseReporting, PhaseLookup, PhaseIdle},
	PhaseReporting:  {PhasePersisting, PhaseLookup, PhaseIdle},
	PhasePersisting: {PhaseLookup, PhaseIdle},
}

type phaseMachine struct {
	name    string
	current Phase
	allowed map[Phase][]Phase
}

func newPhaseMachine(name string, allowed map[Phase][]Phase) phaseMachine {
	return phaseMachine{name: name, current: PhaseIdle, allowed: allowed}
}

func (m *phaseMachine) canEnter(next Phase) bool {
	for _, p := range m.allowed[m.current] {
		if p == next {
			return true
		}
	}
	return false
}

// enter moves the machine to next. Illegal transitions DPanic.
func (m *phaseMachine) enter(next Phase) {
	if !m.canEnter(next) {
		zap.S().DPanicf("%s: illegal phase transition %s -> %s", m.name, m.current, next)
		return
	}
	m.current = next
}
