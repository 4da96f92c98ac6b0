package runner

// State is a step of the pipeline. A run moves forward through these in order; Error can be
// entered from any state before Reported.
type State int

const (
	StateIdle State = iota
	StateProbingCapability
	StateAcquiringAdapter
	StateAcquiringDevice
	StateReady
	StateInvoking
	StateReported
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateProbingCapability:
		return "ProbingCapability"
	case StateAcquiringAdapter:
		return "AcquiringAdapter"
	case StateAcquiringDevice:
		return "AcquiringDevice"
	case StateReady:
		return "Ready"
	case StateInvoking:
		return "Invoking"
	case StateReported:
		return "Reported"
	case StateError:
		return "Error"
	}
	return "Unknown"
}

// Terminal is true for Reported and Error.
func (s State) Terminal() bool {
	return s == StateReported || s == StateError
}
