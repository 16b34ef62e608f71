package amber

// State is a step of the per-request lifecycle:
// validating -> preparing -> running -> {succeeded | failed | timed_out} -> cleaned.
type State string

const (
	StateValidating State = "validating"
	StatePreparing  State = "preparing"
	StateRunning    State = "running"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
	StateCleaned    State = "cleaned"
)

// Terminal reports whether s ends the run (before cleanup).
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// StateHook observes lifecycle transitions. It is called synchronously from
// the request goroutine and must not block.
type StateHook func(runID string, state State)

func terminalState(err error) State {
	switch KindOf(err) {
	case "":
		return StateSucceeded
	case KindTimeout:
		return StateTimedOut
	default:
		return StateFailed
	}
}
