package recognition

// State is the orchestrator's position in the per-file lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingPermission
	StateRequesting
	StatePartialResult
	StateFinalResult
	StateComplete
	StateCancelled
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateAwaitingPermission: "awaiting-permission",
	StateRequesting:         "requesting",
	StatePartialResult:      "partial-result",
	StateFinalResult:        "final-result",
	StateComplete:           "complete",
	StateCancelled:          "cancelled",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state ends a transcription.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled || s == StateFailed
}
