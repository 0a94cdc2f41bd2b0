package resource

// State is the loading state of a Source.
type State int

const (
	// StateWaiting is the initial state and the state after a failed load.
	StateWaiting State = iota
	// StateLoading is set while dependencies or the backend read are in flight.
	StateLoading
	// StateReady is set once the backend read succeeded.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
