package warpedmap

// State is one point in the WarpedMap lifecycle (spec §4.8).
type State int

const (
	StateCreated State = iota
	StateImageInfoLoading
	StateReady
	StateChanging
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateImageInfoLoading:
		return "imageInfoLoading"
	case StateReady:
		return "ready"
	case StateChanging:
		return "changing"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}
