package pty

// State is the lifecycle of a Session.
type State int

const (
	Unstarted State = iota
	Starting
	Ready
	Dead
	Closed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Dead:
		return "dead"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
