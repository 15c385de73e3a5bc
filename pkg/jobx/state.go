package jobx

// State is the lifecycle position of a job. States are totally ordered;
// claim, cancel and singleton rules are all expressed as comparisons.
type State string

const (
	StateCreated   State = "created"
	StateRetry     State = "retry"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateExpired   State = "expired"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// States lists every state in lifecycle order.
var States = []State{
	StateCreated,
	StateRetry,
	StateActive,
	StateCompleted,
	StateExpired,
	StateCancelled,
	StateFailed,
}

// Rank returns the position of s in the lifecycle order, or -1 for an
// unknown state.
func (s State) Rank() int {
	for i, st := range States {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseState returns the state named by v.
func ParseState(v string) (State, bool) {
	s := State(v)
	return s, s.Rank() >= 0
}

// StateAt is the inverse of Rank.
func StateAt(rank int) (State, bool) {
	if rank < 0 || rank >= len(States) {
		return "", false
	}
	return States[rank], true
}

func (s State) String() string { return string(s) }

// Valid reports whether s is a known state.
func (s State) Valid() bool { return s.Rank() >= 0 }

// Less reports whether s comes strictly before o.
func (s State) Less(o State) bool { return s.Rank() < o.Rank() }

// Terminal reports whether s is a final state. Only the archiver touches
// terminal jobs.
func (s State) Terminal() bool { return !s.Less(StateCompleted) }

// Claimable reports whether a job in s may be claimed once its start time
// has elapsed.
func (s State) Claimable() bool { return s.Less(StateActive) }

// Cancellable reports whether cancel and fail apply to s.
func (s State) Cancellable() bool { return s.Less(StateCompleted) }

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateCreated, StateRetry:
		switch next {
		case StateActive, StateCancelled, StateRetry, StateFailed:
			return true
		}
	case StateActive:
		switch next {
		case StateCompleted, StateRetry, StateFailed, StateExpired, StateCancelled:
			return true
		}
	}
	return false
}
