package live

import "sync"

// State is the lifecycle position of a client connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// InvalidTransitionError reports a connection state change that is not
// allowed, such as connecting a client twice.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid connection transition from " + e.From.String() + " to " + e.To.String()
}

// Connecting may fall back to Idle when the dial fails; Closed is terminal.
var connTransitions = map[State][]State{
	StateIdle:       {StateConnecting, StateClosed},
	StateConnecting: {StateReady, StateIdle, StateClosed},
	StateReady:      {StateClosed},
	StateClosed:     {},
}

type connState struct {
	mu      sync.Mutex
	current State
}

func (c *connState) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *connState) transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, allowed := range connTransitions[c.current] {
		if allowed == to {
			c.current = to
			return nil
		}
	}
	return &InvalidTransitionError{From: c.current, To: to}
}
