package lifecycle

// State is one lifecycle state of the selection controller. The controller
// enforces the legal-transition graph below; an attempted transition outside
// it is an internal-consistency error, never silently clamped.
type State string

const (
	// StateUninitialized is the initial state before any selection attempt.
	StateUninitialized State = "uninitialized"

	// StateProbing means candidate families are being probed.
	StateProbing State = "probing"

	// StateSelecting means probe results are being ranked.
	StateSelecting State = "selecting"

	// StateInitializing means the selected family is being initialized,
	// with retries and fallback.
	StateInitializing State = "initializing"

	// StateInitialized means a backend is active and usable.
	StateInitialized State = "initialized"

	// StateHotReloading means the active backend is being replaced.
	StateHotReloading State = "hot-reloading"

	// StateFailed means the last selection attempt ended without an
	// active backend. A fresh attempt may be started.
	StateFailed State = "failed"

	// StateShuttingDown means backend instances are being torn down.
	StateShuttingDown State = "shutting-down"

	// StateShutdown is the terminal resting state. Nothing happens until a
	// fresh selection attempt is explicitly requested.
	StateShutdown State = "shutdown"
)

// legalTransitions is the directed graph of permitted state changes.
var legalTransitions = map[State][]State{
	StateUninitialized: {StateProbing, StateFailed},
	StateProbing:       {StateSelecting, StateFailed},
	StateSelecting:     {StateInitializing, StateFailed},
	StateInitializing:  {StateInitialized, StateFailed, StateSelecting},
	StateInitialized:   {StateHotReloading, StateShuttingDown},
	StateHotReloading:  {StateInitialized, StateFailed},
	StateFailed:        {StateProbing, StateShuttingDown},
	StateShuttingDown:  {StateShutdown},
	StateShutdown:      {StateProbing},
}

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, t := range legalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the state accepts no further lifecycle work
// without an explicit fresh selection attempt.
func (s State) Terminal() bool {
	return s == StateShutdown
}

// AllStates returns every lifecycle state in declaration order.
func AllStates() []State {
	return []State{
		StateUninitialized,
		StateProbing,
		StateSelecting,
		StateInitializing,
		StateInitialized,
		StateHotReloading,
		StateFailed,
		StateShuttingDown,
		StateShutdown,
	}
}
