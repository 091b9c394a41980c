package lifecycle

import "testing"

func TestLegalTransitions(t *testing.T) {
	legal := []struct {
		from, to State
	}{
		{StateUninitialized, StateProbing},
		{StateUninitialized, StateFailed},
		{StateProbing, StateSelecting},
		{StateProbing, StateFailed},
		{StateSelecting, StateInitializing},
		{StateSelecting, StateFailed},
		{StateInitializing, StateInitialized},
		{StateInitializing, StateFailed},
		{StateInitializing, StateSelecting},
		{StateInitialized, StateHotReloading},
		{StateInitialized, StateShuttingDown},
		{StateHotReloading, StateInitialized},
		{StateHotReloading, StateFailed},
		{StateFailed, StateProbing},
		{StateFailed, StateShuttingDown},
		{StateShuttingDown, StateShutdown},
		{StateShutdown, StateProbing},
	}

	allowed := make(map[State]map[State]bool)
	for _, tt := range legal {
		if allowed[tt.from] == nil {
			allowed[tt.from] = make(map[State]bool)
		}
		allowed[tt.from][tt.to] = true
	}

	// Every pair not in the table must be rejected.
	for _, from := range AllStates() {
		for _, to := range AllStates() {
			want := allowed[from][to]
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: CanTransition = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestNoSelfTransitions(t *testing.T) {
	for _, s := range AllStates() {
		if s.CanTransition(s) {
			t.Errorf("state %s must not transition to itself", s)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range AllStates() {
		want := s == StateShutdown
		if got := s.Terminal(); got != want {
			t.Errorf("state %s: Terminal = %v, want %v", s, got, want)
		}
	}
}

func TestAllStatesComplete(t *testing.T) {
	states := AllStates()
	if len(states) != 9 {
		t.Fatalf("expected 9 states, got %d", len(states))
	}
	seen := make(map[State]bool)
	for _, s := range states {
		if seen[s] {
			t.Errorf("duplicate state %s", s)
		}
		seen[s] = true
	}
	if states[0] != StateUninitialized {
		t.Errorf("expected uninitialized first, got %s", states[0])
	}
}
