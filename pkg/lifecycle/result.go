package lifecycle

import (
	"time"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/selection"
)

// InitResult is the immutable terminal record of one full selection attempt.
type InitResult struct {
	// RunID uniquely identifies the selection run.
	RunID string `json:"run_id"`

	// Success reports whether a backend became active.
	Success bool `json:"success"`

	// Family is the winning family on success, empty on failure.
	Family backend.Family `json:"family,omitempty"`

	// Backend is the active backend handle on success. The caller may use
	// it directly; the controller retains ownership for shutdown.
	Backend backend.Backend `json:"-"`

	// Score is the winning capability score, when available.
	Score *selection.CapabilityScore `json:"score,omitempty"`

	// Tried lists every family actually attempted, in attempt order.
	Tried []backend.Family `json:"tried"`

	// Warnings collects non-fatal problems encountered along the way:
	// failed attempts, skipped families, best-effort shutdown errors.
	Warnings []string `json:"warnings,omitempty"`

	// Diagnostics maps each rejected family to the reason it was rejected.
	Diagnostics map[backend.Family]string `json:"diagnostics,omitempty"`

	// Err is the triggering error on failure, nil on success.
	Err error `json:"-"`

	// StartedAt and CompletedAt bound the whole attempt.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// ProbeDuration and InitDuration break down where the time went.
	ProbeDuration time.Duration `json:"probe_duration"`
	InitDuration  time.Duration `json:"init_duration"`
}

// Duration returns the total elapsed time of the attempt.
func (r *InitResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Stats aggregates controller activity counters. All counters are
// cumulative over the controller's lifetime.
type Stats struct {
	// SelectionAttempts counts full selection runs, including hot reloads.
	SelectionAttempts uint64 `json:"selection_attempts"`

	// InitAttempts counts individual backend initialization attempts.
	InitAttempts uint64 `json:"init_attempts"`

	// Failures counts selection runs that ended without an active backend.
	Failures uint64 `json:"failures"`

	// Fallbacks counts transitions from one family to the next in a chain.
	Fallbacks uint64 `json:"fallbacks"`

	// HotReloads counts completed hot reload attempts, success or failure.
	HotReloads uint64 `json:"hot_reloads"`

	// Shutdowns counts effective shutdowns (idempotent repeats excluded).
	Shutdowns uint64 `json:"shutdowns"`
}
