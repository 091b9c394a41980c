// Package backend defines the contracts between the selection engine and the
// concrete graphics backends it arbitrates: the backend instance interface,
// family and platform metadata, capability reports, and the platform-filtered
// factory registry. The engine never calls a rendering method on a backend;
// it only initializes, validates, queries and shuts them down. Command
// encoding begins after the active handle is returned to the host.
package backend

// InitOptions carries the debug toggles passed to a backend at
// initialization time.
type InitOptions struct {
	// EnableValidation turns on the API's validation/debug layer.
	EnableValidation bool

	// EnableDebugMarkers turns on command-stream debug annotations.
	EnableDebugMarkers bool
}

// Backend is the instance contract every graphics backend must implement.
// Implementations are constructed cold by a Factory and report their own
// health; the engine treats a false Initialize or IsValid as a failed
// attempt, never as a crash.
type Backend interface {
	// Family returns the family this instance belongs to.
	Family() Family

	// Initialize brings the backend up. It reports success; it must not
	// panic. A backend may be initialized at most once.
	Initialize(opts InitOptions) bool

	// IsValid reports whether the instance is healthy after initialization.
	IsValid() bool

	// Capabilities returns the instance's self-declared capability report.
	// Only meaningful after a successful Initialize.
	Capabilities() CapabilityReport

	// Shutdown releases every resource held by the instance. Idempotent.
	Shutdown() error
}

// Factory constructs a cold, uninitialized backend instance. Factories must
// be cheap; expensive work belongs in Initialize.
type Factory func() (Backend, error)
