// Package selection implements the decision half of the engine: scoring
// capability reports, probing candidate families concurrently, and resolving
// a winner through a configurable strategy.
package selection

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gfxsel/gfxsel/pkg/backend"
)

// Strategy names the policy used to rank eligible probed families when no
// preferred override applies.
type Strategy string

const (
	// StrategyPlatformPriority picks the family with the highest static
	// platform-affinity score.
	StrategyPlatformPriority Strategy = "platform-priority"

	// StrategyHighestScore picks the family with the highest total score.
	StrategyHighestScore Strategy = "highest-score"

	// StrategyPerformance picks the family with the highest performance
	// sub-score.
	StrategyPerformance Strategy = "performance"

	// StrategyLowestMemory picks the family reporting the least dedicated
	// video memory.
	StrategyLowestMemory Strategy = "lowest-memory"

	// StrategyLowPower prefers embedded/integrated-style families and
	// demotes non-mobile discrete ones.
	StrategyLowPower Strategy = "low-power"

	// StrategyCompatibility prefers the most broadly compatible family,
	// falling back to the highest stability sub-score.
	StrategyCompatibility Strategy = "compatibility"

	// StrategyFirstMatch picks the first eligible family in the configured
	// fallback chain order.
	StrategyFirstMatch Strategy = "first-match"

	// StrategyCustom delegates to the config's Compare function.
	StrategyCustom Strategy = "custom"
)

var knownStrategies = map[Strategy]bool{
	StrategyPlatformPriority: true,
	StrategyHighestScore:     true,
	StrategyPerformance:      true,
	StrategyLowestMemory:     true,
	StrategyLowPower:         true,
	StrategyCompatibility:    true,
	StrategyFirstMatch:       true,
	StrategyCustom:           true,
}

// ScoreHook adjusts the raw total score of a capability report. The returned
// delta is added to the computed total. Hooks must be pure.
type ScoreHook func(report backend.CapabilityReport) float64

// Comparator orders two probe results for StrategyCustom. Negative means a
// ranks before b.
type Comparator func(a, b ProbeResult) int

// Config is the immutable value object driving one selection attempt. A new
// attempt takes a new Config; nothing in the engine mutates one after
// Validate.
type Config struct {
	// Preferred names a family that wins unconditionally when eligible.
	// Empty means no preference.
	Preferred backend.Family

	// Strategy resolves the winner when no preferred override applies.
	Strategy Strategy `validate:"required"`

	// FallbackChain is the ordered list of families to try when the
	// selected family fails to initialize.
	FallbackChain []backend.Family `validate:"min=1,dive,required"`

	// RequiredFeatures must all be present for a family to be eligible.
	RequiredFeatures []backend.FeatureLevel

	// DesiredFeatures influence scoring but do not gate eligibility.
	DesiredFeatures []backend.FeatureLevel

	// AllowDegraded widens selection to families that miss required
	// features when no family meets them all.
	AllowDegraded bool

	// EnableValidation turns on backend validation layers.
	EnableValidation bool

	// EnableDebugMarkers turns on command-stream debug annotations.
	EnableDebugMarkers bool

	// MaxInitAttempts is the per-family initialization retry budget.
	MaxInitAttempts int `validate:"gte=1"`

	// RetryBackoff is the base delay between attempts; the actual delay
	// grows proportionally with the attempt number.
	RetryBackoff time.Duration

	// ProbeTimeout bounds one family's probe. Zero means DefaultProbeTimeout.
	ProbeTimeout time.Duration

	// InitTimeout bounds one initialization attempt. Zero means
	// DefaultInitTimeout.
	InitTimeout time.Duration

	// MaxParallelProbes bounds the probe worker pool. Zero means
	// DefaultMaxParallelProbes.
	MaxParallelProbes int

	// Weights is the scoring policy table. Zero value means DefaultWeights.
	Weights ScoreWeights

	// ScoreHook optionally adjusts raw scores. May be nil.
	ScoreHook ScoreHook

	// Compare is required when Strategy is StrategyCustom.
	Compare Comparator

	// BackendOptions carries backend-specific opaque options keyed by
	// family. The engine never interprets them.
	BackendOptions map[backend.Family]map[string]any
}

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultMaxInitAttempts   = 3
	DefaultRetryBackoff      = 250 * time.Millisecond
	DefaultProbeTimeout      = 5 * time.Second
	DefaultInitTimeout       = 30 * time.Second
	DefaultMaxParallelProbes = 4
)

// DefaultConfig returns a config that tries every known family for the
// current platform, highest score first.
func DefaultConfig() Config {
	return Config{
		Strategy:          StrategyHighestScore,
		FallbackChain:     backend.Families(),
		RequiredFeatures:  []backend.FeatureLevel{backend.FeatureBasicRender},
		MaxInitAttempts:   DefaultMaxInitAttempts,
		RetryBackoff:      DefaultRetryBackoff,
		ProbeTimeout:      DefaultProbeTimeout,
		InitTimeout:       DefaultInitTimeout,
		MaxParallelProbes: DefaultMaxParallelProbes,
		Weights:           DefaultWeights(),
	}
}

var validate = validator.New()

// Validate checks the config for structural and semantic problems.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid selection config: %w", err)
	}
	if !knownStrategies[c.Strategy] {
		return fmt.Errorf("unknown selection strategy %q", c.Strategy)
	}
	if c.Strategy == StrategyCustom && c.Compare == nil {
		return fmt.Errorf("strategy %q requires a Compare function", StrategyCustom)
	}
	for _, f := range c.FallbackChain {
		if _, ok := f.Info(); !ok {
			return fmt.Errorf("unknown backend family %q in fallback chain", f)
		}
	}
	if c.Preferred != "" {
		if _, ok := c.Preferred.Info(); !ok {
			return fmt.Errorf("unknown preferred backend family %q", c.Preferred)
		}
	}
	return nil
}

// WithDefaults returns a copy with zero timing/limit fields replaced by the
// package defaults.
func (c Config) WithDefaults() Config {
	if c.MaxInitAttempts <= 0 {
		c.MaxInitAttempts = DefaultMaxInitAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.InitTimeout <= 0 {
		c.InitTimeout = DefaultInitTimeout
	}
	if c.MaxParallelProbes <= 0 {
		c.MaxParallelProbes = DefaultMaxParallelProbes
	}
	if c.Weights.isZero() {
		c.Weights = DefaultWeights()
	}
	return c
}

// Candidates returns the preferred family followed by the fallback chain,
// deduplicated, preserving order. This is the exact order probing and
// fallback walk.
func (c Config) Candidates() []backend.Family {
	seen := make(map[backend.Family]bool, len(c.FallbackChain)+1)
	var out []backend.Family
	if c.Preferred != "" && !seen[c.Preferred] {
		seen[c.Preferred] = true
		out = append(out, c.Preferred)
	}
	for _, f := range c.FallbackChain {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// InitOptions returns the backend initialization toggles for this config.
func (c Config) InitOptions() backend.InitOptions {
	return backend.InitOptions{
		EnableValidation:   c.EnableValidation,
		EnableDebugMarkers: c.EnableDebugMarkers,
	}
}
