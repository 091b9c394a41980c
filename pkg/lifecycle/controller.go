// Package lifecycle orchestrates backend selection: probing candidate
// families, ranking them, initializing the winner with retries and fallback,
// and governing hot reload and shutdown through an enforced state machine.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/selection"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

// snapshot holds every field a lifecycle operation mutates. Operations build
// a new snapshot and swap it atomically so read accessors never observe a
// partial update, such as a state without its matching active backend.
type snapshot struct {
	state         State
	active        backend.Backend
	activeFamily  backend.Family
	config        selection.Config
	lastResult    *InitResult
	probes        map[backend.Family]selection.ProbeResult
	initializedAt time.Time
}

// Controller is the lifecycle state machine driving probe, selection,
// initialization, hot reload and shutdown. All state-mutating operations are
// serialized behind a single writer lock; read accessors work off an atomic
// snapshot and never block.
type Controller struct {
	registry *backend.Registry
	prober   *selection.Prober
	tel      *telemetry.Telemetry
	log      *telemetry.Logger

	// mu serializes Initialize, HotReload and Shutdown. Never held while
	// delivering results to callers.
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]

	selectionAttempts atomic.Uint64
	initAttempts      atomic.Uint64
	failures          atomic.Uint64
	fallbacks         atomic.Uint64
	hotReloads        atomic.Uint64
	shutdowns         atomic.Uint64
}

// NewController creates a controller over the given registry. tel may be nil,
// in which case telemetry is disabled.
func NewController(registry *backend.Registry, tel *telemetry.Telemetry) *Controller {
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}

	c := &Controller{
		registry: registry,
		prober:   selection.NewProber(registry).WithTracer(tel.Tracer),
		tel:      tel,
		log:      tel.Logger.NewComponentLogger("lifecycle"),
	}
	c.snap.Store(&snapshot{
		state:  StateUninitialized,
		probes: make(map[backend.Family]selection.ProbeResult),
	})
	return c
}

// Registry returns the factory registry the controller probes against.
func (c *Controller) Registry() *backend.Registry {
	return c.registry
}

// Initialize runs one full selection attempt: probe every candidate family,
// rank the results, initialize the winner with retries, and fall back along
// the chain on exhaustion. It blocks until the attempt terminates. The
// returned InitResult is always non-nil; the error is non-nil exactly when
// the attempt failed.
func (c *Controller) Initialize(ctx context.Context, cfg selection.Config) (*InitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializeLocked(ctx, cfg)
}

// InitializeAsync starts a selection attempt in the background, bounded by
// the given overall timeout, and returns a channel that delivers the terminal
// InitResult exactly once.
func (c *Controller) InitializeAsync(ctx context.Context, cfg selection.Config, timeout time.Duration) <-chan *InitResult {
	out := make(chan *InitResult, 1)
	go func() {
		runCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		result, _ := c.Initialize(runCtx, cfg)
		out <- result
	}()
	return out
}

// InitializeAll widens the candidate set to every family registered for the
// current platform before choosing, instead of only the configured fallback
// chain. The preferred family override still applies.
func (c *Controller) InitializeAll(ctx context.Context, cfg selection.Config) (*InitResult, error) {
	families := c.registry.Families()
	if len(families) > 0 {
		cfg.FallbackChain = families
	}
	return c.Initialize(ctx, cfg)
}

func (c *Controller) initializeLocked(ctx context.Context, cfg selection.Config) (res *InitResult, err error) {
	if verr := cfg.Validate(); verr != nil {
		return c.failBeforeStart(cfg, NewSelectionFailedError("invalid selection config", verr).WithCode(ErrCodeValidation))
	}
	cfg = cfg.WithDefaults()

	runID := uuid.New().String()
	ctx, span := c.tel.Tracer.StartSelectionSpan(telemetry.ContextWithRunID(ctx, runID), runID, string(cfg.Strategy))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			if res != nil {
				telemetry.SetAttributes(span, telemetry.AttrFamily.String(string(res.Family)))
			}
			telemetry.RecordSuccess(span)
		}
		span.End()
	}()

	log := c.log.WithRunID(runID)
	result := &InitResult{
		RunID:       runID,
		StartedAt:   time.Now(),
		Diagnostics: make(map[backend.Family]string),
	}
	c.selectionAttempts.Add(1)

	if err := c.transition(StateProbing, runID); err != nil {
		return c.failBeforeStart(cfg, err)
	}
	c.publish(telemetry.EventTypeSelectionStarting, runID, "", telemetry.EventLevelInfo,
		fmt.Sprintf("selection starting with strategy %q", cfg.Strategy), map[string]interface{}{
			"strategy":       string(cfg.Strategy),
			"fallback_chain": familyStrings(cfg.FallbackChain),
		})
	log.Infof("selection starting, strategy %q, %d candidates", cfg.Strategy, len(cfg.Candidates()))

	// Probe phase.
	probeStart := time.Now()
	probes := c.probeCandidates(ctx, cfg, runID)
	result.ProbeDuration = time.Since(probeStart)
	for family, probe := range probes {
		if !probe.Available {
			result.Diagnostics[family] = probe.Reason
		}
	}
	c.publish(telemetry.EventTypeAllProbesComplete, runID, "", telemetry.EventLevelInfo,
		fmt.Sprintf("probed %d families in %s", len(probes), result.ProbeDuration), nil)

	// Selection phase.
	if err := c.transition(StateSelecting, runID); err != nil {
		return c.finishFailure(cfg, result, err)
	}
	winner, ok := selection.Select(probeSlice(cfg, probes), cfg)
	if !ok {
		err := NewSelectionFailedError("no eligible backend family", nil).WithCode(ErrCodeNoCandidates)
		log.WithError(err).Error("selection failed")
		return c.finishFailure(cfg, result, err)
	}
	c.publish(telemetry.EventTypeSelected, runID, string(winner), telemetry.EventLevelInfo,
		fmt.Sprintf("selected family %q", winner), nil)
	log.WithFamily(string(winner)).Info("family selected")

	// Initialization phase, with retry and fallback.
	if err := c.transition(StateInitializing, runID); err != nil {
		return c.finishFailure(cfg, result, err)
	}
	initStart := time.Now()
	instance, family, err := c.initializeWithFallback(ctx, cfg, runID, winner, probes, result)
	result.InitDuration = time.Since(initStart)

	if err != nil {
		c.failures.Add(1)
		return c.finishFailure(cfg, result, err)
	}

	result.Success = true
	result.Family = family
	result.Backend = instance
	if probe, ok := probes[family]; ok {
		result.Score = probe.Score
	}
	result.CompletedAt = time.Now()

	if terr := c.transition(StateInitialized, runID); terr != nil {
		// The transition table admits Initializing -> Initialized, so
		// this indicates controller corruption.
		_ = instance.Shutdown()
		return c.finishFailure(cfg, result, terr)
	}

	c.mutate(func(s *snapshot) {
		s.active = instance
		s.activeFamily = family
		s.config = cfg
		s.lastResult = result
		s.probes = probes
		s.initializedAt = time.Now()
	})

	c.tel.Metrics.RecordSelection(string(cfg.Strategy), "succeeded", result.Duration())
	c.tel.Metrics.SetActiveFamily(string(family), familyStrings(backend.Families()))
	if result.Score != nil {
		c.tel.Metrics.SetCapabilityScore(string(family), result.Score.Total)
	}
	c.publish(telemetry.EventTypeInitialized, runID, string(family), telemetry.EventLevelInfo,
		fmt.Sprintf("backend %q initialized", family), nil)
	c.publish(telemetry.EventTypeSelectionComplete, runID, string(family), telemetry.EventLevelInfo,
		fmt.Sprintf("selection complete in %s", result.Duration()), map[string]interface{}{
			"tried": familyStrings(result.Tried),
		})
	log.WithFamily(string(family)).Infof("selection complete in %s", result.Duration())

	return result, nil
}

// probeCandidates probes every candidate family on the prober's worker pool
// and returns the results keyed by family.
func (c *Controller) probeCandidates(ctx context.Context, cfg selection.Config, runID string) map[backend.Family]selection.ProbeResult {
	candidates := cfg.Candidates()

	for _, f := range candidates {
		c.publish(telemetry.EventTypeProbeStarted, runID, string(f), telemetry.EventLevelInfo,
			fmt.Sprintf("probing family %q", f), nil)
	}

	results := c.prober.ProbeAll(ctx, candidates, cfg, func(r selection.ProbeResult) {
		outcome := "unavailable"
		level := telemetry.EventLevelWarning
		msg := fmt.Sprintf("family %q unavailable: %s", r.Family, r.Reason)
		if r.Available {
			outcome = "available"
			level = telemetry.EventLevelInfo
			msg = fmt.Sprintf("family %q available, score %.1f", r.Family, r.Score.Total)
		}
		c.tel.Metrics.RecordProbe(string(r.Family), outcome, r.Duration)
		if r.Score != nil {
			c.tel.Metrics.SetCapabilityScore(string(r.Family), r.Score.Total)
		}
		c.publish(telemetry.EventTypeProbeCompleted, runID, string(r.Family), level, msg, nil)
	})

	byFamily := make(map[backend.Family]selection.ProbeResult, len(results))
	for _, r := range results {
		byFamily[r.Family] = r
	}
	return byFamily
}

// initializeWithFallback tries the winner first, then walks the fallback
// chain in order. Each candidate gets up to the configured attempt budget
// with an increasing backoff between attempts. The loop is iterative and
// deterministic: identical probes and config always try the same families in
// the same order.
func (c *Controller) initializeWithFallback(
	ctx context.Context,
	cfg selection.Config,
	runID string,
	winner backend.Family,
	probes map[backend.Family]selection.ProbeResult,
	result *InitResult,
) (backend.Backend, backend.Family, error) {
	queue := make([]backend.Family, 0, len(cfg.FallbackChain)+1)
	queue = append(queue, winner)
	for _, f := range cfg.FallbackChain {
		if f != winner {
			queue = append(queue, f)
		}
	}

	attempted := make(map[backend.Family]bool)
	var lastErr error

	for i, family := range queue {
		if attempted[family] {
			continue
		}

		probe, probed := probes[family]
		if !probed || !probe.Available {
			reason := "not probed"
			if probed {
				reason = probe.Reason
			}
			result.Diagnostics[family] = reason
			continue
		}
		// Fallback candidates must meet requirements unless degraded
		// operation is allowed. The winner already passed selection.
		if i > 0 && !probe.Eligible() && !cfg.AllowDegraded {
			result.Diagnostics[family] = "does not meet required features"
			continue
		}

		if i > 0 {
			c.fallbacks.Add(1)
			c.tel.Metrics.RecordFallback(string(queue[i-1]), string(family))
			c.publish(telemetry.EventTypeFallback, runID, string(family), telemetry.EventLevelWarning,
				fmt.Sprintf("falling back to family %q", family), nil)
		}

		attempted[family] = true
		result.Tried = append(result.Tried, family)

		instance, err := c.initializeFamily(ctx, cfg, runID, family, result)
		if err == nil {
			return instance, family, nil
		}
		lastErr = err
		result.Diagnostics[family] = fmt.Sprintf("initialization failed after %d attempts", cfg.MaxInitAttempts)
	}

	if lastErr == nil {
		lastErr = NewSelectionFailedError("no backend family could be attempted", nil).WithCode(ErrCodeNoCandidates)
	}
	return nil, "", NewSelectionFailedError("fallback chain exhausted", lastErr).WithCode(ErrCodeChainExhausted)
}

// initializeFamily runs the retry loop for one family: up to the configured
// attempt budget, each attempt on a fresh instance, with backoff
// proportional to the attempt number between failures.
func (c *Controller) initializeFamily(
	ctx context.Context,
	cfg selection.Config,
	runID string,
	family backend.Family,
	result *InitResult,
) (backend.Backend, error) {
	log := c.log.WithRunID(runID).WithFamily(string(family))

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxInitAttempts; attempt++ {
		c.initAttempts.Add(1)
		c.publish(telemetry.EventTypeInitAttempt, runID, string(family), telemetry.EventLevelInfo,
			fmt.Sprintf("initializing family %q, attempt %d/%d", family, attempt, cfg.MaxInitAttempts), nil)

		attemptCtx, span := c.tel.Tracer.StartInitSpan(ctx, runID, string(family), attempt)
		instance, err := c.initOnce(attemptCtx, cfg, family)
		if err == nil {
			telemetry.RecordSuccess(span)
			span.End()
			c.tel.Metrics.RecordInitAttempt(string(family), "succeeded")
			return instance, nil
		}
		telemetry.RecordError(span, err)
		span.End()

		lastErr = err
		c.tel.Metrics.RecordInitAttempt(string(family), "failed")
		c.tel.Metrics.RecordError(string(ErrorClassOf(err)))
		warning := fmt.Sprintf("family %q attempt %d/%d failed: %v", family, attempt, cfg.MaxInitAttempts, err)
		result.Warnings = append(result.Warnings, warning)
		c.publish(telemetry.EventTypeAttemptFailed, runID, string(family), telemetry.EventLevelWarning, warning, nil)
		log.WithError(err).Warnf("initialization attempt %d/%d failed", attempt, cfg.MaxInitAttempts)

		if attempt < cfg.MaxInitAttempts {
			backoff := time.Duration(attempt) * cfg.RetryBackoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, NewInitError("initialization cancelled", ctx.Err()).
					WithFamily(family).WithCode(ErrCodeTimeout)
			}
		}
	}

	return nil, NewInitError(
		fmt.Sprintf("initialization failed after %d attempts", cfg.MaxInitAttempts), lastErr).
		WithFamily(family).WithCode(ErrCodeAttemptsExhausted)
}

// initOnce performs one full initialization attempt on a fresh instance,
// bounded by the config's init timeout. A false initialize result or a
// failed post-init validity check is a failed attempt, not a crash.
func (c *Controller) initOnce(ctx context.Context, cfg selection.Config, family backend.Family) (backend.Backend, error) {
	factory, ok := c.registry.ForFamily(family)
	if !ok {
		return nil, NewUnsupportedError("no factory registered", nil).
			WithFamily(family).WithCode(ErrCodeNoFactory)
	}

	type outcome struct {
		instance backend.Backend
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: NewInitError(fmt.Sprintf("panic during initialization: %v", rec), nil)}
			}
		}()

		instance, err := factory()
		if err != nil {
			done <- outcome{err: NewInitError("factory error", err)}
			return
		}
		if instance == nil {
			done <- outcome{err: NewInitError("factory returned no instance", nil)}
			return
		}
		if !instance.Initialize(cfg.InitOptions()) {
			_ = instance.Shutdown()
			done <- outcome{err: NewInitError("backend reported initialization failure", nil)}
			return
		}
		if !instance.IsValid() {
			_ = instance.Shutdown()
			done <- outcome{err: NewInitError("backend failed post-init validity check", nil)}
			return
		}
		done <- outcome{instance: instance}
	}()

	timer := time.NewTimer(cfg.InitTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			var serr *SelectionError
			if errors.As(o.err, &serr) && serr.Family == "" {
				serr.Family = family
			}
			return nil, o.err
		}
		return o.instance, nil
	case <-timer.C:
		return nil, NewInitError(
			fmt.Sprintf("initialization timed out after %s", cfg.InitTimeout), nil).
			WithFamily(family).WithCode(ErrCodeTimeout)
	case <-ctx.Done():
		return nil, NewInitError("initialization cancelled", ctx.Err()).
			WithFamily(family).WithCode(ErrCodeTimeout)
	}
}

// HotReload replaces the active backend with the target family while the
// process keeps running. Only legal from Initialized. The previous backend
// is shut down and unreachable after the attempt, success or failure.
func (c *Controller) HotReload(ctx context.Context, target backend.Family) (res *InitResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snap.Load()
	if snap.state != StateInitialized {
		err := NewStateError(
			fmt.Sprintf("hot reload requires state %q, currently %q", StateInitialized, snap.state), nil).
			WithCode(ErrCodeInvalidTransition).WithOperation("hot-reload")
		return nil, err
	}

	runID := uuid.New().String()
	ctx, span := c.tel.Tracer.StartSelectionSpan(telemetry.ContextWithRunID(ctx, runID), runID, string(snap.config.Strategy))
	telemetry.SetAttributes(span, telemetry.AttrFamily.String(string(target)))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}()

	log := c.log.WithRunID(runID).WithFamily(string(target))
	c.hotReloads.Add(1)
	c.selectionAttempts.Add(1)

	if err := c.transition(StateHotReloading, runID); err != nil {
		return nil, err
	}
	c.publish(telemetry.EventTypeHotReloadStarted, runID, string(target), telemetry.EventLevelInfo,
		fmt.Sprintf("hot reload to family %q", target), nil)
	log.Info("hot reload starting")

	result := &InitResult{
		RunID:       runID,
		StartedAt:   time.Now(),
		Diagnostics: make(map[backend.Family]string),
	}

	// Tear down the old backend and every cached probe instance before
	// re-running the pipeline. Failures here are warnings, not fatal.
	result.Warnings = append(result.Warnings, c.teardownLocked(snap)...)
	c.mutate(func(s *snapshot) {
		s.active = nil
		s.activeFamily = ""
		s.probes = make(map[backend.Family]selection.ProbeResult)
	})

	// Derive the reload config: prefer the target, keep the prior debug
	// and validation toggles, and make sure the target is in the chain.
	cfg := snap.config
	cfg.Preferred = target
	if !containsFamily(cfg.FallbackChain, target) {
		cfg.FallbackChain = append([]backend.Family{target}, cfg.FallbackChain...)
	}

	probeStart := time.Now()
	probes := c.probeCandidates(ctx, cfg, runID)
	result.ProbeDuration = time.Since(probeStart)
	for family, probe := range probes {
		if !probe.Available {
			result.Diagnostics[family] = probe.Reason
		}
	}

	winner, ok := selection.Select(probeSlice(cfg, probes), cfg)
	if !ok {
		err := NewSelectionFailedError("no eligible backend family after hot reload", nil).WithCode(ErrCodeNoCandidates)
		return c.finishHotReloadFailure(cfg, result, runID, err)
	}

	initStart := time.Now()
	instance, family, err := c.initializeWithFallback(ctx, cfg, runID, winner, probes, result)
	result.InitDuration = time.Since(initStart)
	if err != nil {
		c.failures.Add(1)
		return c.finishHotReloadFailure(cfg, result, runID, err)
	}

	result.Success = true
	result.Family = family
	result.Backend = instance
	if probe, ok := probes[family]; ok {
		result.Score = probe.Score
	}
	result.CompletedAt = time.Now()

	if terr := c.transition(StateInitialized, runID); terr != nil {
		_ = instance.Shutdown()
		return c.finishHotReloadFailure(cfg, result, runID, terr)
	}

	c.mutate(func(s *snapshot) {
		s.active = instance
		s.activeFamily = family
		s.config = cfg
		s.lastResult = result
		s.probes = probes
		s.initializedAt = time.Now()
	})

	c.tel.Metrics.RecordHotReload("succeeded")
	c.tel.Metrics.SetActiveFamily(string(family), familyStrings(backend.Families()))
	c.publish(telemetry.EventTypeHotReloadComplete, runID, string(family), telemetry.EventLevelInfo,
		fmt.Sprintf("hot reload complete, family %q active", family), nil)
	log.WithFamily(string(family)).Info("hot reload complete")

	return result, nil
}

// Shutdown tears down the active backend and every cached probe instance,
// best-effort, then rests in Shutdown. Idempotent: calling it from Shutdown
// or ShuttingDown is a no-op, as is calling it before any selection attempt.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snap.Load()
	switch snap.state {
	case StateShutdown, StateShuttingDown:
		return nil
	case StateUninitialized:
		// Nothing was ever started; nothing to tear down.
		return nil
	}

	runID := uuid.New().String()
	if err := c.transition(StateShuttingDown, runID); err != nil {
		return err
	}
	c.publish(telemetry.EventTypeShutdownStarted, runID, string(snap.activeFamily), telemetry.EventLevelInfo,
		"shutdown starting", nil)

	warnings := c.teardownLocked(snap)
	for _, w := range warnings {
		c.log.Warn(w)
	}

	c.mutate(func(s *snapshot) {
		s.active = nil
		s.activeFamily = ""
		s.probes = make(map[backend.Family]selection.ProbeResult)
		s.initializedAt = time.Time{}
	})

	if err := c.transition(StateShutdown, runID); err != nil {
		return err
	}

	c.shutdowns.Add(1)
	c.tel.Metrics.RecordShutdown()
	c.tel.Metrics.SetActiveFamily("", familyStrings(backend.Families()))
	c.publish(telemetry.EventTypeShutdownComplete, runID, "", telemetry.EventLevelInfo,
		"shutdown complete", map[string]interface{}{"warnings": warnings})
	c.log.Info("shutdown complete")

	return nil
}

// teardownLocked shuts down the active backend and every cached probe
// instance, collecting failures as warnings. Caller holds the writer lock.
func (c *Controller) teardownLocked(snap *snapshot) []string {
	var warnings []string

	if snap.active != nil {
		if err := snap.active.Shutdown(); err != nil {
			warnings = append(warnings, fmt.Sprintf("active backend %q shutdown: %v", snap.activeFamily, err))
		}
	}
	for family, probe := range snap.probes {
		if probe.Instance == nil || probe.Instance == snap.active {
			continue
		}
		if err := probe.Instance.Shutdown(); err != nil {
			warnings = append(warnings, fmt.Sprintf("probed backend %q shutdown: %v", family, err))
		}
	}
	return warnings
}

// transition moves the controller to the next state, failing loudly on any
// move outside the legal-transition table and leaving the state unchanged.
func (c *Controller) transition(next State, runID string) error {
	snap := c.snap.Load()
	if !snap.state.CanTransition(next) {
		err := NewStateError(
			fmt.Sprintf("illegal transition %q -> %q", snap.state, next), nil).
			WithCode(ErrCodeInvalidTransition)
		c.tel.Metrics.RecordError(string(ErrorClassState))
		c.log.WithError(err).Error("state machine violation")
		return err
	}

	prev := snap.state
	c.mutate(func(s *snapshot) { s.state = next })

	c.publish(telemetry.EventTypeStateChanged, runID, "", telemetry.EventLevelInfo,
		fmt.Sprintf("state %q -> %q", prev, next), map[string]interface{}{
			"from": string(prev),
			"to":   string(next),
		})
	return nil
}

// mutate applies fn to a copy of the current snapshot and swaps it in.
// Caller holds the writer lock.
func (c *Controller) mutate(fn func(*snapshot)) {
	next := *c.snap.Load()
	fn(&next)
	c.snap.Store(&next)
}

// failBeforeStart records a failure that happened before the pipeline could
// start, without touching the state machine.
func (c *Controller) failBeforeStart(cfg selection.Config, err error) (*InitResult, error) {
	now := time.Now()
	result := &InitResult{
		RunID:       uuid.New().String(),
		StartedAt:   now,
		CompletedAt: now,
		Err:         err,
		Diagnostics: make(map[backend.Family]string),
	}
	c.failures.Add(1)
	c.tel.Metrics.RecordSelection(string(cfg.Strategy), "rejected", 0)
	return result, err
}

// finishFailure transitions to Failed and finalizes the terminal result.
func (c *Controller) finishFailure(cfg selection.Config, result *InitResult, err error) (*InitResult, error) {
	result.Err = err
	result.CompletedAt = time.Now()

	runID := result.RunID
	if terr := c.transition(StateFailed, runID); terr != nil {
		// Keep the original failure; the transition error is logged by
		// transition itself.
		_ = terr
	}
	c.mutate(func(s *snapshot) { s.lastResult = result })

	c.tel.Metrics.RecordSelection(string(cfg.Strategy), "failed", result.Duration())
	c.publish(telemetry.EventTypeSelectionComplete, runID, "", telemetry.EventLevelError,
		fmt.Sprintf("selection failed: %v", err), map[string]interface{}{
			"tried": familyStrings(result.Tried),
		})
	c.log.WithRunID(runID).WithError(err).Error("selection failed")

	return result, err
}

// finishHotReloadFailure transitions to Failed and finalizes a hot reload.
func (c *Controller) finishHotReloadFailure(cfg selection.Config, result *InitResult, runID string, err error) (*InitResult, error) {
	result.Err = err
	result.CompletedAt = time.Now()

	if terr := c.transition(StateFailed, runID); terr != nil {
		_ = terr
	}
	c.mutate(func(s *snapshot) { s.lastResult = result })

	c.tel.Metrics.RecordHotReload("failed")
	c.tel.Metrics.RecordSelection(string(cfg.Strategy), "failed", result.Duration())
	c.publish(telemetry.EventTypeHotReloadComplete, runID, "", telemetry.EventLevelError,
		fmt.Sprintf("hot reload failed: %v", err), nil)
	c.log.WithRunID(runID).WithError(err).Error("hot reload failed")

	return result, err
}

// publish emits one lifecycle event, fire-and-forget.
func (c *Controller) publish(eventType telemetry.EventType, runID, family, level, message string, data map[string]interface{}) {
	_ = c.tel.Events.Publish(telemetry.Event{
		Type:    eventType,
		RunID:   runID,
		Family:  family,
		Level:   level,
		Message: message,
		Data:    data,
	})
}

// Read accessors. All work off the atomic snapshot and never block on the
// writer lock.

// CurrentState returns the current lifecycle state.
func (c *Controller) CurrentState() State {
	return c.snap.Load().state
}

// IsInitialized reports whether a backend is active.
func (c *Controller) IsInitialized() bool {
	return c.snap.Load().state == StateInitialized
}

// ActiveFamily returns the active backend family, or empty when none.
func (c *Controller) ActiveFamily() backend.Family {
	return c.snap.Load().activeFamily
}

// ActiveBackend returns the active backend handle, or nil when none.
func (c *Controller) ActiveBackend() backend.Backend {
	return c.snap.Load().active
}

// LastResult returns the terminal record of the most recent selection
// attempt, or nil before the first attempt completes.
func (c *Controller) LastResult() *InitResult {
	return c.snap.Load().lastResult
}

// ProbeResults returns a copy of the cached probe results from the most
// recent selection attempt.
func (c *Controller) ProbeResults() map[backend.Family]selection.ProbeResult {
	snap := c.snap.Load()
	out := make(map[backend.Family]selection.ProbeResult, len(snap.probes))
	for k, v := range snap.probes {
		out[k] = v
	}
	return out
}

// Uptime returns how long the current backend has been active, or zero when
// no backend is active.
func (c *Controller) Uptime() time.Duration {
	snap := c.snap.Load()
	if snap.state != StateInitialized || snap.initializedAt.IsZero() {
		return 0
	}
	return time.Since(snap.initializedAt)
}

// Statistics returns a copy of the cumulative activity counters.
func (c *Controller) Statistics() Stats {
	return Stats{
		SelectionAttempts: c.selectionAttempts.Load(),
		InitAttempts:      c.initAttempts.Load(),
		Failures:          c.failures.Load(),
		Fallbacks:         c.fallbacks.Load(),
		HotReloads:        c.hotReloads.Load(),
		Shutdowns:         c.shutdowns.Load(),
	}
}

// probeSlice flattens the probe map into candidate order for the selector.
func probeSlice(cfg selection.Config, probes map[backend.Family]selection.ProbeResult) []selection.ProbeResult {
	out := make([]selection.ProbeResult, 0, len(probes))
	for _, f := range cfg.Candidates() {
		if r, ok := probes[f]; ok {
			out = append(out, r)
		}
	}
	return out
}

func containsFamily(families []backend.Family, target backend.Family) bool {
	for _, f := range families {
		if f == target {
			return true
		}
	}
	return false
}

func familyStrings(families []backend.Family) []string {
	out := make([]string, len(families))
	for i, f := range families {
		out[i] = string(f)
	}
	return out
}

// Process-wide default controller. A convenience for hosts with a single
// graphics context per process; explicit construction and ownership is the
// structural expectation.
var defaultController atomic.Pointer[Controller]

// Default returns the process-wide controller, creating one over the default
// registry on first use.
func Default() *Controller {
	if c := defaultController.Load(); c != nil {
		return c
	}
	c := NewController(backend.NewDefaultRegistry(), nil)
	if defaultController.CompareAndSwap(nil, c) {
		return c
	}
	return defaultController.Load()
}

// SetDefault replaces the process-wide controller.
func SetDefault(c *Controller) {
	defaultController.Store(c)
}
