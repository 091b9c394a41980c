package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

// ProbeResult is the packaged outcome of probing one backend family: either
// an available instance with its capability score, or an unavailability
// reason. One result exists per attempted family per selection attempt; the
// lifecycle controller caches them until cleared by hot reload.
type ProbeResult struct {
	// Family is the probed backend family.
	Family backend.Family

	// Available reports whether the family produced a working instance.
	Available bool

	// Reason explains unavailability. Empty when available.
	Reason string

	// DeviceName and VendorName identify the device, when available.
	DeviceName string
	VendorName string

	// DriverVersion is the raw driver version string, when available.
	DriverVersion string

	// Score is the capability score. Nil when unavailable.
	Score *CapabilityScore

	// Duration is the elapsed probe time.
	Duration time.Duration

	// DedicatedMemoryMB and SharedMemoryMB are the reported memory totals.
	DedicatedMemoryMB int64
	SharedMemoryMB    int64

	// Instance is the live probed backend, when available. The lifecycle
	// controller owns it: unused instances are shut down on shutdown or
	// hot reload.
	Instance backend.Backend
}

// Eligible reports whether the result can win selection outright: available,
// scored, and meeting every required feature.
func (r ProbeResult) Eligible() bool {
	return r.Available && r.Score != nil && r.Score.MeetsRequirements
}

// Prober constructs, cheaply initializes and scores candidate backends. A
// probe never lets a failure escape its boundary; every failure mode folds
// into an unavailable result with a reason.
type Prober struct {
	registry *backend.Registry
	tracer   *telemetry.Tracer
}

// NewProber creates a prober over the given registry.
func NewProber(registry *backend.Registry) *Prober {
	return &Prober{registry: registry}
}

// WithTracer emits a span around every probe on the given tracer and returns
// the prober for chaining. A nil tracer disables probe spans.
func (p *Prober) WithTracer(tracer *telemetry.Tracer) *Prober {
	p.tracer = tracer
	return p
}

// Probe probes one family. The whole probe is bounded by the config's probe
// timeout; a probe that exceeds it is abandoned and reported unavailable.
func (p *Prober) Probe(ctx context.Context, family backend.Family, cfg Config) ProbeResult {
	cfg = cfg.WithDefaults()

	if p.tracer == nil {
		return p.probeBounded(ctx, family, cfg)
	}

	ctx, span := p.tracer.StartProbeSpan(ctx, telemetry.RunIDFromContext(ctx), string(family))
	defer span.End()

	result := p.probeBounded(ctx, family, cfg)
	if result.Available {
		telemetry.SetAttributes(span,
			telemetry.AttrDeviceName.String(result.DeviceName),
			telemetry.AttrScore.Float64(result.Score.Total),
		)
		telemetry.RecordSuccess(span)
	} else {
		telemetry.RecordError(span, errors.New(result.Reason))
	}
	return result
}

// probeBounded runs one probe bounded by the probe timeout.
func (p *Prober) probeBounded(ctx context.Context, family backend.Family, cfg Config) ProbeResult {
	start := time.Now()

	result := ProbeResult{Family: family}
	finish := func(r ProbeResult) ProbeResult {
		r.Duration = time.Since(start)
		return r
	}

	platform := p.registry.Platform()
	if !family.SupportsPlatform(platform) {
		result.Reason = fmt.Sprintf("platform %q not supported", platform)
		return finish(result)
	}

	factory, ok := p.registry.ForFamily(family)
	if !ok {
		result.Reason = "no factory registered"
		return finish(result)
	}

	done := make(chan ProbeResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r := ProbeResult{Family: family, Reason: fmt.Sprintf("panic during probe: %v", rec)}
				done <- r
			}
		}()
		done <- p.runProbe(family, platform, factory, cfg)
	}()

	timer := time.NewTimer(cfg.ProbeTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return finish(r)
	case <-timer.C:
		result.Reason = fmt.Sprintf("probe timed out after %s", cfg.ProbeTimeout)
		return finish(result)
	case <-ctx.Done():
		result.Reason = fmt.Sprintf("probe cancelled: %v", ctx.Err())
		return finish(result)
	}
}

// runProbe performs the sequential probe body: construct, cheap init,
// validity check, capability query, score.
func (p *Prober) runProbe(family backend.Family, platform backend.Platform, factory backend.Factory, cfg Config) ProbeResult {
	result := ProbeResult{Family: family}

	instance, err := factory()
	if err != nil {
		result.Reason = fmt.Sprintf("factory error: %v", err)
		return result
	}
	if instance == nil {
		result.Reason = "factory returned no instance"
		return result
	}

	if !instance.Initialize(cfg.InitOptions()) {
		_ = instance.Shutdown()
		result.Reason = "initialization failed"
		return result
	}
	if !instance.IsValid() {
		_ = instance.Shutdown()
		result.Reason = "failed post-init validity check"
		return result
	}

	report := instance.Capabilities()
	score := Score(family, platform, report, cfg)

	result.Available = true
	result.DeviceName = report.DeviceName
	result.VendorName = report.VendorName
	result.DriverVersion = report.DriverVersion
	result.DedicatedMemoryMB = report.DedicatedVideoMemoryMB
	result.SharedMemoryMB = report.SharedSystemMemoryMB
	result.Score = &score
	result.Instance = instance
	return result
}

// ProbeAll probes every family on a bounded worker pool and joins all
// workers before returning. Results come back in input order regardless of
// completion order. onResult, when non-nil, is invoked once per completed
// probe from the worker goroutines.
func (p *Prober) ProbeAll(ctx context.Context, families []backend.Family, cfg Config, onResult func(ProbeResult)) []ProbeResult {
	cfg = cfg.WithDefaults()

	results := make([]ProbeResult, len(families))

	workerCount := cfg.MaxParallelProbes
	if len(families) < workerCount {
		workerCount = len(families)
	}

	type job struct {
		idx    int
		family backend.Family
	}
	jobs := make(chan job, len(families))
	for i, f := range families {
		jobs <- job{idx: i, family: f}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				r := p.Probe(ctx, j.family, cfg)
				results[j.idx] = r
				if onResult != nil {
					onResult(r)
				}
			}
		}()
	}
	wg.Wait()

	return results
}
