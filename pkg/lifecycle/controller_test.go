package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/selection"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

// fakeBackend is a controllable backend instance for controller tests.
type fakeBackend struct {
	family      backend.Family
	report      backend.CapabilityReport
	initOK      bool
	initialized atomic.Bool
	shutdowns   atomic.Int32
}

func (f *fakeBackend) Family() backend.Family { return f.family }

func (f *fakeBackend) Initialize(backend.InitOptions) bool {
	if !f.initOK {
		return false
	}
	f.initialized.Store(true)
	return true
}

func (f *fakeBackend) IsValid() bool { return f.initialized.Load() }

func (f *fakeBackend) Capabilities() backend.CapabilityReport { return f.report }

func (f *fakeBackend) Shutdown() error {
	f.shutdowns.Add(1)
	return nil
}

// backendMaker is a factory with a construction budget: the first goodCalls
// constructions initialize successfully, later ones report failure. A
// negative budget means every construction succeeds.
type backendMaker struct {
	mu        sync.Mutex
	family    backend.Family
	report    backend.CapabilityReport
	goodCalls int
	calls     int
	err       error
	made      []*fakeBackend
}

func newMaker(family backend.Family, report backend.CapabilityReport, goodCalls int) *backendMaker {
	return &backendMaker{family: family, report: report, goodCalls: goodCalls}
}

func (m *backendMaker) factory() (backend.Backend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls++
	b := &fakeBackend{
		family: m.family,
		report: m.report,
		initOK: m.goodCalls < 0 || m.calls <= m.goodCalls,
	}
	m.made = append(m.made, b)
	return b, nil
}

func (m *backendMaker) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *backendMaker) instances() []*fakeBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*fakeBackend, len(m.made))
	copy(out, m.made)
	return out
}

func basicReport(extra ...backend.FeatureLevel) backend.CapabilityReport {
	features := map[backend.FeatureLevel]bool{backend.FeatureBasicRender: true}
	for _, f := range extra {
		features[f] = true
	}
	return backend.CapabilityReport{
		DeviceName: "fake device",
		VendorName: "fake vendor",
		Features:   features,
	}
}

// newTestTelemetry builds telemetry with synchronous event delivery so tests
// observe events deterministically.
func newTestTelemetry(t *testing.T) *telemetry.Telemetry {
	t.Helper()
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "fatal"
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Events.EnableAsync = false
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("failed to build telemetry: %v", err)
	}
	return tel
}

func testConfig(chain ...backend.Family) selection.Config {
	cfg := selection.DefaultConfig()
	cfg.FallbackChain = chain
	cfg.MaxInitAttempts = 3
	cfg.RetryBackoff = time.Millisecond
	cfg.ProbeTimeout = 2 * time.Second
	cfg.InitTimeout = 2 * time.Second
	cfg.MaxParallelProbes = 2
	return cfg
}

// eventLog collects events delivered by the synchronous publisher. Probe
// events arrive from worker goroutines, so access is locked.
type eventLog struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (l *eventLog) record(e telemetry.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(et telemetry.EventType) []telemetry.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []telemetry.Event
	for _, e := range l.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func TestInitializeActivatesBestFamily(t *testing.T) {
	vulkan := newMaker(backend.FamilyVulkan, basicReport(backend.FeatureCompute, backend.FeatureRayTracing), -1)
	opengl := newMaker(backend.FamilyOpenGL, basicReport(), -1)

	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilyVulkan, vulkan.factory)
	_ = registry.Register(backend.FamilyOpenGL, opengl.factory)

	c := NewController(registry, newTestTelemetry(t))
	cfg := testConfig(backend.FamilyVulkan, backend.FamilyOpenGL)

	result, err := c.Initialize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if !result.Success {
		t.Fatal("result not successful")
	}
	if result.Family != backend.FamilyVulkan {
		t.Errorf("family = %s, want vulkan", result.Family)
	}
	if result.Score == nil {
		t.Error("successful result must carry the winning score")
	}
	if result.Backend == nil {
		t.Error("successful result must carry the backend handle")
	}

	if c.CurrentState() != StateInitialized {
		t.Errorf("state = %s", c.CurrentState())
	}
	if !c.IsInitialized() {
		t.Error("IsInitialized should report true")
	}
	if c.ActiveFamily() != backend.FamilyVulkan {
		t.Errorf("active family = %s", c.ActiveFamily())
	}
	if c.ActiveBackend() == nil {
		t.Error("active backend is nil")
	}
	if c.LastResult() != result {
		t.Error("LastResult should return the terminal result")
	}
	if got := len(c.ProbeResults()); got != 2 {
		t.Errorf("cached probe results = %d, want 2", got)
	}
	if c.Uptime() <= 0 {
		t.Error("uptime should be positive while initialized")
	}

	stats := c.Statistics()
	if stats.SelectionAttempts != 1 {
		t.Errorf("selection attempts = %d", stats.SelectionAttempts)
	}
	if stats.Fallbacks != 0 {
		t.Errorf("fallbacks = %d", stats.Fallbacks)
	}
}

func TestInitializeRetriesThenFallsBack(t *testing.T) {
	// Vulkan survives its probe but every later construction fails to
	// initialize, exhausting the three-attempt budget.
	vulkan := newMaker(backend.FamilyVulkan, basicReport(backend.FeatureCompute), 1)
	opengl := newMaker(backend.FamilyOpenGL, basicReport(), -1)

	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilyVulkan, vulkan.factory)
	_ = registry.Register(backend.FamilyOpenGL, opengl.factory)

	tel := newTestTelemetry(t)
	log := &eventLog{}
	tel.Events.Subscribe(log.record, nil)

	c := NewController(registry, tel)
	cfg := testConfig(backend.FamilyVulkan, backend.FamilyOpenGL)
	cfg.Strategy = selection.StrategyFirstMatch

	result, err := c.Initialize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if result.Family != backend.FamilyOpenGL {
		t.Errorf("family = %s, want opengl after fallback", result.Family)
	}

	wantTried := []backend.Family{backend.FamilyVulkan, backend.FamilyOpenGL}
	if len(result.Tried) != len(wantTried) {
		t.Fatalf("tried = %v, want %v", result.Tried, wantTried)
	}
	for i, f := range wantTried {
		if result.Tried[i] != f {
			t.Errorf("tried[%d] = %s, want %s", i, result.Tried[i], f)
		}
	}

	if len(result.Warnings) < 3 {
		t.Errorf("warnings = %d, want at least one per failed attempt", len(result.Warnings))
	}
	if diag, ok := result.Diagnostics[backend.FamilyVulkan]; !ok || !strings.Contains(diag, "3 attempts") {
		t.Errorf("vulkan diagnostic = %q", diag)
	}

	stats := c.Statistics()
	if stats.Fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", stats.Fallbacks)
	}
	// Three failed vulkan attempts plus one successful opengl attempt.
	if stats.InitAttempts != 4 {
		t.Errorf("init attempts = %d, want 4", stats.InitAttempts)
	}

	if got := len(log.ofType(telemetry.EventTypeAttemptFailed)); got != 3 {
		t.Errorf("attempt-failed events = %d, want 3", got)
	}
	if got := len(log.ofType(telemetry.EventTypeFallback)); got != 1 {
		t.Errorf("fallback events = %d, want 1", got)
	}
}

func TestInitializeFailsWithNoCandidates(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	c := NewController(registry, newTestTelemetry(t))

	cfg := testConfig(backend.FamilyVulkan)
	result, err := c.Initialize(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected failure with no registered factories")
	}
	if !IsSelectionError(err) {
		t.Errorf("error class = %s, want selection", ErrorClassOf(err))
	}
	if result.Success {
		t.Error("result should not be successful")
	}
	if len(result.Tried) != 0 {
		t.Errorf("tried = %v, want empty", result.Tried)
	}
	if diag := result.Diagnostics[backend.FamilyVulkan]; !strings.Contains(diag, "no factory") {
		t.Errorf("diagnostic = %q", diag)
	}
	if c.CurrentState() != StateFailed {
		t.Errorf("state = %s, want failed", c.CurrentState())
	}
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	c := NewController(registry, newTestTelemetry(t))

	_, err := c.Initialize(context.Background(), selection.Config{Strategy: selection.StrategyHighestScore})
	if err == nil {
		t.Fatal("expected validation error")
	}
	// A rejected config never starts the pipeline; the state is untouched.
	if c.CurrentState() != StateUninitialized {
		t.Errorf("state = %s, want uninitialized", c.CurrentState())
	}
}

func TestInitializeRecoversFromFailedState(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	c := NewController(registry, newTestTelemetry(t))
	cfg := testConfig(backend.FamilySoftware)

	if _, err := c.Initialize(context.Background(), cfg); err == nil {
		t.Fatal("first attempt should fail with nothing registered")
	}
	if c.CurrentState() != StateFailed {
		t.Fatalf("state = %s", c.CurrentState())
	}

	_ = registry.Register(backend.FamilySoftware, backend.NewSoftwareBackend)
	result, err := c.Initialize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("retry from failed state should succeed: %v", err)
	}
	if result.Family != backend.FamilySoftware {
		t.Errorf("family = %s", result.Family)
	}
	if c.CurrentState() != StateInitialized {
		t.Errorf("state = %s", c.CurrentState())
	}
}

func TestHotReloadSwapsFamily(t *testing.T) {
	vulkan := newMaker(backend.FamilyVulkan, basicReport(backend.FeatureCompute, backend.FeatureRayTracing), -1)
	opengl := newMaker(backend.FamilyOpenGL, basicReport(), -1)

	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilyVulkan, vulkan.factory)
	_ = registry.Register(backend.FamilyOpenGL, opengl.factory)

	c := NewController(registry, newTestTelemetry(t))
	cfg := testConfig(backend.FamilyVulkan, backend.FamilyOpenGL)

	if _, err := c.Initialize(context.Background(), cfg); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if c.ActiveFamily() != backend.FamilyVulkan {
		t.Fatalf("active family = %s", c.ActiveFamily())
	}
	oldActive := c.ActiveBackend().(*fakeBackend)

	result, err := c.HotReload(context.Background(), backend.FamilyOpenGL)
	if err != nil {
		t.Fatalf("hot reload failed: %v", err)
	}
	if result.Family != backend.FamilyOpenGL {
		t.Errorf("family = %s, want opengl", result.Family)
	}
	if c.ActiveFamily() != backend.FamilyOpenGL {
		t.Errorf("active family = %s", c.ActiveFamily())
	}
	if c.CurrentState() != StateInitialized {
		t.Errorf("state = %s", c.CurrentState())
	}
	if oldActive.shutdowns.Load() == 0 {
		t.Error("previous active backend was not shut down")
	}
	if c.Statistics().HotReloads != 1 {
		t.Errorf("hot reloads = %d", c.Statistics().HotReloads)
	}
}

func TestHotReloadRequiresInitialized(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilySoftware, backend.NewSoftwareBackend)
	c := NewController(registry, newTestTelemetry(t))

	_, err := c.HotReload(context.Background(), backend.FamilySoftware)
	if err == nil {
		t.Fatal("hot reload before initialize should fail")
	}
	if !IsStateError(err) {
		t.Errorf("error class = %s, want state", ErrorClassOf(err))
	}
	if c.CurrentState() != StateUninitialized {
		t.Errorf("state = %s, failed hot reload must leave state unchanged", c.CurrentState())
	}
}

func TestHotReloadFailureEndsInFailedState(t *testing.T) {
	vulkan := newMaker(backend.FamilyVulkan, basicReport(), -1)

	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilyVulkan, vulkan.factory)

	c := NewController(registry, newTestTelemetry(t))
	cfg := testConfig(backend.FamilyVulkan)

	if _, err := c.Initialize(context.Background(), cfg); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	oldActive := c.ActiveBackend().(*fakeBackend)

	// Every construction now fails, so the reload pipeline finds nothing.
	vulkan.fail(errors.New("device lost"))

	_, err := c.HotReload(context.Background(), backend.FamilyVulkan)
	if err == nil {
		t.Fatal("hot reload should fail with no constructible backend")
	}
	if c.CurrentState() != StateFailed {
		t.Errorf("state = %s, want failed", c.CurrentState())
	}
	// The old backend is torn down before the reload attempt; it stays
	// unreachable even on failure.
	if oldActive.shutdowns.Load() == 0 {
		t.Error("old backend not shut down")
	}
	if c.ActiveBackend() != nil {
		t.Error("active backend should be nil after failed reload")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilySoftware, backend.NewSoftwareBackend)

	tel := newTestTelemetry(t)
	log := &eventLog{}
	tel.Events.Subscribe(log.record, telemetry.FilterByType(telemetry.EventTypeShutdownComplete))

	c := NewController(registry, tel)
	if _, err := c.Initialize(context.Background(), testConfig(backend.FamilySoftware)); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	active := c.ActiveBackend()

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}

	if got := len(log.ofType(telemetry.EventTypeShutdownComplete)); got != 1 {
		t.Errorf("shutdown-complete events = %d, want exactly 1", got)
	}
	if c.CurrentState() != StateShutdown {
		t.Errorf("state = %s", c.CurrentState())
	}
	if c.ActiveBackend() != nil {
		t.Error("active backend should be nil after shutdown")
	}
	if active.IsValid() {
		t.Error("previous active backend should be shut down")
	}
	if c.Statistics().Shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", c.Statistics().Shutdowns)
	}
	if c.Uptime() != 0 {
		t.Errorf("uptime = %s, want 0 after shutdown", c.Uptime())
	}
}

func TestShutdownBeforeFirstAttemptIsNoOp(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	c := NewController(registry, newTestTelemetry(t))

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if c.CurrentState() != StateUninitialized {
		t.Errorf("state = %s, want uninitialized", c.CurrentState())
	}
	if c.Statistics().Shutdowns != 0 {
		t.Error("no-op shutdown must not count")
	}
}

func TestStateChangedEventSequence(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilySoftware, backend.NewSoftwareBackend)

	tel := newTestTelemetry(t)
	log := &eventLog{}
	tel.Events.Subscribe(log.record, telemetry.FilterByType(telemetry.EventTypeStateChanged))

	c := NewController(registry, tel)
	if _, err := c.Initialize(context.Background(), testConfig(backend.FamilySoftware)); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	changes := log.ofType(telemetry.EventTypeStateChanged)
	want := []string{"probing", "selecting", "initializing", "initialized"}
	if len(changes) != len(want) {
		t.Fatalf("state-changed events = %d, want %d", len(changes), len(want))
	}
	for i, to := range want {
		got, _ := changes[i].Data["to"].(string)
		if got != to {
			t.Errorf("transition %d: to = %q, want %q", i, got, to)
		}
	}
}

func TestInitializeAsyncDeliversResult(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilySoftware, backend.NewSoftwareBackend)
	c := NewController(registry, newTestTelemetry(t))

	select {
	case result := <-c.InitializeAsync(context.Background(), testConfig(backend.FamilySoftware), 5*time.Second):
		if result == nil || !result.Success {
			t.Fatalf("async result = %+v", result)
		}
		if result.Family != backend.FamilySoftware {
			t.Errorf("family = %s", result.Family)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("async initialize did not deliver a result")
	}
}

func TestInitializeAllWidensCandidateSet(t *testing.T) {
	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilySoftware, backend.NewSoftwareBackend)
	_ = registry.Register(backend.FamilyNull, backend.NewNullBackend)
	c := NewController(registry, newTestTelemetry(t))

	// The configured chain names only null; InitializeAll considers every
	// registered family and the richer software profile wins.
	cfg := testConfig(backend.FamilyNull)
	result, err := c.InitializeAll(context.Background(), cfg)
	if err != nil {
		t.Fatalf("initialize all failed: %v", err)
	}
	if result.Family != backend.FamilySoftware {
		t.Errorf("family = %s, want software", result.Family)
	}
	if got := len(c.ProbeResults()); got != 2 {
		t.Errorf("probe results = %d, want 2", got)
	}
}

func TestDegradedFallbackCandidate(t *testing.T) {
	// Vulkan meets requirements but cannot initialize; opengl misses a
	// required feature. Without degraded mode the chain exhausts; with it,
	// opengl is accepted as a fallback.
	required := []backend.FeatureLevel{backend.FeatureBasicRender, backend.FeatureCompute}

	run := func(allowDegraded bool) (*InitResult, error) {
		vulkan := newMaker(backend.FamilyVulkan, basicReport(backend.FeatureCompute), 1)
		opengl := newMaker(backend.FamilyOpenGL, basicReport(), -1)

		registry := backend.NewRegistry(backend.PlatformLinux)
		_ = registry.Register(backend.FamilyVulkan, vulkan.factory)
		_ = registry.Register(backend.FamilyOpenGL, opengl.factory)

		c := NewController(registry, newTestTelemetry(t))
		cfg := testConfig(backend.FamilyVulkan, backend.FamilyOpenGL)
		cfg.RequiredFeatures = required
		cfg.AllowDegraded = allowDegraded
		return c.Initialize(context.Background(), cfg)
	}

	result, err := run(false)
	if err == nil {
		t.Fatal("strict mode should exhaust the chain")
	}
	if diag := result.Diagnostics[backend.FamilyOpenGL]; !strings.Contains(diag, "required features") {
		t.Errorf("opengl diagnostic = %q", diag)
	}

	result, err = run(true)
	if err != nil {
		t.Fatalf("degraded mode should succeed: %v", err)
	}
	if result.Family != backend.FamilyOpenGL {
		t.Errorf("family = %s, want opengl", result.Family)
	}
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, a := range s.Attributes() {
		if a.Key == key {
			return a.Value.Emit()
		}
	}
	return ""
}

func TestInitializeEmitsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	tel := newTestTelemetry(t)
	tel.Tracer = telemetry.NewTracerWithProvider(provider, "lifecycle-test")

	vulkan := newMaker(backend.FamilyVulkan, basicReport(), -1)
	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilyVulkan, vulkan.factory)

	c := NewController(registry, tel)
	result, err := c.Initialize(context.Background(), testConfig(backend.FamilyVulkan))
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	defer func() { _ = c.Shutdown(context.Background()) }()

	byName := make(map[string][]sdktrace.ReadOnlySpan)
	for _, s := range recorder.Ended() {
		byName[s.Name()] = append(byName[s.Name()], s)
	}

	selSpans := byName["selection.run"]
	if len(selSpans) != 1 {
		t.Fatalf("selection.run spans = %d, want 1", len(selSpans))
	}
	if got := spanAttr(selSpans[0], attribute.Key("run.id")); got != result.RunID {
		t.Errorf("run.id = %q, want %q", got, result.RunID)
	}
	if got := spanAttr(selSpans[0], attribute.Key("backend.family")); got != "vulkan" {
		t.Errorf("family attribute = %q", got)
	}
	if selSpans[0].Status().Code != codes.Ok {
		t.Errorf("selection span status = %v", selSpans[0].Status().Code)
	}

	probeSpans := byName["probe.family"]
	if len(probeSpans) != 1 {
		t.Fatalf("probe.family spans = %d, want 1", len(probeSpans))
	}
	if probeSpans[0].SpanContext().TraceID() != selSpans[0].SpanContext().TraceID() {
		t.Error("probe span not in the selection trace")
	}
	if got := spanAttr(probeSpans[0], attribute.Key("run.id")); got != result.RunID {
		t.Errorf("probe run.id = %q, want %q", got, result.RunID)
	}

	initSpans := byName["init.attempt"]
	if len(initSpans) != 1 {
		t.Fatalf("init.attempt spans = %d, want 1", len(initSpans))
	}
	if initSpans[0].Status().Code != codes.Ok {
		t.Errorf("init span status = %v", initSpans[0].Status().Code)
	}
	if initSpans[0].SpanContext().TraceID() != selSpans[0].SpanContext().TraceID() {
		t.Error("init span not in the selection trace")
	}
}

func TestFailedInitAttemptsEmitErrorSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	tel := newTestTelemetry(t)
	tel.Tracer = telemetry.NewTracerWithProvider(provider, "lifecycle-test")

	// The probe consumes the one good construction; every init attempt fails.
	vulkan := newMaker(backend.FamilyVulkan, basicReport(), 1)
	registry := backend.NewRegistry(backend.PlatformLinux)
	_ = registry.Register(backend.FamilyVulkan, vulkan.factory)

	c := NewController(registry, tel)
	cfg := testConfig(backend.FamilyVulkan)
	if _, err := c.Initialize(context.Background(), cfg); err == nil {
		t.Fatal("initialize should fail")
	}

	var selectionSpans, failedInits int
	for _, s := range recorder.Ended() {
		switch s.Name() {
		case "selection.run":
			selectionSpans++
			if s.Status().Code != codes.Error {
				t.Errorf("selection span status = %v", s.Status().Code)
			}
		case "init.attempt":
			failedInits++
			if s.Status().Code != codes.Error {
				t.Errorf("init span status = %v", s.Status().Code)
			}
		}
	}
	if selectionSpans != 1 {
		t.Errorf("selection.run spans = %d, want 1", selectionSpans)
	}
	if failedInits != cfg.MaxInitAttempts {
		t.Errorf("init.attempt spans = %d, want %d", failedInits, cfg.MaxInitAttempts)
	}
}
