package backend

import (
	"strings"
	"testing"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry(PlatformLinux)

	if err := r.Register(FamilyVulkan, NewNullBackend); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	factory, ok := r.ForFamily(FamilyVulkan)
	if !ok {
		t.Fatal("registered family not found")
	}
	if factory == nil {
		t.Fatal("factory is nil")
	}

	if _, ok := r.ForFamily(FamilyOpenGL); ok {
		t.Error("unregistered family should not be found")
	}
}

func TestRegistryRejectsUnknownFamily(t *testing.T) {
	r := NewRegistry(PlatformLinux)
	err := r.Register(Family("glide"), NewNullBackend)
	if err == nil {
		t.Fatal("expected error for unknown family")
	}
	if !strings.Contains(err.Error(), "unknown") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistryRejectsNilFactory(t *testing.T) {
	r := NewRegistry(PlatformLinux)
	if err := r.Register(FamilyVulkan, nil); err == nil {
		t.Fatal("expected error for nil factory")
	}
}

func TestRegistryRejectsPlatformMismatch(t *testing.T) {
	r := NewRegistry(PlatformLinux)
	err := r.Register(FamilyMetal, NewNullBackend)
	if err == nil {
		t.Fatal("expected error registering metal on linux")
	}
	if !strings.Contains(err.Error(), "platform") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry(PlatformLinux)
	if err := r.Register(FamilyVulkan, NewNullBackend); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register(FamilyVulkan, NewNullBackend); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegistryFamiliesPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry(PlatformLinux)
	order := []Family{FamilyOpenGL, FamilyVulkan, FamilyGLES}
	for _, f := range order {
		if err := r.Register(f, NewNullBackend); err != nil {
			t.Fatalf("register %s failed: %v", f, err)
		}
	}

	families := r.Families()
	if len(families) != len(order) {
		t.Fatalf("expected %d families, got %d", len(order), len(families))
	}
	for i, f := range order {
		if families[i] != f {
			t.Errorf("position %d: got %s, want %s", i, families[i], f)
		}
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	if r.Platform() != CurrentPlatform() {
		t.Errorf("platform = %s, want %s", r.Platform(), CurrentPlatform())
	}
	for _, f := range []Family{FamilySoftware, FamilyNull} {
		if _, ok := r.ForFamily(f); !ok {
			t.Errorf("reference family %s not pre-registered", f)
		}
	}
}

func TestReferenceBackendLifecycle(t *testing.T) {
	b, err := NewSoftwareBackend()
	if err != nil {
		t.Fatalf("construct failed: %v", err)
	}
	if b.Family() != FamilySoftware {
		t.Errorf("family = %s", b.Family())
	}
	if b.IsValid() {
		t.Error("cold instance should not be valid")
	}

	if !b.Initialize(InitOptions{}) {
		t.Fatal("initialize failed")
	}
	if !b.IsValid() {
		t.Error("initialized instance should be valid")
	}

	report := b.Capabilities()
	if !report.Supports(FeatureBasicRender) {
		t.Error("software backend must support basic render")
	}
	if !report.Supports(FeatureCompute) {
		t.Error("software backend must support compute")
	}

	if err := b.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if b.IsValid() {
		t.Error("shut-down instance should not be valid")
	}
	// Idempotent.
	if err := b.Shutdown(); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}
	// A shut-down instance refuses re-initialization.
	if b.Initialize(InitOptions{}) {
		t.Error("initialize after shutdown should fail")
	}
}

func TestNullBackendAlwaysAvailable(t *testing.T) {
	b, err := NewNullBackend()
	if err != nil {
		t.Fatalf("construct failed: %v", err)
	}
	if !b.Initialize(InitOptions{EnableValidation: true, EnableDebugMarkers: true}) {
		t.Fatal("null backend must always initialize")
	}
	report := b.Capabilities()
	if !report.Supports(FeatureBasicRender) {
		t.Error("null backend must support basic render")
	}
	if report.Supports(FeatureCompute) {
		t.Error("null backend should not claim compute")
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		goos string
		want Platform
	}{
		{"windows", PlatformWindows},
		{"darwin", PlatformMacOS},
		{"android", PlatformAndroid},
		{"ios", PlatformIOS},
		{"js", PlatformWeb},
		{"wasip1", PlatformWeb},
		{"linux", PlatformLinux},
		{"freebsd", PlatformLinux},
	}
	for _, tt := range tests {
		if got := detectPlatform(tt.goos); got != tt.want {
			t.Errorf("detectPlatform(%q) = %s, want %s", tt.goos, got, tt.want)
		}
	}
}
