package backend

import "testing"

func TestFeatureLevelString(t *testing.T) {
	if got := FeatureRayTracing.String(); got != "ray-tracing" {
		t.Errorf("expected ray-tracing, got %s", got)
	}
	if got := FeatureLevel(999).String(); got != "unknown" {
		t.Errorf("expected unknown, got %s", got)
	}
	if got := FeatureLevel(-1).String(); got != "unknown" {
		t.Errorf("expected unknown for negative level, got %s", got)
	}
}

func TestParseFeatureLevelRoundTrip(t *testing.T) {
	for _, f := range AllFeatureLevels() {
		parsed, ok := ParseFeatureLevel(f.String())
		if !ok {
			t.Errorf("failed to parse %s", f)
			continue
		}
		if parsed != f {
			t.Errorf("parse %s: got %d, want %d", f, parsed, f)
		}
	}

	if _, ok := ParseFeatureLevel("warp-drive"); ok {
		t.Error("unknown feature name should not parse")
	}
}

func TestAllFeatureLevelsOrdered(t *testing.T) {
	levels := AllFeatureLevels()
	if len(levels) != int(featureCount) {
		t.Fatalf("expected %d levels, got %d", featureCount, len(levels))
	}
	for i, f := range levels {
		if int(f) != i {
			t.Errorf("level at position %d is %d", i, f)
		}
	}
}

func TestCapabilityReportSupports(t *testing.T) {
	report := CapabilityReport{
		Features: map[FeatureLevel]bool{
			FeatureBasicRender: true,
			FeatureCompute:     true,
			FeatureRayTracing:  false,
		},
	}

	if !report.Supports(FeatureCompute) {
		t.Error("compute should be supported")
	}
	if report.Supports(FeatureRayTracing) {
		t.Error("explicit false should not be supported")
	}
	if report.Supports(FeatureMeshShading) {
		t.Error("absent key should not be supported")
	}

	supported := report.SupportedFeatures()
	if len(supported) != 2 {
		t.Fatalf("expected 2 supported features, got %d", len(supported))
	}
	// Declaration order.
	if supported[0] != FeatureBasicRender || supported[1] != FeatureCompute {
		t.Errorf("unexpected order: %v", supported)
	}
}
