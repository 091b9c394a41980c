package selection

import "github.com/gfxsel/gfxsel/pkg/backend"

// ScoreWeights is the scoring policy table. The constants encode relative
// ordering, not semantically meaningful magnitudes; hosts that care about a
// different ranking supply their own table.
type ScoreWeights struct {
	// Feature maps each feature level to its feature sub-score
	// contribution.
	Feature map[backend.FeatureLevel]float64

	// ModernAPI is the performance bonus for explicit, GPU-driven-capable
	// families.
	ModernAPI float64

	// PersistentMapping is the performance bonus for persistent buffer
	// mapping support.
	PersistentMapping float64

	// ComputeDivisor scales MaxComputeWorkGroupSize into the performance
	// sub-score; ComputeCap bounds the contribution.
	ComputeDivisor float64
	ComputeCap     float64

	// IndirectDivisor scales MaxIndirectDrawCount into the performance
	// sub-score; IndirectCap bounds the contribution.
	IndirectDivisor float64
	IndirectCap     float64

	// Stability is the static per-family driver/ecosystem maturity score.
	Stability map[backend.Family]float64

	// PlatformPriority is the static per-platform, per-family affinity
	// score.
	PlatformPriority map[backend.Platform]map[backend.Family]float64
}

func (w ScoreWeights) isZero() bool {
	return w.Feature == nil && w.Stability == nil && w.PlatformPriority == nil
}

// DefaultWeights returns the built-in scoring policy table. Weights increase
// with architectural significance: ray tracing and full GPU-driven rendering
// carry the highest feature weights, basic indirect draw the lowest non-zero
// one.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Feature: map[backend.FeatureLevel]float64{
			backend.FeatureBasicRender:         10,
			backend.FeatureCompute:             20,
			backend.FeatureIndirectDraw:        5,
			backend.FeatureIndirectCount:       15,
			backend.FeatureBindlessTextures:    40,
			backend.FeatureBufferDeviceAddress: 45,
			backend.FeatureMeshShading:         60,
			backend.FeatureRayTracing:          80,
			backend.FeatureVariableRateShading: 50,
			backend.FeatureGPUDriven:           80,
			backend.FeatureDynamicRendering:    25,
			backend.FeatureTimelineSemaphores:  30,
		},
		ModernAPI:         40,
		PersistentMapping: 15,
		ComputeDivisor:    64,
		ComputeCap:        20,
		IndirectDivisor:   4096,
		IndirectCap:       15,
		Stability: map[backend.Family]float64{
			backend.FamilyD3D12:    50,
			backend.FamilyMetal:    50,
			backend.FamilyVulkan:   45,
			backend.FamilyOpenGL:   40,
			backend.FamilyGLES:     35,
			backend.FamilySoftware: 20,
			backend.FamilyNull:     10,
		},
		PlatformPriority: map[backend.Platform]map[backend.Family]float64{
			backend.PlatformWindows: {
				backend.FamilyD3D12:    50,
				backend.FamilyVulkan:   40,
				backend.FamilyOpenGL:   20,
				backend.FamilySoftware: 5,
				backend.FamilyNull:     1,
			},
			backend.PlatformLinux: {
				backend.FamilyVulkan:   50,
				backend.FamilyOpenGL:   30,
				backend.FamilyGLES:     15,
				backend.FamilySoftware: 5,
				backend.FamilyNull:     1,
			},
			backend.PlatformMacOS: {
				backend.FamilyMetal:    50,
				backend.FamilyOpenGL:   20,
				backend.FamilySoftware: 5,
				backend.FamilyNull:     1,
			},
			backend.PlatformAndroid: {
				backend.FamilyVulkan:   50,
				backend.FamilyGLES:     35,
				backend.FamilySoftware: 5,
				backend.FamilyNull:     1,
			},
			backend.PlatformIOS: {
				backend.FamilyMetal:    50,
				backend.FamilyGLES:     30,
				backend.FamilySoftware: 5,
				backend.FamilyNull:     1,
			},
			backend.PlatformWeb: {
				backend.FamilyGLES:     50,
				backend.FamilySoftware: 5,
				backend.FamilyNull:     1,
			},
		},
	}
}

// CapabilityScore is the scorer's verdict on one capability report: a total
// with its four sub-scores, the requirements verdict, and the missing
// feature lists. Scores are computed fresh per probe and never mutated.
type CapabilityScore struct {
	// Family is the scored backend family.
	Family backend.Family

	// Total is the sum of the four sub-scores plus any hook adjustment.
	Total float64

	// FeatureScore rewards supported feature levels by weight.
	FeatureScore float64

	// PerformanceScore rewards modern APIs, persistent mapping and device
	// limits.
	PerformanceScore float64

	// StabilityScore is the static per-family maturity constant.
	StabilityScore float64

	// PlatformScore is the static per-platform affinity constant.
	PlatformScore float64

	// Features is the feature-support map copied from the report.
	Features map[backend.FeatureLevel]bool

	// MeetsRequirements reports whether every required feature is present.
	MeetsRequirements bool

	// MissingRequired lists required features absent from the report, in
	// feature declaration order.
	MissingRequired []backend.FeatureLevel

	// MissingDesired lists desired features absent from the report, in
	// feature declaration order.
	MissingDesired []backend.FeatureLevel
}

// Better reports whether s ranks strictly above o: a score that meets
// requirements always beats one that does not; ties fall through to the
// total, then to family declaration order.
func (s CapabilityScore) Better(o CapabilityScore) bool {
	if s.MeetsRequirements != o.MeetsRequirements {
		return s.MeetsRequirements
	}
	if s.Total != o.Total {
		return s.Total > o.Total
	}
	return s.Family.Index() < o.Family.Index()
}

// Score computes the capability score for one report. It is pure: identical
// inputs always produce identical scores.
func Score(family backend.Family, platform backend.Platform, report backend.CapabilityReport, cfg Config) CapabilityScore {
	w := cfg.Weights
	if w.isZero() {
		w = DefaultWeights()
	}

	s := CapabilityScore{
		Family:   family,
		Features: make(map[backend.FeatureLevel]bool, len(report.Features)),
	}
	for f, ok := range report.Features {
		if ok {
			s.Features[f] = true
		}
	}

	for _, f := range backend.AllFeatureLevels() {
		if report.Supports(f) {
			s.FeatureScore += w.Feature[f]
		}
	}

	if family.Modern() {
		s.PerformanceScore += w.ModernAPI
	}
	if report.PersistentMapping {
		s.PerformanceScore += w.PersistentMapping
	}
	if w.ComputeDivisor > 0 {
		s.PerformanceScore += capped(float64(report.MaxComputeWorkGroupSize)/w.ComputeDivisor, w.ComputeCap)
	}
	if w.IndirectDivisor > 0 {
		s.PerformanceScore += capped(float64(report.MaxIndirectDrawCount)/w.IndirectDivisor, w.IndirectCap)
	}

	s.StabilityScore = w.Stability[family]
	if per := w.PlatformPriority[platform]; per != nil {
		s.PlatformScore = per[family]
	}

	s.Total = s.FeatureScore + s.PerformanceScore + s.StabilityScore + s.PlatformScore
	if cfg.ScoreHook != nil {
		s.Total += cfg.ScoreHook(report)
	}

	s.MissingRequired = missingFrom(report, cfg.RequiredFeatures)
	s.MissingDesired = missingFrom(report, cfg.DesiredFeatures)
	s.MeetsRequirements = len(s.MissingRequired) == 0

	return s
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

// missingFrom returns the wanted features absent from the report, ordered by
// feature declaration order.
func missingFrom(report backend.CapabilityReport, wanted []backend.FeatureLevel) []backend.FeatureLevel {
	want := make(map[backend.FeatureLevel]bool, len(wanted))
	for _, f := range wanted {
		want[f] = true
	}
	var out []backend.FeatureLevel
	for _, f := range backend.AllFeatureLevels() {
		if want[f] && !report.Supports(f) {
			out = append(out, f)
		}
	}
	return out
}
