package backend

// FeatureLevel is an ordered tier of rendering capability. It is used both
// to express requirements in a selection config and to report support in a
// capability report. The declaration order is significant: missing-feature
// lists preserve it, and higher tiers are architecturally more significant.
type FeatureLevel int

const (
	// FeatureBasicRender is plain rasterized draw submission.
	FeatureBasicRender FeatureLevel = iota

	// FeatureCompute is compute shader dispatch.
	FeatureCompute

	// FeatureIndirectDraw is GPU-sourced draw arguments.
	FeatureIndirectDraw

	// FeatureIndirectCount is GPU-sourced draw counts (multi-draw indirect
	// count).
	FeatureIndirectCount

	// FeatureBindlessTextures is descriptor-indexed unbounded texture
	// access.
	FeatureBindlessTextures

	// FeatureBufferDeviceAddress exposes raw device-side buffer addresses
	// to shaders.
	FeatureBufferDeviceAddress

	// FeatureMeshShading is the mesh/task pipeline.
	FeatureMeshShading

	// FeatureRayTracing is hardware ray query/pipeline support.
	FeatureRayTracing

	// FeatureVariableRateShading is per-region shading rate control.
	FeatureVariableRateShading

	// FeatureGPUDriven is full GPU-driven rendering (culling, LOD and
	// submission decided on device).
	FeatureGPUDriven

	// FeatureDynamicRendering is render-pass-less dynamic rendering.
	FeatureDynamicRendering

	// FeatureTimelineSemaphores is timeline synchronization primitives.
	FeatureTimelineSemaphores

	featureCount // sentinel, keep last
)

var featureNames = [...]string{
	FeatureBasicRender:         "basic-render",
	FeatureCompute:             "compute",
	FeatureIndirectDraw:        "indirect-draw",
	FeatureIndirectCount:       "indirect-count",
	FeatureBindlessTextures:    "bindless-textures",
	FeatureBufferDeviceAddress: "buffer-device-address",
	FeatureMeshShading:         "mesh-shading",
	FeatureRayTracing:          "ray-tracing",
	FeatureVariableRateShading: "variable-rate-shading",
	FeatureGPUDriven:           "gpu-driven",
	FeatureDynamicRendering:    "dynamic-rendering",
	FeatureTimelineSemaphores:  "timeline-semaphores",
}

// String returns the stable identifier of the feature level.
func (f FeatureLevel) String() string {
	if f >= 0 && int(f) < len(featureNames) {
		return featureNames[f]
	}
	return "unknown"
}

// ParseFeatureLevel resolves a stable identifier back to its FeatureLevel.
func ParseFeatureLevel(name string) (FeatureLevel, bool) {
	for i, n := range featureNames {
		if n == name {
			return FeatureLevel(i), true
		}
	}
	return 0, false
}

// AllFeatureLevels returns every feature level in declaration order.
func AllFeatureLevels() []FeatureLevel {
	out := make([]FeatureLevel, 0, featureCount)
	for f := FeatureLevel(0); f < featureCount; f++ {
		out = append(out, f)
	}
	return out
}
