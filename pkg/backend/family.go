package backend

// Family identifies one graphics API/implementation path. Families are
// compile-time constants and are used as map keys throughout the selection
// engine; a Family value is never created at runtime.
type Family string

const (
	// FamilyVulkan is the modern explicit cross-platform API.
	FamilyVulkan Family = "vulkan"

	// FamilyD3D12 is the modern explicit Windows API.
	FamilyD3D12 Family = "d3d12"

	// FamilyMetal is the modern explicit Apple API.
	FamilyMetal Family = "metal"

	// FamilyOpenGL is the legacy high-level desktop API.
	FamilyOpenGL Family = "opengl"

	// FamilyGLES is the embedded/mobile OpenGL variant.
	FamilyGLES Family = "gles"

	// FamilySoftware is the CPU rasterizer fallback.
	FamilySoftware Family = "software"

	// FamilyNull is a no-op backend that accepts every command and renders
	// nothing. Always available; used for headless runs and tests.
	FamilyNull Family = "null"
)

// FamilyInfo carries the static metadata attached to a family.
type FamilyInfo struct {
	// DisplayName is the human-readable API name.
	DisplayName string

	// Modern reports whether the family is an explicit, GPU-driven-capable
	// API (as opposed to a legacy driver-managed one).
	Modern bool

	// LowPower marks families suited to embedded/integrated hardware.
	LowPower bool

	// Platforms is the set of platforms the family can run on.
	Platforms []Platform
}

// familyOrder fixes the declaration order used for deterministic tie-breaks.
var familyOrder = []Family{
	FamilyVulkan,
	FamilyD3D12,
	FamilyMetal,
	FamilyOpenGL,
	FamilyGLES,
	FamilySoftware,
	FamilyNull,
}

var familyInfos = map[Family]FamilyInfo{
	FamilyVulkan: {
		DisplayName: "Vulkan",
		Modern:      true,
		Platforms:   []Platform{PlatformWindows, PlatformLinux, PlatformAndroid},
	},
	FamilyD3D12: {
		DisplayName: "Direct3D 12",
		Modern:      true,
		Platforms:   []Platform{PlatformWindows},
	},
	FamilyMetal: {
		DisplayName: "Metal",
		Modern:      true,
		Platforms:   []Platform{PlatformMacOS, PlatformIOS},
	},
	FamilyOpenGL: {
		DisplayName: "OpenGL",
		Platforms:   []Platform{PlatformWindows, PlatformLinux, PlatformMacOS},
	},
	FamilyGLES: {
		DisplayName: "OpenGL ES",
		LowPower:    true,
		Platforms:   []Platform{PlatformAndroid, PlatformIOS, PlatformLinux, PlatformWeb},
	},
	FamilySoftware: {
		DisplayName: "Software Rasterizer",
		LowPower:    true,
		Platforms:   allPlatforms,
	},
	FamilyNull: {
		DisplayName: "Null",
		LowPower:    true,
		Platforms:   allPlatforms,
	},
}

// Families returns every known family in declaration order.
func Families() []Family {
	out := make([]Family, len(familyOrder))
	copy(out, familyOrder)
	return out
}

// Info returns the static metadata for a family. Unknown families return a
// zero FamilyInfo and false.
func (f Family) Info() (FamilyInfo, bool) {
	info, ok := familyInfos[f]
	return info, ok
}

// DisplayName returns the human-readable name, or the raw identifier for an
// unknown family.
func (f Family) DisplayName() string {
	if info, ok := familyInfos[f]; ok {
		return info.DisplayName
	}
	return string(f)
}

// Modern reports whether the family is an explicit, GPU-driven-capable API.
func (f Family) Modern() bool {
	info, ok := familyInfos[f]
	return ok && info.Modern
}

// SupportsPlatform reports whether the family can run on the given platform.
func (f Family) SupportsPlatform(p Platform) bool {
	info, ok := familyInfos[f]
	if !ok {
		return false
	}
	for _, sp := range info.Platforms {
		if sp == p {
			return true
		}
	}
	return false
}

// Index returns the declaration-order index of the family, used as the final
// deterministic tie-break during selection. Unknown families sort last.
func (f Family) Index() int {
	for i, known := range familyOrder {
		if known == f {
			return i
		}
	}
	return len(familyOrder)
}
