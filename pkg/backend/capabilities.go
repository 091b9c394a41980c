package backend

// CapabilityReport is a backend instance's self-declared snapshot of what it
// supports: feature flags, device limits and device identity. It is produced
// by a backend after a cheap initialization and consumed by the capability
// scorer. A report is a value; nothing in the engine mutates one after it is
// returned.
type CapabilityReport struct {
	// DeviceName is the adapter/device name reported by the driver.
	DeviceName string

	// VendorName is the hardware vendor name.
	VendorName string

	// DriverVersion is the raw driver version string.
	DriverVersion string

	// Features maps each supported feature level to true. Absent keys mean
	// unsupported.
	Features map[FeatureLevel]bool

	// PersistentMapping reports whether buffers can stay mapped while in
	// use by the device.
	PersistentMapping bool

	// MaxComputeWorkGroupSize is the largest supported work-group dimension
	// product. Zero when compute is unsupported.
	MaxComputeWorkGroupSize int

	// MaxIndirectDrawCount is the largest draw count for a single indirect
	// submission. Zero when indirect draw is unsupported.
	MaxIndirectDrawCount int

	// DedicatedVideoMemoryMB is device-local memory in MiB.
	DedicatedVideoMemoryMB int64

	// SharedSystemMemoryMB is host-visible shared memory in MiB.
	SharedSystemMemoryMB int64
}

// Supports reports whether the feature level is present in the report.
func (r CapabilityReport) Supports(f FeatureLevel) bool {
	return r.Features[f]
}

// SupportedFeatures returns the supported feature levels in declaration
// order.
func (r CapabilityReport) SupportedFeatures() []FeatureLevel {
	var out []FeatureLevel
	for f := FeatureLevel(0); f < featureCount; f++ {
		if r.Features[f] {
			out = append(out, f)
		}
	}
	return out
}
