package backend

import "sync/atomic"

// The reference backends render nothing. They exist so the selection
// pipeline can be exercised end-to-end on machines with no usable GPU
// driver, and so a host always has a terminal fallback chain entry that
// cannot fail.

type referenceBackend struct {
	family      Family
	report      CapabilityReport
	initialized atomic.Bool
	shutdown    atomic.Bool
}

// NewNullBackend constructs the null backend: always available, basic
// rendering only, accepts and discards every command.
func NewNullBackend() (Backend, error) {
	return &referenceBackend{
		family: FamilyNull,
		report: CapabilityReport{
			DeviceName:    "null device",
			VendorName:    "gfxsel",
			DriverVersion: "builtin",
			Features: map[FeatureLevel]bool{
				FeatureBasicRender: true,
			},
		},
	}, nil
}

// NewSoftwareBackend constructs the CPU rasterizer profile: basic rendering,
// compute and plain indirect draw, no device-local memory.
func NewSoftwareBackend() (Backend, error) {
	return &referenceBackend{
		family: FamilySoftware,
		report: CapabilityReport{
			DeviceName:    "software rasterizer",
			VendorName:    "gfxsel",
			DriverVersion: "builtin",
			Features: map[FeatureLevel]bool{
				FeatureBasicRender:  true,
				FeatureCompute:      true,
				FeatureIndirectDraw: true,
			},
			PersistentMapping:       true,
			MaxComputeWorkGroupSize: 64,
			MaxIndirectDrawCount:    1024,
			SharedSystemMemoryMB:    2048,
		},
	}, nil
}

func (b *referenceBackend) Family() Family { return b.family }

func (b *referenceBackend) Initialize(InitOptions) bool {
	if b.shutdown.Load() {
		return false
	}
	b.initialized.Store(true)
	return true
}

func (b *referenceBackend) IsValid() bool {
	return b.initialized.Load() && !b.shutdown.Load()
}

func (b *referenceBackend) Capabilities() CapabilityReport {
	return b.report
}

func (b *referenceBackend) Shutdown() error {
	b.shutdown.Store(true)
	return nil
}
