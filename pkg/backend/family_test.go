package backend

import "testing"

func TestFamiliesDeclarationOrder(t *testing.T) {
	families := Families()
	if len(families) != 7 {
		t.Fatalf("expected 7 families, got %d", len(families))
	}
	if families[0] != FamilyVulkan {
		t.Errorf("expected vulkan first, got %s", families[0])
	}
	if families[len(families)-1] != FamilyNull {
		t.Errorf("expected null last, got %s", families[len(families)-1])
	}

	// Index must agree with the returned order.
	for i, f := range families {
		if f.Index() != i {
			t.Errorf("family %s: Index() = %d, want %d", f, f.Index(), i)
		}
	}
}

func TestFamilyInfo(t *testing.T) {
	info, ok := FamilyVulkan.Info()
	if !ok {
		t.Fatal("vulkan should have info")
	}
	if info.DisplayName != "Vulkan" {
		t.Errorf("expected display name Vulkan, got %s", info.DisplayName)
	}
	if !info.Modern {
		t.Error("vulkan should be modern")
	}

	if _, ok := Family("glide").Info(); ok {
		t.Error("unknown family should have no info")
	}
}

func TestFamilyDisplayName(t *testing.T) {
	if got := FamilyD3D12.DisplayName(); got != "Direct3D 12" {
		t.Errorf("expected Direct3D 12, got %s", got)
	}
	// Unknown families fall back to the raw identifier.
	if got := Family("glide").DisplayName(); got != "glide" {
		t.Errorf("expected glide, got %s", got)
	}
}

func TestFamilyModern(t *testing.T) {
	modern := map[Family]bool{
		FamilyVulkan:   true,
		FamilyD3D12:    true,
		FamilyMetal:    true,
		FamilyOpenGL:   false,
		FamilyGLES:     false,
		FamilySoftware: false,
		FamilyNull:     false,
	}
	for family, want := range modern {
		if got := family.Modern(); got != want {
			t.Errorf("family %s: Modern() = %v, want %v", family, got, want)
		}
	}
}

func TestFamilySupportsPlatform(t *testing.T) {
	tests := []struct {
		family   Family
		platform Platform
		want     bool
	}{
		{FamilyVulkan, PlatformLinux, true},
		{FamilyVulkan, PlatformMacOS, false},
		{FamilyD3D12, PlatformWindows, true},
		{FamilyD3D12, PlatformLinux, false},
		{FamilyMetal, PlatformMacOS, true},
		{FamilyMetal, PlatformWindows, false},
		{FamilySoftware, PlatformWeb, true},
		{FamilyNull, PlatformIOS, true},
		{Family("glide"), PlatformWindows, false},
	}
	for _, tt := range tests {
		if got := tt.family.SupportsPlatform(tt.platform); got != tt.want {
			t.Errorf("%s on %s: got %v, want %v", tt.family, tt.platform, got, tt.want)
		}
	}
}

func TestUnknownFamilyIndexSortsLast(t *testing.T) {
	unknown := Family("glide")
	if unknown.Index() != len(Families()) {
		t.Errorf("unknown family index = %d, want %d", unknown.Index(), len(Families()))
	}
}
