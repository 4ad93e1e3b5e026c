package protocol

import "testing"

func TestRegistryOrder(t *testing.T) {
	if len(Profiles) != 2 {
		t.Fatalf("registry size = %d", len(Profiles))
	}
	if Profiles[0] != GM65 || Profiles[1] != M3Y {
		t.Fatal("registry order changed; GM65 probes first")
	}
}

func TestProfileByName(t *testing.T) {
	tests := []struct {
		name string
		want *Profile
		ok   bool
	}{
		{"gm65", GM65, true},
		{"GM65", GM65, true},
		{"gm805", GM65, true}, // GM805 shares GM65 framing, same profile
		{"m3y", M3Y, true},
		{"m3y-w", M3Y, true},
		{"gm999", nil, false},
	}
	for _, tt := range tests {
		got, ok := ProfileByName(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ProfileByName(%q) = %v, %v", tt.name, got, ok)
		}
	}
}

func TestSupports(t *testing.T) {
	// Illumination is a settings-byte composite, not a table op.
	if GM65.Supports(OpSetIllumination) {
		t.Fatal("GM65 should not map OpSetIllumination directly")
	}
	if !GM65.Supports(OpGetSettings) {
		t.Fatal("GM65 must map OpGetSettings")
	}
	if M3Y.Supports(OpGetSettings) {
		t.Fatal("M3Y must not map OpGetSettings")
	}
	if !M3Y.Supports(OpSetContinuousMode) {
		t.Fatal("M3Y must map OpSetContinuousMode")
	}
}

func TestOpString(t *testing.T) {
	if OpGetSwVersion.String() != "get-sw-version" {
		t.Fatalf("op string = %q", OpGetSwVersion)
	}
	if Op(99).String() != "unknown" {
		t.Fatalf("unknown op string = %q", Op(99))
	}
}
