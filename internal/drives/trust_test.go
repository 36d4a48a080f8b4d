package drives_test

import (
	"testing"

	"drivevault/internal/drives"
)

func TestBackendTrust(t *testing.T) {
	tests := []struct {
		ui   drives.UITrustLevel
		want drives.TrustLevel
	}{
		{drives.UITrustFull, drives.TrustTrusted},
		{drives.UITrustPartial, drives.TrustUntrusted},
		{drives.UITrustUntrusted, drives.TrustBlocked},
	}

	for _, tt := range tests {
		if got := drives.BackendTrust(tt.ui); got != tt.want {
			t.Errorf("BackendTrust(%q) = %q, want %q", tt.ui, got, tt.want)
		}
	}
}

func TestUITrust(t *testing.T) {
	tests := []struct {
		backend drives.TrustLevel
		want    drives.UITrustLevel
	}{
		{drives.TrustTrusted, drives.UITrustFull},
		{drives.TrustUntrusted, drives.UITrustPartial},
		{drives.TrustBlocked, drives.UITrustUntrusted},
	}

	for _, tt := range tests {
		if got := drives.UITrust(tt.backend); got != tt.want {
			t.Errorf("UITrust(%q) = %q, want %q", tt.backend, got, tt.want)
		}
	}
}

func TestTrustRoundTrip(t *testing.T) {
	// Full and Untrusted survive a round trip; Partial also maps back to
	// itself even though the overall mapping is lossy for unknown values.
	for _, ui := range []drives.UITrustLevel{drives.UITrustFull, drives.UITrustPartial, drives.UITrustUntrusted} {
		if got := drives.UITrust(drives.BackendTrust(ui)); got != ui {
			t.Errorf("round trip of %q = %q", ui, got)
		}
	}
}

func TestParseTrustLevel(t *testing.T) {
	for _, valid := range []string{"trusted", "untrusted", "blocked"} {
		if _, err := drives.ParseTrustLevel(valid); err != nil {
			t.Errorf("ParseTrustLevel(%q) error = %v", valid, err)
		}
	}

	if _, err := drives.ParseTrustLevel("Full"); err == nil {
		t.Error("ParseTrustLevel accepted a UI-level value")
	}
}
