package drives_test

import (
	"testing"

	"drivevault/internal/drives"
)

func TestCanonicalDeviceID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dev path", "/dev/sdb1", "usb_sdb1"},
		{"bare name", "sdb1", "usb_sdb1"},
		{"already canonical", "usb_sdb1", "usb_sdb1"},
		{"whole disk path", "/dev/sdc", "usb_sdc"},
		{"nvme style", "/dev/nvme0n1p1", "usb_nvme0n1p1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := drives.CanonicalDeviceID(tt.input); got != tt.want {
				t.Errorf("CanonicalDeviceID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalDeviceID_Idempotent(t *testing.T) {
	once := drives.CanonicalDeviceID("/dev/sdb1")
	twice := drives.CanonicalDeviceID(once)
	if once != twice {
		t.Errorf("second application changed the ID: %q -> %q", once, twice)
	}
}

func TestDevicePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"partition id", "usb_sdb1", "/dev/sdb1"},
		{"whole disk gets first partition", "usb_sdb", "/dev/sdb1"},
		{"trailing digit preserved", "usb_sdc2", "/dev/sdc2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := drives.DevicePath(tt.input); got != tt.want {
				t.Errorf("DevicePath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
