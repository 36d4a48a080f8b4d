package drives_test

import (
	"context"
	"testing"

	"drivevault/internal/backend"
	"drivevault/internal/drives"
)

// TestDriveLifecycle walks the full happy path: format a factory-fresh
// drive, auto-mount it with the credential cached during the format,
// unmount, and verify trust survived.
func TestDriveLifecycle(t *testing.T) {
	ctx := context.Background()

	stub := backend.NewStub()
	vault := newMemVault()
	store := newMemStore()
	logger := drives.NewNopLogger()

	registry := drives.NewRegistry(stub, store, logger)
	mounter := drives.NewMountOrchestrator(stub, vault, logger)
	formatter := drives.NewFormatOrchestrator(stub, vault, store, logger)
	formatter.SetClearDelay(0)

	// The fresh drive is unencrypted and untrusted.
	d, err := registry.GetDetails(ctx, "/dev/sdb1")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if d.IsEncrypted() {
		t.Fatal("fresh drive is already encrypted")
	}

	// Format and encrypt; the credential is cached for the user.
	outcome := formatter.Run(ctx, "/dev/sdb1", "hunter2-but-long", "Cold Backup", "user-1", nil)
	if !outcome.Success {
		t.Fatalf("format failed: %s", outcome.Message)
	}

	// Auto-mount succeeds without a password in hand.
	mount := mounter.MountEncryptedAuto(ctx, "user-1", "usb_sdb1", "")
	if !mount.Success {
		t.Fatalf("auto mount failed: %s (%s)", mount.Message, mount.Code)
	}
	if mount.MountPoint == "" {
		t.Error("no mount point extracted")
	}

	// Details now show an encrypted, trusted, mounted drive.
	d, err = registry.GetDetails(ctx, "usb_sdb1")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if !d.IsEncrypted() {
		t.Error("drive not encrypted after format")
	}
	if d.TrustLevel != drives.TrustTrusted {
		t.Errorf("trust = %q, want trusted", d.TrustLevel)
	}
	if !d.IsMounted() {
		t.Error("drive not mounted")
	}

	// Unmount detaches cleanly.
	if outcome := mounter.Unmount(ctx, "usb_sdb1"); !outcome.Success {
		t.Fatalf("unmount failed: %s", outcome.Message)
	}
	d, _ = registry.GetDetails(ctx, "usb_sdb1")
	if d.IsMounted() {
		t.Error("drive still mounted after unmount")
	}
}
