package drives_test

import (
	"context"
	"testing"

	"drivevault/internal/backend"
	"drivevault/internal/drives"
)

func TestRegistry_ListCached(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds inventory on first call", func(t *testing.T) {
		t.Parallel()
		r := drives.NewRegistry(backend.NewStub(), newMemStore(), drives.NewNopLogger())

		devices, err := r.ListCached(ctx)
		if err != nil {
			t.Fatalf("ListCached: %v", err)
		}
		if len(devices) != 1 {
			t.Fatalf("got %d devices, want 1", len(devices))
		}
		if devices[0].ID != "usb_sdb1" {
			t.Errorf("ID = %q, want usb_sdb1", devices[0].ID)
		}
	})

	t.Run("returns copies the caller can patch freely", func(t *testing.T) {
		t.Parallel()
		r := drives.NewRegistry(backend.NewStub(), newMemStore(), drives.NewNopLogger())

		first, err := r.ListCached(ctx)
		if err != nil {
			t.Fatalf("ListCached: %v", err)
		}
		first[0].MountPoint = "/media/patched"

		second, err := r.ListCached(ctx)
		if err != nil {
			t.Fatalf("ListCached: %v", err)
		}
		if second[0].MountPoint == "/media/patched" {
			t.Error("caller's patch leaked into the cache")
		}
	})
}

func TestRegistry_Rescan(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the inventory wholesale", func(t *testing.T) {
		t.Parallel()
		stub := backend.NewStub()
		r := drives.NewRegistry(stub, newMemStore(), drives.NewNopLogger())

		if _, err := r.ListCached(ctx); err != nil {
			t.Fatalf("ListCached: %v", err)
		}

		stub.AddDevice(drives.Device{ID: "usb_sdc1", DevicePath: "/dev/sdc1", Filesystem: "ext4"})

		devices, err := r.Rescan(ctx)
		if err != nil {
			t.Fatalf("Rescan: %v", err)
		}
		if len(devices) != 2 {
			t.Fatalf("got %d devices after rescan, want 2", len(devices))
		}
	})
}

func TestRegistry_GetDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("merges stored trust level", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		store.SetTrustLevel("usb_sdb1", drives.TrustTrusted)
		r := drives.NewRegistry(backend.NewStub(), store, drives.NewNopLogger())

		d, err := r.GetDetails(ctx, "/dev/sdb1")
		if err != nil {
			t.Fatalf("GetDetails: %v", err)
		}
		if d.TrustLevel != drives.TrustTrusted {
			t.Errorf("TrustLevel = %q, want trusted (stored value should win)", d.TrustLevel)
		}
	})

	t.Run("keeps backend trust when nothing stored", func(t *testing.T) {
		t.Parallel()
		r := drives.NewRegistry(backend.NewStub(), newMemStore(), drives.NewNopLogger())

		d, err := r.GetDetails(ctx, "usb_sdb1")
		if err != nil {
			t.Fatalf("GetDetails: %v", err)
		}
		if d.TrustLevel != drives.TrustUntrusted {
			t.Errorf("TrustLevel = %q, want untrusted", d.TrustLevel)
		}
	})

	t.Run("merges backup stats", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		store.RecordBackup("usb_sdb1", 1024, "abc")
		store.RecordBackup("usb_sdb1", 2048, "def")
		r := drives.NewRegistry(backend.NewStub(), store, drives.NewNopLogger())

		d, err := r.GetDetails(ctx, "usb_sdb1")
		if err != nil {
			t.Fatalf("GetDetails: %v", err)
		}
		if d.BackupCount != 2 {
			t.Errorf("BackupCount = %d, want 2", d.BackupCount)
		}
		if d.LastBackupAt == nil {
			t.Error("LastBackupAt is nil")
		}
	})

	t.Run("backend failure surfaces unmodified", func(t *testing.T) {
		t.Parallel()
		r := drives.NewRegistry(backend.NewEmptyStub(), newMemStore(), drives.NewNopLogger())

		_, err := r.GetDetails(ctx, "usb_missing")
		if err == nil {
			t.Fatal("expected error")
		}
		if drives.ClassifyError(err) != drives.CodeDriveNotFound {
			t.Errorf("Classify(%v) != DRIVE_NOT_FOUND", err)
		}
	})
}

func TestRegistry_SetTrust(t *testing.T) {
	ctx := context.Background()

	t.Run("persists to both backend and store", func(t *testing.T) {
		t.Parallel()
		stub := backend.NewStub()
		store := newMemStore()
		r := drives.NewRegistry(stub, store, drives.NewNopLogger())

		if err := r.SetTrust(ctx, "/dev/sdb1", drives.TrustBlocked); err != nil {
			t.Fatalf("SetTrust: %v", err)
		}

		if level, ok, _ := store.TrustLevel("usb_sdb1"); !ok || level != drives.TrustBlocked {
			t.Errorf("store trust = %q ok=%v, want blocked", level, ok)
		}
		d, _ := stub.GetDeviceDetails(ctx, "usb_sdb1")
		if d.TrustLevel != drives.TrustBlocked {
			t.Errorf("backend trust = %q, want blocked", d.TrustLevel)
		}
	})

	t.Run("unknown drive fails", func(t *testing.T) {
		t.Parallel()
		r := drives.NewRegistry(backend.NewEmptyStub(), newMemStore(), drives.NewNopLogger())

		if err := r.SetTrust(ctx, "usb_missing", drives.TrustTrusted); err == nil {
			t.Fatal("expected error")
		}
	})
}
