package drives

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DriveStore is the local persistence the Registry merges into device
// records: trust levels and backup bookkeeping survive across sessions
// even though the backend's inventory does not.
type DriveStore interface {
	// TrustLevel returns the stored level for a drive, ok=false when the
	// drive has never been recorded.
	TrustLevel(driveID string) (TrustLevel, bool, error)
	SetTrustLevel(driveID string, level TrustLevel) error

	// BackupStats returns how many backups were recorded for the drive and
	// when the most recent one happened (nil when none).
	BackupStats(driveID string) (int, *time.Time, error)
	RecordBackup(driveID string, sizeBytes uint64, checksum string) error
}

// Registry holds the cached device inventory. The cache is seeded lazily
// on first read and replaced wholesale by Rescan; individual records are
// never patched in place here, so a caller's optimistic edits to its own
// copies survive only until the next rescan.
type Registry struct {
	backend Backend
	store   DriveStore
	logger  Logger

	mu     sync.Mutex
	cache  []Device
	seeded bool
}

func NewRegistry(backend Backend, store DriveStore, logger Logger) *Registry {
	return &Registry{backend: backend, store: store, logger: logger}
}

// ListCached returns the current inventory, detecting devices on the first
// call. Callers get copies.
func (r *Registry) ListCached(ctx context.Context) ([]Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seeded {
		devices, err := r.backend.DetectDevices(ctx)
		if err != nil {
			return nil, fmt.Errorf("detecting devices: %w", err)
		}
		r.cache = devices
		r.seeded = true
		r.logger.Info("device inventory seeded", "count", len(devices))
	}

	out := make([]Device, len(r.cache))
	copy(out, r.cache)
	return out, nil
}

// Rescan forces a fresh enumeration and replaces the cached inventory
// wholesale.
func (r *Registry) Rescan(ctx context.Context) ([]Device, error) {
	devices, err := r.backend.RefreshDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing devices: %w", err)
	}

	r.mu.Lock()
	r.cache = devices
	r.seeded = true
	r.mu.Unlock()

	r.logger.Info("device inventory rescanned", "count", len(devices))

	out := make([]Device, len(devices))
	copy(out, devices)
	return out, nil
}

// GetDetails fetches the live record for one device and merges in the
// locally stored trust level and backup stats. Store failures degrade to
// the backend's values with a warning; a backend failure is surfaced
// unmodified so the caller can classify it.
func (r *Registry) GetDetails(ctx context.Context, pathOrID string) (Device, error) {
	id := CanonicalDeviceID(pathOrID)

	device, err := r.backend.GetDeviceDetails(ctx, id)
	if err != nil {
		return Device{}, err
	}

	if level, ok, err := r.store.TrustLevel(id); err != nil {
		r.logger.Warn("reading stored trust level", "drive", id, "error", err)
	} else if ok {
		device.TrustLevel = level
	}

	if count, last, err := r.store.BackupStats(id); err != nil {
		r.logger.Warn("reading backup stats", "drive", id, "error", err)
	} else {
		device.BackupCount = count
		device.LastBackupAt = last
	}

	return device, nil
}

// SetTrust records a trust level on both the backend and the local store.
// The local store is authoritative for details merging; a store failure
// fails the operation even when the backend accepted the change.
func (r *Registry) SetTrust(ctx context.Context, pathOrID string, level TrustLevel) error {
	id := CanonicalDeviceID(pathOrID)

	if err := r.backend.SetTrust(ctx, id, level); err != nil {
		return fmt.Errorf("setting backend trust: %w", err)
	}
	if err := r.store.SetTrustLevel(id, level); err != nil {
		return fmt.Errorf("persisting trust level: %w", err)
	}

	r.logger.Info("trust level set", "drive", id, "level", string(level))
	return nil
}
