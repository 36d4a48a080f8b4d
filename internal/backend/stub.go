package backend

import (
	"context"
	"fmt"
	"sync"

	"drivevault/internal/drives"
)

// Stub is an in-process Backend backed by a scripted device table. It
// reproduces the operation channel's observable behavior: free-text
// errors using the channel's actual tokens and phrasings, human-readable
// success messages, and the staged format event stream.
type Stub struct {
	mu      sync.Mutex
	devices map[string]*stubDevice

	// FailStage, when non-empty, makes FormatAndEncrypt emit an error
	// event at that stage instead of proceeding.
	FailStage string
	// FailMessage overrides the error event's message.
	FailMessage string
	// TrustErr, when set, is returned by SetTrust.
	TrustErr error
}

var _ drives.Backend = (*Stub)(nil)

type stubDevice struct {
	drives.Device
	passphrase string
}

// NewStub returns a stub seeded with one unencrypted 32 GiB drive at
// /dev/sdb1, matching the fixed inventory the channel reports when no
// real enumeration is available.
func NewStub() *Stub {
	s := &Stub{devices: make(map[string]*stubDevice)}
	s.AddDevice(drives.Device{
		ID:             "usb_sdb1",
		DevicePath:     "/dev/sdb1",
		CapacityBytes:  32 << 30,
		AvailableBytes: 28 << 30,
		Filesystem:     "ext4",
		Label:          "USB Drive",
		TrustLevel:     drives.TrustUntrusted,
	})
	return s
}

// NewEmptyStub returns a stub with no devices.
func NewEmptyStub() *Stub {
	return &Stub{devices: make(map[string]*stubDevice)}
}

// AddDevice inserts or replaces a device in the scripted table.
func (s *Stub) AddDevice(d drives.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.ID] = &stubDevice{Device: d}
}

// SetPassphrase sets the passphrase an encrypted device accepts.
func (s *Stub) SetPassphrase(id, passphrase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[id]; ok {
		d.passphrase = passphrase
	}
}

func (s *Stub) DetectDevices(ctx context.Context) ([]drives.Device, error) {
	return s.snapshot(), nil
}

func (s *Stub) RefreshDevices(ctx context.Context) ([]drives.Device, error) {
	return s.snapshot(), nil
}

func (s *Stub) snapshot() []drives.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]drives.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d.Device)
	}
	return out
}

func (s *Stub) GetDeviceDetails(ctx context.Context, id string) (drives.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return drives.Device{}, fmt.Errorf("Drive not found: %s", id)
	}
	return d.Device, nil
}

func (s *Stub) Mount(ctx context.Context, id, mountPoint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return "", fmt.Errorf("Drive not found: %s", id)
	}
	if d.IsMounted() {
		return "", fmt.Errorf("%s is already mounted at %s", d.DevicePath, d.MountPoint)
	}
	if d.IsEncrypted() {
		return "", fmt.Errorf("LUKS_ENCRYPTED_DRIVE")
	}

	d.MountPoint = s.resolveMountPoint(d, mountPoint)
	return fmt.Sprintf("Drive mounted successfully at %s", d.MountPoint), nil
}

func (s *Stub) MountEncrypted(ctx context.Context, id, password, mountPoint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return "", fmt.Errorf("Drive not found: %s", id)
	}
	if d.IsMounted() {
		return "", fmt.Errorf("%s is already mounted at %s", d.DevicePath, d.MountPoint)
	}
	if !d.IsEncrypted() {
		return "", fmt.Errorf("DEVICE_NOT_LUKS_ENCRYPTED")
	}
	if password != d.passphrase {
		return "", fmt.Errorf("No key available with this passphrase")
	}

	d.MountPoint = s.resolveMountPoint(d, mountPoint)
	return fmt.Sprintf("Encrypted drive mounted successfully at %s", d.MountPoint), nil
}

func (s *Stub) Unmount(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return "", fmt.Errorf("Drive not found: %s", id)
	}
	if !d.IsMounted() {
		return "", fmt.Errorf("%s is not currently mounted", d.DevicePath)
	}

	point := d.MountPoint
	d.MountPoint = ""
	return fmt.Sprintf("Unmounted from %s", point), nil
}

func (s *Stub) SetTrust(ctx context.Context, id string, level drives.TrustLevel) error {
	if s.TrustErr != nil {
		return s.TrustErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return fmt.Errorf("Drive not found: %s", id)
	}
	d.TrustLevel = level
	return nil
}

// formatStages in emission order, excluding the terminal complete event.
var formatStages = []string{
	drives.StageInitializing,
	drives.StageCleanup,
	drives.StagePartitioning,
	drives.StageEncryptionSetup,
	drives.StageFormatting,
	drives.StageVerification,
	drives.StageFinalizing,
}

func (s *Stub) FormatAndEncrypt(ctx context.Context, id, password, driveName string) (<-chan drives.ProgressEvent, error) {
	s.mu.Lock()
	d, ok := s.devices[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("Drive not found: %s", id)
	}
	if d.IsMounted() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s is already mounted at %s", d.DevicePath, d.MountPoint)
	}
	s.mu.Unlock()

	events := make(chan drives.ProgressEvent)
	go func() {
		defer close(events)

		for _, stage := range formatStages {
			if s.FailStage == stage {
				msg := s.FailMessage
				if msg == "" {
					msg = "Format failed during " + stage
				}
				events <- drives.ProgressEvent{Stage: drives.StageError, Percent: 0, Message: msg}
				return
			}
			events <- drives.ProgressEvent{
				Stage:   stage,
				Percent: drives.StagePercent(stage),
				Message: stageMessage(stage),
			}
		}

		s.mu.Lock()
		d.Filesystem = drives.FilesystemLUKS
		d.Encrypted = true
		d.Label = driveName
		d.passphrase = password
		d.AvailableBytes = d.CapacityBytes
		s.mu.Unlock()

		events <- drives.ProgressEvent{
			Stage:   drives.StageComplete,
			Percent: 100,
			Message: "Drive formatted and encrypted successfully",
		}
	}()
	return events, nil
}

func (s *Stub) resolveMountPoint(d *stubDevice, requested string) string {
	if requested != "" {
		return requested
	}
	label := d.Label
	if label == "" {
		label = d.ID
	}
	return "/media/" + label
}

func stageMessage(stage string) string {
	switch stage {
	case drives.StageInitializing:
		return "Preparing device"
	case drives.StageCleanup:
		return "Removing existing signatures"
	case drives.StagePartitioning:
		return "Creating partition table"
	case drives.StageEncryptionSetup:
		return "Setting up encryption"
	case drives.StageFormatting:
		return "Creating filesystem"
	case drives.StageVerification:
		return "Verifying volume"
	case drives.StageFinalizing:
		return "Finalizing"
	default:
		return stage
	}
}
