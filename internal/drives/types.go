package drives

import "time"

// FilesystemLUKS is the filesystem marker the backend reports for a
// LUKS-encrypted volume. It is structurally significant: a device carrying
// it is treated as encrypted regardless of the explicit flag.
const FilesystemLUKS = "crypto_LUKS"

// TrustLevel is the backend's trust vocabulary for a drive.
// The wider UI vocabulary lives in trust.go.
type TrustLevel string

const (
	TrustTrusted   TrustLevel = "trusted"
	TrustUntrusted TrustLevel = "untrusted"
	TrustBlocked   TrustLevel = "blocked"
)

// Device is a removable storage unit known to the system.
//
// Records are always produced by the Registry, never constructed by
// orchestrators. After a successful mount/unmount/trust operation the
// caller may patch its own copy optimistically (set or clear MountPoint,
// change TrustLevel); the next Rescan replaces the inventory wholesale and
// reconciles any such tentative patches.
type Device struct {
	ID             string // canonical logical id ("usb_sdb1"), distinct from the OS path
	DevicePath     string // OS-level path ("/dev/sdb1")
	MountPoint     string // set only while mounted
	CapacityBytes  uint64
	AvailableBytes uint64
	Filesystem     string // free text; FilesystemLUKS marks encryption
	Encrypted      bool
	Label          string
	TrustLevel     TrustLevel
	BackupCount    int
	LastBackupAt   *time.Time
}

// IsEncrypted reports whether the device must go through the
// encrypted-mount path: either the explicit flag or the filesystem marker.
func (d *Device) IsEncrypted() bool {
	return d.Encrypted || d.Filesystem == FilesystemLUKS
}

// IsMounted reports whether the record claims a live mount point.
func (d *Device) IsMounted() bool {
	return d.MountPoint != ""
}

// MountOutcome is the result of any mount or unmount attempt. Public
// orchestrator operations resolve to one of these instead of returning a
// raw transport error, so callers never need error handling for expected
// failure modes.
type MountOutcome struct {
	Success    bool
	Message    string
	MountPoint string    // success only
	Code       ErrorCode // failure only, from the closed taxonomy
	Details    string    // original backend text, always kept for UNKNOWN_ERROR
}

// Format stages in their expected order, with the nominal progress each
// one reports. The backend may emit other percents; the orchestrator only
// guarantees local monotonicity.
const (
	StageInitializing    = "initializing"
	StageCleanup         = "cleanup"
	StagePartitioning    = "partitioning"
	StageEncryptionSetup = "encryption_setup"
	StageFormatting      = "formatting"
	StageVerification    = "verification"
	StageFinalizing      = "finalizing"
	StageComplete        = "complete"
	StageError           = "error"
)

// StagePercent returns the nominal progress for a known stage and -1 for
// anything else.
func StagePercent(stage string) int {
	switch stage {
	case StageInitializing:
		return 5
	case StageCleanup:
		return 15
	case StagePartitioning:
		return 30
	case StageEncryptionSetup:
		return 50
	case StageFormatting:
		return 75
	case StageVerification:
		return 90
	case StageFinalizing:
		return 95
	case StageComplete:
		return 100
	default:
		return -1
	}
}

// ProgressEvent is one update pushed by the backend while a format job
// runs. The stream is single-producer per job; a StageError or
// StageComplete event is terminal and the channel closes after it.
type ProgressEvent struct {
	Stage   string
	Percent int
	Message string
}

// FormatJob is the externally visible state of an in-progress
// format-and-encrypt workflow. Percent is monotonically non-decreasing
// within one job even when the backend misreports.
type FormatJob struct {
	Stage   string
	Percent int
	Message string
	Active  bool
}

// FormatOutcome is the terminal result of a format job. On failure Percent
// holds the last reported progress (not reset to zero) so callers can say
// "failed at N%".
type FormatOutcome struct {
	Success bool
	Message string
	Code    ErrorCode // failure only
	Details string
	Percent int
}
