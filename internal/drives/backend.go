package drives

import "context"

// Backend is the privileged operation channel that actually touches
// devices. Implementations are expected to be remote or otherwise outside
// this process's control: errors come back as free text (classified by
// Classify), success messages are human-readable and parsed only for the
// mount point.
//
// Mount, MountEncrypted and Unmount return the backend's success message.
// FormatAndEncrypt returns a receive-only event stream; the backend closes
// the channel after a terminal StageComplete or StageError event.
type Backend interface {
	// DetectDevices enumerates currently attached removable devices.
	DetectDevices(ctx context.Context) ([]Device, error)

	// RefreshDevices re-enumerates from scratch, dropping any backend-side
	// caching.
	RefreshDevices(ctx context.Context) ([]Device, error)

	// GetDeviceDetails fetches the live record for one device by canonical ID.
	GetDeviceDetails(ctx context.Context, id string) (Device, error)

	// Mount attaches an unencrypted device at mountPoint (backend picks a
	// location when mountPoint is empty).
	Mount(ctx context.Context, id, mountPoint string) (string, error)

	// MountEncrypted unlocks an encrypted device with password and mounts it.
	MountEncrypted(ctx context.Context, id, password, mountPoint string) (string, error)

	// Unmount detaches the device, closing any encrypted mapping.
	Unmount(ctx context.Context, id string) (string, error)

	// SetTrust records the trust level on the backend side.
	SetTrust(ctx context.Context, id string, level TrustLevel) error

	// FormatAndEncrypt destroys the device's contents and re-creates it as
	// an encrypted volume labeled driveName, protected by password.
	FormatAndEncrypt(ctx context.Context, id, password, driveName string) (<-chan ProgressEvent, error)
}
