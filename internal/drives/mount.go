package drives

import (
	"context"
	"strings"
)

// MountOrchestrator resolves mount and unmount requests against the
// backend and turns every expected failure into a classified MountOutcome.
//
// There is no per-device serialization: two concurrent operations on the
// same device race at the backend and the last one wins. Callers that need
// ordering serialize themselves.
type MountOrchestrator struct {
	backend Backend
	vault   CredentialVault
	logger  Logger
}

func NewMountOrchestrator(backend Backend, vault CredentialVault, logger Logger) *MountOrchestrator {
	return &MountOrchestrator{backend: backend, vault: vault, logger: logger}
}

// Mount attaches an unencrypted device. Pointing this at an encrypted
// device fails with CodeLUKSEncryptedDrive; the caller should retry
// through MountEncrypted.
func (m *MountOrchestrator) Mount(ctx context.Context, pathOrID, mountPoint string) MountOutcome {
	id := CanonicalDeviceID(pathOrID)

	msg, err := m.backend.Mount(ctx, id, mountPoint)
	if err != nil {
		return m.failure("mount", id, err)
	}

	m.logger.Info("drive mounted", "drive", id)
	return MountOutcome{Success: true, Message: msg, MountPoint: extractMountPoint(msg)}
}

// MountEncrypted unlocks and mounts an encrypted device with an explicit
// password.
func (m *MountOrchestrator) MountEncrypted(ctx context.Context, pathOrID, password, mountPoint string) MountOutcome {
	id := CanonicalDeviceID(pathOrID)

	msg, err := m.backend.MountEncrypted(ctx, id, password, mountPoint)
	if err != nil {
		return m.failure("mount encrypted", id, err)
	}

	m.logger.Info("encrypted drive mounted", "drive", id)
	return MountOutcome{Success: true, Message: msg, MountPoint: extractMountPoint(msg)}
}

// MountEncryptedAuto mounts an encrypted device using the user's cached
// credential. A missing credential is reported as CodeNoStoredPassword
// without ever reaching the backend; a stale credential surfaces as
// whatever the backend's rejection classifies to (normally
// CodeInvalidPassword).
func (m *MountOrchestrator) MountEncryptedAuto(ctx context.Context, userID, pathOrID, mountPoint string) MountOutcome {
	id := CanonicalDeviceID(pathOrID)

	password, ok, err := m.vault.Get(userID, id)
	if err != nil {
		return m.failure("credential lookup", id, err)
	}
	if !ok {
		m.logger.Debug("no cached credential", "drive", id)
		return MountOutcome{
			Success: false,
			Message: "No stored password for drive " + id,
			Code:    CodeNoStoredPassword,
		}
	}

	outcome := m.MountEncrypted(ctx, id, password, mountPoint)
	if !outcome.Success && outcome.Code == CodeInvalidPassword {
		m.logger.Warn("cached credential rejected", "drive", id)
	}
	return outcome
}

// Unmount detaches the device.
func (m *MountOrchestrator) Unmount(ctx context.Context, pathOrID string) MountOutcome {
	id := CanonicalDeviceID(pathOrID)

	msg, err := m.backend.Unmount(ctx, id)
	if err != nil {
		return m.failure("unmount", id, err)
	}

	m.logger.Info("drive unmounted", "drive", id)
	return MountOutcome{Success: true, Message: msg}
}

func (m *MountOrchestrator) failure(op, id string, err error) MountOutcome {
	code := ClassifyError(err)
	m.logger.Warn(op+" failed", "drive", id, "code", string(code), "error", err)
	return MountOutcome{
		Success: false,
		Message: err.Error(),
		Code:    code,
		Details: err.Error(),
	}
}

// extractMountPoint pulls the mount location out of a backend success
// message of the form "... at /media/foo". Messages without the marker
// yield an empty mount point; the operation still succeeded.
func extractMountPoint(msg string) string {
	idx := strings.LastIndex(msg, " at ")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(msg[idx+len(" at "):])
}
