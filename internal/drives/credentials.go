package drives

import "time"

// CachedCredential is the metadata view of a stored drive password. The
// password value itself is write-only through this type: List and lookup
// paths never populate it, only the auto-mount path receives the decrypted
// value, and then only internally.
type CachedCredential struct {
	ID           string
	UserID       string
	DriveID      string
	DevicePath   string
	DriveLabel   string
	PasswordHint string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastUsed     *time.Time
}

// SaveCredentialRequest carries everything needed to store or replace a
// drive credential for a user.
type SaveCredentialRequest struct {
	DriveID      string
	DevicePath   string
	DriveLabel   string
	Password     string
	PasswordHint string
}

// SecretEncryptor protects credential values at rest. EncryptString
// returns an opaque printable token; DecryptString inverts it.
type SecretEncryptor interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(ciphertext string) (string, error)
}

// CredentialVault stores drive passwords per user. Save replaces any
// existing entry for the same (user, drive) pair. Get returns ok=false,
// not an error, when no entry exists; a storage failure is an error.
type CredentialVault interface {
	Save(userID string, req SaveCredentialRequest) error
	Get(userID, driveID string) (password string, ok bool, err error)
	List(userID string) ([]CachedCredential, error)
	Delete(userID, driveID string) error
	UpdateHint(userID, driveID, hint string) error
}
