package encryption

import (
	"fmt"

	"drivevault/internal/config"
	"drivevault/internal/drives"
)

// NewSecretEncryptorFromConfig creates a SecretEncryptor based on the
// encryption config type.
func NewSecretEncryptorFromConfig(cfg config.EncryptionConfig) (drives.SecretEncryptor, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.IdentityPath == "" {
			return nil, fmt.Errorf("identity_path required for age encryption")
		}
		enc := NewAgeSecretEncryptor(cfg.IdentityPath)
		if !enc.IsConfigured() {
			if err := enc.Setup(); err != nil {
				return nil, fmt.Errorf("generating credential identity: %w", err)
			}
		}
		return enc, nil
	case "test":
		return NewTestSecretEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %s", cfg.Type)
	}
}
