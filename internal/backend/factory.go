package backend

import (
	"fmt"

	"drivevault/internal/config"
	"drivevault/internal/drives"
)

// NewBackendFromConfig creates a Backend implementation based on the
// backend config type.
func NewBackendFromConfig(cfg config.BackendConfig) (drives.Backend, error) {
	switch cfg.Type {
	case "stub", "":
		return NewStub(), nil
	case "system":
		return nil, fmt.Errorf("system backend not yet implemented")
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
