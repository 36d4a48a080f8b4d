package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Session is the logged-in user context. It is an explicit artifact on
// disk: established by login, consulted by credential-scoped commands, and
// destroyed by logout. Credential access without a session is an error,
// not an implicit anonymous scope.
type Session struct {
	UserID   string `toml:"user_id"`
	Username string `toml:"username"`
	Token    string `toml:"token"`
}

func sessionPath(baseDir string) string {
	return filepath.Join(baseDir, "session.toml")
}

// LoadSession reads the session artifact. Returns (nil, nil) when no
// session exists.
func LoadSession(baseDir string) (*Session, error) {
	path := sessionPath(baseDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var s Session
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}

// SaveSession writes the session artifact with owner-only permissions.
func SaveSession(baseDir string, s *Session) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return fmt.Errorf("creating base directory: %w", err)
	}

	f, err := os.OpenFile(sessionPath(baseDir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return nil
}

// ClearSession removes the session artifact. Clearing a non-existent
// session is not an error.
func ClearSession(baseDir string) error {
	err := os.Remove(sessionPath(baseDir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
