package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSession(t *testing.T) {
	t.Run("load without a session returns nil", func(t *testing.T) {
		s, err := LoadSession(t.TempDir())
		if err != nil {
			t.Fatalf("LoadSession: %v", err)
		}
		if s != nil {
			t.Errorf("got session %+v, want nil", s)
		}
	})

	t.Run("save then load round trips", func(t *testing.T) {
		dir := t.TempDir()
		want := &Session{UserID: "user-1", Username: "alex", Token: "tok"}

		if err := SaveSession(dir, want); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}

		got, err := LoadSession(dir)
		if err != nil {
			t.Fatalf("LoadSession: %v", err)
		}
		if got == nil || got.UserID != want.UserID || got.Username != want.Username || got.Token != want.Token {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("session file is owner-only", func(t *testing.T) {
		dir := t.TempDir()
		if err := SaveSession(dir, &Session{UserID: "u"}); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}

		info, err := os.Stat(filepath.Join(dir, "session.toml"))
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("permissions = %o, want 0600", perm)
		}
	})

	t.Run("clear removes the session", func(t *testing.T) {
		dir := t.TempDir()
		SaveSession(dir, &Session{UserID: "u"})

		if err := ClearSession(dir); err != nil {
			t.Fatalf("ClearSession: %v", err)
		}
		if s, _ := LoadSession(dir); s != nil {
			t.Error("session survived clear")
		}
	})

	t.Run("clearing a missing session is not an error", func(t *testing.T) {
		if err := ClearSession(t.TempDir()); err != nil {
			t.Errorf("ClearSession: %v", err)
		}
	})
}
