package app

import (
	"context"
	"testing"

	"drivevault/internal/backend"
	"drivevault/internal/credstore"
	"drivevault/internal/database"
	"drivevault/internal/drives"
	"drivevault/internal/encryption"
)

// newTestApp wires an App around an in-memory store and a stub backend
// carrying one encrypted drive unlockable with "correct-pw".
func newTestApp(t *testing.T, session *Session) (*App, *backend.Stub) {
	t.Helper()

	store, err := database.NewStore(":memory:", nil, nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	stub := backend.NewEmptyStub()
	stub.AddDevice(drives.Device{
		ID:         "usb_sdb1",
		DevicePath: "/dev/sdb1",
		Filesystem: drives.FilesystemLUKS,
		Label:      "Backup",
		TrustLevel: drives.TrustUntrusted,
	})
	stub.SetPassphrase("usb_sdb1", "correct-pw")

	logger := drives.NewNopLogger()
	vault := credstore.NewSQLiteVault(store.DB(), encryption.NewTestSecretEncryptor(), nil, nil)

	a := &App{
		store:     store,
		vault:     vault,
		registry:  drives.NewRegistry(stub, store, logger),
		mounter:   drives.NewMountOrchestrator(stub, vault, logger),
		formatter: drives.NewFormatOrchestrator(stub, vault, store, logger),
		session:   session,
		logger:    logger,
		op:        NewControllerOperation("Test", ""),
	}
	return a, stub
}

func failingPrompt(t *testing.T) PasswordPrompt {
	return PasswordPrompt{
		ReadPassword: func(string) (string, error) {
			t.Fatal("prompt used when the cached credential should have sufficed")
			return "", nil
		},
	}
}

func TestApp_UnlockDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("cached credential skips the prompt", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})
		a.vault.Save("user-1", drives.SaveCredentialRequest{DriveID: "usb_sdb1", Password: "correct-pw"})

		outcome, err := a.UnlockDevice(ctx, "/dev/sdb1", "", failingPrompt(t))
		if err != nil {
			t.Fatalf("UnlockDevice: %v", err)
		}
		if !outcome.Success {
			t.Fatalf("unlock failed: %s (%s)", outcome.Message, outcome.Code)
		}
	})

	t.Run("missing credential falls back to the prompt silently", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})

		prompted := false
		outcome, err := a.UnlockDevice(ctx, "usb_sdb1", "", PasswordPrompt{
			ReadPassword: func(string) (string, error) {
				prompted = true
				return "correct-pw", nil
			},
		})
		if err != nil {
			t.Fatalf("UnlockDevice: %v", err)
		}
		if !outcome.Success {
			t.Fatalf("unlock failed: %s (%s)", outcome.Message, outcome.Code)
		}
		if !prompted {
			t.Error("prompt never consulted")
		}
	})

	t.Run("stale credential falls back to the prompt", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})
		a.vault.Save("user-1", drives.SaveCredentialRequest{DriveID: "usb_sdb1", Password: "old-pw"})

		outcome, err := a.UnlockDevice(ctx, "usb_sdb1", "", PasswordPrompt{
			ReadPassword: func(string) (string, error) { return "correct-pw", nil },
		})
		if err != nil {
			t.Fatalf("UnlockDevice: %v", err)
		}
		if !outcome.Success {
			t.Fatalf("unlock failed: %s (%s)", outcome.Message, outcome.Code)
		}
	})

	t.Run("opt-in save caches the credential after manual unlock", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})

		outcome, err := a.UnlockDevice(ctx, "usb_sdb1", "", PasswordPrompt{
			ReadPassword: func(string) (string, error) { return "correct-pw", nil },
			ConfirmSave:  func() (bool, string, error) { return true, "my hint", nil },
		})
		if err != nil || !outcome.Success {
			t.Fatalf("unlock failed: %v %s", err, outcome.Message)
		}

		pw, ok, err := a.vault.Get("user-1", "usb_sdb1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !ok || pw != "correct-pw" {
			t.Errorf("credential not cached: ok=%v pw=%q", ok, pw)
		}
	})

	t.Run("declined save leaves no credential", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})

		outcome, err := a.UnlockDevice(ctx, "usb_sdb1", "", PasswordPrompt{
			ReadPassword: func(string) (string, error) { return "correct-pw", nil },
			ConfirmSave:  func() (bool, string, error) { return false, "", nil },
		})
		if err != nil || !outcome.Success {
			t.Fatalf("unlock failed: %v %s", err, outcome.Message)
		}

		if _, ok, _ := a.vault.Get("user-1", "usb_sdb1"); ok {
			t.Error("credential cached without consent")
		}
	})

	t.Run("failed manual unlock never saves", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})

		outcome, err := a.UnlockDevice(ctx, "usb_sdb1", "", PasswordPrompt{
			ReadPassword: func(string) (string, error) { return "wrong-pw", nil },
			ConfirmSave: func() (bool, string, error) {
				t.Fatal("save offered after a failed unlock")
				return false, "", nil
			},
		})
		if err != nil {
			t.Fatalf("UnlockDevice: %v", err)
		}
		if outcome.Success {
			t.Fatal("wrong password succeeded")
		}
		if outcome.Code != drives.CodeInvalidPassword {
			t.Errorf("Code = %q, want %q", outcome.Code, drives.CodeInvalidPassword)
		}
	})

	t.Run("no session goes straight to the prompt", func(t *testing.T) {
		a, _ := newTestApp(t, nil)

		outcome, err := a.UnlockDevice(ctx, "usb_sdb1", "", PasswordPrompt{
			ReadPassword: func(string) (string, error) { return "correct-pw", nil },
		})
		if err != nil || !outcome.Success {
			t.Fatalf("unlock failed: %v %s", err, outcome.Message)
		}
	})

	t.Run("no prompt available reports NO_STORED_PASSWORD", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})

		outcome, err := a.UnlockDevice(ctx, "usb_sdb1", "", PasswordPrompt{})
		if err != nil {
			t.Fatalf("UnlockDevice: %v", err)
		}
		if outcome.Success {
			t.Fatal("unexpected success")
		}
		if outcome.Code != drives.CodeNoStoredPassword {
			t.Errorf("Code = %q, want %q", outcome.Code, drives.CodeNoStoredPassword)
		}
	})
}

func TestApp_FormatDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("password mismatch rejected before anything runs", func(t *testing.T) {
		a, stub := newTestApp(t, &Session{UserID: "user-1"})
		a.formatter.SetClearDelay(0)

		outcome, err := a.FormatDevice(ctx, "usb_sdb1", "one", "two", "Renamed", nil)
		if err != nil {
			t.Fatalf("FormatDevice: %v", err)
		}
		if outcome.Success {
			t.Fatal("mismatched passwords accepted")
		}

		d, _ := stub.GetDeviceDetails(ctx, "usb_sdb1")
		if d.Label != "Backup" {
			t.Error("device touched despite mismatch")
		}
	})

	t.Run("session user gets the credential after format", func(t *testing.T) {
		a, _ := newTestApp(t, &Session{UserID: "user-1"})
		a.formatter.SetClearDelay(0)

		outcome, err := a.FormatDevice(ctx, "usb_sdb1", "new-pw", "new-pw", "Fresh", nil)
		if err != nil {
			t.Fatalf("FormatDevice: %v", err)
		}
		if !outcome.Success {
			t.Fatalf("format failed: %s", outcome.Message)
		}

		pw, ok, _ := a.vault.Get("user-1", "usb_sdb1")
		if !ok || pw != "new-pw" {
			t.Errorf("credential not cached after format: ok=%v pw=%q", ok, pw)
		}
	})
}
