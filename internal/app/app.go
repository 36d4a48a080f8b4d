package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"drivevault/internal/backend"
	"drivevault/internal/config"
	"drivevault/internal/credstore"
	"drivevault/internal/database"
	"drivevault/internal/drives"
	"drivevault/internal/encryption"
	"drivevault/internal/password"
)

// App is the application layer between the CLI and the drive
// orchestrators. It constructs all dependencies from config, exposes
// high-level operations that accept raw device paths or IDs, and manages
// the DB lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     *database.Store
	vault     drives.CredentialVault
	registry  *drives.Registry
	mounter   *drives.MountOrchestrator
	formatter *drives.FormatOrchestrator
	generator *password.Generator
	session   *Session
	logger    drives.Logger
	op        *ControllerOperation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Mount", "Format"). The
// caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	store, err := database.NewStoreFromConfig(cfg.Database, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := store.CheckMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	enc, err := encryption.NewSecretEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	be, err := backend.NewBackendFromConfig(cfg.Backend)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating backend: %w", err)
	}

	session, err := LoadSession(cfg.BaseDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	vault := credstore.NewSQLiteVault(store.DB(), enc, nil, nil)

	return &App{
		cfg:       cfg,
		store:     store,
		vault:     vault,
		registry:  drives.NewRegistry(be, store, logger),
		mounter:   drives.NewMountOrchestrator(be, vault, logger),
		formatter: drives.NewFormatOrchestrator(be, vault, store, logger),
		generator: password.NewGenerator(),
		session:   session,
		logger:    logger,
		op:        NewControllerOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// Session returns the active session, or nil when logged out.
func (a *App) Session() *Session { return a.session }

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. Only called for mutating commands.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.store.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// SetOperationParameters records the command's arguments on the audit
// record before it is persisted.
func (a *App) SetOperationParameters(params string) {
	a.op.Parameters = params
}

// userID returns the session's user, or an error for credential-scoped
// commands run while logged out.
func (a *App) userID() (string, error) {
	if a.session == nil {
		return "", fmt.Errorf("not logged in (run 'drivevault session login')")
	}
	return a.session.UserID, nil
}

// Device inventory

func (a *App) ListDevices(ctx context.Context) ([]drives.Device, error) {
	return a.registry.ListCached(ctx)
}

func (a *App) RescanDevices(ctx context.Context) ([]drives.Device, error) {
	return a.registry.Rescan(ctx)
}

func (a *App) ShowDevice(ctx context.Context, pathOrID string) (drives.Device, error) {
	return a.registry.GetDetails(ctx, pathOrID)
}

// Mounting

// MountDevice mounts an unencrypted device.
func (a *App) MountDevice(ctx context.Context, pathOrID, mountPoint string) (drives.MountOutcome, error) {
	if err := a.persistOperation(); err != nil {
		return drives.MountOutcome{}, err
	}
	return a.mounter.Mount(ctx, pathOrID, mountPoint), nil
}

// PasswordPrompt supplies interactive input for UnlockDevice. ReadPassword
// is required; ConfirmSave is optional and, when set, is consulted after a
// successful manual unlock to offer caching the credential.
type PasswordPrompt struct {
	ReadPassword func(reason string) (string, error)
	ConfirmSave  func() (save bool, hint string, err error)
}

// UnlockDevice mounts an encrypted device, trying the cached credential
// first when a session exists. A missing credential falls back to the
// prompt silently; a stale credential falls back with a logged warning.
// Saving after a successful manual unlock is strictly opt-in, and a save
// failure never degrades the successful mount.
func (a *App) UnlockDevice(ctx context.Context, pathOrID, mountPoint string, prompt PasswordPrompt) (drives.MountOutcome, error) {
	if err := a.persistOperation(); err != nil {
		return drives.MountOutcome{}, err
	}

	id := drives.CanonicalDeviceID(pathOrID)

	if a.session != nil {
		outcome := a.mounter.MountEncryptedAuto(ctx, a.session.UserID, id, mountPoint)
		if outcome.Success {
			return outcome, nil
		}
		switch outcome.Code {
		case drives.CodeNoStoredPassword:
			// No cached credential: fall through to the prompt without
			// surfacing an error.
		case drives.CodeInvalidPassword:
			a.logger.Warn("cached credential no longer unlocks drive", "drive", id)
		default:
			return outcome, nil
		}
	}

	if prompt.ReadPassword == nil {
		return drives.MountOutcome{
			Success: false,
			Message: "No stored password for drive " + id,
			Code:    drives.CodeNoStoredPassword,
		}, nil
	}

	pw, err := prompt.ReadPassword("Password for " + id)
	if err != nil {
		return drives.MountOutcome{}, fmt.Errorf("reading password: %w", err)
	}

	outcome := a.mounter.MountEncrypted(ctx, id, pw, mountPoint)
	if !outcome.Success {
		return outcome, nil
	}

	if a.session != nil && prompt.ConfirmSave != nil {
		save, hint, err := prompt.ConfirmSave()
		if err != nil {
			a.logger.Warn("credential save prompt failed", "drive", id, "error", err)
			return outcome, nil
		}
		if save {
			saveErr := a.vault.Save(a.session.UserID, drives.SaveCredentialRequest{
				DriveID:      id,
				DevicePath:   drives.DevicePath(id),
				PasswordHint: hint,
				Password:     pw,
			})
			if saveErr != nil {
				a.logger.Warn("saving credential after unlock", "drive", id, "error", saveErr)
			}
		}
	}

	return outcome, nil
}

// UnmountDevice detaches the device.
func (a *App) UnmountDevice(ctx context.Context, pathOrID string) (drives.MountOutcome, error) {
	if err := a.persistOperation(); err != nil {
		return drives.MountOutcome{}, err
	}
	return a.mounter.Unmount(ctx, pathOrID), nil
}

// Formatting

// FormatDevice runs the destructive format-and-encrypt workflow. password
// and confirm must match. When logged in, the new credential is cached
// for the session user after success.
func (a *App) FormatDevice(ctx context.Context, pathOrID, pw, confirm, driveName string, observe func(drives.FormatJob)) (drives.FormatOutcome, error) {
	if pw != confirm {
		return drives.FormatOutcome{Success: false, Message: "passwords do not match"}, nil
	}
	if err := a.persistOperation(); err != nil {
		return drives.FormatOutcome{}, err
	}

	userID := ""
	if a.session != nil {
		userID = a.session.UserID
	}
	return a.formatter.Run(ctx, pathOrID, pw, driveName, userID, observe), nil
}

// CurrentFormatJob returns the format progress tracker snapshot.
func (a *App) CurrentFormatJob() drives.FormatJob {
	return a.formatter.CurrentJob()
}

// Trust

// SetTrust applies a UI-level trust setting to a device.
func (a *App) SetTrust(ctx context.Context, pathOrID string, level drives.UITrustLevel) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.registry.SetTrust(ctx, pathOrID, drives.BackendTrust(level))
}

// Credentials

func (a *App) ListCredentials() ([]drives.CachedCredential, error) {
	userID, err := a.userID()
	if err != nil {
		return nil, err
	}
	return a.vault.List(userID)
}

func (a *App) ForgetCredential(pathOrID string) error {
	userID, err := a.userID()
	if err != nil {
		return err
	}
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.vault.Delete(userID, drives.CanonicalDeviceID(pathOrID))
}

func (a *App) UpdateCredentialHint(pathOrID, hint string) error {
	userID, err := a.userID()
	if err != nil {
		return err
	}
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.vault.UpdateHint(userID, drives.CanonicalDeviceID(pathOrID), hint)
}

// Backups

// RecordBackup notes that a backup landed on the drive, feeding the
// backup count and last-backup time shown in device details.
func (a *App) RecordBackup(pathOrID string, sizeBytes uint64, checksum string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.store.RecordBackup(drives.CanonicalDeviceID(pathOrID), sizeBytes, checksum)
}

// BackupStats returns the recorded backup count and most recent time.
func (a *App) BackupStats(pathOrID string) (int, *time.Time, error) {
	return a.store.BackupStats(drives.CanonicalDeviceID(pathOrID))
}

// Passwords

func (a *App) GeneratePassword(policy password.Policy) (password.Result, error) {
	return a.generator.Generate(policy)
}

// History

func (a *App) History(limit int) ([]*database.Operation, error) {
	return a.store.ListOperations(limit)
}

// MarkFailed records that the command failed before Close writes the
// audit record.
func (a *App) MarkFailed() { a.op.Status = "error" }

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.store.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
