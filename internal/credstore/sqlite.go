package credstore

import (
	"database/sql"
	"errors"
	"fmt"

	"drivevault/internal/drives"
)

// SQLiteVault implements drives.CredentialVault on the drive_credentials
// table. Password values pass through a SecretEncryptor before touching
// disk and are decrypted only on Get; List never loads them.
type SQLiteVault struct {
	db    *sql.DB
	enc   drives.SecretEncryptor
	clock drives.Clock
	idgen drives.IDGenerator
}

var _ drives.CredentialVault = (*SQLiteVault)(nil)

// NewSQLiteVault wraps an existing connection (normally the Store's, so
// credentials live in the same database file as trust levels).
func NewSQLiteVault(db *sql.DB, enc drives.SecretEncryptor, clock drives.Clock, idgen drives.IDGenerator) *SQLiteVault {
	if clock == nil {
		clock = drives.RealClock{}
	}
	if idgen == nil {
		idgen = drives.UUIDGenerator{}
	}
	return &SQLiteVault{db: db, enc: enc, clock: clock, idgen: idgen}
}

// Save stores or replaces the credential for (userID, DriveID). The UNIQUE
// constraint on (user_id, drive_id) makes INSERT OR REPLACE an upsert.
func (v *SQLiteVault) Save(userID string, req drives.SaveCredentialRequest) error {
	encrypted, err := v.enc.EncryptString(req.Password)
	if err != nil {
		return fmt.Errorf("encrypting password: %w", err)
	}

	now := v.clock.Now()
	_, err = v.db.Exec(
		`INSERT OR REPLACE INTO drive_credentials
		 (id, user_id, drive_id, device_path, drive_label, encrypted_password, password_hint, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.idgen.New(), userID, req.DriveID, req.DevicePath, req.DriveLabel,
		encrypted, req.PasswordHint, now, now,
	)
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// Get returns the decrypted password for (userID, driveID) and bumps
// last_used. A missing entry is ("", false, nil); the bump is best-effort
// and never fails the lookup.
func (v *SQLiteVault) Get(userID, driveID string) (string, bool, error) {
	var encrypted string
	err := v.db.QueryRow(
		"SELECT encrypted_password FROM drive_credentials WHERE user_id = ? AND drive_id = ?",
		userID, driveID,
	).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading credential: %w", err)
	}

	password, err := v.enc.DecryptString(encrypted)
	if err != nil {
		return "", false, fmt.Errorf("decrypting credential: %w", err)
	}

	// last_used is advisory metadata.
	_, _ = v.db.Exec(
		"UPDATE drive_credentials SET last_used = ? WHERE user_id = ? AND drive_id = ?",
		v.clock.Now(), userID, driveID,
	)

	return password, true, nil
}

// List returns credential metadata for a user, most recently updated
// first. Password values are never included.
func (v *SQLiteVault) List(userID string) ([]drives.CachedCredential, error) {
	rows, err := v.db.Query(
		`SELECT id, user_id, drive_id, device_path, drive_label, password_hint, created_at, updated_at, last_used
		 FROM drive_credentials WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var result []drives.CachedCredential
	for rows.Next() {
		var (
			c        drives.CachedCredential
			lastUsed sql.NullTime
		)
		err := rows.Scan(&c.ID, &c.UserID, &c.DriveID, &c.DevicePath, &c.DriveLabel,
			&c.PasswordHint, &c.CreatedAt, &c.UpdatedAt, &lastUsed)
		if err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			c.LastUsed = &t
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}
	return result, nil
}

func (v *SQLiteVault) Delete(userID, driveID string) error {
	res, err := v.db.Exec(
		"DELETE FROM drive_credentials WHERE user_id = ? AND drive_id = ?",
		userID, driveID,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("credential not found for drive %s", driveID)
	}
	return nil
}

func (v *SQLiteVault) UpdateHint(userID, driveID, hint string) error {
	res, err := v.db.Exec(
		"UPDATE drive_credentials SET password_hint = ?, updated_at = ? WHERE user_id = ? AND drive_id = ?",
		hint, v.clock.Now(), userID, driveID,
	)
	if err != nil {
		return fmt.Errorf("updating credential hint: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("credential not found for drive %s", driveID)
	}
	return nil
}
