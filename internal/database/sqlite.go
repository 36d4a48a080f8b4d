package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"drivevault/internal/database/migrations"
	"drivevault/internal/drives"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation is one audit record of a controller command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store implements drive persistence on SQLite: trust levels, backup
// bookkeeping and the operation audit trail. The credential tables share
// the same connection through DB().
type Store struct {
	db    *sql.DB
	clock drives.Clock
	idgen drives.IDGenerator
	path  string
}

var _ drives.DriveStore = (*Store)(nil)

// NewStore opens a SQLite store at path (":memory:" for in-memory) and
// runs any pending migrations.
func NewStore(path string, clock drives.Clock, idgen drives.IDGenerator) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	if clock == nil {
		clock = drives.RealClock{}
	}
	if idgen == nil {
		idgen = drives.UUIDGenerator{}
	}

	return &Store{db: db, clock: clock, idgen: idgen, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// appropriate PRAGMAs. Exported for tests that need a raw configured
// connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite ships with foreign keys OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Trust levels

func (s *Store) TrustLevel(driveID string) (drives.TrustLevel, bool, error) {
	var level string
	err := s.db.QueryRow("SELECT trust_level FROM usb_drives WHERE id = ?", driveID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading trust level: %w", err)
	}

	parsed, err := drives.ParseTrustLevel(level)
	if err != nil {
		return "", false, fmt.Errorf("stored trust level for %s: %w", driveID, err)
	}
	return parsed, true, nil
}

func (s *Store) SetTrustLevel(driveID string, level drives.TrustLevel) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO usb_drives (id, trust_level, updated_at) VALUES (?, ?, ?)",
		driveID, string(level), s.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("storing trust level: %w", err)
	}
	return nil
}

// Backup bookkeeping

func (s *Store) BackupStats(driveID string) (int, *time.Time, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM drive_backups WHERE drive_id = ?", driveID,
	).Scan(&count)
	if err != nil {
		return 0, nil, fmt.Errorf("counting backups: %w", err)
	}
	if count == 0 {
		return 0, nil, nil
	}

	// MAX(created_at) loses the column's declared type and comes back as a
	// bare string, so the newest row is read directly.
	var last time.Time
	err = s.db.QueryRow(
		"SELECT created_at FROM drive_backups WHERE drive_id = ? ORDER BY created_at DESC LIMIT 1", driveID,
	).Scan(&last)
	if err != nil {
		return 0, nil, fmt.Errorf("reading last backup time: %w", err)
	}
	return count, &last, nil
}

func (s *Store) RecordBackup(driveID string, sizeBytes uint64, checksum string) error {
	_, err := s.db.Exec(
		"INSERT INTO drive_backups (id, drive_id, size_bytes, checksum, created_at) VALUES (?, ?, ?, ?, ?)",
		s.idgen.New(), driveID, int64(sizeBytes), checksum, s.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("recording backup: %w", err)
	}
	return nil
}

// Operation audit

func (s *Store) CreateOperation(operation, parameters string) (*Operation, error) {
	now := s.clock.Now()
	res, err := s.db.Exec(
		"INSERT INTO operations (operation, parameters, status, started_at) VALUES (?, ?, 'started', ?)",
		operation, parameters, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}

	return &Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		Status:     "started",
		StartedAt:  now,
	}, nil
}

func (s *Store) FinishOperation(id int64, status string) error {
	_, err := s.db.Exec(
		"UPDATE operations SET status = ?, finished_at = ? WHERE id = ?",
		status, s.clock.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *Store) ListOperations(limit int) ([]*Operation, error) {
	rows, err := s.db.Query(
		"SELECT id, operation, parameters, status, started_at, finished_at FROM operations ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var result []*Operation
	for rows.Next() {
		var (
			op       Operation
			finished sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		result = append(result, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operations: %w", err)
	}
	return result, nil
}

// DB exposes the underlying connection so other stores (credentials) can
// share it.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path (":memory:" for in-memory stores).
func (s *Store) Path() string { return s.path }

// CheckMigrations verifies the schema is up-to-date.
func (s *Store) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
