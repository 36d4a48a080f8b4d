package drives_test

import (
	"fmt"
	"sync"
	"time"

	"drivevault/internal/drives"
)

// memStore is an in-memory DriveStore for orchestrator tests.
type memStore struct {
	mu       sync.Mutex
	trust    map[string]drives.TrustLevel
	backups  map[string][]time.Time
	trustErr error
}

func newMemStore() *memStore {
	return &memStore{
		trust:   make(map[string]drives.TrustLevel),
		backups: make(map[string][]time.Time),
	}
}

func (s *memStore) TrustLevel(driveID string) (drives.TrustLevel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	level, ok := s.trust[driveID]
	return level, ok, nil
}

func (s *memStore) SetTrustLevel(driveID string, level drives.TrustLevel) error {
	if s.trustErr != nil {
		return s.trustErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trust[driveID] = level
	return nil
}

func (s *memStore) BackupStats(driveID string) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	times := s.backups[driveID]
	if len(times) == 0 {
		return 0, nil, nil
	}
	last := times[len(times)-1]
	return len(times), &last, nil
}

func (s *memStore) RecordBackup(driveID string, sizeBytes uint64, checksum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups[driveID] = append(s.backups[driveID], time.Now())
	return nil
}

// memVault is an in-memory CredentialVault for orchestrator tests.
type memVault struct {
	mu      sync.Mutex
	entries map[string]drives.SaveCredentialRequest // key: userID + "/" + driveID
	saveErr error
	getErr  error
}

func newMemVault() *memVault {
	return &memVault{entries: make(map[string]drives.SaveCredentialRequest)}
}

func (v *memVault) key(userID, driveID string) string { return userID + "/" + driveID }

func (v *memVault) Save(userID string, req drives.SaveCredentialRequest) error {
	if v.saveErr != nil {
		return v.saveErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[v.key(userID, req.DriveID)] = req
	return nil
}

func (v *memVault) Get(userID, driveID string) (string, bool, error) {
	if v.getErr != nil {
		return "", false, v.getErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	req, ok := v.entries[v.key(userID, driveID)]
	if !ok {
		return "", false, nil
	}
	return req.Password, true, nil
}

func (v *memVault) List(userID string) ([]drives.CachedCredential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []drives.CachedCredential
	for _, req := range v.entries {
		out = append(out, drives.CachedCredential{UserID: userID, DriveID: req.DriveID, DriveLabel: req.DriveLabel})
	}
	return out, nil
}

func (v *memVault) Delete(userID, driveID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := v.key(userID, driveID)
	if _, ok := v.entries[key]; !ok {
		return fmt.Errorf("credential not found for drive %s", driveID)
	}
	delete(v.entries, key)
	return nil
}

func (v *memVault) UpdateHint(userID, driveID, hint string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := v.key(userID, driveID)
	req, ok := v.entries[key]
	if !ok {
		return fmt.Errorf("credential not found for drive %s", driveID)
	}
	req.PasswordHint = hint
	v.entries[key] = req
	return nil
}
