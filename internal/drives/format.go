package drives

import (
	"context"
	"sync"
	"time"
)

const defaultJobClearDelay = 3 * time.Second

// FormatOrchestrator drives the staged format-and-encrypt workflow. It
// consumes the backend's progress stream, enforces monotonic progress,
// tracks a single observable job, and applies the post-success side
// effects (credential save, trust promotion) on a best-effort basis.
//
// One orchestrator tracks one job at a time. Starting a second job while
// the first is active overwrites the tracker; the backend streams are
// independent, so both still run to completion. Callers serialize.
type FormatOrchestrator struct {
	backend    Backend
	vault      CredentialVault
	store      DriveStore
	logger     Logger
	clearDelay time.Duration

	mu         sync.Mutex
	job        FormatJob
	generation int
}

func NewFormatOrchestrator(backend Backend, vault CredentialVault, store DriveStore, logger Logger) *FormatOrchestrator {
	return &FormatOrchestrator{
		backend:    backend,
		vault:      vault,
		store:      store,
		logger:     logger,
		clearDelay: defaultJobClearDelay,
	}
}

// SetClearDelay overrides how long a finished job stays visible before the
// tracker resets. Zero clears immediately.
func (f *FormatOrchestrator) SetClearDelay(d time.Duration) { f.clearDelay = d }

// CurrentJob returns a snapshot of the tracked job. Active is false when
// no job is running and the last one has been cleared.
func (f *FormatOrchestrator) CurrentJob() FormatJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.job
}

// Run formats and encrypts the device, blocking until the backend's event
// stream terminates. observe, when non-nil, is called with each job state
// change on the consuming goroutine.
//
// An empty password is rejected before anything touches the device. After
// a successful run the drive's credential is saved for userID and the
// drive is promoted to trusted; failures of those side effects are logged
// and never revoke the success.
func (f *FormatOrchestrator) Run(ctx context.Context, pathOrID, password, driveName, userID string, observe func(FormatJob)) FormatOutcome {
	id := CanonicalDeviceID(pathOrID)

	if password == "" {
		return FormatOutcome{Success: false, Message: "password must not be empty"}
	}

	events, err := f.backend.FormatAndEncrypt(ctx, id, password, driveName)
	if err != nil {
		code := ClassifyError(err)
		f.logger.Warn("format start failed", "drive", id, "code", string(code), "error", err)
		return FormatOutcome{Success: false, Message: err.Error(), Code: code, Details: err.Error()}
	}

	gen := f.beginJob(id)
	f.logger.Info("format started", "drive", id, "label", driveName)

	var (
		lastPercent int
		failed      bool
		failMessage string
		completed   bool
	)

	for event := range events {
		if event.Stage == StageError {
			failed = true
			failMessage = event.Message
			f.updateJob(gen, FormatJob{Stage: StageError, Percent: lastPercent, Message: event.Message, Active: true}, observe)
			continue
		}

		percent := event.Percent
		if percent < lastPercent {
			percent = lastPercent
		}
		lastPercent = percent

		if event.Stage == StageComplete {
			completed = true
		}

		f.updateJob(gen, FormatJob{Stage: event.Stage, Percent: percent, Message: event.Message, Active: true}, observe)
	}

	defer f.scheduleClear(gen)

	if failed || !completed {
		msg := failMessage
		if msg == "" {
			msg = "format ended before completion"
		}
		code := Classify(msg)
		f.logger.Error("format failed", "drive", id, "percent", lastPercent, "code", string(code))
		f.finishJob(gen, StageError, lastPercent, msg, observe)
		return FormatOutcome{Success: false, Message: msg, Code: code, Details: msg, Percent: lastPercent}
	}

	f.finishJob(gen, StageComplete, 100, "Format complete", observe)
	f.logger.Info("format complete", "drive", id)

	f.applySideEffects(ctx, id, password, driveName, userID)

	return FormatOutcome{Success: true, Message: "Drive formatted and encrypted successfully", Percent: 100}
}

// applySideEffects runs the post-success bookkeeping. Each step is
// independent and best-effort: the format already succeeded, and a
// bookkeeping failure must not turn it into a reported failure.
func (f *FormatOrchestrator) applySideEffects(ctx context.Context, id, password, driveName, userID string) {
	if userID != "" {
		err := f.vault.Save(userID, SaveCredentialRequest{
			DriveID:    id,
			DevicePath: DevicePath(id),
			DriveLabel: driveName,
			Password:   password,
		})
		if err != nil {
			f.logger.Warn("saving credential after format", "drive", id, "error", err)
		}
	}

	if err := f.backend.SetTrust(ctx, id, TrustTrusted); err != nil {
		f.logger.Warn("promoting backend trust after format", "drive", id, "error", err)
	}
	if err := f.store.SetTrustLevel(id, TrustTrusted); err != nil {
		f.logger.Warn("persisting trust after format", "drive", id, "error", err)
	}
}

func (f *FormatOrchestrator) beginJob(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.job = FormatJob{Stage: StageInitializing, Percent: 0, Message: "Starting format of " + id, Active: true}
	return f.generation
}

func (f *FormatOrchestrator) updateJob(gen int, job FormatJob, observe func(FormatJob)) {
	f.mu.Lock()
	if gen == f.generation {
		f.job = job
	}
	f.mu.Unlock()
	if observe != nil {
		observe(job)
	}
}

func (f *FormatOrchestrator) finishJob(gen int, stage string, percent int, msg string, observe func(FormatJob)) {
	f.updateJob(gen, FormatJob{Stage: stage, Percent: percent, Message: msg, Active: false}, observe)
}

// scheduleClear resets the tracker after the configured delay, unless a
// newer job has taken over in the meantime.
func (f *FormatOrchestrator) scheduleClear(gen int) {
	clear := func() {
		f.mu.Lock()
		if gen == f.generation {
			f.job = FormatJob{}
		}
		f.mu.Unlock()
	}
	if f.clearDelay <= 0 {
		clear()
		return
	}
	time.AfterFunc(f.clearDelay, clear)
}
