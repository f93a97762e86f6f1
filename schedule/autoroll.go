// Package schedule decides when the automatic rollover is due and drives
// it from a periodic ticker.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arthur-debert/rollover/rollover"
	"github.com/arthur-debert/rollover/types"
)

// LastRunKey is the storage key holding the last automatic run time
const LastRunKey = "lastAutoRolloverTime"

// lastRunLayout is the storage format of LastRunKey
const lastRunLayout = time.RFC3339

// Roller is the part of the engine the scheduler drives
type Roller interface {
	Run(ctx context.Context) (*rollover.Result, error)
	Cleanup(ctx context.Context) (*rollover.CleanupResult, error)
}

var _ Roller = (*rollover.Engine)(nil)

// Reason explains a scheduling decision
type Reason string

const (
	ReasonBaseline    Reason = "baseline"     // no last run recorded; now stored, nothing run
	ReasonSameDay     Reason = "same-day"     // already ran on this calendar day
	ReasonNotDue      Reason = "not-due"      // configured time of day not reached
	ReasonInvalidTime Reason = "invalid-time" // configured time of day does not parse
	ReasonDue         Reason = "due"
	ReasonForced      Reason = "forced"
)

// Decision is the trace of one MaybeRun or Force call
type Decision struct {
	Now        time.Time               `json:"now" yaml:"now"`
	LastRun    time.Time               `json:"last_run,omitempty" yaml:"last_run,omitempty"`
	HasLastRun bool                    `json:"has_last_run" yaml:"has_last_run"`
	Target     string                  `json:"target" yaml:"target"`
	NextDay    bool                    `json:"next_day" yaml:"next_day"`
	Due        bool                    `json:"due" yaml:"due"`
	Reason     Reason                  `json:"reason" yaml:"reason"`
	Ran        bool                    `json:"ran" yaml:"ran"`
	Result     *rollover.Result        `json:"result,omitempty" yaml:"result,omitempty"`
	Cleanup    *rollover.CleanupResult `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
}

// AutoRoller gates the automatic run on a persisted last-run time and a
// configured time of day
type AutoRoller struct {
	roller   Roller
	storage  types.SyncedStorage
	settings types.SettingsSource
	logger   *slog.Logger
}

// NewAutoRoller creates an AutoRoller. A nil logger uses slog.Default.
func NewAutoRoller(roller Roller, storage types.SyncedStorage, settings types.SettingsSource, logger *slog.Logger) *AutoRoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoRoller{
		roller:   roller,
		storage:  storage,
		settings: settings,
		logger:   logger,
	}
}

// MaybeRun runs cleanup (portal mode only) and rollover when the last run
// was on an earlier calendar day and the configured time has been reached.
// The first call ever only records a baseline.
func (a *AutoRoller) MaybeRun(ctx context.Context, now time.Time) (*Decision, error) {
	settings, err := a.settings.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	d := &Decision{Now: now, Target: settings.AutoRolloverTime}
	defer a.trace(settings, d)

	tod, err := rollover.ParseTimeOfDay(settings.AutoRolloverTime)
	if err != nil {
		a.logger.Warn("skipping automatic rollover", "error", err)
		d.Reason = ReasonInvalidTime
		return d, nil
	}

	last, ok, err := a.LastRun(ctx)
	if err != nil {
		return d, err
	}
	if !ok {
		d.Reason = ReasonBaseline
		return d, a.record(ctx, now)
	}
	d.LastRun, d.HasLastRun = last, true

	d.NextDay = isNextDay(last, now)
	d.Due = rollover.IsDue(tod, now)
	switch {
	case !d.NextDay:
		d.Reason = ReasonSameDay
		return d, nil
	case !d.Due:
		d.Reason = ReasonNotDue
		return d, nil
	}

	d.Reason = ReasonDue
	return d, a.execute(ctx, settings, now, d)
}

// Force runs cleanup and rollover regardless of the day and time gate
func (a *AutoRoller) Force(ctx context.Context, now time.Time) (*Decision, error) {
	settings, err := a.settings.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	d := &Decision{Now: now, Target: settings.AutoRolloverTime, Reason: ReasonForced}
	defer a.trace(settings, d)

	if last, ok, err := a.LastRun(ctx); err == nil && ok {
		d.LastRun, d.HasLastRun = last, true
		d.NextDay = isNextDay(last, now)
	}
	if tod, err := rollover.ParseTimeOfDay(settings.AutoRolloverTime); err == nil {
		d.Due = rollover.IsDue(tod, now)
	}
	return d, a.execute(ctx, settings, now, d)
}

// LastRun returns the recorded last run time. An unparsable value is
// reported as absent so the next tick stores a fresh baseline.
func (a *AutoRoller) LastRun(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := a.storage.Get(ctx, LastRunKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read %s: %w", LastRunKey, err)
	}
	if !ok || raw == "" {
		return time.Time{}, false, nil
	}
	last, err := time.Parse(lastRunLayout, raw)
	if err != nil {
		a.logger.Warn("ignoring malformed last run time", "value", raw, "error", err)
		return time.Time{}, false, nil
	}
	return last, true, nil
}

// Bump moves the recorded last run back one day so the next due tick
// runs again today
func (a *AutoRoller) Bump(ctx context.Context, now time.Time) error {
	return a.record(ctx, now.AddDate(0, 0, -1))
}

func (a *AutoRoller) execute(ctx context.Context, settings types.Settings, now time.Time, d *Decision) error {
	var cleanupErr error
	if settings.PortalMode {
		res, err := a.roller.Cleanup(ctx)
		d.Cleanup = res
		if err != nil {
			// A failed cleanup does not hold back the rollover itself.
			a.logger.Error("cleanup failed, continuing with rollover", "error", err)
			cleanupErr = err
		}
	}

	res, err := a.roller.Run(ctx)
	d.Result = res
	if err != nil {
		return errors.Join(cleanupErr, err)
	}
	d.Ran = true

	// Soft aborts still advance the clock.
	return errors.Join(cleanupErr, a.record(ctx, now))
}

func (a *AutoRoller) record(ctx context.Context, at time.Time) error {
	if err := a.storage.Set(ctx, LastRunKey, at.Format(lastRunLayout)); err != nil {
		return fmt.Errorf("failed to store %s: %w", LastRunKey, err)
	}
	return nil
}

func (a *AutoRoller) trace(settings types.Settings, d *Decision) {
	if !settings.Debug {
		return
	}
	attrs := []any{
		"reason", d.Reason,
		"now", d.Now.Format(time.RFC3339),
		"target", d.Target,
		"next_day", d.NextDay,
		"due", d.Due,
		"ran", d.Ran,
	}
	if d.HasLastRun {
		attrs = append(attrs, "last_run", d.LastRun.Format(time.RFC3339))
	}
	if d.Result != nil {
		attrs = append(attrs, "aborted", d.Result.Aborted, "unfinished", d.Result.Unfinished)
	}
	a.logger.Info("automatic rollover decision", attrs...)
}

// isNextDay reports whether now falls on a later calendar day than last,
// in now's location
func isNextDay(last, now time.Time) bool {
	return !rollover.SameDay(last, now) && last.Before(now)
}
