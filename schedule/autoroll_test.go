package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/rollover/rollover"
	"github.com/arthur-debert/rollover/store"
	"github.com/arthur-debert/rollover/types"
)

type fakeRoller struct {
	mu       sync.Mutex
	runs     int
	cleanups int
	runErr     error
	cleanupErr error
	aborted    rollover.AbortReason
}

func (f *fakeRoller) Run(ctx context.Context) (*rollover.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return &rollover.Result{Aborted: f.aborted}, f.runErr
}

func (f *fakeRoller) Cleanup(ctx context.Context) (*rollover.CleanupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return &rollover.CleanupResult{}, f.cleanupErr
}

func (f *fakeRoller) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs, f.cleanups
}

func settingsAt(tod string, portal bool) types.StaticSettings {
	s := types.DefaultSettings()
	s.AutoRolloverTime = tod
	s.PortalMode = portal
	return types.StaticSettings(s)
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, time.Local)
}

func seedLastRun(t *testing.T, state types.SyncedStorage, when time.Time) {
	t.Helper()
	if err := state.Set(context.Background(), LastRunKey, when.Format(time.RFC3339)); err != nil {
		t.Fatalf("Failed to seed last run: %v", err)
	}
}

func TestMaybeRunFirstActivationRecordsBaseline(t *testing.T) {
	ctx := context.Background()
	roller := &fakeRoller{}
	state := store.NewMemState()
	auto := NewAutoRoller(roller, state, settingsAt("00:00", false), nil)

	now := at(10, 12, 0)
	d, err := auto.MaybeRun(ctx, now)
	if err != nil {
		t.Fatalf("MaybeRun() error = %v", err)
	}
	if d.Reason != ReasonBaseline || d.Ran {
		t.Errorf("Expected baseline without run, got reason=%s ran=%v", d.Reason, d.Ran)
	}
	if runs, _ := roller.counts(); runs != 0 {
		t.Errorf("Expected no run on first activation, got %d", runs)
	}

	last, ok, err := auto.LastRun(ctx)
	if err != nil || !ok {
		t.Fatalf("Expected a stored baseline, got ok=%v err=%v", ok, err)
	}
	if !last.Equal(now) {
		t.Errorf("Expected baseline %v, got %v", now, last)
	}
}

func TestMaybeRunGate(t *testing.T) {
	tests := []struct {
		name    string
		lastRun time.Time
		now     time.Time
		target  string
		reason  Reason
		ran     bool
	}{
		{"same day after target", at(10, 8, 0), at(10, 23, 0), "09:30", ReasonSameDay, false},
		{"next day before target", at(9, 23, 0), at(10, 9, 29), "09:30", ReasonNotDue, false},
		{"next day at target", at(9, 23, 0), at(10, 9, 30), "09:30", ReasonDue, true},
		{"next day later hour earlier minute", at(9, 23, 0), at(10, 10, 0), "09:30", ReasonDue, true},
		{"same day of month in another month", at(10, 8, 0).AddDate(0, -1, 0), at(10, 12, 0), "09:30", ReasonDue, true},
		{"several days later", at(3, 8, 0), at(10, 12, 0), "09:30", ReasonDue, true},
		{"invalid target", at(9, 8, 0), at(10, 12, 0), "noon", ReasonInvalidTime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			roller := &fakeRoller{}
			state := store.NewMemState()
			seedLastRun(t, state, tt.lastRun)
			auto := NewAutoRoller(roller, state, settingsAt(tt.target, false), nil)

			d, err := auto.MaybeRun(ctx, tt.now)
			if err != nil {
				t.Fatalf("MaybeRun() error = %v", err)
			}
			if d.Reason != tt.reason {
				t.Errorf("Expected reason %s, got %s", tt.reason, d.Reason)
			}
			if d.Ran != tt.ran {
				t.Errorf("Expected ran=%v, got %v", tt.ran, d.Ran)
			}

			runs, _ := roller.counts()
			wantRuns := 0
			if tt.ran {
				wantRuns = 1
			}
			if runs != wantRuns {
				t.Errorf("Expected %d runs, got %d", wantRuns, runs)
			}

			last, _, _ := auto.LastRun(ctx)
			if tt.ran && !last.Equal(tt.now) {
				t.Errorf("Expected last run advanced to %v, got %v", tt.now, last)
			}
			if !tt.ran && !last.Equal(tt.lastRun) {
				t.Errorf("Expected last run unchanged at %v, got %v", tt.lastRun, last)
			}
		})
	}
}

func TestMaybeRunOncePerDay(t *testing.T) {
	ctx := context.Background()
	roller := &fakeRoller{}
	state := store.NewMemState()
	seedLastRun(t, state, at(9, 23, 0))
	auto := NewAutoRoller(roller, state, settingsAt("09:30", false), nil)

	for minute := 30; minute < 40; minute++ {
		if _, err := auto.MaybeRun(ctx, at(10, 9, minute)); err != nil {
			t.Fatalf("MaybeRun() error = %v", err)
		}
	}
	if runs, _ := roller.counts(); runs != 1 {
		t.Errorf("Expected exactly one run for the day, got %d", runs)
	}
}

func TestMaybeRunCleansUpInPortalMode(t *testing.T) {
	tests := []struct {
		name         string
		portal       bool
		wantCleanups int
	}{
		{"portal mode", true, 1},
		{"move mode", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roller := &fakeRoller{}
			state := store.NewMemState()
			seedLastRun(t, state, at(9, 8, 0))
			auto := NewAutoRoller(roller, state, settingsAt("00:00", tt.portal), nil)

			d, err := auto.MaybeRun(context.Background(), at(10, 8, 0))
			if err != nil {
				t.Fatalf("MaybeRun() error = %v", err)
			}
			runs, cleanups := roller.counts()
			if runs != 1 || cleanups != tt.wantCleanups {
				t.Errorf("Expected 1 run and %d cleanups, got %d and %d", tt.wantCleanups, runs, cleanups)
			}
			if tt.portal && d.Cleanup == nil {
				t.Error("Expected cleanup result in decision")
			}
		})
	}
}

func TestMaybeRunContinuesAfterCleanupFailure(t *testing.T) {
	ctx := context.Background()
	cleanupErr := errors.New("cleanup exploded")
	roller := &fakeRoller{cleanupErr: cleanupErr}
	state := store.NewMemState()
	seedLastRun(t, state, at(9, 8, 0))
	auto := NewAutoRoller(roller, state, settingsAt("00:00", true), nil)

	now := at(10, 8, 0)
	d, err := auto.MaybeRun(ctx, now)
	if !errors.Is(err, cleanupErr) {
		t.Fatalf("Expected cleanup error to be reported, got %v", err)
	}
	if runs, cleanups := roller.counts(); runs != 1 || cleanups != 1 {
		t.Errorf("Expected 1 run and 1 cleanup, got %d and %d", runs, cleanups)
	}
	if !d.Ran || d.Result == nil {
		t.Errorf("Expected the rollover to run despite cleanup failure, got %+v", d)
	}
	last, ok, err := auto.LastRun(ctx)
	if err != nil || !ok || !last.Equal(now) {
		t.Errorf("Expected last run %v, got %v (ok=%v, err=%v)", now, last, ok, err)
	}

	// Both failures surface when the rollover fails too.
	runErr := errors.New("run exploded")
	roller.runErr = runErr
	_, err = auto.Force(ctx, at(11, 8, 0))
	if !errors.Is(err, cleanupErr) || !errors.Is(err, runErr) {
		t.Errorf("Expected both errors, got %v", err)
	}
	if last, _, _ := auto.LastRun(ctx); !last.Equal(now) {
		t.Errorf("A failed run must not advance the clock, got %v", last)
	}
}

func TestMaybeRunAdvancesClockOnSoftAbort(t *testing.T) {
	ctx := context.Background()
	roller := &fakeRoller{aborted: rollover.AbortNoToday}
	state := store.NewMemState()
	seedLastRun(t, state, at(9, 8, 0))
	auto := NewAutoRoller(roller, state, settingsAt("00:00", false), nil)

	now := at(10, 8, 0)
	if _, err := auto.MaybeRun(ctx, now); err != nil {
		t.Fatalf("MaybeRun() error = %v", err)
	}
	last, _, _ := auto.LastRun(ctx)
	if !last.Equal(now) {
		t.Errorf("Expected last run %v after soft abort, got %v", now, last)
	}
}

func TestMaybeRunPropagatesRunError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("tree unavailable")
	roller := &fakeRoller{runErr: boom}
	state := store.NewMemState()
	lastRun := at(9, 8, 0)
	seedLastRun(t, state, lastRun)
	auto := NewAutoRoller(roller, state, settingsAt("00:00", false), nil)

	_, err := auto.MaybeRun(ctx, at(10, 8, 0))
	if !errors.Is(err, boom) {
		t.Fatalf("Expected run error, got %v", err)
	}
	last, _, _ := auto.LastRun(ctx)
	if !last.Equal(lastRun) {
		t.Errorf("Expected last run unchanged after failure, got %v", last)
	}
}

func TestForceBypassesGate(t *testing.T) {
	ctx := context.Background()
	roller := &fakeRoller{}
	state := store.NewMemState()
	seedLastRun(t, state, at(10, 8, 0))
	s := settingsAt("23:00", false)
	s.Debug = true
	auto := NewAutoRoller(roller, state, s, nil)

	now := at(10, 9, 0)
	d, err := auto.Force(ctx, now)
	if err != nil {
		t.Fatalf("Force() error = %v", err)
	}
	if d.Reason != ReasonForced || !d.Ran {
		t.Errorf("Expected forced run, got reason=%s ran=%v", d.Reason, d.Ran)
	}
	if d.NextDay || d.Due {
		t.Errorf("Expected trace to show gate closed, got next_day=%v due=%v", d.NextDay, d.Due)
	}
	if runs, _ := roller.counts(); runs != 1 {
		t.Errorf("Expected 1 run, got %d", runs)
	}
}

func TestBump(t *testing.T) {
	ctx := context.Background()
	roller := &fakeRoller{}
	state := store.NewMemState()
	auto := NewAutoRoller(roller, state, settingsAt("09:00", false), nil)

	now := at(10, 12, 0)
	seedLastRun(t, state, at(10, 9, 5))
	if err := auto.Bump(ctx, now); err != nil {
		t.Fatalf("Bump() error = %v", err)
	}

	d, err := auto.MaybeRun(ctx, now)
	if err != nil {
		t.Fatalf("MaybeRun() error = %v", err)
	}
	if !d.Ran {
		t.Errorf("Expected run after bump, got reason %s", d.Reason)
	}
}

func TestMalformedLastRunIsRebaselined(t *testing.T) {
	ctx := context.Background()
	roller := &fakeRoller{}
	state := store.NewMemState()
	if err := state.Set(ctx, LastRunKey, "Tue Mar 05 2024"); err != nil {
		t.Fatal(err)
	}
	auto := NewAutoRoller(roller, state, settingsAt("00:00", false), nil)

	d, err := auto.MaybeRun(ctx, at(10, 8, 0))
	if err != nil {
		t.Fatalf("MaybeRun() error = %v", err)
	}
	if d.Reason != ReasonBaseline {
		t.Errorf("Expected baseline, got %s", d.Reason)
	}
}

func TestIsNextDay(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"same day", at(10, 1, 0), at(10, 23, 0), false},
		{"next day", at(9, 23, 59), at(10, 0, 0), true},
		{"same date next month", at(10, 1, 0).AddDate(0, 1, 0), at(10, 1, 0).AddDate(0, 2, 0), true},
		{"clock went backwards", at(11, 1, 0), at(10, 1, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNextDay(tt.last, tt.now); got != tt.want {
				t.Errorf("isNextDay() = %v, want %v", got, tt.want)
			}
		})
	}
}
