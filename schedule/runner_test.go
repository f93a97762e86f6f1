package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/arthur-debert/rollover/store"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func newTestRunner(t *testing.T, roller *fakeRoller) *Runner {
	t.Helper()
	state := store.NewMemState()
	seedLastRun(t, state, at(9, 8, 0))
	auto := NewAutoRoller(roller, state, settingsAt("00:00", false), nil)
	now := at(10, 8, 0)
	return NewRunner(auto,
		WithInterval(10*time.Millisecond),
		WithTimeFunc(func() time.Time { return now }))
}

func TestRunnerWaitsForReadiness(t *testing.T) {
	roller := &fakeRoller{}
	r := newTestRunner(t, roller)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	time.Sleep(50 * time.Millisecond)
	if runs, _ := roller.counts(); runs != 0 {
		t.Fatalf("Expected no runs before MarkReady, got %d", runs)
	}

	r.MarkReady()
	r.MarkReady()
	if !waitFor(t, time.Second, func() bool { runs, _ := roller.counts(); return runs > 0 }) {
		t.Fatal("Expected a run after MarkReady")
	}

	// Later ticks on the same day must not run again.
	time.Sleep(50 * time.Millisecond)
	if runs, _ := roller.counts(); runs != 1 {
		t.Errorf("Expected exactly 1 run, got %d", runs)
	}
}

func TestRunnerStartTwice(t *testing.T) {
	r := newTestRunner(t, &fakeRoller{})
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("Expected error starting a running scheduler")
	}
	r.Stop()
	r.Stop()

	if err := r.Start(ctx); err != nil {
		t.Errorf("Expected restart after Stop, got %v", err)
	}
	r.Stop()
}

func TestRunnerRunStopsOnCancel(t *testing.T) {
	r := newTestRunner(t, &fakeRoller{})
	r.MarkReady()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
