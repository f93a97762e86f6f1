package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arthur-debert/rollover/types"
)

// Runner drives an AutoRoller from a fixed interval ticker. No tick fires
// before MarkReady is called. Every tick runs in its own goroutine so a
// stuck collaborator call stalls only that tick.
type Runner struct {
	auto     *AutoRoller
	interval time.Duration
	timeFunc func() time.Time
	logger   *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
	ticks   sync.WaitGroup
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithInterval sets the tick period (types.DefaultInterval by default)
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTimeFunc sets a custom time function for testing
func WithTimeFunc(fn func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.timeFunc = fn
	}
}

// WithRunnerLogger sets the structured logger
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a stopped Runner
func NewRunner(auto *AutoRoller, opts ...RunnerOption) *Runner {
	r := &Runner{
		auto:     auto,
		interval: types.DefaultInterval,
		timeFunc: time.Now,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// MarkReady opens the readiness gate. Safe to call more than once.
func (r *Runner) MarkReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Start launches the tick loop in the background
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	r.running = true
	r.done = make(chan struct{})
	r.stopped = make(chan struct{})
	done, stopped := r.done, r.stopped
	r.mu.Unlock()

	r.logger.Info("rollover scheduler starting", "interval", r.interval.String())
	go func() {
		defer close(stopped)
		r.loop(ctx, done)
	}()
	return nil
}

// Stop ends the tick loop and waits for in-flight ticks to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.done)
	stopped := r.stopped
	r.mu.Unlock()

	<-stopped
	r.logger.Info("rollover scheduler stopped")
}

// Run starts the loop and blocks until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	return nil
}

func (r *Runner) loop(ctx context.Context, done <-chan struct{}) {
	defer r.ticks.Wait()

	select {
	case <-r.ready:
		r.logger.Debug("rollover scheduler ready")
	case <-ctx.Done():
		return
	case <-done:
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			r.ticks.Add(1)
			go func() {
				defer r.ticks.Done()
				r.tick(context.WithoutCancel(ctx))
			}()
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	d, err := r.auto.MaybeRun(ctx, r.timeFunc())
	if err != nil {
		r.logger.Error("automatic rollover failed", "error", err)
		return
	}
	if d.Ran {
		r.logger.Info("automatic rollover ran", "reason", d.Reason)
	}
}
