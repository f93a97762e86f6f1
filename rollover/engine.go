// Package rollover finds unfinished todos in recent daily documents and
// moves or mirrors them into today's daily document.
//
// A run has two phases. Collect walks every eligible daily document (and
// every always-roll root) depth first and groups the todos it finds into
// buckets keyed by source day. Place then materializes each bucket once in
// today's document, either by relocating the todos under a fresh copy of
// their ancestor (move mode) or by linking them into a mirror (portal mode).
//
// There is no lock around a run. Overlapping runs are tolerated because a
// todo relocated by one run is no longer found where the next run looks.
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arthur-debert/rollover/types"
)

// User-visible notices
const (
	NoticeMoving          = "Moving unfinished todos to today's Daily Document."
	NoticeNothingToRoll   = "No unfinished todos to rollover."
	NoticeOmniUnsupported = "The Omni Rollover feature is not safe when Portal Mode is off."
	NoticeNoToday         = "Sorry. No daily document for TODAY has been created."
)

// UntitledText labels a consolidated copy whose ancestor has no text
const UntitledText = "Untitled Rem"

// Engine runs rollover and cleanup passes against a host tree
type Engine struct {
	tree     types.Tree
	notifier types.Notifier
	settings types.SettingsSource
	logger   *slog.Logger
	metrics  *Metrics
	// timeFunc is used to get the current time, defaults to time.Now
	timeFunc func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the Prometheus collectors to update
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTimeFunc sets a custom time function for testing
func WithTimeFunc(fn func() time.Time) Option {
	return func(e *Engine) {
		e.timeFunc = fn
	}
}

// New creates an engine. notifier may be nil, in which case notices are
// only logged.
func New(tree types.Tree, notifier types.Notifier, settings types.SettingsSource, opts ...Option) *Engine {
	e := &Engine{
		tree:     tree,
		notifier: notifier,
		settings: settings,
		timeFunc: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Run collects and places unfinished todos.
// Soft aborts (no daily documents, no document for today) return a Result
// with Aborted set and a nil error. Only unexpected collaborator failures
// are returned as errors, wrapped in *RunError.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	settings, err := e.settings.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	res, err := e.run(ctx, settings)
	if err != nil {
		e.logger.Error("rollover run failed", "error", err)
	}
	e.metrics.observeRun(res, err)
	return res, err
}

func (e *Engine) run(ctx context.Context, settings types.Settings) (*Result, error) {
	res := &Result{Mode: modeOf(settings)}
	now := e.timeFunc()

	buckets, aborted, err := e.collect(ctx, settings, now)
	if err != nil {
		return res, &RunError{Phase: PhaseCollect, Err: err}
	}
	if aborted != AbortNone {
		res.Aborted = aborted
		return res, nil
	}
	res.Buckets = buckets.Keys()
	res.Unfinished = buckets.Unfinished()
	for _, key := range res.Buckets {
		_, completed := partition(buckets.Get(key))
		res.Completed += len(completed)
	}

	today, err := e.tree.Today(ctx)
	if err != nil {
		return res, &RunError{Phase: PhasePlace, Err: fmt.Errorf("failed to resolve today's document: %w", err)}
	}
	if today == nil {
		e.logger.Info("no daily document for today")
		e.notify(ctx, NoticeNoToday)
		res.Aborted = AbortNoToday
		return res, nil
	}

	if res.Unfinished > 0 {
		e.notify(ctx, NoticeMoving)
	}

	p := &placer{
		engine:   e,
		settings: settings,
		today:    today,
		rolled:   make(rolledSet),
		res:      res,
	}
	if settings.PortalMode {
		if p.mirrored, err = e.mirroredInto(ctx, today); err != nil {
			return res, &RunError{Phase: PhasePlace, Err: err}
		}
	}
	for _, key := range buckets.Keys() {
		if err := p.placeBucket(ctx, key, buckets.Get(key)); err != nil {
			return res, &RunError{Phase: PhasePlace, Bucket: key, Err: err}
		}
	}

	if res.Unfinished == 0 {
		e.notify(ctx, NoticeNothingToRoll)
	}

	e.logger.Info("rollover run complete",
		"mode", res.Mode,
		"buckets", len(res.Buckets),
		"unfinished", res.Unfinished,
		"relocated", res.Relocated,
		"linked", res.Linked,
		"created", res.Created,
		"skipped", len(res.Skipped))
	return res, nil
}

// Collect runs only the discovery phase. It performs no mutations.
func (e *Engine) Collect(ctx context.Context) (*Buckets, error) {
	settings, err := e.settings.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	buckets, _, err := e.collect(ctx, settings, e.timeFunc())
	if err != nil {
		return nil, &RunError{Phase: PhaseCollect, Err: err}
	}
	return buckets, nil
}

func (e *Engine) notify(ctx context.Context, message string) {
	e.logger.Debug("notice", "message", message)
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, message); err != nil {
		e.logger.Warn("failed to deliver notice", "message", message, "error", err)
	}
}

func modeOf(s types.Settings) Mode {
	if s.PortalMode {
		return ModeMirror
	}
	return ModeMove
}
