// Package enforce implements the playback-rate enforcement loop. The loop
// and manual selection are two writers of the same field; a grace window
// after each manual change keeps enforcement from fighting the user.
package enforce

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"log/slog"

	"github.com/hazyhaar/domtuner/internal/dom"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

const (
	// DefaultInterval is the enforcement tick period.
	DefaultInterval = time.Second
	// DefaultGrace is the cool-down after a manual rate change during which
	// enforcement leaves media elements alone.
	DefaultGrace = 5 * time.Second
	// Epsilon below which an enforcement write is skipped, avoiding
	// redundant writes and event storms.
	Epsilon = 0.01

	// ClampMin and ClampMax bound any value pushed by enforcement,
	// regardless of source.
	ClampMin = 0.0625
	ClampMax = 16

	// EntryMin and EntryMax bound manual free-form entry through the
	// in-page control. Deliberately different from the enforcement clamp;
	// both bounds are part of observable behaviour.
	EntryMin = 0.1
	EntryMax = 16
)

// ErrInvalidRate reports a manual entry outside [EntryMin, EntryMax] or a
// non-finite value. Surfaced only as transient visual feedback.
var ErrInvalidRate = errors.New("enforce: rate outside accepted range")

// Clamp bounds a rate to the absolute enforcement range.
func Clamp(rate float64) float64 {
	return math.Min(ClampMax, math.Max(ClampMin, rate))
}

// ValidEntry reports whether a manual entry is acceptable.
func ValidEntry(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate >= EntryMin && rate <= EntryMax
}

// SnapshotFunc returns the current preference snapshot.
type SnapshotFunc func() prefs.Snapshot

// Config assembles an Enforcer.
type Config struct {
	Doc      dom.Document
	Snapshot SnapshotFunc
	Store    *prefs.Store
	State    *State
	Clock    Clock
	Interval time.Duration
	Grace    time.Duration
	Logger   *slog.Logger
}

// Enforcer periodically forces the target playback rate onto media
// elements, honouring the manual-override grace window.
type Enforcer struct {
	doc      dom.Document
	snapshot SnapshotFunc
	store    *prefs.Store
	state    *State
	clock    Clock
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	restartCh chan struct{}
}

// New creates an Enforcer.
func New(cfg Config) *Enforcer {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.State == nil {
		cfg.State = NewState()
	}
	return &Enforcer{
		doc:       cfg.Doc,
		snapshot:  cfg.Snapshot,
		store:     cfg.Store,
		state:     cfg.State,
		clock:     cfg.Clock,
		interval:  cfg.Interval,
		grace:     cfg.Grace,
		logger:    cfg.Logger,
		restartCh: make(chan struct{}, 1),
	}
}

// State exposes the interaction state shared with the control injector and
// the structure watcher.
func (e *Enforcer) State() *State { return e.state }

// Grace returns the configured grace window.
func (e *Enforcer) Grace() time.Duration { return e.grace }

// InGrace reports whether now falls inside the override grace window.
func (e *Enforcer) InGrace(now time.Time) bool {
	return e.state.Override() && now.Sub(e.state.LastInteraction()) < e.grace
}

// Tick applies the target rate to every media element. Skips everything
// when the master flag is off; skips elements while a manual override is
// inside the grace window; writes only when the difference exceeds Epsilon.
func (e *Enforcer) Tick(ctx context.Context) {
	snap := e.snapshot()
	if !snap.MasterEnabled {
		return
	}

	media, err := e.doc.Media(ctx)
	if err != nil {
		if e.state.WarnContextOnce() {
			e.logger.Warn("enforce: media query failing, page connection may be dead", "error", err)
		}
		return
	}
	if len(media) == 0 {
		return
	}

	target := Clamp(snap.PlaybackRate)
	now := e.clock.Now()

	for _, m := range media {
		if e.InGrace(now) {
			continue
		}
		current, err := m.Rate(ctx)
		if err != nil {
			continue
		}
		if math.Abs(current-target) <= Epsilon {
			continue
		}
		if err := m.SetRate(ctx, target); err != nil {
			e.logger.Debug("enforce: set rate failed", "error", err)
			continue
		}
		e.state.ClearOverride()
	}
}

// SetManualRate handles a manual selection: validates the entry range,
// stamps the interaction, raises the override, applies the rate to every
// media element and persists it best-effort. Returns ErrInvalidRate without
// side effects for out-of-range input.
func (e *Enforcer) SetManualRate(ctx context.Context, rate float64) error {
	if !ValidEntry(rate) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}

	e.state.Interaction(e.clock.Now())

	media, err := e.doc.Media(ctx)
	if err != nil {
		e.logger.Debug("enforce: media query failed", "error", err)
	}
	applied := Clamp(rate)
	for _, m := range media {
		if err := m.SetRate(ctx, applied); err != nil {
			e.logger.Debug("enforce: manual set failed", "error", err)
		}
	}

	if e.store != nil {
		e.store.Save(ctx, prefs.Record{prefs.KeyPlaybackRate: prefs.FormatRate(applied)})
	}
	return nil
}

// ResetSession clears the override and timestamp for a new media element.
func (e *Enforcer) ResetSession() {
	e.state.Reset()
}

// Restart replaces the running ticker, e.g. after a master-flag change.
func (e *Enforcer) Restart() {
	select {
	case e.restartCh <- struct{}{}:
	default:
	}
}

// Run drives the enforcement ticker until ctx is cancelled. A restart
// signal clears and replaces the timer.
func (e *Enforcer) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.restartCh:
			ticker.Stop()
			ticker = time.NewTicker(e.interval)
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}
