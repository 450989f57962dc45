package structure

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/domtuner/internal/enforce"
	"github.com/hazyhaar/domtuner/mutation"
)

const (
	// DefaultRemountDelay before re-mounting the control after new media
	// appeared. The host renders its player chrome shortly after the
	// element itself.
	DefaultRemountDelay = 500 * time.Millisecond
	// DefaultBlurDelay before re-applying blur after new images appeared,
	// letting a lazy-load burst settle into one pass.
	DefaultBlurDelay = 500 * time.Millisecond
)

// Schedule runs fn after d. Injectable for tests.
type Schedule func(d time.Duration, fn func())

// Config assembles a Watcher.
type Config struct {
	Enforcer *enforce.Enforcer
	Snapshot enforce.SnapshotFunc

	// Remount re-mounts the in-page control. Called only while the control
	// is not injected.
	Remount func(ctx context.Context)
	// ReapplyBlur re-runs blur application over the current document.
	ReapplyBlur func(ctx context.Context)

	RemountDelay time.Duration
	BlurDelay    time.Duration
	Schedule     Schedule
	Logger       *slog.Logger
}

// Watcher reacts to structural page changes. A new media element starts a
// fresh enforcement session; new images get blur re-applied when the policy
// calls for it.
type Watcher struct {
	enf      *enforce.Enforcer
	snapshot enforce.SnapshotFunc

	remount     func(ctx context.Context)
	reapplyBlur func(ctx context.Context)

	remountDelay time.Duration
	blurDelay    time.Duration
	schedule     Schedule
	logger       *slog.Logger
}

// New creates a Watcher.
func New(cfg Config) *Watcher {
	if cfg.RemountDelay <= 0 {
		cfg.RemountDelay = DefaultRemountDelay
	}
	if cfg.BlurDelay <= 0 {
		cfg.BlurDelay = DefaultBlurDelay
	}
	if cfg.Schedule == nil {
		cfg.Schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		enf:          cfg.Enforcer,
		snapshot:     cfg.Snapshot,
		remount:      cfg.Remount,
		reapplyBlur:  cfg.ReapplyBlur,
		remountDelay: cfg.RemountDelay,
		blurDelay:    cfg.BlurDelay,
		schedule:     cfg.Schedule,
		logger:       cfg.Logger,
	}
}

// HandleBatch classifies a mutation batch and triggers the matching
// reactions. Host signals are the bridges' concern and are ignored here.
func (w *Watcher) HandleBatch(ctx context.Context, batch *mutation.Batch) {
	c := ClassifyBatch(batch)

	if c.Media {
		w.onMedia(ctx)
	}
	if c.Image {
		w.onImage(ctx)
	}
}

// onMedia starts a fresh enforcement session: the new element carries the
// host's default rate, not the user's, so any previous manual override no
// longer applies.
func (w *Watcher) onMedia(ctx context.Context) {
	w.logger.Debug("structure: media element appeared")
	w.enf.ResetSession()
	w.enf.Tick(ctx)

	if w.remount != nil && !w.enf.State().Injected() {
		w.schedule(w.remountDelay, func() {
			if ctx.Err() == nil {
				w.remount(ctx)
			}
		})
	}
}

func (w *Watcher) onImage(ctx context.Context) {
	snap := w.snapshot()
	if !snap.MasterEnabled || !snap.BlurThumbs {
		return
	}
	if w.reapplyBlur == nil {
		return
	}
	w.logger.Debug("structure: images appeared, scheduling blur pass")
	w.schedule(w.blurDelay, func() {
		if ctx.Err() == nil {
			w.reapplyBlur(ctx)
		}
	})
}
