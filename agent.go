// Package domtuner implements a page-augmentation agent: it attaches to a
// live page, reconciles stored user preferences onto the document as
// attribute markers, enforces a chosen playback rate against host scripts
// that keep resetting it, and injects an in-page speed-selection control.
//
// The agent never interprets page content. It reacts to three triggers —
// host navigation signals, structural DOM changes, and preference changes
// from other writers — and re-applies the same idempotent pass for each.
package domtuner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domtuner/internal/bridge"
	"github.com/hazyhaar/domtuner/internal/config"
	"github.com/hazyhaar/domtuner/internal/control"
	"github.com/hazyhaar/domtuner/internal/dom"
	"github.com/hazyhaar/domtuner/internal/editorapi"
	"github.com/hazyhaar/domtuner/internal/enforce"
	"github.com/hazyhaar/domtuner/internal/prefs"
	"github.com/hazyhaar/domtuner/internal/reconcile"
	"github.com/hazyhaar/domtuner/internal/structure"
	"github.com/hazyhaar/domtuner/mutation"
)

// Options assembles an Agent around an existing document and store. The
// zero value of every optional field takes a sensible default.
type Options struct {
	// Document is the page surface the agent reconciles against. Required.
	Document dom.Document
	// Store is the tiered preference store. Required.
	Store *prefs.Store
	// Clock overrides the system clock, for tests.
	Clock enforce.Clock
	// Schedule overrides deferred execution, for tests.
	Schedule func(d time.Duration, fn func())
	Logger   *slog.Logger
}

// Agent is the top-level orchestrator: it owns the current snapshot and
// wires the reconciler, enforcer, control injector, structure watcher and
// bridges together. Create one per attached page.
type Agent struct {
	cfg    *config.Config
	logger *slog.Logger

	doc     dom.Document
	store   *prefs.Store
	hub     *bridge.Hub
	rec     *reconcile.Reconciler
	enf     *enforce.Enforcer
	inj     *control.Injector
	watcher *structure.Watcher

	mu   sync.RWMutex
	snap prefs.Snapshot
}

// New creates an Agent from configuration.
func New(cfg *config.Config, opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Agent{
		cfg:    cfg,
		logger: logger,
		doc:    opts.Document,
		store:  opts.Store,
		hub:    bridge.NewHub(),
		snap:   prefs.Defaults(),
	}

	a.rec = reconcile.New(a.doc, logger)

	a.enf = enforce.New(enforce.Config{
		Doc:      a.doc,
		Snapshot: a.Snapshot,
		Store:    a.store,
		Clock:    opts.Clock,
		Interval: cfg.Enforcement.Interval,
		Grace:    cfg.Enforcement.Grace,
		Logger:   logger,
	})

	a.inj = control.New(control.Config{
		Doc:        a.doc,
		Enforcer:   a.enf,
		Snapshot:   a.Snapshot,
		Anchor:     cfg.Host.AnchorSelector,
		RetryDelay: cfg.Delays.MountRetry,
		CloseDelay: cfg.Delays.PopoverClose,
		Schedule:   control.Schedule(opts.Schedule),
		Logger:     logger,
	})

	a.watcher = structure.New(structure.Config{
		Enforcer: a.enf,
		Snapshot: a.Snapshot,
		Remount:  a.inj.Mount,
		ReapplyBlur: func(ctx context.Context) {
			a.rec.ReapplyBlur(ctx, a.Snapshot())
		},
		RemountDelay: cfg.Delays.Remount,
		BlurDelay:    cfg.Delays.BlurReapply,
		Schedule:     structure.Schedule(opts.Schedule),
		Logger:       logger,
	})

	bridge.NewNavigation(a.hub, a.Reapply, logger)
	bridge.NewChange(a.hub, bridge.ChangeConfig{
		Reload:       a.reload,
		Enforcer:     a.enf,
		Clock:        opts.Clock,
		Mount:        a.inj.Mount,
		Unmount:      a.inj.Unmount,
		Reapply:      a.Reapply,
		ApplyMarkers: a.applyMarkers,
		Logger:       logger,
	})

	return a
}

// Snapshot returns the agent's current preference snapshot.
func (a *Agent) Snapshot() prefs.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// reload refreshes the snapshot from the store, returning the previous and
// fresh values.
func (a *Agent) reload(ctx context.Context) (old, cur prefs.Snapshot) {
	cur = a.store.Load(ctx)
	a.mu.Lock()
	old = a.snap
	a.snap = cur
	a.mu.Unlock()
	return old, cur
}

// reinstaller is implemented by documents whose in-page helpers die with a
// document replacement and need re-injection.
type reinstaller interface {
	Reinstall(ctx context.Context) error
}

// Reapply runs the full augmentation pass: helper re-injection, marker
// reconciliation, control mount and an immediate enforcement tick. A
// document replacement destroys the injected control, so the mounted flag
// is cleared first; the in-page mount is idempotent when the control
// actually survived.
func (a *Agent) Reapply(ctx context.Context) {
	snap := a.Snapshot()

	if r, ok := a.doc.(reinstaller); ok {
		if err := r.Reinstall(ctx); err != nil {
			a.logger.Warn("agent: helper reinstall failed", "error", err)
		}
	}

	a.rec.Apply(ctx, snap)

	if snap.MasterEnabled {
		a.enf.State().SetInjected(false)
		a.inj.Mount(ctx)
		a.enf.Tick(ctx)
	}
}

// applyMarkers runs the marker and blur pass without touching playback.
func (a *Agent) applyMarkers(ctx context.Context) {
	a.rec.Apply(ctx, a.Snapshot())
}

// HandleBatch is the observer's delivery point. Host signals become bridge
// events; everything else goes to the structure watcher.
func (a *Agent) HandleBatch(ctx context.Context, batch *mutation.Batch) {
	signalled := false
	for _, rec := range batch.Records {
		switch rec.Op {
		case mutation.OpNavigate:
			a.hub.Publish(ctx, bridge.NavigationFinished{URL: rec.Value})
			signalled = true
		case mutation.OpPageData:
			a.hub.Publish(ctx, bridge.PageDataUpdated{URL: rec.Value})
			signalled = true
		}
	}
	if signalled {
		return
	}
	a.watcher.HandleBatch(ctx, batch)
}

// PublishChange announces a local preference write (the editor API) to the
// bridges.
func (a *Agent) PublishChange(ctx context.Context, keys []string) {
	a.hub.Publish(ctx, bridge.PrefsChanged{Keys: keys, Area: prefs.SyncArea})
}

// HandleFeedChange routes a remote change-feed notification to the bridges.
func (a *Agent) HandleFeedChange(ctx context.Context, change prefs.Change) {
	a.hub.Publish(ctx, bridge.PrefsChanged{Keys: change.Keys, Area: change.Area})
}

// Status reports live enforcement state for the editor API.
func (a *Agent) Status() editorapi.Status {
	snap := a.Snapshot()
	state := a.enf.State()
	return editorapi.Status{
		Injected:      state.Injected(),
		Override:      state.Override(),
		MasterEnabled: snap.MasterEnabled,
		TargetRate:    enforce.Clamp(snap.PlaybackRate),
	}
}

// Run loads the stored preferences, performs the initial apply, and drives
// the enforcement loop and the control interaction loop until ctx is
// cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.reload(ctx)
	a.Reapply(ctx)
	a.logger.Info("agent: started", "master", a.Snapshot().MasterEnabled)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.enf.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.inj.Run(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	a.logger.Info("agent: stopped")
	return nil
}
