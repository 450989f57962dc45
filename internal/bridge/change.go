package bridge

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/domtuner/internal/enforce"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

// ChangeConfig assembles a ChangeBridge.
type ChangeConfig struct {
	// Reload refreshes the agent's snapshot from the store and returns the
	// previous and the fresh value.
	Reload func(ctx context.Context) (old, cur prefs.Snapshot)

	Enforcer *enforce.Enforcer
	Clock    enforce.Clock

	// Mount and Unmount manage the in-page control when the master flag
	// flips.
	Mount   func(ctx context.Context)
	Unmount func(ctx context.Context)

	// Reapply runs the full pass: markers, blur and an immediate enforcement
	// tick. ApplyMarkers runs the marker and blur pass only.
	Reapply      func(ctx context.Context)
	ApplyMarkers func(ctx context.Context)

	Logger *slog.Logger
}

// ChangeBridge reacts to preference changes from other writers (the editor
// API, another agent process via the change feed). Only changes to the sync
// area matter; other areas belong to other consumers.
type ChangeBridge struct {
	cfg ChangeConfig
}

// NewChange creates a ChangeBridge and subscribes it to src.
func NewChange(src Source, cfg ChangeConfig) *ChangeBridge {
	if cfg.Clock == nil {
		cfg.Clock = enforce.SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	b := &ChangeBridge{cfg: cfg}
	src.Subscribe(b.Handle)
	return b
}

// Handle reloads the snapshot and re-applies. While a manual rate override
// is inside its grace window only markers and blur are refreshed; the rate
// pass would stomp the user's selection.
func (b *ChangeBridge) Handle(ctx context.Context, ev Event) {
	change, ok := ev.(PrefsChanged)
	if !ok {
		return
	}
	if change.Area != prefs.SyncArea {
		return
	}

	old, cur := b.cfg.Reload(ctx)
	b.cfg.Logger.Info("bridge: preferences changed", "keys", change.Keys)

	if old.MasterEnabled != cur.MasterEnabled {
		if cur.MasterEnabled {
			b.cfg.Mount(ctx)
		} else {
			b.cfg.Unmount(ctx)
		}
		// A flip invalidates the running ticker's phase; start a fresh one.
		b.cfg.Enforcer.Restart()
	}

	if b.cfg.Enforcer.InGrace(b.cfg.Clock.Now()) {
		b.cfg.ApplyMarkers(ctx)
		return
	}
	b.cfg.Reapply(ctx)
}
