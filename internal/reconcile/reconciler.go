// Package reconcile maps a preference snapshot onto the document as
// idempotent attribute markers plus the thumbnail blur effect. Presence of
// a marker, not its value, carries meaning; host CSS and the in-page hover
// handlers key off them.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/domtuner/internal/dom"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

// featureMarkers maps each per-feature preference key to its marker, in
// marker order.
var featureMarkers = []struct {
	key    string
	marker string
}{
	{prefs.KeyHideHome, dom.MarkerHideHome},
	{prefs.KeyHideShorts, dom.MarkerHideShorts},
	{prefs.KeyHideComments, dom.MarkerHideComments},
	{prefs.KeyHideSidebar, dom.MarkerHideSidebar},
	{prefs.KeyHideEndscreen, dom.MarkerHideEndscreen},
	{prefs.KeyHideRecs, dom.MarkerHideRecs},
	{prefs.KeyHideGuide, dom.MarkerHideGuide},
	{prefs.KeyBlurThumbs, dom.MarkerBlurThumbs},
}

// Reconciler applies snapshots to a document.
type Reconciler struct {
	doc    dom.Document
	logger *slog.Logger
}

// New creates a Reconciler for the given document.
func New(doc dom.Document, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{doc: doc, logger: logger}
}

// Apply reconciles the document against the snapshot. Idempotent: applying
// the same snapshot twice yields the same marker set as applying it once.
// Individual marker failures are logged and skipped, never propagated — a
// structural change will retrigger the apply.
func (r *Reconciler) Apply(ctx context.Context, snap prefs.Snapshot) {
	if !snap.MasterEnabled {
		r.disable(ctx)
		return
	}

	r.setMarker(ctx, dom.MarkerEnabled, true)
	for _, fm := range featureMarkers {
		on, _ := snap.Bool(fm.key)
		r.setMarker(ctx, fm.marker, on)
	}

	if snap.BlurThumbs {
		if err := r.doc.ApplyBlur(ctx); err != nil {
			r.logger.Warn("reconcile: apply blur failed", "error", err)
		}
	} else {
		if err := r.doc.RemoveBlur(ctx); err != nil {
			r.logger.Warn("reconcile: remove blur failed", "error", err)
		}
	}
}

// disable removes every marker, lifts the blur, and resets each media
// element to the native rate. This is the only place playback rate is
// forcibly reset to neutral.
func (r *Reconciler) disable(ctx context.Context) {
	r.setMarker(ctx, dom.MarkerEnabled, false)
	for _, fm := range featureMarkers {
		r.setMarker(ctx, fm.marker, false)
	}
	if err := r.doc.RemoveBlur(ctx); err != nil {
		r.logger.Warn("reconcile: remove blur failed", "error", err)
	}

	media, err := r.doc.Media(ctx)
	if err != nil {
		r.logger.Warn("reconcile: query media failed", "error", err)
		return
	}
	for _, m := range media {
		if err := m.SetRate(ctx, 1); err != nil {
			r.logger.Warn("reconcile: reset rate failed", "error", err)
		}
	}
}

func (r *Reconciler) setMarker(ctx context.Context, name string, present bool) {
	var err error
	if present {
		err = r.doc.SetMarker(ctx, name)
	} else {
		err = r.doc.RemoveMarker(ctx, name)
	}
	if err != nil {
		r.logger.Warn("reconcile: marker update failed", "marker", name, "error", err)
	}
}

// ReapplyBlur re-runs blur application when the snapshot calls for it.
// Used by the structure watcher after lazy-loaded thumbnails attach.
func (r *Reconciler) ReapplyBlur(ctx context.Context, snap prefs.Snapshot) {
	if !snap.MasterEnabled || !snap.BlurThumbs {
		return
	}
	if err := r.doc.ApplyBlur(ctx); err != nil {
		r.logger.Warn("reconcile: reapply blur failed", "error", err)
	}
}
