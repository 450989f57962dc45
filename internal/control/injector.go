// Package control creates and drives the in-page speed-selection control:
// a button reflecting the current rate and a positioned popover with preset
// rates plus free-form entry. All interaction semantics live here; the
// document only renders and reports events.
package control

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hazyhaar/domtuner/internal/dom"
	"github.com/hazyhaar/domtuner/internal/enforce"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

// DefaultPresets are the fixed rates listed in the popover.
var DefaultPresets = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2, 2.5, 3}

const (
	// DefaultRetryDelay between mount attempts while the anchor is missing.
	// Attempts are unbounded; the retry self-cancels once the anchor exists.
	DefaultRetryDelay = time.Second
	// DefaultCloseDelay before the popover closes after a selection, long
	// enough for the selection highlight to register.
	DefaultCloseDelay = 300 * time.Millisecond
)

// Schedule runs fn after d. Injectable for tests.
type Schedule func(d time.Duration, fn func())

// Config assembles an Injector.
type Config struct {
	Doc        dom.Document
	Enforcer   *enforce.Enforcer
	Snapshot   enforce.SnapshotFunc
	Anchor     string
	Presets    []float64
	RetryDelay time.Duration
	CloseDelay time.Duration
	Schedule   Schedule
	Logger     *slog.Logger
}

// Injector owns the control lifecycle and its interaction loop.
type Injector struct {
	doc      dom.Document
	enf      *enforce.Enforcer
	snapshot enforce.SnapshotFunc
	anchor   string
	presets  []float64

	retryDelay time.Duration
	closeDelay time.Duration
	schedule   Schedule
	logger     *slog.Logger
}

// New creates an Injector.
func New(cfg Config) *Injector {
	if len(cfg.Presets) == 0 {
		cfg.Presets = DefaultPresets
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.CloseDelay <= 0 {
		cfg.CloseDelay = DefaultCloseDelay
	}
	if cfg.Schedule == nil {
		cfg.Schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Injector{
		doc:        cfg.Doc,
		enf:        cfg.Enforcer,
		snapshot:   cfg.Snapshot,
		anchor:     cfg.Anchor,
		presets:    cfg.Presets,
		retryDelay: cfg.RetryDelay,
		closeDelay: cfg.CloseDelay,
		schedule:   cfg.Schedule,
		logger:     cfg.Logger,
	}
}

// FormatRate renders a rate for display: trailing zeros trimmed, "x"
// suffix.
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}

// Mount injects the control. Idempotent: a second call while mounted is a
// no-op. While the anchor has not rendered yet, Mount reschedules itself on
// a fixed delay; the retry self-cancels once it succeeds or ctx ends.
func (i *Injector) Mount(ctx context.Context) {
	state := i.enf.State()
	if state.Injected() {
		return
	}

	spec := dom.ControlSpec{
		Anchor:  i.anchor,
		Label:   FormatRate(i.snapshot().PlaybackRate),
		Presets: i.presets,
	}
	err := i.doc.Control().Mount(ctx, spec)
	if errors.Is(err, dom.ErrTargetMissing) {
		i.schedule(i.retryDelay, func() {
			if ctx.Err() == nil {
				i.Mount(ctx)
			}
		})
		return
	}
	if err != nil {
		i.logger.Warn("control: mount failed", "error", err)
		return
	}
	state.SetInjected(true)
	i.logger.Info("control: mounted", "anchor", i.anchor)
}

// Unmount removes all injected nodes and clears the mounted flag.
func (i *Injector) Unmount(ctx context.Context) {
	if err := i.doc.Control().Unmount(ctx); err != nil {
		i.logger.Warn("control: unmount failed", "error", err)
	}
	i.enf.State().SetInjected(false)
}

// Run consumes control events until ctx is cancelled or the event channel
// closes.
func (i *Injector) Run(ctx context.Context) {
	events := i.doc.Control().Events()
	popoverOpen := false

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case dom.EventToggle:
				if popoverOpen {
					i.hidePopover(ctx)
					popoverOpen = false
				} else {
					i.showPopover(ctx)
					popoverOpen = true
				}
			case dom.EventDismiss:
				if popoverOpen {
					i.hidePopover(ctx)
					popoverOpen = false
				}
			case dom.EventPreset:
				i.selectRate(ctx, ev.Value)
			case dom.EventCustom:
				i.customEntry(ctx, ev.Text)
			}
		}
	}
}

func (i *Injector) showPopover(ctx context.Context) {
	ctrl := i.doc.Control()
	layout, err := ctrl.Measure(ctx)
	if err != nil {
		i.logger.Warn("control: measure failed", "error", err)
		return
	}
	x, y := PopoverPosition(layout)
	if err := ctrl.Place(ctx, x, y); err != nil {
		i.logger.Warn("control: place failed", "error", err)
	}
	if err := ctrl.ShowPopover(ctx); err != nil {
		i.logger.Warn("control: show failed", "error", err)
	}
}

func (i *Injector) hidePopover(ctx context.Context) {
	if err := i.doc.Control().HidePopover(ctx); err != nil {
		i.logger.Warn("control: hide failed", "error", err)
	}
}

// selectRate is the shared path for preset clicks and accepted free-form
// entries: timestamp update, override flag, persistence write, display
// update and a delayed popover close.
func (i *Injector) selectRate(ctx context.Context, rate float64) {
	ctrl := i.doc.Control()
	if err := i.enf.SetManualRate(ctx, rate); err != nil {
		i.rejectEntry(ctx)
		return
	}
	if err := ctrl.SetInvalid(ctx, false); err != nil {
		i.logger.Debug("control: clear invalid failed", "error", err)
	}
	if err := ctrl.SetLabel(ctx, FormatRate(rate)); err != nil {
		i.logger.Debug("control: label update failed", "error", err)
	}
	i.schedule(i.closeDelay, func() {
		if ctx.Err() == nil {
			i.hidePopover(ctx)
		}
	})
}

func (i *Injector) customEntry(ctx context.Context, text string) {
	rate, err := strconv.ParseFloat(text, 64)
	if err != nil || !enforce.ValidEntry(rate) {
		i.rejectEntry(ctx)
		return
	}
	i.selectRate(ctx, rate)
	if err := i.doc.Control().SetEntry(ctx, prefs.FormatRate(rate)); err != nil {
		i.logger.Debug("control: entry update failed", "error", err)
	}
}

// rejectEntry reverts the displayed value to the media element's live rate
// and flags invalid state visually. Nothing persists.
func (i *Injector) rejectEntry(ctx context.Context) {
	ctrl := i.doc.Control()
	if live, err := ctrl.LiveRate(ctx); err == nil {
		if err := ctrl.SetEntry(ctx, prefs.FormatRate(live)); err != nil {
			i.logger.Debug("control: revert entry failed", "error", err)
		}
	}
	if err := ctrl.SetInvalid(ctx, true); err != nil {
		i.logger.Debug("control: set invalid failed", "error", err)
	}
}
