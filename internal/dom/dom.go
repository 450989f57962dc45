// Package dom abstracts the live document surface the agent reconciles
// against. The production implementation drives a rod page over CDP; tests
// use the domtest fake. Callers must tolerate ErrTargetMissing everywhere:
// the host page mutates itself asynchronously relative to any single check.
package dom

import (
	"context"
	"errors"
)

// ErrTargetMissing reports that an expected document element (a media
// element, the control anchor) is absent at call time. The triggering
// operation no-ops; structural changes will retrigger it.
var ErrTargetMissing = errors.New("dom: target missing")

// Document is the top-level page surface.
type Document interface {
	// Markers are boolean-presence attributes on the document's top-level
	// node. Presence, not value, carries meaning.
	SetMarker(ctx context.Context, name string) error
	RemoveMarker(ctx context.Context, name string) error
	HasMarker(ctx context.Context, name string) (bool, error)

	// Media returns every media element currently in the document.
	Media(ctx context.Context) ([]MediaElement, error)

	// ApplyBlur blurs every not-yet-marked thumbnail image and registers
	// hover handlers that lift the blur on pointer-enter and restore it on
	// pointer-leave. Restoration consults the live blur marker at event
	// time, so a setting changed mid-hover takes effect immediately.
	ApplyBlur(ctx context.Context) error

	// RemoveBlur clears filters and hover-registration markers. Safe to
	// call repeatedly and on elements that were never blurred.
	RemoveBlur(ctx context.Context) error

	// Control returns the injected speed-control surface.
	Control() Control
}

// MediaElement is a playable element with a writable playback rate.
type MediaElement interface {
	Rate(ctx context.Context) (float64, error)
	SetRate(ctx context.Context, rate float64) error
}

// Rect is an element bounding box in viewport coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Layout carries the measurements the popover placement algorithm needs.
type Layout struct {
	Button   Rect `json:"button"`
	Popover  Rect `json:"popover"`
	Viewport Rect `json:"viewport"`
}

// ControlSpec describes the speed-selection control to inject.
type ControlSpec struct {
	Anchor  string    // host selector the button mounts next to
	Label   string    // initial button label
	Presets []float64 // preset rates listed in the popover
}

// ControlEventKind classifies a user interaction with the control.
type ControlEventKind string

const (
	// EventPreset fires when a preset rate is clicked. Value holds the rate.
	EventPreset ControlEventKind = "preset"
	// EventCustom fires when a free-form entry is confirmed. Text holds the
	// raw input.
	EventCustom ControlEventKind = "custom"
	// EventToggle fires when the button is clicked to open/close the popover.
	EventToggle ControlEventKind = "toggle"
	// EventDismiss fires on an outside click while the popover is open.
	EventDismiss ControlEventKind = "dismiss"
)

// ControlEvent is a user interaction delivered from the page.
type ControlEvent struct {
	Kind  ControlEventKind `json:"kind"`
	Value float64          `json:"value,omitempty"`
	Text  string           `json:"text,omitempty"`
}

// Control is the in-page speed-selection control: a button plus a
// positioned popover. Mount returns ErrTargetMissing while the anchor has
// not rendered yet.
type Control interface {
	Mount(ctx context.Context, spec ControlSpec) error
	Unmount(ctx context.Context) error

	SetLabel(ctx context.Context, label string) error
	SetInvalid(ctx context.Context, invalid bool) error
	// SetEntry overwrites the free-form entry field, used to revert the
	// displayed value after rejected input.
	SetEntry(ctx context.Context, text string) error
	// LiveRate returns the playback rate of the primary media element, used
	// to revert the entry field after invalid input.
	LiveRate(ctx context.Context) (float64, error)

	ShowPopover(ctx context.Context) error
	HidePopover(ctx context.Context) error
	Measure(ctx context.Context) (Layout, error)
	Place(ctx context.Context, x, y float64) error

	// Events delivers user interactions. The channel stays open across
	// unmount/remount cycles; consumers stop via their own context.
	Events() <-chan ControlEvent
}
