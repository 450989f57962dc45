// Package domtest provides an in-memory dom.Document for tests: markers,
// media rates, blur state and the control surface are all plain fields
// behind a mutex, so reconciliation logic is testable without a browser.
package domtest

import (
	"context"
	"sort"
	"sync"

	"github.com/hazyhaar/domtuner/internal/dom"
)

// Doc is a fake dom.Document.
type Doc struct {
	mu      sync.Mutex
	markers map[string]bool
	media   []*Media
	ctrl    *Ctrl

	Blurred     bool
	BlurApplies int
	BlurRemoves int
}

// NewDoc creates an empty fake document with a present control anchor.
func NewDoc() *Doc {
	return &Doc{
		markers: make(map[string]bool),
		ctrl:    newCtrl(),
	}
}

func (d *Doc) SetMarker(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markers[name] = true
	return nil
}

func (d *Doc) RemoveMarker(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.markers, name)
	return nil
}

func (d *Doc) HasMarker(_ context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markers[name], nil
}

// Markers returns the current marker set, sorted.
func (d *Doc) Markers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.markers))
	for name := range d.markers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AddMedia inserts a fake media element with the given rate.
func (d *Doc) AddMedia(rate float64) *Media {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := &Media{rate: rate}
	d.media = append(d.media, m)
	return m
}

func (d *Doc) Media(context.Context) ([]dom.MediaElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dom.MediaElement, len(d.media))
	for i, m := range d.media {
		out[i] = m
	}
	return out, nil
}

func (d *Doc) ApplyBlur(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Blurred = true
	d.BlurApplies++
	return nil
}

func (d *Doc) RemoveBlur(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Blurred = false
	d.BlurRemoves++
	return nil
}

func (d *Doc) Control() dom.Control { return d.ctrl }

// Ctrl returns the fake control for assertions and event injection.
func (d *Doc) Ctrl() *Ctrl { return d.ctrl }

// Media is a fake media element.
type Media struct {
	mu   sync.Mutex
	rate float64
	sets int
}

func (m *Media) Rate(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate, nil
}

func (m *Media) SetRate(_ context.Context, rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
	m.sets++
	return nil
}

// CurrentRate reads the rate without the Document interface.
func (m *Media) CurrentRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// SetCalls counts how many times SetRate was invoked.
func (m *Media) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// Ctrl is a fake dom.Control.
type Ctrl struct {
	mu            sync.Mutex
	anchorMissing bool
	mounted       bool
	label         string
	entry         string
	invalid       bool
	popover       bool
	liveRate      float64
	layout        dom.Layout
	placedX       float64
	placedY       float64
	events        chan dom.ControlEvent
}

func newCtrl() *Ctrl {
	return &Ctrl{
		liveRate: 1,
		layout: dom.Layout{
			Button:   dom.Rect{X: 500, Y: 400, W: 48, H: 32},
			Popover:  dom.Rect{W: 160, H: 220},
			Viewport: dom.Rect{W: 1280, H: 720},
		},
		events: make(chan dom.ControlEvent, 16),
	}
}

// SetAnchorMissing makes Mount fail with dom.ErrTargetMissing.
func (c *Ctrl) SetAnchorMissing(missing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorMissing = missing
}

// SetLiveRate sets the rate LiveRate reports.
func (c *Ctrl) SetLiveRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveRate = rate
}

// SetLayout overrides the measured layout.
func (c *Ctrl) SetLayout(l dom.Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout = l
}

// Emit injects a user interaction.
func (c *Ctrl) Emit(ev dom.ControlEvent) {
	c.events <- ev
}

func (c *Ctrl) Mount(_ context.Context, spec dom.ControlSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.anchorMissing {
		return dom.ErrTargetMissing
	}
	c.mounted = true
	c.label = spec.Label
	return nil
}

func (c *Ctrl) Unmount(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	c.popover = false
	return nil
}

func (c *Ctrl) SetLabel(_ context.Context, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.label = label
	return nil
}

func (c *Ctrl) SetInvalid(_ context.Context, invalid bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalid = invalid
	return nil
}

func (c *Ctrl) SetEntry(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = text
	return nil
}

// Entry returns the current entry-field text.
func (c *Ctrl) Entry() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

func (c *Ctrl) LiveRate(context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveRate, nil
}

func (c *Ctrl) ShowPopover(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.popover = true
	return nil
}

func (c *Ctrl) HidePopover(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.popover = false
	return nil
}

func (c *Ctrl) Measure(context.Context) (dom.Layout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout, nil
}

func (c *Ctrl) Place(_ context.Context, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placedX, c.placedY = x, y
	return nil
}

func (c *Ctrl) Events() <-chan dom.ControlEvent { return c.events }

// Mounted reports the mounted flag.
func (c *Ctrl) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Label returns the current button label.
func (c *Ctrl) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

// Invalid reports the invalid-input visual state.
func (c *Ctrl) Invalid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalid
}

// PopoverShown reports popover visibility.
func (c *Ctrl) PopoverShown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.popover
}

// Placed returns the last popover placement.
func (c *Ctrl) Placed() (x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.placedX, c.placedY
}
