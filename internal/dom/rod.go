package dom

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed helpers.js
var helpersJS []byte

//go:embed control.js
var controlJS []byte

const controlBinding = "__domtuner_control"

// HostProfile carries the host page's selector catalog. The defaults match
// the supported media host; they are lookup constants, not behaviour.
type HostProfile struct {
	VideoSelector  string
	ThumbSelector  string
	AnchorSelector string
}

// RodDocument implements Document over a live rod page.
type RodDocument struct {
	page    *rod.Page
	profile HostProfile
	logger  *slog.Logger
	ctrl    *rodControl

	helperOnce sync.Once
	helperErr  error
}

// NewRodDocument wraps an attached page. The control binding is registered
// lazily on first Mount.
func NewRodDocument(page *rod.Page, profile HostProfile, logger *slog.Logger) *RodDocument {
	if logger == nil {
		logger = slog.Default()
	}
	d := &RodDocument{page: page, profile: profile, logger: logger}
	d.ctrl = &rodControl{doc: d, events: make(chan ControlEvent, 16)}
	return d
}

// ensureHelpers injects helpers.js once and configures the live marker
// names. Re-run after a document reset by calling Reinstall.
func (d *RodDocument) ensureHelpers(ctx context.Context) error {
	d.helperOnce.Do(func() {
		d.helperErr = d.installHelpers(ctx)
	})
	return d.helperErr
}

func (d *RodDocument) installHelpers(ctx context.Context) error {
	page := d.page.Context(ctx)
	if _, err := page.Eval(string(helpersJS)); err != nil {
		return fmt.Errorf("dom: inject helpers: %w", err)
	}
	_, err := page.Eval(`(en, blur, sel) => window.__domtuner.configure(en, blur, sel)`,
		MarkerEnabled, MarkerBlurThumbs, d.profile.ThumbSelector)
	if err != nil {
		return fmt.Errorf("dom: configure helpers: %w", err)
	}
	return nil
}

// Reinstall re-injects the in-page helpers after the host replaced the
// document (SPA hard reset).
func (d *RodDocument) Reinstall(ctx context.Context) error {
	d.helperOnce = sync.Once{}
	return d.ensureHelpers(ctx)
}

func (d *RodDocument) SetMarker(ctx context.Context, name string) error {
	_, err := d.page.Context(ctx).Eval(
		`(name) => document.documentElement.setAttribute(name, '')`, name)
	if err != nil {
		return fmt.Errorf("dom: set marker %s: %w", name, err)
	}
	return nil
}

func (d *RodDocument) RemoveMarker(ctx context.Context, name string) error {
	_, err := d.page.Context(ctx).Eval(
		`(name) => document.documentElement.removeAttribute(name)`, name)
	if err != nil {
		return fmt.Errorf("dom: remove marker %s: %w", name, err)
	}
	return nil
}

func (d *RodDocument) HasMarker(ctx context.Context, name string) (bool, error) {
	res, err := d.page.Context(ctx).Eval(
		`(name) => document.documentElement.hasAttribute(name)`, name)
	if err != nil {
		return false, fmt.Errorf("dom: has marker %s: %w", name, err)
	}
	return res.Value.Bool(), nil
}

func (d *RodDocument) Media(ctx context.Context) ([]MediaElement, error) {
	els, err := d.page.Context(ctx).Elements(d.profile.VideoSelector)
	if err != nil {
		return nil, fmt.Errorf("dom: query media: %w", err)
	}
	out := make([]MediaElement, 0, len(els))
	for _, el := range els {
		out = append(out, &rodMedia{el: el})
	}
	return out, nil
}

func (d *RodDocument) ApplyBlur(ctx context.Context) error {
	if err := d.ensureHelpers(ctx); err != nil {
		return err
	}
	if _, err := d.page.Context(ctx).Eval(`() => window.__domtuner.applyBlur()`); err != nil {
		return fmt.Errorf("dom: apply blur: %w", err)
	}
	return nil
}

func (d *RodDocument) RemoveBlur(ctx context.Context) error {
	if err := d.ensureHelpers(ctx); err != nil {
		return err
	}
	if _, err := d.page.Context(ctx).Eval(`() => window.__domtuner.removeBlur()`); err != nil {
		return fmt.Errorf("dom: remove blur: %w", err)
	}
	return nil
}

func (d *RodDocument) Control() Control { return d.ctrl }

type rodMedia struct {
	el *rod.Element
}

func (m *rodMedia) Rate(ctx context.Context) (float64, error) {
	res, err := m.el.Context(ctx).Eval(`() => this.playbackRate`)
	if err != nil {
		return 0, fmt.Errorf("dom: read rate: %w", err)
	}
	return res.Value.Num(), nil
}

func (m *rodMedia) SetRate(ctx context.Context, rate float64) error {
	_, err := m.el.Context(ctx).Eval(`(rate) => { this.playbackRate = rate }`, rate)
	if err != nil {
		return fmt.Errorf("dom: set rate: %w", err)
	}
	return nil
}

// rodControl drives the injected control through control.js. User
// interactions come back over the Runtime binding.
type rodControl struct {
	doc    *RodDocument
	events chan ControlEvent

	bindOnce sync.Once
	bindErr  error
}

func (c *rodControl) ensureBinding(ctx context.Context) error {
	c.bindOnce.Do(func() {
		page := c.doc.page
		if err := (proto.RuntimeAddBinding{Name: controlBinding}).Call(page); err != nil {
			c.bindErr = fmt.Errorf("dom: add binding: %w", err)
			return
		}
		go page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
			if e.Name != controlBinding {
				return
			}
			var ev ControlEvent
			if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil {
				c.doc.logger.Warn("dom: control event parse failed", "error", err)
				return
			}
			select {
			case c.events <- ev:
			default:
				c.doc.logger.Warn("dom: control event dropped, channel full")
			}
		})()
	})
	return c.bindErr
}

func (c *rodControl) Mount(ctx context.Context, spec ControlSpec) error {
	if err := c.ensureBinding(ctx); err != nil {
		return err
	}
	page := c.doc.page.Context(ctx)
	if _, err := page.Eval(string(controlJS)); err != nil {
		return fmt.Errorf("dom: inject control: %w", err)
	}
	presets, _ := json.Marshal(spec.Presets)
	res, err := page.Eval(
		`(anchor, label, presets) => window.__domtuner_ctrl.mount(anchor, label, JSON.parse(presets))`,
		spec.Anchor, spec.Label, string(presets))
	if err != nil {
		return fmt.Errorf("dom: mount control: %w", err)
	}
	if !res.Value.Bool() {
		return ErrTargetMissing
	}
	return nil
}

func (c *rodControl) Unmount(ctx context.Context) error {
	_, err := c.doc.page.Context(ctx).Eval(`() => window.__domtuner_ctrl && window.__domtuner_ctrl.unmount()`)
	if err != nil {
		return fmt.Errorf("dom: unmount control: %w", err)
	}
	return nil
}

func (c *rodControl) SetLabel(ctx context.Context, label string) error {
	_, err := c.doc.page.Context(ctx).Eval(
		`(label) => window.__domtuner_ctrl.setLabel(label)`, label)
	if err != nil {
		return fmt.Errorf("dom: set label: %w", err)
	}
	return nil
}

func (c *rodControl) SetInvalid(ctx context.Context, invalid bool) error {
	_, err := c.doc.page.Context(ctx).Eval(
		`(invalid) => window.__domtuner_ctrl.setInvalid(invalid)`, invalid)
	if err != nil {
		return fmt.Errorf("dom: set invalid: %w", err)
	}
	return nil
}

func (c *rodControl) SetEntry(ctx context.Context, text string) error {
	_, err := c.doc.page.Context(ctx).Eval(
		`(text) => window.__domtuner_ctrl.setInputValue(text)`, text)
	if err != nil {
		return fmt.Errorf("dom: set entry: %w", err)
	}
	return nil
}

func (c *rodControl) LiveRate(ctx context.Context) (float64, error) {
	media, err := c.doc.Media(ctx)
	if err != nil {
		return 0, err
	}
	if len(media) == 0 {
		return 0, ErrTargetMissing
	}
	return media[0].Rate(ctx)
}

func (c *rodControl) ShowPopover(ctx context.Context) error {
	_, err := c.doc.page.Context(ctx).Eval(`() => window.__domtuner_ctrl.show(true)`)
	if err != nil {
		return fmt.Errorf("dom: show popover: %w", err)
	}
	return nil
}

func (c *rodControl) HidePopover(ctx context.Context) error {
	_, err := c.doc.page.Context(ctx).Eval(`() => window.__domtuner_ctrl.show(false)`)
	if err != nil {
		return fmt.Errorf("dom: hide popover: %w", err)
	}
	return nil
}

func (c *rodControl) Measure(ctx context.Context) (Layout, error) {
	res, err := c.doc.page.Context(ctx).Eval(`() => window.__domtuner_ctrl.measure()`)
	if err != nil {
		return Layout{}, fmt.Errorf("dom: measure: %w", err)
	}
	data, err := res.Value.MarshalJSON()
	if err != nil {
		return Layout{}, fmt.Errorf("dom: measure marshal: %w", err)
	}
	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("dom: measure decode: %w", err)
	}
	return layout, nil
}

func (c *rodControl) Place(ctx context.Context, x, y float64) error {
	_, err := c.doc.page.Context(ctx).Eval(
		`(x, y) => window.__domtuner_ctrl.place(x, y)`, x, y)
	if err != nil {
		return fmt.Errorf("dom: place popover: %w", err)
	}
	return nil
}

func (c *rodControl) Events() <-chan ControlEvent { return c.events }
