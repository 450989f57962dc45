// Package observer implements per-page DOM observation: an injected
// MutationObserver plus host navigation hooks, delivered over a Runtime
// binding, debounced and handed to a batch handler.
package observer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domtuner/idgen"
	"github.com/hazyhaar/domtuner/mutation"
)

//go:embed observer.js
var observerJS []byte

const observeBinding = "__domtuner_observe"

// Handler receives each flushed batch. Host signals arrive as single-record
// batches ahead of any buffered mutations.
type Handler func(ctx context.Context, batch *mutation.Batch)

// Config for creating an Observer.
type Config struct {
	Page    *rod.Page
	PageURL string
	Handler Handler

	// Host SPA event names that signal a finished navigation or an in-place
	// page data update.
	NavigateEvents []string
	PageDataEvents []string

	DebounceWindow time.Duration
	DebounceMax    int
	HTMLCap        int

	IDs    idgen.Generator
	Logger *slog.Logger
}

// Observer manages observation for a single page.
type Observer struct {
	page    *rod.Page
	pageURL string
	handler Handler
	ids     idgen.Generator
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	navigateEvents []string
	pageDataEvents []string
	htmlCap        int

	rawCh     chan mutation.Record
	resetCh   chan struct{}
	debouncer *debouncer
	seq       atomic.Uint64
}

// New creates an Observer for the given page.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.Default
	}
	if cfg.HTMLCap <= 0 {
		cfg.HTMLCap = 4096
	}

	ctx, cancel := context.WithCancel(context.Background())

	o := &Observer{
		page:           cfg.Page,
		pageURL:        cfg.PageURL,
		handler:        cfg.Handler,
		ids:            cfg.IDs,
		logger:         cfg.Logger,
		ctx:            ctx,
		cancel:         cancel,
		navigateEvents: cfg.NavigateEvents,
		pageDataEvents: cfg.PageDataEvents,
		htmlCap:        cfg.HTMLCap,
		rawCh:          make(chan mutation.Record, 4096),
		resetCh:        make(chan struct{}, 1),
	}

	o.debouncer = newDebouncer(debounceConfig{
		Window:    cfg.DebounceWindow,
		MaxBuffer: cfg.DebounceMax,
	}, o.onFlush)

	return o
}

// SetContext allows the owning agent to pass its context. Must be called
// before Start.
func (o *Observer) SetContext(ctx context.Context) {
	if o.cancel != nil {
		o.cancel()
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
}

// Start registers the binding, injects the observer script and runs the
// processing loop.
func (o *Observer) Start() error {
	if err := (proto.RuntimeAddBinding{Name: observeBinding}).Call(o.page); err != nil {
		o.logger.Warn("observer: addBinding failed (may already exist)", "error", err)
	}
	// DOM domain must be enabled to receive documentUpdated events.
	proto.DOMEnable{}.Call(o.page)

	go o.listen()

	if err := o.injectJS(); err != nil {
		return fmt.Errorf("observer: inject JS: %w", err)
	}
	go o.loop()
	return nil
}

// Stop stops the observer. The processing loop flushes buffered mutations
// on its way out; the loop goroutine is the debouncer's only owner.
func (o *Observer) Stop() {
	o.cancel()
}

// injectJS installs the observer script. The script self-guards, so a
// repeat call on a surviving document is a no-op in the page.
func (o *Observer) injectJS() error {
	cfg := map[string]any{
		"navigate_events":  o.navigateEvents,
		"page_data_events": o.pageDataEvents,
		"html_cap":         o.htmlCap,
	}
	cfgJSON, _ := json.Marshal(cfg)
	if _, err := o.page.Eval(fmt.Sprintf("window.__domtuner_observe_config = %s;", cfgJSON)); err != nil {
		return fmt.Errorf("set observer config: %w", err)
	}

	if _, err := o.page.Eval(string(observerJS)); err != nil {
		return fmt.Errorf("inject observer.js: %w", err)
	}

	o.logger.Debug("observer: JS injected", "url", o.pageURL)
	return nil
}

// listen receives records from the injected script and signals the loop
// when the host replaces the whole document.
func (o *Observer) listen() {
	o.page.Context(o.ctx).EachEvent(
		func(e *proto.RuntimeBindingCalled) {
			if e.Name != observeBinding {
				return
			}

			var records []mutation.Record
			if err := json.Unmarshal([]byte(e.Payload), &records); err != nil {
				o.logger.Warn("observer: parse binding payload", "error", err)
				return
			}

			for _, rec := range records {
				if rec.Signal() {
					// Signals jump the queue: the debouncer window must not
					// delay a navigation re-apply.
					o.emitSignal(rec)
					continue
				}
				select {
				case o.rawCh <- rec:
				default:
					o.logger.Warn("observer: record dropped, channel full")
				}
			}
		},
		func(*proto.DOMDocumentUpdated) {
			select {
			case o.resetCh <- struct{}{}:
			default:
			}
		},
	)()
}

// loop reads raw records and debounces them into batches. Document
// replacement kills the in-page observer, so a reset flushes and
// re-injects; the Runtime binding itself survives.
func (o *Observer) loop() {
	for {
		select {
		case <-o.ctx.Done():
			o.debouncer.flush()
			return
		case rec := <-o.rawCh:
			o.debouncer.add(rec)
		case <-o.debouncer.timerC():
			o.debouncer.flush()
		case <-o.resetCh:
			o.logger.Info("observer: document replaced, re-injecting")
			o.debouncer.flush()
			if err := o.injectJS(); err != nil {
				o.logger.Error("observer: re-inject failed", "error", err)
			}
		}
	}
}

func (o *Observer) onFlush(records []mutation.Record) {
	o.emit(records)
}

func (o *Observer) emitSignal(rec mutation.Record) {
	o.emit([]mutation.Record{rec})
}

func (o *Observer) emit(records []mutation.Record) {
	if len(records) == 0 || o.handler == nil {
		return
	}
	batch := &mutation.Batch{
		ID:        o.ids(),
		PageURL:   o.pageURL,
		Seq:       o.seq.Add(1),
		Records:   records,
		Timestamp: time.Now().UnixMilli(),
	}
	o.handler(o.ctx, batch)
}
