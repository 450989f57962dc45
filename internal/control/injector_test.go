package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/domtuner/internal/dom"
	"github.com/hazyhaar/domtuner/internal/dom/domtest"
	"github.com/hazyhaar/domtuner/internal/enforce"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

// fakeSchedule records deferred callbacks so tests control when they fire.
type fakeSchedule struct {
	mu  sync.Mutex
	fns []func()
}

func (s *fakeSchedule) schedule(_ time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

func (s *fakeSchedule) fire() int {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func newInjector(doc *domtest.Doc, sched *fakeSchedule) *Injector {
	snap := prefs.Defaults()
	snapshot := func() prefs.Snapshot { return snap }
	enf := enforce.New(enforce.Config{Doc: doc, Snapshot: snapshot})
	return New(Config{
		Doc:      doc,
		Enforcer: enf,
		Snapshot: snapshot,
		Anchor:   "#controls",
		Schedule: sched.schedule,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMountSetsLabelAndFlag(t *testing.T) {
	doc := domtest.NewDoc()
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	inj.Mount(context.Background())

	if !doc.Ctrl().Mounted() {
		t.Fatal("control not mounted")
	}
	if got := doc.Ctrl().Label(); got != "1x" {
		t.Errorf("label = %q, want %q", got, "1x")
	}
}

func TestMountIsIdempotent(t *testing.T) {
	doc := domtest.NewDoc()
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx := context.Background()
	inj.Mount(ctx)
	doc.Ctrl().SetAnchorMissing(true) // a second real mount attempt would fail
	inj.Mount(ctx)

	if !doc.Ctrl().Mounted() {
		t.Fatal("second Mount disturbed the mounted control")
	}
	if n := sched.fire(); n != 0 {
		t.Errorf("second Mount scheduled %d retries, want 0", n)
	}
}

func TestMountRetriesUntilAnchorAppears(t *testing.T) {
	doc := domtest.NewDoc()
	doc.Ctrl().SetAnchorMissing(true)
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx := context.Background()
	inj.Mount(ctx)
	if doc.Ctrl().Mounted() {
		t.Fatal("mounted despite missing anchor")
	}

	// Anchor still missing: retry reschedules itself.
	if n := sched.fire(); n != 1 {
		t.Fatalf("fired %d callbacks, want 1", n)
	}
	if doc.Ctrl().Mounted() {
		t.Fatal("mounted despite missing anchor on retry")
	}

	// Anchor renders; next retry succeeds and stops rescheduling.
	doc.Ctrl().SetAnchorMissing(false)
	sched.fire()
	if !doc.Ctrl().Mounted() {
		t.Fatal("retry did not mount after anchor appeared")
	}
	if n := sched.fire(); n != 0 {
		t.Errorf("retry kept rescheduling after success: %d callbacks", n)
	}
}

func TestMountRetryStopsOnCancel(t *testing.T) {
	doc := domtest.NewDoc()
	doc.Ctrl().SetAnchorMissing(true)
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx, cancel := context.WithCancel(context.Background())
	inj.Mount(ctx)
	cancel()
	doc.Ctrl().SetAnchorMissing(false)

	sched.fire()
	if doc.Ctrl().Mounted() {
		t.Fatal("retry mounted after context cancellation")
	}
}

func TestTogglePlacesAndShowsPopover(t *testing.T) {
	doc := domtest.NewDoc()
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inj.Mount(ctx)
	go inj.Run(ctx)

	doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventToggle})
	waitFor(t, "popover shown", doc.Ctrl().PopoverShown)

	x, y := doc.Ctrl().Placed()
	// Default fake layout: button at (500,400) 48x32, popover 160x220.
	if wantX := 500 + 24 - 80.0; x != wantX {
		t.Errorf("placed x = %v, want %v", x, wantX)
	}
	if wantY := 400 - 220 - 8.0; y != wantY {
		t.Errorf("placed y = %v, want %v", y, wantY)
	}

	doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventToggle})
	waitFor(t, "popover hidden", func() bool { return !doc.Ctrl().PopoverShown() })
}

func TestDismissClosesPopover(t *testing.T) {
	doc := domtest.NewDoc()
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inj.Mount(ctx)
	go inj.Run(ctx)

	doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventToggle})
	waitFor(t, "popover shown", doc.Ctrl().PopoverShown)

	doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventDismiss})
	waitFor(t, "popover hidden", func() bool { return !doc.Ctrl().PopoverShown() })
}

func TestPresetAppliesRateAndUpdatesLabel(t *testing.T) {
	doc := domtest.NewDoc()
	media := doc.AddMedia(1)
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inj.Mount(ctx)
	go inj.Run(ctx)

	doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventToggle})
	waitFor(t, "popover shown", doc.Ctrl().PopoverShown)

	doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventPreset, Value: 1.5})
	waitFor(t, "rate applied", func() bool { return media.CurrentRate() == 1.5 })

	if got := doc.Ctrl().Label(); got != "1.5x" {
		t.Errorf("label = %q, want %q", got, "1.5x")
	}
	if doc.Ctrl().Invalid() {
		t.Error("invalid flag raised on a valid preset")
	}

	// The popover close is deferred; it only hides once the delay fires.
	if !doc.Ctrl().PopoverShown() {
		t.Fatal("popover hidden before the close delay")
	}
	sched.fire()
	if doc.Ctrl().PopoverShown() {
		t.Error("popover still visible after close delay")
	}
}

func TestCustomEntryAccepted(t *testing.T) {
	doc := domtest.NewDoc()
	media := doc.AddMedia(1)
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inj.Mount(ctx)
	go inj.Run(ctx)

	doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventCustom, Text: "2.5"})
	waitFor(t, "rate applied", func() bool { return media.CurrentRate() == 2.5 })

	if got := doc.Ctrl().Label(); got != "2.5x" {
		t.Errorf("label = %q, want %q", got, "2.5x")
	}
	if got := doc.Ctrl().Entry(); got != "2.5" {
		t.Errorf("entry = %q, want %q", got, "2.5")
	}
}

func TestCustomEntryRejected(t *testing.T) {
	for _, text := range []string{"fast", "20", "0.05", "-1", ""} {
		t.Run(text, func(t *testing.T) {
			doc := domtest.NewDoc()
			media := doc.AddMedia(1.25)
			doc.Ctrl().SetLiveRate(1.25)
			sched := &fakeSchedule{}
			inj := newInjector(doc, sched)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			inj.Mount(ctx)
			go inj.Run(ctx)

			doc.Ctrl().Emit(dom.ControlEvent{Kind: dom.EventCustom, Text: text})
			waitFor(t, "invalid flag", doc.Ctrl().Invalid)

			if got := doc.Ctrl().Entry(); got != "1.25" {
				t.Errorf("entry = %q, want reverted to %q", got, "1.25")
			}
			if media.SetCalls() != 0 {
				t.Error("rejected entry touched the media element")
			}
		})
	}
}

func TestUnmountClearsFlag(t *testing.T) {
	doc := domtest.NewDoc()
	sched := &fakeSchedule{}
	inj := newInjector(doc, sched)

	ctx := context.Background()
	inj.Mount(ctx)
	inj.Unmount(ctx)

	if doc.Ctrl().Mounted() {
		t.Fatal("control still mounted")
	}

	// A fresh Mount must work again.
	inj.Mount(ctx)
	if !doc.Ctrl().Mounted() {
		t.Fatal("remount after Unmount failed")
	}
}
