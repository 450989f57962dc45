package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/domtuner/internal/dom/domtest"
	"github.com/hazyhaar/domtuner/internal/enforce"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestHubFanOutInOrder(t *testing.T) {
	hub := NewHub()
	var order []int
	hub.Subscribe(func(context.Context, Event) { order = append(order, 1) })
	hub.Subscribe(func(context.Context, Event) { order = append(order, 2) })

	hub.Publish(context.Background(), NavigationFinished{URL: "https://host.example/"})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("delivery order = %v, want [1 2]", order)
	}
}

func TestNavigationBridgeReappliesOnHostSignals(t *testing.T) {
	hub := NewHub()
	reapplies := 0
	NewNavigation(hub, func(context.Context) { reapplies++ }, nil)

	ctx := context.Background()
	hub.Publish(ctx, NavigationFinished{URL: "https://host.example/watch?v=1"})
	hub.Publish(ctx, PageDataUpdated{URL: "https://host.example/watch?v=1"})
	hub.Publish(ctx, PrefsChanged{Keys: []string{prefs.KeyHideHome}, Area: prefs.SyncArea})

	if reapplies != 2 {
		t.Errorf("reapplies = %d, want 2 (navigation-class events only)", reapplies)
	}
}

type changeFixture struct {
	hub   *Hub
	clock *fakeClock
	enf   *enforce.Enforcer

	old, cur prefs.Snapshot

	reloads  int
	mounts   int
	unmounts int
	full     int
	markers  int
}

func newChangeFixture(t *testing.T) *changeFixture {
	t.Helper()
	f := &changeFixture{
		hub:   NewHub(),
		clock: &fakeClock{now: time.Unix(1000, 0)},
		old:   prefs.Defaults(),
		cur:   prefs.Defaults(),
	}
	doc := domtest.NewDoc()
	f.enf = enforce.New(enforce.Config{
		Doc:      doc,
		Snapshot: func() prefs.Snapshot { return f.cur },
		Clock:    f.clock,
	})
	NewChange(f.hub, ChangeConfig{
		Reload: func(context.Context) (prefs.Snapshot, prefs.Snapshot) {
			f.reloads++
			return f.old, f.cur
		},
		Enforcer:     f.enf,
		Clock:        f.clock,
		Mount:        func(context.Context) { f.mounts++ },
		Unmount:      func(context.Context) { f.unmounts++ },
		Reapply:      func(context.Context) { f.full++ },
		ApplyMarkers: func(context.Context) { f.markers++ },
	})
	return f
}

func TestChangeBridgeIgnoresOtherAreas(t *testing.T) {
	f := newChangeFixture(t)

	f.hub.Publish(context.Background(), PrefsChanged{Keys: []string{prefs.KeyHideHome}, Area: "local"})

	if f.reloads != 0 {
		t.Errorf("reloads = %d, want 0 for a non-sync area", f.reloads)
	}
}

func TestChangeBridgeFullReapply(t *testing.T) {
	f := newChangeFixture(t)
	f.cur.HideHome = false

	f.hub.Publish(context.Background(), PrefsChanged{Keys: []string{prefs.KeyHideHome}, Area: prefs.SyncArea})

	if f.reloads != 1 {
		t.Fatalf("reloads = %d, want 1", f.reloads)
	}
	if f.full != 1 || f.markers != 0 {
		t.Errorf("full = %d markers = %d, want full re-apply", f.full, f.markers)
	}
	if f.mounts != 0 || f.unmounts != 0 {
		t.Error("control touched without a master flip")
	}
}

func TestChangeBridgeMountsOnMasterOn(t *testing.T) {
	f := newChangeFixture(t)
	f.old.MasterEnabled = false

	f.hub.Publish(context.Background(), PrefsChanged{Keys: []string{prefs.KeyMasterEnabled}, Area: prefs.SyncArea})

	if f.mounts != 1 {
		t.Errorf("mounts = %d, want 1", f.mounts)
	}
}

func TestChangeBridgeUnmountsOnMasterOff(t *testing.T) {
	f := newChangeFixture(t)
	f.cur.MasterEnabled = false

	f.hub.Publish(context.Background(), PrefsChanged{Keys: []string{prefs.KeyMasterEnabled}, Area: prefs.SyncArea})

	if f.unmounts != 1 {
		t.Errorf("unmounts = %d, want 1", f.unmounts)
	}
}

func TestChangeBridgeMarkersOnlyDuringGrace(t *testing.T) {
	f := newChangeFixture(t)
	f.enf.State().Interaction(f.clock.now)
	f.clock.now = f.clock.now.Add(2 * time.Second) // inside the 5s grace window

	f.hub.Publish(context.Background(), PrefsChanged{Keys: []string{prefs.KeyBlurThumbs}, Area: prefs.SyncArea})

	if f.markers != 1 || f.full != 0 {
		t.Errorf("markers = %d full = %d, want markers-only during grace", f.markers, f.full)
	}
}

func TestChangeBridgeFullReapplyAfterGraceExpires(t *testing.T) {
	f := newChangeFixture(t)
	f.enf.State().Interaction(f.clock.now)
	f.clock.now = f.clock.now.Add(6 * time.Second)

	f.hub.Publish(context.Background(), PrefsChanged{Keys: []string{prefs.KeyBlurThumbs}, Area: prefs.SyncArea})

	if f.full != 1 || f.markers != 0 {
		t.Errorf("full = %d markers = %d, want full re-apply after grace", f.full, f.markers)
	}
}
