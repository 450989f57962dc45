package reconcile

import (
	"context"
	"reflect"
	"testing"

	"github.com/hazyhaar/domtuner/internal/dom"
	"github.com/hazyhaar/domtuner/internal/dom/domtest"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

func TestApplyDefaultsMasterOn(t *testing.T) {
	doc := domtest.NewDoc()
	r := New(doc, nil)

	// Scenario A: defaults, master on, blurThumbs off.
	r.Apply(context.Background(), prefs.Defaults())

	want := []string{
		dom.MarkerEnabled,
		dom.MarkerHideComments,
		dom.MarkerHideEndscreen,
		dom.MarkerHideHome,
		dom.MarkerHideRecs,
		dom.MarkerHideShorts,
		dom.MarkerHideSidebar,
	}
	if got := doc.Markers(); !reflect.DeepEqual(got, want) {
		t.Errorf("markers: got %v, want %v", got, want)
	}
	if doc.Blurred {
		t.Error("blur should be off with blurThumbs disabled")
	}
}

func TestApplyIdempotent(t *testing.T) {
	doc := domtest.NewDoc()
	r := New(doc, nil)
	snap := prefs.Defaults()
	snap.BlurThumbs = true

	r.Apply(context.Background(), snap)
	once := doc.Markers()
	r.Apply(context.Background(), snap)
	twice := doc.Markers()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent: once %v, twice %v", once, twice)
	}
}

func TestApplyMasterOff(t *testing.T) {
	doc := domtest.NewDoc()
	media := doc.AddMedia(2.5)
	r := New(doc, nil)

	snap := prefs.Defaults()
	snap.BlurThumbs = true
	r.Apply(context.Background(), snap)

	// Scenario B: master toggled off — markers gone, rates forced to 1.
	snap.MasterEnabled = false
	r.Apply(context.Background(), snap)

	if got := doc.Markers(); len(got) != 0 {
		t.Errorf("markers after disable: got %v, want none", got)
	}
	if doc.Blurred {
		t.Error("blur should be removed on disable")
	}
	if got := media.CurrentRate(); got != 1 {
		t.Errorf("media rate after disable: got %v, want 1", got)
	}
}

func TestApplyBlurOn(t *testing.T) {
	doc := domtest.NewDoc()
	r := New(doc, nil)

	snap := prefs.Defaults()
	snap.BlurThumbs = true
	r.Apply(context.Background(), snap)

	if !doc.Blurred {
		t.Error("blur should be applied")
	}
	found := false
	for _, m := range doc.Markers() {
		if m == dom.MarkerBlurThumbs {
			found = true
		}
	}
	if !found {
		t.Error("blur marker should be present")
	}
}

func TestApplyFeatureToggle(t *testing.T) {
	doc := domtest.NewDoc()
	r := New(doc, nil)

	snap := prefs.Defaults()
	r.Apply(context.Background(), snap)

	snap.HideHome = false
	r.Apply(context.Background(), snap)

	for _, m := range doc.Markers() {
		if m == dom.MarkerHideHome {
			t.Error("hideHome marker should be removed after toggle off")
		}
	}
}

func TestReapplyBlurRespectsFlags(t *testing.T) {
	doc := domtest.NewDoc()
	r := New(doc, nil)

	snap := prefs.Defaults()
	r.ReapplyBlur(context.Background(), snap)
	if doc.BlurApplies != 0 {
		t.Error("reapply should no-op with blurThumbs off")
	}

	snap.BlurThumbs = true
	r.ReapplyBlur(context.Background(), snap)
	if doc.BlurApplies != 1 {
		t.Error("reapply should run with master and blur on")
	}

	snap.MasterEnabled = false
	r.ReapplyBlur(context.Background(), snap)
	if doc.BlurApplies != 1 {
		t.Error("reapply should no-op with master off")
	}
}
