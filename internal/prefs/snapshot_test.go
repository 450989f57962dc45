package prefs

import "testing"

func TestDefaults(t *testing.T) {
	s := Defaults()
	if !s.MasterEnabled {
		t.Error("masterEnabled default should be true")
	}
	if !s.HideHome || !s.HideShorts || !s.HideComments || !s.HideSidebar ||
		!s.HideEndscreen || !s.HideRecs {
		t.Error("hide* defaults should be true")
	}
	if s.HideGuide {
		t.Error("hideGuide default should be false")
	}
	if s.BlurThumbs {
		t.Error("blurThumbs default should be false")
	}
	if s.PlaybackRate != 1 {
		t.Errorf("playbackRate default: got %v, want 1", s.PlaybackRate)
	}
}

func TestRecordRoundtrip(t *testing.T) {
	s := Defaults()
	s.MasterEnabled = false
	s.BlurThumbs = true
	s.PlaybackRate = 2.5

	got := FromRecord(s.Record())
	if got != s {
		t.Errorf("round-trip: got %+v, want %+v", got, s)
	}
}

func TestFromRecordSparse(t *testing.T) {
	got := FromRecord(Record{KeyHideGuide: "true"})
	want := Defaults()
	want.HideGuide = true
	if got != want {
		t.Errorf("sparse record: got %+v, want %+v", got, want)
	}
}

func TestFromRecordUnparsableRateFallsBack(t *testing.T) {
	for _, text := range []string{"NaN", "-2", "0", "abc", "+Inf", ""} {
		got := FromRecord(Record{KeyPlaybackRate: text})
		if got.PlaybackRate != 1 {
			t.Errorf("rate %q: got %v, want default 1", text, got.PlaybackRate)
		}
	}
}

func TestParseBoolLiteral(t *testing.T) {
	if !ParseBool("true") {
		t.Error(`ParseBool("true") should be true`)
	}
	for _, text := range []string{"TRUE", "True", "1", "false", "", "yes"} {
		if ParseBool(text) {
			t.Errorf("ParseBool(%q) should be false", text)
		}
	}
}

func TestParseRate(t *testing.T) {
	rate, err := ParseRate("2.5")
	if err != nil {
		t.Fatalf("ParseRate(2.5): %v", err)
	}
	if rate != 2.5 {
		t.Errorf("rate: got %v, want 2.5", rate)
	}

	for _, text := range []string{"NaN", "Inf", "-Inf", "0", "-1", "x"} {
		if _, err := ParseRate(text); err == nil {
			t.Errorf("ParseRate(%q) should fail", text)
		}
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(1.25); got != "1.25" {
		t.Errorf("FormatRate(1.25): got %q", got)
	}
	if got := FormatRate(2); got != "2" {
		t.Errorf("FormatRate(2): got %q", got)
	}
}

func TestMergeIgnoresUnknownKeys(t *testing.T) {
	s := Defaults()
	got := s.Merge(Record{"bogus": "true", KeyBlurThumbs: "true"})
	if !got.BlurThumbs {
		t.Error("blurThumbs should merge")
	}
	if got.PlaybackRate != 1 {
		t.Error("unrelated fields should be unchanged")
	}
}
