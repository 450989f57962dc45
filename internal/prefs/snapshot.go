// Package prefs implements the tiered preference persistence layer: an
// immutable Snapshot value type, its textual storage representation, and a
// Store that reads through a ranked list of capability-checked backends.
package prefs

import (
	"fmt"
	"math"
	"strconv"
)

// Preference keys. The key set is fixed and closed; both storage tiers and
// the editor API share these names.
const (
	KeyMasterEnabled = "masterEnabled"
	KeyHideHome      = "hideHome"
	KeyHideShorts    = "hideShorts"
	KeyHideComments  = "hideComments"
	KeyHideSidebar   = "hideSidebar"
	KeyHideEndscreen = "hideEndscreen"
	KeyHideRecs      = "hideRecs"
	KeyHideGuide     = "hideGuide"
	KeyBlurThumbs    = "blurThumbs"
	KeyPlaybackRate  = "playbackRate"
)

// BoolKeys lists every boolean preference key in marker order.
var BoolKeys = []string{
	KeyMasterEnabled,
	KeyHideHome,
	KeyHideShorts,
	KeyHideComments,
	KeyHideSidebar,
	KeyHideEndscreen,
	KeyHideRecs,
	KeyHideGuide,
	KeyBlurThumbs,
}

// Snapshot is an immutable full copy of user preferences at a point in
// time. A new value replaces the old one wholesale; it is never partially
// mutated in place.
type Snapshot struct {
	MasterEnabled bool
	HideHome      bool
	HideShorts    bool
	HideComments  bool
	HideSidebar   bool
	HideEndscreen bool
	HideRecs      bool
	HideGuide     bool
	BlurThumbs    bool
	PlaybackRate  float64 // always strictly positive
}

// Defaults returns the snapshot used when no stored value exists.
func Defaults() Snapshot {
	return Snapshot{
		MasterEnabled: true,
		HideHome:      true,
		HideShorts:    true,
		HideComments:  true,
		HideSidebar:   true,
		HideEndscreen: true,
		HideRecs:      true,
		HideGuide:     false,
		BlurThumbs:    false,
		PlaybackRate:  1,
	}
}

// Bool returns the value of a boolean preference by key.
func (s Snapshot) Bool(key string) (value, ok bool) {
	switch key {
	case KeyMasterEnabled:
		return s.MasterEnabled, true
	case KeyHideHome:
		return s.HideHome, true
	case KeyHideShorts:
		return s.HideShorts, true
	case KeyHideComments:
		return s.HideComments, true
	case KeyHideSidebar:
		return s.HideSidebar, true
	case KeyHideEndscreen:
		return s.HideEndscreen, true
	case KeyHideRecs:
		return s.HideRecs, true
	case KeyHideGuide:
		return s.HideGuide, true
	case KeyBlurThumbs:
		return s.BlurThumbs, true
	}
	return false, false
}

// Record is the textual storage representation of preference values.
// Booleans serialise as the literals "true"/"false"; the rate serialises
// as its decimal text form. A Record may be sparse: unset keys resolve to
// defaults on read.
type Record map[string]string

// Record serialises the full snapshot.
func (s Snapshot) Record() Record {
	rec := make(Record, len(BoolKeys)+1)
	for _, key := range BoolKeys {
		v, _ := s.Bool(key)
		rec[key] = FormatBool(v)
	}
	rec[KeyPlaybackRate] = FormatRate(s.PlaybackRate)
	return rec
}

// FromRecord builds a snapshot from a stored record, substituting defaults
// for unset or unparsable keys.
func FromRecord(rec Record) Snapshot {
	s := Defaults()
	s.applyRecord(rec)
	return s
}

// Merge returns a new snapshot with the record's keys applied on top of s.
// Unknown keys are ignored; unparsable values leave the field unchanged.
func (s Snapshot) Merge(rec Record) Snapshot {
	out := s
	out.applyRecord(rec)
	return out
}

func (s *Snapshot) applyRecord(rec Record) {
	setBool := func(dst *bool, key string) {
		if text, ok := rec[key]; ok {
			*dst = ParseBool(text)
		}
	}
	setBool(&s.MasterEnabled, KeyMasterEnabled)
	setBool(&s.HideHome, KeyHideHome)
	setBool(&s.HideShorts, KeyHideShorts)
	setBool(&s.HideComments, KeyHideComments)
	setBool(&s.HideSidebar, KeyHideSidebar)
	setBool(&s.HideEndscreen, KeyHideEndscreen)
	setBool(&s.HideRecs, KeyHideRecs)
	setBool(&s.HideGuide, KeyHideGuide)
	setBool(&s.BlurThumbs, KeyBlurThumbs)
	if text, ok := rec[KeyPlaybackRate]; ok {
		if rate, err := ParseRate(text); err == nil {
			s.PlaybackRate = rate
		}
	}
}

// ParseBool compares against the literal "true". Anything else is false.
func ParseBool(text string) bool {
	return text == "true"
}

// FormatBool serialises a boolean as the literal "true"/"false".
func FormatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// ParseRate parses the decimal text form of a playback rate. NaN, Inf and
// values that are not strictly positive are rejected.
func ParseRate(text string) (float64, error) {
	rate, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("prefs: parse rate %q: %w", text, err)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return 0, fmt.Errorf("prefs: rate %q out of range", text)
	}
	return rate, nil
}

// FormatRate serialises a playback rate as decimal text.
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
