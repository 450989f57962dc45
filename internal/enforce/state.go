package enforce

import (
	"sync"
	"time"
)

// State is the transient, process-lifetime interaction state. It is never
// persisted and is reset, not destroyed, whenever a new media element is
// detected (new playback session).
type State struct {
	mu              sync.Mutex
	lastInteraction time.Time
	hasOverride     bool
	injected        bool
	contextWarned   bool
}

// NewState creates fresh interaction state.
func NewState() *State { return &State{} }

// Interaction records a manual rate change at now and raises the override.
func (s *State) Interaction(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastInteraction = now
	s.hasOverride = true
}

// Override reports whether a manual override is active.
func (s *State) Override() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasOverride
}

// LastInteraction returns the instant of the most recent manual change.
func (s *State) LastInteraction() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInteraction
}

// ClearOverride lowers the override flag. Called when enforcement applies a
// rate after the grace period has elapsed.
func (s *State) ClearOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasOverride = false
}

// Reset clears the override and timestamp for a new playback session. The
// injected flag survives: the control outlives the media element.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasOverride = false
	s.lastInteraction = time.Time{}
}

// SetInjected records whether the control is currently mounted.
func (s *State) SetInjected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected = v
}

// Injected reports whether the control is currently mounted.
func (s *State) Injected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injected
}

// WarnContextOnce returns true the first time it is called; later calls
// return false. Used to log a dead page connection exactly once.
func (s *State) WarnContextOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contextWarned {
		return false
	}
	s.contextWarned = true
	return true
}
