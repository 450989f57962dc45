package enforce

import "time"

// Clock abstracts wall time so the grace-window logic is deterministically
// testable without real delays.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}
