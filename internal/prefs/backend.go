package prefs

import (
	"context"
	"errors"
)

// ErrUnavailable reports that a backend failed its capability probe. It is
// a policy branch for the store's tiering, never surfaced to callers.
var ErrUnavailable = errors.New("prefs: backend unavailable")

// Backend is one tier of preference storage. Implementations must treat a
// failed capability probe as "unavailable", not as an error: Available
// never panics and never blocks beyond its context.
type Backend interface {
	// Name identifies the tier in logs.
	Name() string

	// Available runs the capability probe.
	Available(ctx context.Context) bool

	// Read returns the stored record. The record may be sparse; the store
	// substitutes defaults for unset keys.
	Read(ctx context.Context) (Record, error)

	// Write upserts a partial record. Values are already serialised text.
	Write(ctx context.Context, rec Record) error
}
