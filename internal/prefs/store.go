package prefs

import (
	"context"
	"log/slog"
)

// Store reads and writes preferences through a ranked list of backends.
// The tiering policy lives here once: probe, read/write, mirror. Callers
// never see a storage failure — the worst outcome is operating on defaults.
type Store struct {
	tiers  []Backend // ranked, primary first
	logger *slog.Logger
}

// NewStore creates a Store over the given tiers, primary first.
func NewStore(logger *slog.Logger, tiers ...Backend) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{tiers: tiers, logger: logger}
}

// Load returns the current snapshot. It never fails: the first available
// tier that reads successfully wins, and its record is mirrored best-effort
// into every lower tier so a later primary failure still has a recent copy
// to fall back to. If every tier fails, defaults are returned.
func (s *Store) Load(ctx context.Context) Snapshot {
	for i, tier := range s.tiers {
		if !tier.Available(ctx) {
			s.logger.Debug("prefs: tier unavailable, falling through", "tier", tier.Name())
			continue
		}
		rec, err := tier.Read(ctx)
		if err != nil {
			s.logger.Warn("prefs: tier read failed, falling through",
				"tier", tier.Name(), "error", err)
			continue
		}
		snap := FromRecord(rec)
		s.mirror(ctx, i, snap)
		return snap
	}

	s.logger.Warn("prefs: all tiers failed, using defaults")
	return Defaults()
}

// Save writes a partial update. Best-effort: the first available tier that
// accepts the write wins; on any error the same record falls through to the
// next tier. Failures are logged, never returned — a write is not retried
// automatically.
func (s *Store) Save(ctx context.Context, rec Record) {
	if len(rec) == 0 {
		return
	}
	for _, tier := range s.tiers {
		if !tier.Available(ctx) {
			s.logger.Debug("prefs: tier unavailable for write", "tier", tier.Name())
			continue
		}
		if err := tier.Write(ctx, rec); err != nil {
			s.logger.Warn("prefs: tier write failed, falling through",
				"tier", tier.Name(), "error", err)
			continue
		}
		return
	}
	s.logger.Warn("prefs: write lost, all tiers failed", "keys", len(rec))
}

// mirror writes the full snapshot into every tier below the one that
// served the read. Mirror failures are logged and ignored.
func (s *Store) mirror(ctx context.Context, servedBy int, snap Snapshot) {
	rec := snap.Record()
	for _, tier := range s.tiers[servedBy+1:] {
		if !tier.Available(ctx) {
			continue
		}
		if err := tier.Write(ctx, rec); err != nil {
			s.logger.Warn("prefs: mirror failed", "tier", tier.Name(), "error", err)
		}
	}
}
