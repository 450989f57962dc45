package bridge

import (
	"context"
	"log/slog"
)

// NavigationBridge re-applies the full augmentation after the host finished
// a navigation or replaced page data in place. Both cases can rebuild
// arbitrary parts of the document, so nothing short of a full pass is safe.
type NavigationBridge struct {
	reapply func(ctx context.Context)
	logger  *slog.Logger
}

// NewNavigation creates a NavigationBridge around the full re-apply entry
// point and subscribes it to src.
func NewNavigation(src Source, reapply func(ctx context.Context), logger *slog.Logger) *NavigationBridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &NavigationBridge{reapply: reapply, logger: logger}
	src.Subscribe(b.Handle)
	return b
}

// Handle reacts to navigation-class events and ignores everything else.
func (b *NavigationBridge) Handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case NavigationFinished:
		b.logger.Info("bridge: navigation finished", "url", e.URL)
	case PageDataUpdated:
		b.logger.Info("bridge: page data updated", "url", e.URL)
	default:
		return
	}
	b.reapply(ctx)
}
