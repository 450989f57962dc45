package prefs

import (
	"context"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Change is a preference-change notification delivered by the sync
// service's websocket feed. Only changes in the "sync" area are acted on.
type Change struct {
	Keys []string `json:"keys"`
	Area string   `json:"area"`
}

// feedBackoff is the fixed reconnect delay for the change feed.
const feedBackoff = 5 * time.Second

// Feed subscribes to the sync service's change feed and invokes fn for
// every notification until ctx is cancelled. Connection failures reconnect
// on a fixed backoff; the feed never returns an error to the caller.
func (r *Remote) Feed(ctx context.Context, fn func(Change)) {
	if r.base == "" {
		return
	}
	url := wsURL(r.base) + "/v1/prefs/feed"

	for {
		if err := r.readFeed(ctx, url, fn); err != nil {
			r.logger.Debug("prefs: feed disconnected", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(feedBackoff):
		}
	}
}

func (r *Remote) readFeed(ctx context.Context, url string, fn func(Change)) error {
	// Dial uses its own client: nhooyr rejects clients with a Timeout set,
	// cancellation comes from ctx.
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	r.logger.Info("prefs: change feed connected", "url", url)
	for {
		var change Change
		if err := wsjson.Read(ctx, conn, &change); err != nil {
			return err
		}
		fn(change)
	}
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
