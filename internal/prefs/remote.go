package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SyncArea is the storage area the agent acts on. Change notifications for
// any other area are ignored.
const SyncArea = "sync"

// capabilities is the probe response from the sync service. Availability of
// the remote tier requires all of: the storage capability, the synchronous
// sub-capability (the "sync" area), and a running-context capability with a
// live session identifier.
type capabilities struct {
	Storage bool     `json:"storage"`
	Areas   []string `json:"areas"`
	Session string   `json:"session"`
}

func (c capabilities) ok() bool {
	if !c.Storage || c.Session == "" {
		return false
	}
	for _, a := range c.Areas {
		if a == SyncArea {
			return true
		}
	}
	return false
}

// RemoteOption configures the remote tier.
type RemoteOption func(*Remote)

// WithRemoteClient sets a custom HTTP client.
func WithRemoteClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithRemoteLogger sets a custom logger.
func WithRemoteLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) { r.logger = l }
}

// WithProbeTTL sets how long a capability probe result is cached.
func WithProbeTTL(ttl time.Duration) RemoteOption {
	return func(r *Remote) { r.probeTTL = ttl }
}

// Remote is the primary, remote-synced tier. It talks to the sync service
// over HTTP and exposes its change feed over websocket (feed.go).
type Remote struct {
	base     string
	client   *http.Client
	logger   *slog.Logger
	probeTTL time.Duration

	mu      sync.Mutex
	caps    capabilities
	probeAt time.Time
}

// NewRemote creates the remote tier. An empty base URL yields a tier that
// is permanently unavailable, which the store treats as a policy branch.
func NewRemote(base string, opts ...RemoteOption) *Remote {
	r := &Remote{
		base:     strings.TrimRight(base, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   slog.Default(),
		probeTTL: 30 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Remote) Name() string { return "remote" }

// Available runs the capability probe. Absence of any capability is
// "unavailable", not an error — nothing propagates.
func (r *Remote) Available(ctx context.Context) bool {
	if r.base == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.probeAt) < r.probeTTL {
		return r.caps.ok()
	}

	caps, err := r.probe(ctx)
	r.probeAt = time.Now()
	if err != nil {
		r.logger.Debug("prefs: remote probe failed", "error", err)
		r.caps = capabilities{}
		return false
	}
	r.caps = caps
	return caps.ok()
}

func (r *Remote) probe(ctx context.Context) (capabilities, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/v1/capabilities", nil)
	if err != nil {
		return capabilities{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return capabilities{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return capabilities{}, fmt.Errorf("prefs: probe status %d", resp.StatusCode)
	}
	var caps capabilities
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		return capabilities{}, err
	}
	return caps, nil
}

// Read fetches the full record from the sync service.
func (r *Remote) Read(ctx context.Context) (Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/v1/prefs", nil)
	if err != nil {
		return nil, fmt.Errorf("prefs: remote read: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prefs: remote read: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prefs: remote read status %d", resp.StatusCode)
	}
	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("prefs: remote decode: %w", err)
	}
	return rec, nil
}

// Write upserts a partial record on the sync service.
func (r *Remote) Write(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("prefs: remote marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.base+"/v1/prefs",
		strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("prefs: remote write: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("prefs: remote write: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("prefs: remote write status %d", resp.StatusCode)
	}
	return nil
}
