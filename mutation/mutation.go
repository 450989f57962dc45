// Package mutation defines the structured types emitted by the page
// observer. The structure watcher and the bridges consume these to decide
// when reconciliation must re-run.
package mutation

import "encoding/json"

// Op is the type of page event observed.
type Op string

const (
	OpInsert   Op = "insert"    // subtree inserted (includes serialised HTML)
	OpRemove   Op = "remove"    // subtree removed
	OpAttr     Op = "attr"      // attribute modified
	OpText     Op = "text"      // character data modified
	OpNavigate Op = "navigate"  // host SPA navigation finished
	OpPageData Op = "page_data" // host page data updated in place
)

// Record is a single observed event.
type Record struct {
	Op       Op     `json:"op"`
	XPath    string `json:"xpath,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name,omitempty"`      // attribute name for attr
	Value    string `json:"value,omitempty"`     // new value, or URL for navigate
	OldValue string `json:"old_value,omitempty"` // previous value
	HTML     string `json:"html,omitempty"`      // serialised subtree for insert (capped)
}

// Signal reports whether the record is a host signal rather than a DOM
// mutation. Signals bypass debouncing.
func (r Record) Signal() bool {
	return r.Op == OpNavigate || r.Op == OpPageData
}

// Batch is the atomic unit emitted by the observer: all mutations collected
// during a single debounce window, or a single host signal.
type Batch struct {
	ID        string   `json:"id"`
	PageURL   string   `json:"page_url"`
	Seq       uint64   `json:"seq"` // monotonically increasing per page
	Records   []Record `json:"records"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds at flush
}

// MarshalBatch serialises a Batch to JSON.
func MarshalBatch(b *Batch) ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBatch deserialises a Batch from JSON.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
