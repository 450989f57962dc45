package observer

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/domtuner/mutation"
)

func TestStopFlushesBufferedRecords(t *testing.T) {
	got := make(chan *mutation.Batch, 1)
	o := New(Config{
		PageURL: "https://host.example/watch?v=1",
		Handler: func(_ context.Context, b *mutation.Batch) { got <- b },
		// The window never fires on its own; only Stop can flush.
		DebounceWindow: time.Hour,
	})
	go o.loop()

	o.rawCh <- mutation.Record{Op: mutation.OpInsert, Tag: "video", HTML: "<video></video>"}
	time.Sleep(50 * time.Millisecond) // let the loop buffer the record
	o.Stop()

	select {
	case b := <-got:
		if len(b.Records) != 1 || b.Records[0].Op != mutation.OpInsert {
			t.Errorf("flushed records = %+v, want the buffered insert", b.Records)
		}
		if b.PageURL != "https://host.example/watch?v=1" {
			t.Errorf("page url = %q", b.PageURL)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the final flush")
	}
}

func TestSetContextCancelsPrevious(t *testing.T) {
	o := New(Config{PageURL: "https://host.example/"})
	prev := o.ctx

	o.SetContext(context.Background())

	select {
	case <-prev.Done():
	default:
		t.Error("context created in New should be cancelled when replaced")
	}
}
