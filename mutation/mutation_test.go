package mutation

import "testing"

func TestBatchMarshalRoundtrip(t *testing.T) {
	b := &Batch{
		ID:      "01234567-89ab-cdef-0123-456789abcdef",
		PageURL: "https://media.example/watch?v=abc",
		Seq:     7,
		Records: []Record{
			{Op: OpInsert, XPath: "/html/body/div", Tag: "div", HTML: "<div><video></video></div>"},
			{Op: OpAttr, XPath: "/html/body/div", Name: "class", Value: "new", OldValue: "old"},
			{Op: OpNavigate, Value: "https://media.example/watch?v=def"},
		},
		Timestamp: 1755900000000,
	}

	data, err := MarshalBatch(b)
	if err != nil {
		t.Fatal(err)
	}

	got, err := UnmarshalBatch(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.ID != b.ID {
		t.Errorf("ID: got %q, want %q", got.ID, b.ID)
	}
	if got.Seq != b.Seq {
		t.Errorf("Seq: got %d, want %d", got.Seq, b.Seq)
	}
	if len(got.Records) != len(b.Records) {
		t.Fatalf("Records: got %d, want %d", len(got.Records), len(b.Records))
	}
	for i, r := range got.Records {
		if r.Op != b.Records[i].Op {
			t.Errorf("Record[%d].Op: got %q, want %q", i, r.Op, b.Records[i].Op)
		}
	}
}

func TestRecordSignal(t *testing.T) {
	if !(Record{Op: OpNavigate}).Signal() {
		t.Error("navigate should be a signal")
	}
	if !(Record{Op: OpPageData}).Signal() {
		t.Error("page_data should be a signal")
	}
	if (Record{Op: OpInsert}).Signal() {
		t.Error("insert should not be a signal")
	}
}
