package persist

import (
	"testing"
	"time"
)

func TestDecodeCorruptPayload(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"oops": true}`, `[{"id":`} {
		records := decode([]byte(raw))
		if len(records) != 0 {
			t.Fatalf("corrupt payload %q must decode to empty list, got %d records", raw, len(records))
		}
	}
}

func TestDecodeDefaultsAbsentFields(t *testing.T) {
	raw := `[{"id":"S1"},{"id":"S2","messages":[{"sender":"user","text":"hi"}],"docId":"D1","unknown_field":42}]`

	records := decode([]byte(raw))
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].Messages == nil || len(records[0].Messages) != 0 {
		t.Fatalf("absent messages must default to empty, got %v", records[0].Messages)
	}
	if records[0].DocID != nil {
		t.Fatalf("absent docId must default to null")
	}

	if records[1].DocID == nil || *records[1].DocID != "D1" {
		t.Fatalf("docId not preserved: %v", records[1].DocID)
	}
	if len(records[1].Messages) != 1 || records[1].Messages[0].Text != "hi" {
		t.Fatalf("messages not preserved: %+v", records[1].Messages)
	}
}

func TestDecodeSkipsRecordsWithoutID(t *testing.T) {
	raw := `[{"messages":[]},{"id":"S1"}]`
	records := decode([]byte(raw))
	if len(records) != 1 || records[0].ID != "S1" {
		t.Fatalf("expected only the identified record, got %+v", records)
	}
}

func equalRecords(t *testing.T, a, b []Record) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("record %d id mismatch: %q vs %q", i, a[i].ID, b[i].ID)
		}
		if (a[i].DocID == nil) != (b[i].DocID == nil) {
			t.Fatalf("record %d docId presence mismatch", i)
		}
		if a[i].DocID != nil && *a[i].DocID != *b[i].DocID {
			t.Fatalf("record %d docId mismatch: %q vs %q", i, *a[i].DocID, *b[i].DocID)
		}
		if len(a[i].Messages) != len(b[i].Messages) {
			t.Fatalf("record %d message count mismatch", i)
		}
		for j := range a[i].Messages {
			am, bm := a[i].Messages[j], b[i].Messages[j]
			if am.Sender != bm.Sender || am.Text != bm.Text {
				t.Fatalf("record %d message %d mismatch: %+v vs %+v", i, j, am, bm)
			}
		}
	}
}

func sampleRecords() []Record {
	doc := "D1"
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []Record{
		{
			ID: "S1",
			Messages: []MessageRecord{
				{Sender: "user", Text: "What is a lease?", Timestamp: &ts},
				{Sender: "bot", Text: "A lease is a contract.", Timestamp: &ts},
			},
			DocID: &doc,
		},
		{ID: "S2", Messages: []MessageRecord{{Sender: "user", Text: "hi"}}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleRecords()

	raw, err := encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	equalRecords(t, original, decode(raw))
}
