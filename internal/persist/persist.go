package persist

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the wire form of a saved session: a single serialized array of
// these is written to one durable slot. There is no schema version; unknown
// fields are ignored and absent fields default (docId -> null, messages -> []).
type Record struct {
	ID       string          `json:"id"`
	Messages []MessageRecord `json:"messages"`
	DocID    *string         `json:"docId"`
}

type MessageRecord struct {
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Adapter reads and writes the whole saved-session list as one value.
// Load is called once at startup; Store after every save or delete. The
// in-memory store stays authoritative: a Store failure is reported, never
// rolled back.
type Adapter interface {
	Load(ctx context.Context) ([]Record, error)
	Store(ctx context.Context, records []Record) error
}

func encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// decode treats corrupt payloads as absent: any parse failure yields an
// empty list, never an error.
func decode(raw []byte) []Record {
	if len(raw) == 0 {
		return []Record{}
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return []Record{}
	}
	out := records[:0]
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if r.Messages == nil {
			r.Messages = []MessageRecord{}
		}
		out = append(out, r)
	}
	return out
}
