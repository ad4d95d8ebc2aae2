package session

import (
	"time"

	"github.com/atozlegal/legalchat/internal/persist"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is immutable once appended; conversation order is append order.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one conversation thread, optionally bound to one uploaded
// document. DocumentID is the opaque handle from the most recent successful
// upload.
type Session struct {
	ID         string    `json:"id"`
	Messages   []Message `json:"messages"`
	DocumentID *string   `json:"doc_id"`
	Title      string    `json:"title"`
}

const titleRuneLimit = 30

const untitledLabel = "Untitled"

// deriveTitle takes the first 30 runes of the first message.
func deriveTitle(messages []Message) string {
	if len(messages) == 0 {
		return untitledLabel
	}
	runes := []rune(messages[0].Text)
	if len(runes) > titleRuneLimit {
		runes = runes[:titleRuneLimit]
	}
	return string(runes)
}

func (s Session) clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	if s.DocumentID != nil {
		id := *s.DocumentID
		out.DocumentID = &id
	}
	return out
}

func (s Session) toRecord() persist.Record {
	msgs := make([]persist.MessageRecord, 0, len(s.Messages))
	for _, m := range s.Messages {
		ts := m.Timestamp
		msgs = append(msgs, persist.MessageRecord{
			Sender:    string(m.Sender),
			Text:      m.Text,
			Timestamp: &ts,
		})
	}
	return persist.Record{ID: s.ID, Messages: msgs, DocID: s.DocumentID}
}

func fromRecord(r persist.Record) Session {
	msgs := make([]Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		msg := Message{Sender: Sender(m.Sender), Text: m.Text}
		if m.Timestamp != nil {
			msg.Timestamp = *m.Timestamp
		}
		msgs = append(msgs, msg)
	}
	s := Session{ID: r.ID, Messages: msgs, DocumentID: r.DocID}
	s.Title = deriveTitle(s.Messages)
	return s
}
