package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/atozlegal/legalchat/internal/exchange"
	"github.com/atozlegal/legalchat/internal/persist"
	"github.com/atozlegal/legalchat/internal/session"
)

type memAdapter struct {
	records []persist.Record
}

func (a *memAdapter) Load(ctx context.Context) ([]persist.Record, error) {
	_ = ctx
	return a.records, nil
}

func (a *memAdapter) Store(ctx context.Context, records []persist.Record) error {
	_ = ctx
	a.records = records
	return nil
}

type fakeExchanger struct {
	reply     string
	askErr    error
	lastDoc   *string
	uploadRes exchange.UploadResult
	uploadErr error

	// onAsk runs inside Ask, before it returns: simulates the user acting
	// while the exchange is in flight.
	onAsk func()
}

func (f *fakeExchanger) Ask(ctx context.Context, question string, docID *string) (string, error) {
	_ = ctx
	_ = question
	f.lastDoc = docID
	if f.onAsk != nil {
		f.onAsk()
	}
	if f.askErr != nil {
		return "", f.askErr
	}
	return f.reply, nil
}

func (f *fakeExchanger) Upload(ctx context.Context, filename string, file io.Reader) (exchange.UploadResult, error) {
	_ = ctx
	_ = filename
	_ = file
	if f.uploadErr != nil {
		return exchange.UploadResult{}, f.uploadErr
	}
	return f.uploadRes, nil
}

func newTestService(t *testing.T, fake *fakeExchanger) (*Service, *session.Store) {
	t.Helper()
	store := session.NewStore(context.Background(), &memAdapter{}, zap.NewNop())
	return NewService(store, fake, zap.NewNop()), store
}

func TestSendFullTurn(t *testing.T) {
	fake := &fakeExchanger{reply: "Hello"}
	svc, store := newTestService(t, fake)

	reply := svc.Send(context.Background(), "Hi")
	if reply != "Hello" {
		t.Fatalf("unexpected reply %q", reply)
	}

	msgs := store.Active().Messages
	if len(msgs) != 2 {
		t.Fatalf("expected user+bot messages, got %d", len(msgs))
	}
	if msgs[0].Sender != session.SenderUser || msgs[0].Text != "Hi" {
		t.Fatalf("unexpected user message %+v", msgs[0])
	}
	if msgs[1].Sender != session.SenderBot || msgs[1].Text != "Hello" {
		t.Fatalf("unexpected bot message %+v", msgs[1])
	}
}

func TestSendBlankIsSilentlyIgnored(t *testing.T) {
	fake := &fakeExchanger{reply: "should not be asked"}
	svc, store := newTestService(t, fake)

	if reply := svc.Send(context.Background(), "   "); reply != "" {
		t.Fatalf("blank send must return empty reply, got %q", reply)
	}
	if n := len(store.Active().Messages); n != 0 {
		t.Fatalf("blank send must not append, got %d messages", n)
	}
}

func TestSendBackendFailureBecomesBotMessage(t *testing.T) {
	fake := &fakeExchanger{askErr: exchange.ErrBackendUnavailable}
	svc, store := newTestService(t, fake)

	reply := svc.Send(context.Background(), "Hi")
	if reply != askFailureText {
		t.Fatalf("expected fixed failure text, got %q", reply)
	}

	msgs := store.Active().Messages
	if len(msgs) != 2 {
		t.Fatalf("expected exactly one extra bot message, got %d messages", len(msgs))
	}
	if msgs[1].Sender != session.SenderBot || msgs[1].Text != askFailureText {
		t.Fatalf("unexpected failure message %+v", msgs[1])
	}
}

func TestSendEmptyReplySubstituted(t *testing.T) {
	fake := &fakeExchanger{reply: "  "}
	svc, store := newTestService(t, fake)

	if reply := svc.Send(context.Background(), "Hi"); reply != emptyReplyText {
		t.Fatalf("expected %q, got %q", emptyReplyText, reply)
	}
	msgs := store.Active().Messages
	if msgs[1].Text != emptyReplyText {
		t.Fatalf("unexpected bot message %q", msgs[1].Text)
	}
}

func TestUploadBindsDocumentAndAcks(t *testing.T) {
	fake := &fakeExchanger{
		reply:     "scoped answer",
		uploadRes: exchange.UploadResult{DocumentID: "D1", AcknowledgementText: "ok"},
	}
	svc, store := newTestService(t, fake)

	ack := svc.Upload(context.Background(), "contract.pdf", nil)
	if ack != "ok" {
		t.Fatalf("expected acknowledgement text, got %q", ack)
	}

	active := store.Active()
	if active.DocumentID == nil || *active.DocumentID != "D1" {
		t.Fatalf("document not bound: %v", active.DocumentID)
	}
	if len(active.Messages) != 1 || active.Messages[0].Text != "ok" {
		t.Fatalf("acknowledgement not appended: %+v", active.Messages)
	}

	// subsequent asks carry the binding
	svc.Send(context.Background(), "What does clause 3 say?")
	if fake.lastDoc == nil || *fake.lastDoc != "D1" {
		t.Fatalf("ask did not include document binding: %v", fake.lastDoc)
	}
}

func TestUploadFailureBecomesBotMessage(t *testing.T) {
	fake := &fakeExchanger{uploadErr: exchange.ErrUploadFailed}
	svc, store := newTestService(t, fake)

	ack := svc.Upload(context.Background(), "contract.pdf", nil)
	if ack != uploadFailureText {
		t.Fatalf("expected fixed failure text, got %q", ack)
	}

	active := store.Active()
	if active.DocumentID != nil {
		t.Fatalf("failed upload must not bind a document")
	}
	if len(active.Messages) != 1 || active.Messages[0].Text != uploadFailureText {
		t.Fatalf("unexpected messages %+v", active.Messages)
	}
}

func TestReplyRoutedToRequestTimeSession(t *testing.T) {
	fake := &fakeExchanger{reply: "late answer"}
	svc, store := newTestService(t, fake)

	target := store.Active().ID
	// the user resets mid-flight: the reply must land in the old session
	fake.onAsk = func() { svc.ResetSession(context.Background()) }

	svc.Send(context.Background(), "slow question")

	if n := len(store.Active().Messages); n != 0 {
		t.Fatalf("new active session must stay empty, got %d messages", n)
	}
	old, ok := store.Get(target)
	if !ok {
		t.Fatalf("request-time session missing")
	}
	if len(old.Messages) != 2 || old.Messages[1].Text != "late answer" {
		t.Fatalf("reply not routed to request-time session: %+v", old.Messages)
	}
}

func TestReplyDroppedForDeletedSession(t *testing.T) {
	fake := &fakeExchanger{reply: "late answer"}
	svc, store := newTestService(t, fake)

	target := store.Active().ID
	// the user deletes the conversation mid-flight
	fake.onAsk = func() { svc.DeleteSession(context.Background(), target) }

	svc.Send(context.Background(), "slow question")

	if n := len(store.Active().Messages); n != 0 {
		t.Fatalf("reply must be dropped, new session has %d messages", n)
	}
	if len(store.Saved()) != 0 {
		t.Fatalf("deleted session must not come back")
	}
}

func TestSelectUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, &fakeExchanger{})
	if err := svc.SelectSession(context.Background(), "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExportTranscript(t *testing.T) {
	fake := &fakeExchanger{reply: "A lease is a contract."}
	svc, store := newTestService(t, fake)

	svc.Send(context.Background(), "What is a lease?")

	transcript, ok := svc.ExportTranscript(store.Active().ID)
	if !ok {
		t.Fatalf("active session must be exportable")
	}
	for _, want := range []string{"You: What is a lease?", "ATOZ: A lease is a contract."} {
		if !strings.Contains(transcript, want) {
			t.Fatalf("transcript missing %q:\n%s", want, transcript)
		}
	}

	if _, ok := svc.ExportTranscript("missing"); ok {
		t.Fatalf("unknown session must not export")
	}
}
