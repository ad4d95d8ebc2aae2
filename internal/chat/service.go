package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/atozlegal/legalchat/internal/exchange"
	"github.com/atozlegal/legalchat/internal/session"
)

// User-visible substitutes for exchange failures. Chat continuity beats
// surfacing raw transport errors.
const (
	askFailureText    = "Backend not responding. Please try again later."
	emptyReplyText    = "Unexpected response."
	uploadFailureText = "Failed to upload PDF."
)

// Exchanger is the remote question-answering backend as the service sees
// it. *exchange.Client implements it.
type Exchanger interface {
	Ask(ctx context.Context, question string, docID *string) (string, error)
	Upload(ctx context.Context, filename string, file io.Reader) (exchange.UploadResult, error)
}

// Service dispatches UI intents into the session store and runs remote
// exchanges. Every exchange captures its target session id when it starts
// and routes the result back to that session, not to whichever session is
// active when the exchange resolves.
type Service struct {
	store  *session.Store
	client Exchanger
	log    *zap.Logger
}

func NewService(store *session.Store, client Exchanger, log *zap.Logger) *Service {
	return &Service{store: store, client: client, log: log}
}

// Send appends the user message optimistically, asks the backend, and
// appends the reply (or a fixed failure message) to the session the
// question was asked from. Blank text is silently ignored; the returned
// reply is empty in that case. No error leaves this method.
func (s *Service) Send(ctx context.Context, text string) string {
	target, err := s.store.Append(session.SenderUser, text)
	if err != nil {
		return "" // blank send: rejected, not queued
	}

	reply := s.ask(ctx, target, text)
	s.deliver(ctx, target, reply)
	return reply
}

func (s *Service) ask(ctx context.Context, target, question string) string {
	docID := s.documentFor(target)
	reply, err := s.client.Ask(ctx, question, docID)
	if err != nil {
		s.log.Warn("ask exchange failed", zap.String("session_id", target), zap.Error(err))
		return askFailureText
	}
	if strings.TrimSpace(reply) == "" {
		return emptyReplyText
	}
	return reply
}

func (s *Service) documentFor(target string) *string {
	sess, ok := s.store.Get(target)
	if !ok {
		return nil
	}
	return sess.DocumentID
}

// deliver routes an exchange result to the session it was started from.
// If that session was deleted meanwhile the result is dropped.
func (s *Service) deliver(ctx context.Context, target, text string) {
	err := s.store.AppendTo(ctx, target, session.SenderBot, text)
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.log.Warn("dropping reply for deleted session", zap.String("session_id", target))
	case err != nil:
		s.log.Error("persist after reply failed", zap.String("session_id", target), zap.Error(err))
	}
}

// Upload sends a PDF to the backend, binds the returned document id to the
// session the upload was started from, and appends the backend's
// acknowledgement as a bot message. Failures become a fixed bot message.
func (s *Service) Upload(ctx context.Context, filename string, file io.Reader) string {
	target := s.store.Active().ID

	res, err := s.client.Upload(ctx, filename, file)
	if err != nil {
		s.log.Warn("upload exchange failed", zap.String("session_id", target), zap.Error(err))
		s.deliver(ctx, target, uploadFailureText)
		return uploadFailureText
	}

	if err := s.store.BindDocument(ctx, target, res.DocumentID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.log.Warn("dropping document binding for deleted session", zap.String("session_id", target))
			return res.AcknowledgementText
		}
		s.log.Error("persist after document binding failed", zap.String("session_id", target), zap.Error(err))
	}

	ack := res.AcknowledgementText
	if strings.TrimSpace(ack) == "" {
		ack = "PDF uploaded."
	}
	s.deliver(ctx, target, ack)
	return ack
}

// SelectSession switches the active session. The outgoing session is
// auto-saved first (inside the store). An unknown id is logged and
// reported as session.ErrNotFound.
func (s *Service) SelectSession(ctx context.Context, id string) error {
	err := s.store.Select(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		s.log.Warn("select of unknown session", zap.String("session_id", id))
		return err
	}
	if err != nil {
		s.log.Error("persist on session switch failed", zap.String("session_id", id), zap.Error(err))
	}
	return nil
}

// DeleteSession removes a saved session. Nonexistent ids are a no-op.
func (s *Service) DeleteSession(ctx context.Context, id string) {
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Error("persist after delete failed", zap.String("session_id", id), zap.Error(err))
	}
}

// ResetSession saves the current conversation and starts a fresh one,
// returning the new session id.
func (s *Service) ResetSession(ctx context.Context) string {
	id, err := s.store.Reset(ctx)
	if err != nil {
		s.log.Error("persist on reset failed", zap.Error(err))
	}
	return id
}

// State is what the presentation layer renders from.
type State struct {
	Active session.Session   `json:"active"`
	Saved  []session.Session `json:"sessions"`
}

func (s *Service) State() State {
	return State{Active: s.store.Active(), Saved: s.store.Saved()}
}

// ExportTranscript renders a session as a WhatsApp-style text transcript.
func (s *Service) ExportTranscript(id string) (string, bool) {
	sess, ok := s.store.Get(id)
	if !ok {
		return "", false
	}
	var b strings.Builder
	for _, m := range sess.Messages {
		label := "ATOZ"
		if m.Sender == session.SenderUser {
			label = "You"
		}
		fmt.Fprintf(&b, "%s - %s: %s\n", m.Timestamp.Format("02/01/2006, 15:04"), label, m.Text)
	}
	return b.String(), true
}

// ActiveSessionID is the id exports and streams default to.
func (s *Service) ActiveSessionID() string {
	return s.store.Active().ID
}
