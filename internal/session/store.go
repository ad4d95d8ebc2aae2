package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atozlegal/legalchat/internal/common"
	"github.com/atozlegal/legalchat/internal/persist"
)

var (
	// ErrBlankMessage rejects empty or whitespace-only text. Callers treat
	// it as a silent no-op, never as a user-visible error.
	ErrBlankMessage = errors.New("session: blank message")

	// ErrNotFound is returned when a session id is not in the saved list.
	ErrNotFound = errors.New("session: not found")
)

// Store owns the active session and the saved-session list and is the
// single writer of both. All mutations take the store mutex; network I/O
// never happens under it. Persistence is best-effort: a failed write is
// returned to the caller but in-memory state stands.
type Store struct {
	mu      sync.Mutex
	active  Session
	saved   map[string]Session
	order   []string // insertion order of saved ids, for stable listing
	adapter persist.Adapter
}

// NewStore loads the saved-session list from the adapter and installs a
// fresh empty active session. A load failure is treated as an empty list.
func NewStore(ctx context.Context, adapter persist.Adapter, log *zap.Logger) *Store {
	s := &Store{
		saved:   make(map[string]Session),
		adapter: adapter,
	}

	records, err := adapter.Load(ctx)
	if err != nil {
		log.Warn("load saved sessions failed, starting empty", zap.Error(err))
		records = nil
	}
	for _, r := range records {
		sess := fromRecord(r)
		if _, ok := s.saved[sess.ID]; !ok {
			s.order = append(s.order, sess.ID)
		}
		s.saved[sess.ID] = sess
	}

	s.active = newSession()
	return s
}

func newSessionID() string {
	id, err := common.NewULID()
	if err != nil {
		return uuid.NewString()
	}
	return id
}

func newSession() Session {
	return Session{ID: newSessionID(), Messages: []Message{}}
}

// Create installs a new empty active session, discarding the current one,
// and returns its id. Callers that need the outgoing session kept must
// save it first (Reset does).
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = newSession()
	return s.active.ID
}

// Append adds a message to the active session and returns the id of the
// session it landed in, so exchanges started from it can route their
// results back. Blank text is rejected.
func (s *Store) Append(sender Sender, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		return "", ErrBlankMessage
	}
	s.active.Messages = append(s.active.Messages, Message{
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	})
	return s.active.ID, nil
}

// AppendTo routes a message to the session that was current when an
// exchange started. If that session is no longer active it is appended to
// its saved copy; if it no longer exists at all, ErrNotFound is returned
// and the message is dropped rather than misattributed.
func (s *Store) AppendTo(ctx context.Context, id string, sender Sender, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		return ErrBlankMessage
	}

	msg := Message{Sender: sender, Text: text, Timestamp: time.Now()}

	if id == s.active.ID {
		s.active.Messages = append(s.active.Messages, msg)
		return nil
	}

	saved, ok := s.saved[id]
	if !ok {
		return ErrNotFound
	}
	saved.Messages = append(saved.Messages, msg)
	saved.Title = deriveTitle(saved.Messages)
	s.saved[id] = saved
	return s.persistLocked(ctx)
}

// BindDocument associates a session with an uploaded document. Last write
// wins on re-upload. Like AppendTo it targets the session the upload was
// started from, which may have been switched away from meanwhile.
func (s *Store) BindDocument(ctx context.Context, id, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.active.ID {
		s.active.DocumentID = &docID
		return nil
	}

	saved, ok := s.saved[id]
	if !ok {
		return ErrNotFound
	}
	saved.DocumentID = &docID
	s.saved[id] = saved
	return s.persistLocked(ctx)
}

// SaveActive upserts a snapshot of the active session into the saved list,
// keyed by its id. Sessions without messages are never persisted.
func (s *Store) SaveActive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveActiveLocked(ctx)
}

func (s *Store) saveActiveLocked(ctx context.Context) error {
	if len(s.active.Messages) == 0 {
		return nil
	}
	snapshot := s.active.clone()
	snapshot.Title = deriveTitle(snapshot.Messages)
	if _, ok := s.saved[snapshot.ID]; !ok {
		s.order = append(s.order, snapshot.ID)
	}
	s.saved[snapshot.ID] = snapshot
	return s.persistLocked(ctx)
}

// Select saves the outgoing active session, then installs a copy of the
// saved session with the given id as the new active one.
func (s *Store) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.saved[id]
	if !ok {
		return ErrNotFound
	}
	err := s.saveActiveLocked(ctx)
	// Re-read: saveActiveLocked may have replaced the entry when switching
	// back to a session that is already active.
	if updated, ok := s.saved[id]; ok {
		target = updated
	}
	s.active = target.clone()
	return err
}

// Reset saves the outgoing active session and starts a fresh one,
// returning the new session id.
func (s *Store) Reset(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.saveActiveLocked(ctx)
	s.active = newSession()
	return s.active.ID, err
}

// Delete removes a session from the saved list. A nonexistent id is a
// no-op. Deleting the active session's id also clears the active session.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if _, ok := s.saved[id]; ok {
		delete(s.saved, id)
		for i, sid := range s.order {
			if sid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		err = s.persistLocked(ctx)
	}

	if id == s.active.ID {
		s.active = newSession()
	}
	return err
}

// Active returns a copy of the active session with its derived title.
func (s *Store) Active() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.active.clone()
	out.Title = deriveTitle(out.Messages)
	return out
}

// Saved returns copies of the saved sessions in insertion order.
func (s *Store) Saved() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.saved[id].clone())
	}
	return out
}

// Get returns a copy of the session with the given id, checking the active
// session first, then the saved list.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.active.ID {
		out := s.active.clone()
		out.Title = deriveTitle(out.Messages)
		return out, true
	}
	if saved, ok := s.saved[id]; ok {
		return saved.clone(), true
	}
	return Session{}, false
}

func (s *Store) persistLocked(ctx context.Context) error {
	records := make([]persist.Record, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.saved[id].toRecord())
	}
	if err := s.adapter.Store(ctx, records); err != nil {
		return fmt.Errorf("store saved sessions: %w", err)
	}
	return nil
}
