package assistant

import (
	"errors"
	"sync"
	"time"
)

// BookingStep is the dialogue position of a booking session. Steps only ever
// advance; a session is deleted rather than moved backwards.
type BookingStep int

const (
	StepIdle BookingStep = iota
	StepSelectDate
	StepSelectTime
	StepConfirm
)

func (s BookingStep) String() string {
	switch s {
	case StepSelectDate:
		return "select_date"
	case StepSelectTime:
		return "select_time"
	case StepConfirm:
		return "confirm"
	default:
		return "idle"
	}
}

// Session is the per-user booking dialogue state. It is only ever mutated
// inside SessionStore.Update for its user key.
type Session struct {
	UserID    string
	Step      BookingStep
	DoctorID  string
	PatientID string
	Date      time.Time
	TimeSlot  string
	Language  string
	History   *MessageRing
	UpdatedAt time.Time
}

// MessageRing is a bounded message history. When full, the oldest message is
// evicted first, except a system message pinned at index 0.
type MessageRing struct {
	capacity int
	messages []ChatMessage
}

// NewMessageRing creates a ring with the given capacity (minimum 2, so a
// pinned system message can never starve the rest of the history).
func NewMessageRing(capacity int) *MessageRing {
	if capacity < 2 {
		capacity = 2
	}
	return &MessageRing{capacity: capacity}
}

// Append adds a message, evicting the oldest non-pinned entry when full.
func (r *MessageRing) Append(msg ChatMessage) {
	if len(r.messages) < r.capacity {
		r.messages = append(r.messages, msg)
		return
	}
	evictAt := 0
	if len(r.messages) > 0 && r.messages[0].Role == ChatRoleSystem {
		evictAt = 1
	}
	r.messages = append(r.messages[:evictAt], r.messages[evictAt+1:]...)
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the buffered history, oldest first.
func (r *MessageRing) Messages() []ChatMessage {
	out := make([]ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of buffered messages.
func (r *MessageRing) Len() int { return len(r.messages) }

// ErrSessionNotFound is returned by Update when no session exists for the user.
var ErrSessionNotFound = errors.New("assistant: no active session")

// SessionStore holds at most one active session per user and serializes all
// access per user key, so overlapping messages from the same user cannot
// interleave their state transitions. Callers interact only through Get,
// Update, Remove and With; the map itself is never exposed.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry

	historyCap int
	idleTTL    time.Duration

	done chan struct{}
	once sync.Once
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session // nil while a user lock exists without a session
}

// NewSessionStore creates a store that sweeps sessions idle longer than
// idleTTL. Close must be called to stop the sweeper.
func NewSessionStore(historyCap int, idleTTL time.Duration) *SessionStore {
	if historyCap <= 0 {
		historyCap = 20
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	s := &SessionStore{
		entries:    make(map[string]*sessionEntry),
		historyCap: historyCap,
		idleTTL:    idleTTL,
		done:       make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Close stops the idle sweeper.
func (s *SessionStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *SessionStore) entry(userID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &sessionEntry{}
		s.entries[userID] = e
	}
	return e
}

// Get returns a copy of the user's session, if one is active.
func (s *SessionStore) Get(userID string) (Session, bool) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// Active reports whether the user currently has a booking session.
func (s *SessionStore) Active(userID string) bool {
	_, ok := s.Get(userID)
	return ok
}

// With runs fn holding the user's lock. fn receives the current session (nil
// if none) and returns the replacement state: returning nil deletes the
// session, returning a session stores it. This is the single mutation path;
// it serializes concurrent messages from the same user.
func (s *SessionStore) With(userID string, fn func(*Session) *Session) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	next := fn(e.session)
	if next != nil {
		next.UpdatedAt = time.Now()
	}
	e.session = next
}

// Update mutates an existing session. Steps may only advance: an update that
// would regress the step is rejected.
func (s *SessionStore) Update(userID string, fn func(*Session)) error {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrSessionNotFound
	}
	before := e.session.Step
	fn(e.session)
	if e.session.Step < before {
		e.session.Step = before
		return errors.New("assistant: session step cannot regress")
	}
	e.session.UpdatedAt = time.Now()
	return nil
}

// Remove destroys the user's session, if any.
func (s *SessionStore) Remove(userID string) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = nil
}

// NewSession builds a fresh session for the user with a pinned system message.
func (s *SessionStore) NewSession(userID string, lang string) *Session {
	ring := NewMessageRing(s.historyCap)
	ring.Append(ChatMessage{Role: ChatRoleSystem, Content: "appointment booking dialogue"})
	return &Session{
		UserID:   userID,
		Step:     StepIdle,
		Language: lang,
		History:  ring,
	}
}

func (s *SessionStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictIdle(time.Now())
		}
	}
}

func (s *SessionStore) evictIdle(now time.Time) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	cutoff := now.Add(-s.idleTTL)
	for _, k := range keys {
		e := s.entry(k)
		e.mu.Lock()
		stale := e.session != nil && e.session.UpdatedAt.Before(cutoff)
		if stale {
			e.session = nil
		}
		empty := e.session == nil
		e.mu.Unlock()

		// Drop empty lock entries so the map does not grow with one-off users.
		if empty {
			s.mu.Lock()
			if cur, ok := s.entries[k]; ok && cur == e {
				cur.mu.Lock()
				if cur.session == nil {
					delete(s.entries, k)
				}
				cur.mu.Unlock()
			}
			s.mu.Unlock()
		}
	}
}
