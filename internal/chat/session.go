package chat

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("empty message")
)

type Stage string

const (
	StageAwaitingName     Stage = "awaiting_name"
	StageAwaitingSymptoms Stage = "awaiting_symptoms"
)

const (
	maxChatHistory    = 30
	maxSymptomHistory = 5
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Session is the per-visitor conversation state.
type Session struct {
	ID             string    `json:"id"`
	Stage          Stage     `json:"stage"`
	UserName       string    `json:"userName,omitempty"`
	History        []Message `json:"history"`
	SymptomHistory []string  `json:"symptomHistory"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (s *Session) append(role Role, text string) {
	s.History = append(s.History, Message{Role: role, Text: text})
	if n := len(s.History); n > maxChatHistory {
		s.History = append([]Message(nil), s.History[n-maxChatHistory:]...)
	}
}

func (s *Session) addSymptoms(text string) {
	s.SymptomHistory = append(s.SymptomHistory, text)
	if n := len(s.SymptomHistory); n > maxSymptomHistory {
		s.SymptomHistory = append([]string(nil), s.SymptomHistory[n-maxSymptomHistory:]...)
	}
}

func (s *Session) clone() *Session {
	cp := *s
	cp.History = append([]Message(nil), s.History...)
	cp.SymptomHistory = append([]string(nil), s.SymptomHistory...)
	return &cp
}

// Store persists sessions between requests.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory. Expired sessions are
// treated as missing on Load and swept out by Save at most once per half
// TTL, so the map never holds much more than two TTLs of traffic.
type MemoryStore struct {
	mu        sync.RWMutex
	ttl       time.Duration
	sessions  map[string]*Session
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, sessions: make(map[string]*Session), now: time.Now}
}

func (m *MemoryStore) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.UpdatedAt) > m.ttl
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !m.expired(s, m.now()) {
		return s.clone(), nil
	}

	// A Save may have refreshed the session since the read lock was released.
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(s, m.now()) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	now := m.now()
	cp := s.clone()
	cp.UpdatedAt = now
	m.mu.Lock()
	m.sweep(now)
	m.sessions[s.ID] = cp
	m.mu.Unlock()
	return nil
}

// sweep drops expired sessions. Callers hold the write lock.
func (m *MemoryStore) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.ttl/2 {
		return
	}
	m.lastSweep = now
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
		}
	}
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
