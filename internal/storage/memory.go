package storage

import (
	"context"
	"sync"
	"time"

	"github.com/okothc/sauti/internal/domain"
)

// MemoryStore is a Store backed by process memory. Useful for tests and
// local development without a database file.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*domain.Session // channel:externalID
	responses   map[string]*domain.Response
	questions   []domain.Question
	enrichments map[string][2]string
	nextQID     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*domain.Session),
		responses:   make(map[string]*domain.Response),
		enrichments: make(map[string][2]string),
		nextQID:     1,
	}
}

func sessionKey(ch domain.Channel, externalID string) string {
	return string(ch) + ":" + externalID
}

func (m *MemoryStore) GetSession(_ context.Context, ch domain.Channel, externalID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionKey(ch, externalID)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) CreateSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// At most one active session per phone number and channel.
	now := time.Now()
	for _, prev := range m.sessions {
		if prev.Channel == s.Channel && prev.PhoneNumber == s.PhoneNumber && prev.Active {
			prev.Finalize(now)
			prev.Version++
		}
	}

	m.sessions[sessionKey(s.Channel, s.ExternalID)] = s.Clone()
	return nil
}

func (m *MemoryStore) UpdateSession(_ context.Context, s *domain.Session, resp *domain.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(s.Channel, s.ExternalID)
	cur, ok := m.sessions[key]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != s.Version {
		return ErrConflict
	}

	next := s.Clone()
	next.Version++
	m.sessions[key] = next

	if resp != nil {
		r := *resp
		m.responses[resp.ID] = &r
	}

	s.Version++
	return nil
}

func (m *MemoryStore) GetResponse(_ context.Context, id string) (*domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.responses[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (m *MemoryStore) SaveEnrichment(_ context.Context, responseID, transcription, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.responses[responseID]; !ok {
		return ErrNotFound
	}
	m.enrichments[responseID] = [2]string{transcription, summary}
	return nil
}

func (m *MemoryStore) ListActiveQuestions(_ context.Context, language string) ([]domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Question
	for _, q := range m.questions {
		if q.Language == language {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *MemoryStore) SeedQuestions(_ context.Context, questions []domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, q := range questions {
		if q.ID == 0 {
			q.ID = m.nextQID
			m.nextQID++
		}
		if q.Language == "" {
			q.Language = "en"
		}
		m.questions = append(m.questions, q)
	}
	return nil
}

func (m *MemoryStore) ListIdleSessions(_ context.Context, cutoff time.Time) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Session
	for _, s := range m.sessions {
		if s.Active && s.LastActivity.Before(cutoff) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// Responses returns all stored responses, for tests and diagnostics.
func (m *MemoryStore) Responses() []*domain.Response {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Response, 0, len(m.responses))
	for _, r := range m.responses {
		c := *r
		out = append(out, &c)
	}
	return out
}

// Enrichment returns the saved transcription and summary for a response.
func (m *MemoryStore) Enrichment(responseID string) (string, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enrichments[responseID]
	return e[0], e[1], ok
}

func (m *MemoryStore) Close() error { return nil }
