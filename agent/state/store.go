package state

import (
	"strings"
	"sync"
	"time"
)

// Store is the session persistence contract used by the orchestrator.
// GetOrCreate for an unknown id returns a fresh unverified session with no
// current flow. Update applies mutator atomically: no two concurrent
// mutations on the same session may interleave.
type Store interface {
	GetOrCreate(sessionID string) (*Session, error)
	Update(sessionID string, mutator func(*Session) error) (*Session, error)
	Expire(sessionID string) error
}

// MemoryStore keeps sessions process-local behind a single-writer-per-key
// discipline. The store lock covers only map access; per-session mutation
// runs under the session's own lock so sessions stay independent.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

func (m *MemoryStore) GetOrCreate(sessionID string) (*Session, error) {
	e, err := m.lookupOrCreate(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSession(e.sess), nil
}

func (m *MemoryStore) Update(sessionID string, mutator func(*Session) error) (*Session, error) {
	e, err := m.lookupOrCreate(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := mutator(e.sess); err != nil {
		return nil, err
	}
	e.sess.Touch(m.now())
	return cloneSession(e.sess), nil
}

func (m *MemoryStore) Expire(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// ExpireIdle garbage-collects sessions idle for longer than maxIdle and
// returns the removed session ids, so callers holding per-session resources
// keyed by id can release them too. This is policy, not a hard requirement:
// the store is not persisted externally.
func (m *MemoryStore) ExpireIdle(maxIdle time.Duration) []string {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, e := range m.sessions {
		e.mu.Lock()
		idle := e.sess.IdleSince(cutoff)
		e.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (m *MemoryStore) lookupOrCreate(sessionID string) (*entry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[sessionID]; ok {
		return e, nil
	}
	e = &entry{sess: NewSession(sessionID, m.now())}
	m.sessions[sessionID] = e
	return e, nil
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Pending != nil {
		p := *s.Pending
		if s.Pending.Args != nil {
			p.Args = make(map[string]any, len(s.Pending.Args))
			for k, v := range s.Pending.Args {
				p.Args[k] = v
			}
		}
		cp.Pending = &p
	}
	return &cp
}
