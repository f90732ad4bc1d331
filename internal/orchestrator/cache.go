package orchestrator

import (
	"sync"

	"github.com/okothc/sauti/internal/domain"
)

// callCache keeps recent voice call sessions in memory so the recording
// and status paths skip a store read. It is never authoritative: entries
// are snapshots, evictable at any time, and every miss falls back to the
// durable store.
type callCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*domain.Session
	order   []string
}

func newCallCache(max int) *callCache {
	if max <= 0 {
		max = 1024
	}
	return &callCache{max: max, entries: make(map[string]*domain.Session)}
}

func (c *callCache) Get(externalID string) (*domain.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[externalID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *callCache) Put(s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[s.ExternalID]; !ok {
		c.order = append(c.order, s.ExternalID)
	}
	c.entries[s.ExternalID] = s.Clone()

	for len(c.entries) > c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *callCache) Delete(externalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, externalID)
	for i, k := range c.order {
		if k == externalID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
