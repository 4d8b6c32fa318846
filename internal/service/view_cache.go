package service

import (
	"sync"
	"time"

	"github.com/pribylovaa/roster-share/internal/models"
)

// viewCache держит ростеры открытых share-страниц.
// Просроченные записи вычищаются при записи.
type viewCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]viewEntry
}

type viewEntry struct {
	students []models.Student
	expires  time.Time
}

func newViewCache(ttl time.Duration, now func() time.Time) *viewCache {
	return &viewCache{ttl: ttl, now: now, entries: make(map[string]viewEntry)}
}

func (c *viewCache) get(token string) ([]models.Student, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}

	return e.students, true
}

func (c *viewCache) put(token string, students []models.Student) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}

	c.entries[token] = viewEntry{students: students, expires: now.Add(c.ttl)}
}
