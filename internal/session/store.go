package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kdimtricp/moviesearch/internal/metrics"
)

// Factory builds the controller for a new browser session.
type Factory func() *Controller

type storeEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// Store keeps one Controller per browser session and evicts sessions that
// have been idle for longer than ttl.
type Store struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
	ttl     time.Duration
	factory Factory
	metrics *metrics.Metrics
	now     func() time.Time

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

func NewStore(ttl, cleanupInterval time.Duration, factory Factory, m *metrics.Metrics) *Store {
	s := &Store{
		entries:     make(map[string]*storeEntry),
		ttl:         ttl,
		factory:     factory,
		metrics:     m,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.evictExpired()
			case <-s.stopCleanup:
				return
			}
		}
	}()

	return s
}

// Get returns the live controller for id and refreshes its idle timer.
func (s *Store) Get(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.controller, true
}

// GetOrCreate returns the controller for id, creating a session under a new
// id when id is unknown or expired. The returned id is the one to hand back
// to the client.
func (s *Store) GetOrCreate(id string) (string, *Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok && !s.expired(e) {
		e.lastSeen = s.now()
		return id, e.controller
	}

	newID := uuid.New().String()
	c := s.factory()
	s.entries[newID] = &storeEntry{controller: c, lastSeen: s.now()}
	s.metrics.SetSessions(len(s.entries))
	return newID, c
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.controller.Close()
		delete(s.entries, id)
		s.metrics.SetSessions(len(s.entries))
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Close stops the cleanup goroutine and cancels every in-flight fetch.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, e := range s.entries {
			e.controller.Close()
		}
	})
}

func (s *Store) expired(e *storeEntry) bool {
	return s.now().Sub(e.lastSeen) > s.ttl
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if s.expired(e) {
			e.controller.Close()
			delete(s.entries, id)
		}
	}
	s.metrics.SetSessions(len(s.entries))
}
