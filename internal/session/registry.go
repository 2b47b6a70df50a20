package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilofrakh/mostaqlproj1/internal/history"
)

const maxIDLength = 128

// Session owns exactly one bounded history. Turns on the same session are
// serialized through BeginTurn.
type Session struct {
	ID      string
	History *history.Store

	turn     sync.Mutex
	mu       sync.Mutex
	lastUsed time.Time
}

// BeginTurn blocks until no other turn is running on s and returns the
// function that ends the turn.
func (s *Session) BeginTurn() (end func()) {
	s.turn.Lock()
	return s.turn.Unlock
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Ephemeral returns a session that is not tracked by any registry, seeded
// with turns. It is used when the caller holds the history itself.
func Ephemeral(historyMax int, turns []history.Turn) *Session {
	return &Session{ID: uuid.NewString(), History: history.Seed(historyMax, turns), lastUsed: time.Now()}
}

// Registry maps session keys to sessions. Different keys share no mutable
// state; idle sessions are evicted by Sweep.
type Registry struct {
	historyMax int
	idleTTL    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions keep historyMax turns and are
// evicted after idleTTL without use. A non-positive idleTTL disables eviction.
func NewRegistry(historyMax int, idleTTL time.Duration) *Registry {
	return &Registry{
		historyMax: historyMax,
		idleTTL:    idleTTL,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
}

// Get returns the session for id, creating it when missing. An empty or
// oversized id gets a freshly generated key.
func (r *Registry) Get(id string) *Session {
	if id == "" || len(id) > maxIDLength {
		id = uuid.NewString()
	}
	now := r.now()
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = &Session{ID: id, History: history.New(r.historyMax)}
		r.sessions[id] = s
	}
	r.mu.Unlock()
	s.touch(now)
	return s
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Remove destroys the session for id, if any.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if r.idleTTL <= 0 {
		return
	}
	if every <= 0 {
		every = r.idleTTL / 2
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
