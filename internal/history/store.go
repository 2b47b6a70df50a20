package history

import "sync"

// DefaultMax is the number of turns kept per session when no bound is configured.
const DefaultMax = 20

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one user utterance or one assistant reply.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store is an ordered, bounded record of turns. Appends land at the tail and
// the oldest turns are dropped once the bound is exceeded. Both roles count
// toward the bound.
type Store struct {
	mu    sync.Mutex
	max   int
	turns []Turn
}

// New returns an empty store holding at most max turns. A non-positive max
// falls back to DefaultMax.
func New(max int) *Store {
	if max <= 0 {
		max = DefaultMax
	}
	return &Store{max: max}
}

// Seed returns a store pre-filled with the valid entries of turns, applying
// the same bound as Append. Entries with an unknown role or empty content are
// skipped.
func Seed(max int, turns []Turn) *Store {
	s := New(max)
	for _, t := range turns {
		if !t.Role.Valid() || t.Content == "" {
			continue
		}
		s.Append(t)
	}
	return s
}

// Append adds t at the tail and drops turns from the head until the bound holds.
func (s *Store) Append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	if n := len(s.turns); n > s.max {
		// Reslicing keeps append amortized O(1); the next growth copies only
		// the live window so the backing array stays proportional to max.
		s.turns = s.turns[n-s.max:]
	}
}

// Snapshot returns a copy of the current turns, oldest first.
func (s *Store) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Max returns the bound.
func (s *Store) Max() int { return s.max }
