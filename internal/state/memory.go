// Package state holds per-participant conversation state for a single process.
package state

import (
	"container/list"
	"context"
	"sync"
	"time"

	"vehicle-bot/internal/domain"
)

const DefaultMaxEntries = 10000

type entry struct {
	key     domain.ParticipantKey
	state   domain.ConversationState
	touched time.Time
}

// MemoryStore keeps conversation state in process memory. Only non-idle
// states occupy an entry. The store is bounded by MaxEntries (least recently
// used entries are evicted first) and optionally by an idle TTL after which a
// pending state is forgotten.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[domain.ParticipantKey]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	idleTTL    time.Duration
	now        func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithMaxEntries bounds the number of tracked participants.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithIdleTTL expires states not touched within ttl. Zero disables expiry.
func WithIdleTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

func withClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[domain.ParticipantKey]*list.Element),
		order:      list.New(),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the state for key and whether an entry exists. An absent key is
// idle.
func (s *MemoryStore) Get(_ context.Context, key domain.ParticipantKey) (domain.ConversationState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return domain.ConversationState{}, false, nil
	}
	e := el.Value.(*entry)
	if s.expired(e) {
		s.removeElement(el)
		return domain.ConversationState{}, false, nil
	}
	return e.state, true, nil
}

// Set stores st for key. Setting the idle state removes the entry.
func (s *MemoryStore) Set(_ context.Context, key domain.ParticipantKey, st domain.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Idle() {
		if el, ok := s.entries[key]; ok {
			s.removeElement(el)
		}
		return nil
	}

	now := s.now()
	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.state = st
		e.touched = now
		s.order.MoveToFront(el)
		return nil
	}

	s.entries[key] = s.order.PushFront(&entry{key: key, state: st, touched: now})
	for s.order.Len() > s.maxEntries {
		s.removeElement(s.order.Back())
	}
	return nil
}

// Clear resets key to the idle state.
func (s *MemoryStore) Clear(ctx context.Context, key domain.ParticipantKey) error {
	return s.Set(ctx, key, domain.ConversationState{})
}

// Claim atomically returns key from a live pending state to idle. It reports
// false when nothing was pending.
func (s *MemoryStore) Claim(_ context.Context, key domain.ParticipantKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	e := el.Value.(*entry)
	s.removeElement(el)
	return e.state.AwaitingIdentifier && !s.expired(e), nil
}

// Len reports the number of tracked entries, including expired ones not yet
// swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if !s.expired(el.Value.(*entry)) {
			// Older entries sit at the back; the first live one ends the scan.
			break
		}
		s.removeElement(el)
		removed++
		el = prev
	}
	return removed
}

func (s *MemoryStore) expired(e *entry) bool {
	return s.idleTTL > 0 && s.now().Sub(e.touched) > s.idleTTL
}

func (s *MemoryStore) removeElement(el *list.Element) {
	e := s.order.Remove(el).(*entry)
	delete(s.entries, e.key)
}
