package activity

import (
	"slices"
	"sync"
	"time"
)

// Snapshot is one published, immutable view of the activity feed
type Snapshot struct {
	Generation  uint64               `json:"generation"`
	Currency    string               `json:"currency"`
	Final       bool                 `json:"final"`
	PublishedAt time.Time            `json:"publishedAt"`
	Summaries   []TransactionSummary `json:"summaries"`
}

// Subject holds the latest snapshot and fans it out to subscribers.
// A slow subscriber drops older snapshots in favor of newer ones.
type Subject struct {
	mu     sync.RWMutex
	value  Snapshot
	subs   map[int]chan Snapshot
	nextID int
	closed bool
}

// NewSubject creates a subject holding an empty snapshot
func NewSubject() *Subject {
	return &Subject{subs: make(map[int]chan Snapshot)}
}

// Load returns the current snapshot
func (s *Subject) Load() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Publish replaces the current snapshot as a whole and notifies subscribers
func (s *Subject) Publish(snap Snapshot) {
	snap.Summaries = slices.Clone(snap.Summaries)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.value = snap
	for _, ch := range s.subs {
		deliver(ch, snap)
	}
}

func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	// full: drop the oldest pending snapshot
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Subscribe returns a channel receiving every snapshot published from now on, and a
// function ending the subscription. buffer is the number of snapshots kept for a slow
// reader (minimum 1).
func (s *Subject) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription; later publishes are ignored
func (s *Subject) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
