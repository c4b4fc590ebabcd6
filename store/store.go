// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/danielhkuo/votechain/models"
)

// Snapshot is an immutable view of everything the service has derived.
// Values reachable from a published snapshot are never mutated; writers
// replace them.
type Snapshot struct {
	Session     models.SessionView
	Contract    models.ContractSummary
	Summaries   []models.ElectionSummary
	Elections   map[uint64]*models.Election
	RecentVotes map[uint64][]models.VoteRecord
	Generation  uint64
	UpdatedAt   time.Time
}

// Election returns the cached reconciled election, if any.
func (s *Snapshot) Election(id uint64) (*models.Election, bool) {
	e, ok := s.Elections[id]
	return e, ok
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Elections = maps.Clone(s.Elections)
	c.RecentVotes = maps.Clone(s.RecentVotes)
	if c.Elections == nil {
		c.Elections = make(map[uint64]*models.Election)
	}
	if c.RecentVotes == nil {
		c.RecentVotes = make(map[uint64][]models.VoteRecord)
	}
	return &c
}

// Store publishes snapshots copy-on-write. Readers never block and only ever
// observe complete snapshots.
type Store struct {
	now func() time.Time

	cur atomic.Pointer[Snapshot]
	mu  sync.Mutex
	// sendMu is taken before mu is released so snapshots reach subscribers
	// in the order they were published.
	sendMu sync.Mutex
	feed   event.Feed
}

func New() *Store {
	s := &Store{now: time.Now}
	s.cur.Store(&Snapshot{
		Session:     models.SessionView{State: models.StateDisconnected},
		Elections:   make(map[uint64]*models.Election),
		RecentVotes: make(map[uint64][]models.VoteRecord),
	})
	return s
}

// Load returns the current snapshot. Callers must not modify it.
func (s *Store) Load() *Snapshot {
	return s.cur.Load()
}

// Update applies fn to a private copy of the current snapshot and publishes
// the result. The maps of the copy are fresh, so fn may write to them.
func (s *Store) Update(fn func(*Snapshot)) *Snapshot {
	s.mu.Lock()
	next := s.cur.Load().clone()
	fn(next)
	next.UpdatedAt = s.now()
	s.cur.Store(next)
	s.publish(next)
	return next
}

// UpdateIf is Update for writes derived under generation gen. The write is
// dropped when the snapshot has moved to another generation.
func (s *Store) UpdateIf(gen uint64, fn func(*Snapshot)) bool {
	s.mu.Lock()
	cur := s.cur.Load()
	if cur.Generation != gen {
		s.mu.Unlock()
		return false
	}
	next := cur.clone()
	fn(next)
	next.Generation = gen
	next.UpdatedAt = s.now()
	s.cur.Store(next)
	s.publish(next)
	return true
}

// publish hands the writer lock over to the send lock. It must be called
// with mu held.
func (s *Store) publish(next *Snapshot) {
	s.sendMu.Lock()
	s.mu.Unlock()
	defer s.sendMu.Unlock()
	s.feed.Send(next)
}

// Subscribe delivers every published snapshot to ch, in publication order.
// Writers wait for slow subscribers.
func (s *Store) Subscribe(ch chan<- *Snapshot) event.Subscription {
	return s.feed.Subscribe(ch)
}
