// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/votechain/models"
)

// MemIndexer is an in-memory indexer holding raw event records.
type MemIndexer struct {
	mu         sync.Mutex
	created    []models.ElectionCreatedRecord
	candidates []models.CandidateCreatedRecord
	votes      []models.VoteRecord
	ended      []models.ElectionEndedRecord
	err        error
	queries    int
}

func NewMemIndexer() *MemIndexer {
	return &MemIndexer{}
}

// FailWith makes every query fail with err until cleared with nil.
func (m *MemIndexer) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Queries is the number of queries answered or failed.
func (m *MemIndexer) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

func (m *MemIndexer) AddElection(created models.ElectionCreatedRecord, candidates ...models.CandidateCreatedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, created)
	m.candidates = append(m.candidates, candidates...)
}

func (m *MemIndexer) AddVote(v models.VoteRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, v)
}

func (m *MemIndexer) AddEnded(e models.ElectionEndedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, e)
}

func (m *MemIndexer) begin() error {
	m.queries++
	return m.err
}

func (m *MemIndexer) ElectionsCreated(ctx context.Context, first int) ([]models.ElectionCreatedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}

	out := slices.Clone(m.created)
	slices.SortStableFunc(out, func(a, b models.ElectionCreatedRecord) int {
		return cmp.Compare(b.BlockTimestamp, a.BlockTimestamp)
	})
	if first > 0 && len(out) > first {
		out = out[:first]
	}
	return out, nil
}

func (m *MemIndexer) ElectionRecords(ctx context.Context, electionID uint64) (*models.ElectionRecords, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}

	recs := &models.ElectionRecords{}
	for _, r := range m.created {
		if r.ElectionID == electionID {
			recs.Created = append(recs.Created, r)
		}
	}
	for _, r := range m.candidates {
		if r.ElectionID == electionID {
			recs.Candidates = append(recs.Candidates, r)
		}
	}
	for _, r := range m.votes {
		if r.ElectionID == electionID {
			recs.Votes = append(recs.Votes, r)
		}
	}
	for _, r := range m.ended {
		if r.ElectionID == electionID {
			recs.Ended = append(recs.Ended, r)
		}
	}
	return recs, nil
}

func (m *MemIndexer) VotesByVoter(ctx context.Context, voter common.Address) ([]models.VoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}

	var out []models.VoteRecord
	for _, r := range m.votes {
		if r.Voter == voter {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemIndexer) RecentVotes(ctx context.Context, electionID uint64, first int) ([]models.VoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}

	var out []models.VoteRecord
	for _, r := range m.votes {
		if r.ElectionID == electionID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b models.VoteRecord) int {
		return cmp.Compare(b.BlockTimestamp, a.BlockTimestamp)
	})
	if first > 0 && len(out) > first {
		out = out[:first]
	}
	return out, nil
}
