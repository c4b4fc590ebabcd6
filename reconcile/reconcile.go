// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gowebpki/jcs"

	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/models"
)

// DefaultLimit is the page size for listings when the caller gives none.
const DefaultLimit = 10

// Indexer answers the four read queries over historical contract events.
type Indexer interface {
	// ElectionsCreated lists creation records, most recent first.
	ElectionsCreated(ctx context.Context, first int) ([]models.ElectionCreatedRecord, error)
	ElectionRecords(ctx context.Context, electionID uint64) (*models.ElectionRecords, error)
	VotesByVoter(ctx context.Context, voter common.Address) ([]models.VoteRecord, error)
	// RecentVotes lists an election's votes, most recent first.
	RecentVotes(ctx context.Context, electionID uint64, first int) ([]models.VoteRecord, error)
}

// Reconciler turns raw indexer records into domain aggregates.
type Reconciler struct {
	idx Indexer
}

func New(idx Indexer) *Reconciler {
	return &Reconciler{idx: idx}
}

func wrap(op string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.New(errs.TransportError, op, err)
}

// FetchElectionSummaries lists up to limit elections, most recent first.
func (r *Reconciler) FetchElectionSummaries(ctx context.Context, limit int) ([]models.ElectionSummary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	recs, err := r.idx.ElectionsCreated(ctx, limit)
	if err != nil {
		return nil, wrap("fetchElections", err)
	}

	out := make([]models.ElectionSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.ElectionSummary{
			ID:          rec.ElectionID,
			Creator:     rec.Creator,
			Name:        rec.Name,
			Description: rec.Description,
			Image:       rec.Image,
			Deadline:    rec.Deadline,
			CreatedAt:   rec.BlockTimestamp,
		})
	}
	slices.SortStableFunc(out, func(a, b models.ElectionSummary) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchElectionDetail returns the reconciled election, or nil when the
// indexer has no creation record for id.
func (r *Reconciler) FetchElectionDetail(ctx context.Context, electionID uint64) (*models.Election, error) {
	recs, err := r.idx.ElectionRecords(ctx, electionID)
	if err != nil {
		return nil, wrap("fetchElectionDetail", err)
	}
	return Fold(recs)
}

// HasVoted reports whether the indexer holds a vote by account in the
// election. The answer lags the chain and is advisory only.
func (r *Reconciler) HasVoted(ctx context.Context, electionID uint64, account common.Address) (bool, error) {
	votes, err := r.idx.VotesByVoter(ctx, account)
	if err != nil {
		return false, wrap("hasVoted", err)
	}
	for _, v := range votes {
		if v.ElectionID == electionID {
			return true, nil
		}
	}
	return false, nil
}

// FetchUserVotes lists every vote cast by account, most recent first.
func (r *Reconciler) FetchUserVotes(ctx context.Context, account common.Address) ([]models.VoteRecord, error) {
	votes, err := r.idx.VotesByVoter(ctx, account)
	if err != nil {
		return nil, wrap("fetchUserVotes", err)
	}
	out := slices.Clone(votes)
	for i := range out {
		out[i].Voter = account
	}
	slices.SortStableFunc(out, newestFirst)
	return out, nil
}

// FetchRecentVotes lists up to limit votes of one election, most recent first.
func (r *Reconciler) FetchRecentVotes(ctx context.Context, electionID uint64, limit int) ([]models.VoteRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	votes, err := r.idx.RecentVotes(ctx, electionID, limit)
	if err != nil {
		return nil, wrap("fetchRecentVotes", err)
	}
	out := slices.Clone(votes)
	for i := range out {
		out[i].ElectionID = electionID
	}
	slices.SortStableFunc(out, newestFirst)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newestFirst(a, b models.VoteRecord) int {
	if c := cmp.Compare(b.BlockTimestamp, a.BlockTimestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.EntityID, b.EntityID)
}

// Fold reduces the raw records of one election. It is pure: the same records
// in any order produce an identical Election, InputsHash included. A nil
// result means the election was never created.
//
// Vote counts come from the vote records, not from the contract's counters,
// so they trail the chain until the indexer catches up.
func Fold(recs *models.ElectionRecords) (*models.Election, error) {
	if recs == nil || len(recs.Created) == 0 {
		return nil, nil
	}
	norm := normalize(recs)
	created := norm.Created[0]

	e := &models.Election{
		ID:          created.ElectionID,
		Creator:     created.Creator,
		Name:        created.Name,
		Description: created.Description,
		Image:       created.Image,
		Deadline:    created.Deadline,
		CreatedAt:   created.BlockTimestamp,
		Candidates:  make([]models.Candidate, 0, len(norm.Candidates)),
		TotalVotes:  uint64(len(norm.Votes)),
	}

	counts := make(map[uint64]uint64, len(norm.Candidates))
	for _, v := range norm.Votes {
		counts[v.CandidateID]++
	}
	seen := make(map[uint64]bool, len(norm.Candidates))
	for _, c := range norm.Candidates {
		if seen[c.CandidateID] {
			continue
		}
		seen[c.CandidateID] = true
		e.Candidates = append(e.Candidates, models.Candidate{
			CandidateID: c.CandidateID,
			Name:        c.Name,
			Description: c.Description,
			VoteCount:   counts[c.CandidateID],
		})
	}

	if len(norm.Ended) > 0 {
		ended := norm.Ended[0]
		winner := ended.Winner
		count := ended.WinnerVoteCount
		e.Winner = &winner
		e.WinnerVoteCount = &count
		e.HasEnded = true
	}

	hash, err := inputsHash(norm)
	if err != nil {
		return nil, fmt.Errorf("failed to hash election records: %w", err)
	}
	e.InputsHash = hash
	return e, nil
}

// normalize returns a sorted copy so that record order never matters.
func normalize(recs *models.ElectionRecords) *models.ElectionRecords {
	n := &models.ElectionRecords{
		Created:    append([]models.ElectionCreatedRecord{}, recs.Created...),
		Candidates: append([]models.CandidateCreatedRecord{}, recs.Candidates...),
		Votes:      append([]models.VoteRecord{}, recs.Votes...),
		Ended:      append([]models.ElectionEndedRecord{}, recs.Ended...),
	}
	slices.SortStableFunc(n.Created, func(a, b models.ElectionCreatedRecord) int {
		if c := cmp.Compare(a.BlockTimestamp, b.BlockTimestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	slices.SortStableFunc(n.Candidates, func(a, b models.CandidateCreatedRecord) int {
		if c := cmp.Compare(a.CandidateID, b.CandidateID); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	slices.SortStableFunc(n.Votes, func(a, b models.VoteRecord) int {
		if c := cmp.Compare(a.BlockTimestamp, b.BlockTimestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	slices.SortStableFunc(n.Ended, func(a, b models.ElectionEndedRecord) int {
		if c := cmp.Compare(a.BlockTimestamp, b.BlockTimestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	return n
}

// inputsHash is the sha256 of the canonical (RFC 8785) JSON of the records.
func inputsHash(recs *models.ElectionRecords) (string, error) {
	raw, err := json.Marshal(recs)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
