// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/testutil"
)

func sampleRecords() *models.ElectionRecords {
	return &models.ElectionRecords{
		Created: []models.ElectionCreatedRecord{{
			EntityID: "c1", ElectionID: 5, Creator: testutil.AccountA,
			Name: "Board", Description: "yearly", Deadline: 2000, BlockTimestamp: 1000,
		}},
		Candidates: []models.CandidateCreatedRecord{
			{EntityID: "k3", ElectionID: 5, CandidateID: 3, Name: "Carol"},
			{EntityID: "k1", ElectionID: 5, CandidateID: 1, Name: "Alice"},
			{EntityID: "k2", ElectionID: 5, CandidateID: 2, Name: "Bob"},
		},
		Votes: []models.VoteRecord{
			{EntityID: "v1", ElectionID: 5, Voter: testutil.AccountA, CandidateID: 2, BlockTimestamp: 1100},
			{EntityID: "v2", ElectionID: 5, Voter: testutil.AccountB, CandidateID: 2, BlockTimestamp: 1200},
			{EntityID: "v3", ElectionID: 5, Voter: testutil.AccountC, CandidateID: 1, BlockTimestamp: 1300},
		},
	}
}

func TestFold(t *testing.T) {
	e, err := Fold(sampleRecords())
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, uint64(5), e.ID)
	assert.Equal(t, "Board", e.Name)
	assert.Equal(t, int64(1000), e.CreatedAt)
	assert.Equal(t, uint64(3), e.TotalVotes)
	assert.False(t, e.HasEnded)
	assert.Nil(t, e.Winner)
	assert.Len(t, e.InputsHash, 64)

	require.Len(t, e.Candidates, 3)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{e.Candidates[0].CandidateID, e.Candidates[1].CandidateID, e.Candidates[2].CandidateID})
	assert.Equal(t, uint64(1), e.Candidates[0].VoteCount)
	assert.Equal(t, uint64(2), e.Candidates[1].VoteCount)
	assert.Zero(t, e.Candidates[2].VoteCount)
}

func TestFoldEnded(t *testing.T) {
	recs := sampleRecords()
	recs.Ended = []models.ElectionEndedRecord{{
		EntityID: "e1", ElectionID: 5, Winner: "Bob", TotalVotes: 3, WinnerVoteCount: 2, BlockTimestamp: 2100,
	}}

	e, err := Fold(recs)
	require.NoError(t, err)
	assert.True(t, e.HasEnded)
	require.NotNil(t, e.Winner)
	assert.Equal(t, "Bob", *e.Winner)
	require.NotNil(t, e.WinnerVoteCount)
	assert.Equal(t, uint64(2), *e.WinnerVoteCount)
}

func TestFoldWithoutCreatedRecord(t *testing.T) {
	recs := sampleRecords()
	recs.Created = nil

	e, err := Fold(recs)
	assert.NoError(t, err)
	assert.Nil(t, e)

	e, err = Fold(nil)
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestFoldHashTracksInputs(t *testing.T) {
	a, err := Fold(sampleRecords())
	require.NoError(t, err)

	recs := sampleRecords()
	recs.Votes = recs.Votes[:2]
	b, err := Fold(recs)
	require.NoError(t, err)

	assert.NotEqual(t, a.InputsHash, b.InputsHash)
}

func TestFoldIsOrderIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	want, err := Fold(sampleRecords())
	require.NoError(t, err)

	properties.Property("fold ignores record order", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			recs := sampleRecords()
			rng.Shuffle(len(recs.Candidates), func(i, j int) {
				recs.Candidates[i], recs.Candidates[j] = recs.Candidates[j], recs.Candidates[i]
			})
			rng.Shuffle(len(recs.Votes), func(i, j int) {
				recs.Votes[i], recs.Votes[j] = recs.Votes[j], recs.Votes[i]
			})

			got, err := Fold(recs)
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(want, got)
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestFetchElectionDetailNotFound(t *testing.T) {
	r := New(testutil.NewMemIndexer())
	e, err := r.FetchElectionDetail(context.Background(), 42)
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestIndexerFailuresAreTransportErrors(t *testing.T) {
	idx := testutil.NewMemIndexer()
	idx.FailWith(errors.New("502 bad gateway"))
	r := New(idx)
	ctx := context.Background()

	_, err := r.FetchElectionDetail(ctx, 1)
	assert.True(t, errors.Is(err, errs.ErrTransport))
	_, err = r.FetchElectionSummaries(ctx, 5)
	assert.True(t, errors.Is(err, errs.ErrTransport))
	_, err = r.HasVoted(ctx, 1, testutil.AccountA)
	assert.True(t, errors.Is(err, errs.ErrTransport))
}

// Scenario B.
func TestVoteVisibleOnceIndexerCatchesUp(t *testing.T) {
	idx := testutil.NewMemIndexer()
	chain := testutil.NewFakeChain(testutil.AccountA)
	chain.Indexer = idx
	for i := 0; i < 5; i++ {
		chain.AddElection(testutil.AccountA, "Election", 3, "Alice", "Bob", "Carol")
	}
	r := New(idx)
	ctx := context.Background()

	voter := contract.Bind(contract.DefaultAddress, testutil.AccountB, chain).WithPollInterval(time.Millisecond)
	tx, err := voter.Vote(ctx, 5, 1)
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	before, err := r.FetchElectionDetail(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, before)

	chain.HoldIndexer = true
	tx, err = contract.Bind(contract.DefaultAddress, testutil.AccountC, chain).WithPollInterval(time.Millisecond).Vote(ctx, 5, 2)
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	lagging, err := r.FetchElectionDetail(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, before.TotalVotes, lagging.TotalVotes)
	assert.Equal(t, before.InputsHash, lagging.InputsHash)

	chain.ReleaseIndexer()

	after, err := r.FetchElectionDetail(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, before.TotalVotes+1, after.TotalVotes)
	assert.Equal(t, before.Candidates[1].VoteCount+1, after.Candidates[1].VoteCount)
	assert.Equal(t, before.Candidates[0].VoteCount, after.Candidates[0].VoteCount)
	assert.NotEqual(t, before.InputsHash, after.InputsHash)

	voted, err := r.HasVoted(ctx, 5, testutil.AccountC)
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = r.HasVoted(ctx, 4, testutil.AccountC)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestFetchElectionSummaries(t *testing.T) {
	idx := testutil.NewMemIndexer()
	for i := uint64(1); i <= 4; i++ {
		idx.AddElection(models.ElectionCreatedRecord{
			EntityID: "c", ElectionID: i, Name: "E", BlockTimestamp: int64(1000 + i),
		})
	}
	r := New(idx)

	got, err := r.FetchElectionSummaries(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(4), got[0].ID)
	assert.Equal(t, uint64(2), got[2].ID)

	got, err = r.FetchElectionSummaries(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestFetchVotes(t *testing.T) {
	idx := testutil.NewMemIndexer()
	idx.AddVote(models.VoteRecord{EntityID: "a", ElectionID: 1, Voter: testutil.AccountA, CandidateID: 1, BlockTimestamp: 10})
	idx.AddVote(models.VoteRecord{EntityID: "b", ElectionID: 2, Voter: testutil.AccountA, CandidateID: 2, BlockTimestamp: 30})
	idx.AddVote(models.VoteRecord{EntityID: "c", ElectionID: 1, Voter: testutil.AccountB, CandidateID: 2, BlockTimestamp: 20})
	r := New(idx)
	ctx := context.Background()

	mine, err := r.FetchUserVotes(ctx, testutil.AccountA)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, uint64(2), mine[0].ElectionID, "newest first")

	recent, err := r.FetchRecentVotes(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, testutil.AccountB, recent[0].Voter)

	none, err := r.FetchUserVotes(ctx, common.Address{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
