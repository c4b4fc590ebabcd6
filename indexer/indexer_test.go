// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package indexer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/indexer"
	"github.com/danielhkuo/votechain/testutil"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// subgraph serves canned responses keyed by operation name.
type subgraph struct {
	t         *testing.T
	responses map[string]string
	failFirst int32
	hits      atomic.Int32
	last      atomic.Pointer[gqlRequest]
}

func (s *subgraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := s.hits.Add(1)
	if n <= s.failFirst {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		return
	}

	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.t.Errorf("decode request: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.last.Store(&req)

	w.Header().Set("Content-Type", "application/json")
	for op, body := range s.responses {
		if strings.Contains(req.Query, "query "+op+"(") {
			_, _ = w.Write([]byte(body))
			return
		}
	}
	_, _ = w.Write([]byte(`{"errors":[{"message":"unknown query"}]}`))
}

func newClient(t *testing.T, s *subgraph) *indexer.Client {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return indexer.New(indexer.Config{
		URL:               srv.URL,
		RequestsPerSecond: 1000,
		Burst:             10,
		MaxTries:          3,
		InitialBackoff:    time.Millisecond,
	})
}

func TestElectionsCreated(t *testing.T) {
	s := &subgraph{t: t, responses: map[string]string{
		"GetElections": `{"data":{"electionCreateds":[
			{"id":"0xaa-1","internal_id":"2","creator":"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","name":"Second","description":"d2","image":"","deadline":"1750600000","blockTimestamp":"1750000200"},
			{"id":"0xaa-0","internal_id":"1","creator":"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb","name":"First","description":"d1","image":"ipfs://x","deadline":"1750500000","blockTimestamp":"1750000100"}
		]}}`,
	}}
	c := newClient(t, s)

	recs, err := c.ElectionsCreated(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, uint64(2), recs[0].ElectionID)
	assert.Equal(t, testutil.AccountA, recs[0].Creator)
	assert.Equal(t, int64(1750600000), recs[0].Deadline)
	assert.Equal(t, int64(1750000200), recs[0].BlockTimestamp)
	assert.Equal(t, "ipfs://x", recs[1].Image)

	req := s.last.Load()
	require.NotNil(t, req)
	assert.EqualValues(t, 10, req.Variables["first"])
}

func TestElectionRecords(t *testing.T) {
	s := &subgraph{t: t, responses: map[string]string{
		"GetElectionDetails": `{"data":{
			"electionCreateds":[{"id":"e7","internal_id":"7","creator":"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","name":"Board","description":"","image":"","deadline":"2000","blockTimestamp":"1000"}],
			"candidateCreateds":[
				{"id":"k1","electionId":"7","candidateId":"1","name":"Alice","description":"a"},
				{"id":"k2","electionId":"7","candidateId":"2","name":"Bob","description":"b"}
			],
			"voteSubmitteds":[
				{"id":"v1","voter_address":"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb","candidateId":"2","blockTimestamp":"1100"}
			],
			"electionEndeds":[
				{"id":"x1","winner":"Bob","totalVotes":"1","winnerVoteCount":"1","blockTimestamp":"2100"}
			]
		}}`,
	}}
	c := newClient(t, s)

	recs, err := c.ElectionRecords(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, recs.Created, 1)
	assert.Equal(t, uint64(7), recs.Created[0].ElectionID)
	require.Len(t, recs.Candidates, 2)
	assert.Equal(t, "Bob", recs.Candidates[1].Name)

	require.Len(t, recs.Votes, 1)
	assert.Equal(t, uint64(7), recs.Votes[0].ElectionID, "election id comes from the query variable")
	assert.Equal(t, testutil.AccountB, recs.Votes[0].Voter)
	assert.Equal(t, uint64(2), recs.Votes[0].CandidateID)

	require.Len(t, recs.Ended, 1)
	assert.Equal(t, uint64(7), recs.Ended[0].ElectionID)
	assert.Equal(t, "Bob", recs.Ended[0].Winner)

	assert.Equal(t, "7", s.last.Load().Variables["electionId"])
}

func TestVotesByVoter(t *testing.T) {
	s := &subgraph{t: t, responses: map[string]string{
		"GetUserVotes": `{"data":{"voteSubmitteds":[
			{"id":"v1","electionId":"3","candidateId":"1","blockTimestamp":"1100"},
			{"id":"v2","electionId":"4","candidateId":"2","blockTimestamp":"1200"}
		]}}`,
	}}
	c := newClient(t, s)

	votes, err := c.VotesByVoter(context.Background(), testutil.AccountA)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, testutil.AccountA, votes[0].Voter, "voter comes from the query variable")
	assert.Equal(t, uint64(4), votes[1].ElectionID)

	assert.Equal(t, strings.ToLower(testutil.AccountA.Hex()), s.last.Load().Variables["userAddress"])
}

func TestRecentVotes(t *testing.T) {
	s := &subgraph{t: t, responses: map[string]string{
		"GetRecentVotes": `{"data":{"voteSubmitteds":[
			{"id":"v2","voter_address":"0xcccccccccccccccccccccccccccccccccccccccc","candidateId":"1","blockTimestamp":"1200"}
		]}}`,
	}}
	c := newClient(t, s)

	votes, err := c.RecentVotes(context.Background(), 9, 5)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, uint64(9), votes[0].ElectionID)
	assert.Equal(t, testutil.AccountC, votes[0].Voter)

	req := s.last.Load()
	assert.Equal(t, "9", req.Variables["electionId"])
	assert.EqualValues(t, 5, req.Variables["first"])
}

func TestRetriesTransportFailures(t *testing.T) {
	s := &subgraph{t: t, failFirst: 2, responses: map[string]string{
		"GetElections": `{"data":{"electionCreateds":[]}}`,
	}}
	c := newClient(t, s)

	recs, err := c.ElectionsCreated(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(3), s.hits.Load())
}

func TestGivesUpAfterMaxTries(t *testing.T) {
	s := &subgraph{t: t, failFirst: 100}
	c := newClient(t, s)

	_, err := c.ElectionsCreated(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, errs.TransportError, errs.KindOf(err))
	assert.Equal(t, int32(3), s.hits.Load())
}

func TestQueryErrorsAreNotRetried(t *testing.T) {
	s := &subgraph{t: t, responses: map[string]string{
		"GetElections": `{"errors":[{"message":"Type Query has no field electionCreateds"}]}`,
	}}
	c := newClient(t, s)

	_, err := c.ElectionsCreated(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, errs.TransportError, errs.KindOf(err))
	assert.Contains(t, err.Error(), "has no field")
	assert.Equal(t, int32(1), s.hits.Load())
}

func TestMalformedNumbers(t *testing.T) {
	s := &subgraph{t: t, responses: map[string]string{
		"GetRecentVotes": `{"data":{"voteSubmitteds":[
			{"id":"v1","voter_address":"0xcccccccccccccccccccccccccccccccccccccccc","candidateId":"one","blockTimestamp":"1200"}
		]}}`,
	}}
	c := newClient(t, s)

	_, err := c.RecentVotes(context.Background(), 1, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidateId")
}

func TestCancelledContext(t *testing.T) {
	s := &subgraph{t: t, failFirst: 100}
	c := newClient(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ElectionsCreated(ctx, 10)
	require.Error(t, err)
	assert.LessOrEqual(t, s.hits.Load(), int32(1))
}
