// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/machinebox/graphql"
	"golang.org/x/time/rate"

	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/models"
)

// DefaultURL is the public VoteChain subgraph.
const DefaultURL = "https://api.studio.thegraph.com/query/114364/votechain-subgraph/v1"

// Defaults for Config fields left zero.
const (
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 5
	DefaultMaxTries          = 4
	DefaultTimeout           = 15 * time.Second
)

const queryElections = `
query GetElections($first: Int) {
  electionCreateds(first: $first, orderBy: blockTimestamp, orderDirection: desc) {
    id
    internal_id
    creator
    name
    description
    image
    deadline
    blockTimestamp
  }
}`

const queryElectionDetails = `
query GetElectionDetails($electionId: BigInt!) {
  electionCreateds(where: { internal_id: $electionId }) {
    id
    internal_id
    creator
    name
    description
    image
    deadline
    blockTimestamp
  }
  candidateCreateds(where: { electionId: $electionId }, orderBy: candidateId) {
    id
    electionId
    candidateId
    name
    description
  }
  voteSubmitteds(where: { electionId: $electionId }) {
    id
    voter_address
    candidateId
    blockTimestamp
  }
  electionEndeds(where: { electionId: $electionId }) {
    id
    winner
    totalVotes
    winnerVoteCount
    blockTimestamp
  }
}`

const queryUserVotes = `
query GetUserVotes($userAddress: Bytes!) {
  voteSubmitteds(where: { voter_address: $userAddress }) {
    id
    electionId
    candidateId
    blockTimestamp
  }
}`

const queryRecentVotes = `
query GetRecentVotes($electionId: BigInt!, $first: Int) {
  voteSubmitteds(
    where: { electionId: $electionId }
    first: $first
    orderBy: blockTimestamp
    orderDirection: desc
  ) {
    id
    voter_address
    candidateId
    blockTimestamp
  }
}`

type Config struct {
	URL               string
	RequestsPerSecond float64
	Burst             int
	MaxTries          uint
	Timeout           time.Duration
	HTTPClient        *http.Client
	// InitialBackoff overrides the first retry delay.
	InitialBackoff time.Duration
}

// Client queries the VoteChain subgraph. Requests are paced by a token
// bucket and transport failures are retried with exponential backoff.
type Client struct {
	gql            *graphql.Client
	limiter        *rate.Limiter
	maxTries       uint
	timeout        time.Duration
	initialBackoff time.Duration
}

func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = DefaultMaxTries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var opts []graphql.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, graphql.WithHTTPClient(cfg.HTTPClient))
	}
	gql := graphql.NewClient(cfg.URL, opts...)
	gql.Log = func(s string) { slog.Debug("indexer", "message", s) }

	return &Client{
		gql:            gql,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxTries:       cfg.MaxTries,
		timeout:        cfg.Timeout,
		initialBackoff: cfg.InitialBackoff,
	}
}

// run executes one query, retrying transport failures. GraphQL errors
// reported by the server are not retried.
func (c *Client) run(ctx context.Context, op string, req *graphql.Request, resp any) error {
	b := backoff.NewExponentialBackOff()
	if c.initialBackoff > 0 {
		b.InitialInterval = c.initialBackoff
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		qctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		if err := c.gql.Run(qctx, req, resp); err != nil {
			if ctx.Err() != nil || !retryable(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("indexer query failed, retrying", "query", op, "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return errs.New(errs.TransportError, op, err)
	}
	return nil
}

// retryable separates transport failures from errors the server reported
// for the query itself.
func retryable(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "non-200 status code") {
		return true
	}
	return !strings.HasPrefix(msg, "graphql: ")
}

type electionCreated struct {
	ID             string `json:"id"`
	InternalID     string `json:"internal_id"`
	Creator        string `json:"creator"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	Deadline       string `json:"deadline"`
	BlockTimestamp string `json:"blockTimestamp"`
}

type candidateCreated struct {
	ID          string `json:"id"`
	ElectionID  string `json:"electionId"`
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type voteSubmitted struct {
	ID             string `json:"id"`
	ElectionID     string `json:"electionId"`
	VoterAddress   string `json:"voter_address"`
	CandidateID    string `json:"candidateId"`
	BlockTimestamp string `json:"blockTimestamp"`
}

type electionEnded struct {
	ID              string `json:"id"`
	Winner          string `json:"winner"`
	TotalVotes      string `json:"totalVotes"`
	WinnerVoteCount string `json:"winnerVoteCount"`
	BlockTimestamp  string `json:"blockTimestamp"`
}

// decoder collects the first malformed number so conversion code stays flat.
type decoder struct {
	err error
}

func (d *decoder) uint(field, s string) uint64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return v
}

func (d *decoder) int(field, s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return v
}

func (d *decoder) address(field, s string) common.Address {
	if !common.IsHexAddress(s) {
		if d.err == nil {
			d.err = fmt.Errorf("invalid %s %q", field, s)
		}
		return common.Address{}
	}
	return common.HexToAddress(s)
}

func (d *decoder) created(r electionCreated) models.ElectionCreatedRecord {
	return models.ElectionCreatedRecord{
		EntityID:       r.ID,
		ElectionID:     d.uint("internal_id", r.InternalID),
		Creator:        d.address("creator", r.Creator),
		Name:           r.Name,
		Description:    r.Description,
		Image:          r.Image,
		Deadline:       d.int("deadline", r.Deadline),
		BlockTimestamp: d.int("blockTimestamp", r.BlockTimestamp),
	}
}

func (d *decoder) vote(r voteSubmitted, electionID uint64, voter common.Address) models.VoteRecord {
	v := models.VoteRecord{
		EntityID:       r.ID,
		ElectionID:     electionID,
		Voter:          voter,
		CandidateID:    d.uint("candidateId", r.CandidateID),
		BlockTimestamp: d.int("blockTimestamp", r.BlockTimestamp),
	}
	if r.ElectionID != "" {
		v.ElectionID = d.uint("electionId", r.ElectionID)
	}
	if r.VoterAddress != "" {
		v.Voter = d.address("voter_address", r.VoterAddress)
	}
	return v
}

func decodeErr(op string, err error) error {
	return errs.New(errs.TransportError, op, fmt.Errorf("malformed indexer response: %w", err))
}

// ElectionsCreated runs GetElections.
func (c *Client) ElectionsCreated(ctx context.Context, first int) ([]models.ElectionCreatedRecord, error) {
	req := graphql.NewRequest(queryElections)
	req.Var("first", first)

	var resp struct {
		ElectionCreateds []electionCreated `json:"electionCreateds"`
	}
	if err := c.run(ctx, "GetElections", req, &resp); err != nil {
		return nil, err
	}

	var d decoder
	out := make([]models.ElectionCreatedRecord, 0, len(resp.ElectionCreateds))
	for _, r := range resp.ElectionCreateds {
		out = append(out, d.created(r))
	}
	if d.err != nil {
		return nil, decodeErr("GetElections", d.err)
	}
	return out, nil
}

// ElectionRecords runs GetElectionDetails.
func (c *Client) ElectionRecords(ctx context.Context, electionID uint64) (*models.ElectionRecords, error) {
	id := strconv.FormatUint(electionID, 10)
	req := graphql.NewRequest(queryElectionDetails)
	req.Var("electionId", id)

	var resp struct {
		ElectionCreateds  []electionCreated  `json:"electionCreateds"`
		CandidateCreateds []candidateCreated `json:"candidateCreateds"`
		VoteSubmitteds    []voteSubmitted    `json:"voteSubmitteds"`
		ElectionEndeds    []electionEnded    `json:"electionEndeds"`
	}
	if err := c.run(ctx, "GetElectionDetails", req, &resp); err != nil {
		return nil, err
	}

	var d decoder
	recs := &models.ElectionRecords{}
	for _, r := range resp.ElectionCreateds {
		recs.Created = append(recs.Created, d.created(r))
	}
	for _, r := range resp.CandidateCreateds {
		recs.Candidates = append(recs.Candidates, models.CandidateCreatedRecord{
			EntityID:    r.ID,
			ElectionID:  d.uint("electionId", r.ElectionID),
			CandidateID: d.uint("candidateId", r.CandidateID),
			Name:        r.Name,
			Description: r.Description,
		})
	}
	for _, r := range resp.VoteSubmitteds {
		recs.Votes = append(recs.Votes, d.vote(r, electionID, common.Address{}))
	}
	for _, r := range resp.ElectionEndeds {
		recs.Ended = append(recs.Ended, models.ElectionEndedRecord{
			EntityID:        r.ID,
			ElectionID:      electionID,
			Winner:          r.Winner,
			TotalVotes:      d.uint("totalVotes", r.TotalVotes),
			WinnerVoteCount: d.uint("winnerVoteCount", r.WinnerVoteCount),
			BlockTimestamp:  d.int("blockTimestamp", r.BlockTimestamp),
		})
	}
	if d.err != nil {
		return nil, decodeErr("GetElectionDetails", d.err)
	}
	return recs, nil
}

// VotesByVoter runs GetUserVotes.
func (c *Client) VotesByVoter(ctx context.Context, voter common.Address) ([]models.VoteRecord, error) {
	req := graphql.NewRequest(queryUserVotes)
	// Bytes filters compare lowercase hex.
	req.Var("userAddress", strings.ToLower(voter.Hex()))

	var resp struct {
		VoteSubmitteds []voteSubmitted `json:"voteSubmitteds"`
	}
	if err := c.run(ctx, "GetUserVotes", req, &resp); err != nil {
		return nil, err
	}

	var d decoder
	out := make([]models.VoteRecord, 0, len(resp.VoteSubmitteds))
	for _, r := range resp.VoteSubmitteds {
		out = append(out, d.vote(r, 0, voter))
	}
	if d.err != nil {
		return nil, decodeErr("GetUserVotes", d.err)
	}
	return out, nil
}

// RecentVotes runs GetRecentVotes.
func (c *Client) RecentVotes(ctx context.Context, electionID uint64, first int) ([]models.VoteRecord, error) {
	req := graphql.NewRequest(queryRecentVotes)
	req.Var("electionId", strconv.FormatUint(electionID, 10))
	req.Var("first", first)

	var resp struct {
		VoteSubmitteds []voteSubmitted `json:"voteSubmitteds"`
	}
	if err := c.run(ctx, "GetRecentVotes", req, &resp); err != nil {
		return nil, err
	}

	var d decoder
	out := make([]models.VoteRecord, 0, len(resp.VoteSubmitteds))
	for _, r := range resp.VoteSubmitteds {
		out = append(out, d.vote(r, electionID, common.Address{}))
	}
	if d.err != nil {
		return nil, decodeErr("GetRecentVotes", d.err)
	}
	return out, nil
}

// Ping checks that the endpoint answers a trivial query.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ElectionsCreated(ctx, 1)
	return err
}
