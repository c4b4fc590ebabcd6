package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Session states
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

// Pending operation status
const (
	OpRunning   = "running"
	OpConfirmed = "confirmed"
	OpFailed    = "failed"
)

// Request types

type ConnectRequest struct {
	Kind string `json:"kind"`
}

type CreateElectionRequest struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Image        string           `json:"image"`
	Candidates   []CandidateInput `json:"candidates"`
	DurationDays int64            `json:"duration_days"`
}

type CandidateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type VoteRequest struct {
	CandidateID uint64 `json:"candidate_id"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

// Response types

type ContractResponse struct {
	Summary ContractSummary `json:"summary"`
	IsOwner bool            `json:"is_owner"`
}

type HasVotedResponse struct {
	ElectionID uint64 `json:"election_id"`
	Account    string `json:"account"`
	HasVoted   bool   `json:"has_voted"`
}

type ElectionResultResponse struct {
	ElectionID uint64 `json:"election_id"`
	Result     string `json:"result"`
}

type BookmarksResponse struct {
	ElectionIDs []uint64 `json:"election_ids"`
}

// SessionView is the read view of the active wallet session.
// Signer and contract binding are never exposed.
type SessionView struct {
	State          string          `json:"state"`
	Kind           string          `json:"kind,omitempty"`
	Account        *common.Address `json:"account"`
	ChainID        *uint64         `json:"chain_id"`
	ChainSupported bool            `json:"chain_supported"`
	Generation     uint64          `json:"generation"`
}

// Connected reports whether a session is bound to an account.
func (s SessionView) Connected() bool {
	return s.State == StateConnected && s.Account != nil
}

type ContractSummary struct {
	TotalElections uint64          `json:"total_elections"`
	Paused         bool            `json:"paused"`
	Owner          *common.Address `json:"owner"`
}

// Domain types

// Election is the reconciled aggregate built from indexed event records.
type Election struct {
	ID              uint64         `json:"id"`
	Creator         common.Address `json:"creator"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Image           string         `json:"image"`
	Deadline        int64          `json:"deadline"`
	CreatedAt       int64          `json:"created_at"`
	Candidates      []Candidate    `json:"candidates"`
	TotalVotes      uint64         `json:"total_votes"`
	Winner          *string        `json:"winner"`
	WinnerVoteCount *uint64        `json:"winner_vote_count"`
	HasEnded        bool           `json:"has_ended"`
	InputsHash      string         `json:"inputs_hash"` // Hash of the raw records the fold consumed
}

type Candidate struct {
	CandidateID uint64 `json:"candidate_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	VoteCount   uint64 `json:"vote_count"`
}

// ElectionSummary is one row of the election listing.
type ElectionSummary struct {
	ID          uint64         `json:"id"`
	Creator     common.Address `json:"creator"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Deadline    int64          `json:"deadline"`
	CreatedAt   int64          `json:"created_at"`
}

// OnchainElection mirrors the getElection tuple.
type OnchainElection struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Deadline    int64       `json:"deadline"`
	TotalVotes  uint64      `json:"total_votes"`
	Winner      string      `json:"winner"`
	Candidates  []Candidate `json:"candidates"`
	HasVoted    bool        `json:"has_voted"`
}

// Raw indexer records

type ElectionCreatedRecord struct {
	EntityID       string         `json:"entity_id"`
	ElectionID     uint64         `json:"election_id"`
	Creator        common.Address `json:"creator"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Image          string         `json:"image"`
	Deadline       int64          `json:"deadline"`
	BlockTimestamp int64          `json:"block_timestamp"`
}

type CandidateCreatedRecord struct {
	EntityID    string `json:"entity_id"`
	ElectionID  uint64 `json:"election_id"`
	CandidateID uint64 `json:"candidate_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// VoteRecord is append-only; the contract allows one per (election, voter).
type VoteRecord struct {
	EntityID       string         `json:"entity_id"`
	ElectionID     uint64         `json:"election_id"`
	Voter          common.Address `json:"voter"`
	CandidateID    uint64         `json:"candidate_id"`
	BlockTimestamp int64          `json:"block_timestamp"`
}

type ElectionEndedRecord struct {
	EntityID        string `json:"entity_id"`
	ElectionID      uint64 `json:"election_id"`
	Winner          string `json:"winner"`
	TotalVotes      uint64 `json:"total_votes"`
	WinnerVoteCount uint64 `json:"winner_vote_count"`
	BlockTimestamp  int64  `json:"block_timestamp"`
}

// ElectionRecords is everything the indexer knows about one election.
type ElectionRecords struct {
	Created    []ElectionCreatedRecord  `json:"created"`
	Candidates []CandidateCreatedRecord `json:"candidates"`
	Votes      []VoteRecord             `json:"votes"`
	Ended      []ElectionEndedRecord    `json:"ended"`
}

// Transaction types

// PendingOperation describes one in-flight mutating call. Never persisted.
type PendingOperation struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Args      []any     `json:"args"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type TransactionResult struct {
	OperationID string      `json:"operation_id"`
	Label       string      `json:"label"`
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	GasUsed     uint64      `json:"gas_used"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// API views

// ElectionSummaryView is a listing row with its deadline rendered for display.
type ElectionSummaryView struct {
	ElectionSummary
	Remaining    TimeRemaining `json:"remaining"`
	DeadlineText string        `json:"deadline_text"`
	CreatedText  string        `json:"created_text"`
}

type ElectionView struct {
	Election
	Remaining      TimeRemaining `json:"remaining"`
	DeadlineText   string        `json:"deadline_text"`
	CreatedText    string        `json:"created_text"`
	TotalVotesText string        `json:"total_votes_text"`
}

type VoteView struct {
	VoteRecord
	VoterShort string `json:"voter_short"`
	TimeText   string `json:"time_text"`
}

type ToggleBookmarkResponse struct {
	ElectionID uint64 `json:"election_id"`
	Bookmarked bool   `json:"bookmarked"`
}

// SessionResponse adds the network's display name to the session view.
type SessionResponse struct {
	SessionView
	Network string `json:"network,omitempty"`
}
