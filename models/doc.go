// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - ConnectRequest: kind
  - CreateElectionRequest: name, description, image, candidates, duration_days
  - VoteRequest: candidate_id
  - TransferOwnershipRequest: new_owner

# Response Types

  - SessionResponse: session view plus network name
  - ContractResponse: contract summary, is_owner
  - HasVotedResponse, ElectionResultResponse, BookmarksResponse
  - ElectionSummaryView, ElectionView, VoteView: display-ready rows
  - TransactionResult: confirmed transaction receipt summary
  - ErrorResponse: error, message, kind, hint

# Domain Types

  - SessionView: state, kind, account, chain and generation
  - ContractSummary: total elections, paused, owner
  - ElectionSummary, Election, Candidate: indexer-derived election data
  - OnchainElection: the contract's getElection tuple
  - PendingOperation: one in-flight mutation, never persisted

# Indexer Records

Raw event records as the indexer returns them:

  - ElectionCreatedRecord, CandidateCreatedRecord
  - VoteRecord, ElectionEndedRecord
  - ElectionRecords: all records of one election

# Constants

Session states:

	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"

Pending operation status:

	OpRunning   = "running"
	OpConfirmed = "confirmed"
	OpFailed    = "failed"

# Time

RemainingUntil splits the time left before a deadline into days, hours,
minutes and seconds.
*/
package models
