// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package indexer reads VoteChain contract events from The Graph.
//
// The Client runs four fixed queries (GetElections, GetElectionDetails,
// GetUserVotes, GetRecentVotes) and converts the subgraph's string-encoded
// BigInt and Bytes fields into models records. Requests share a token
// bucket; transport failures and non-200 responses are retried with
// exponential backoff, while errors the server reports for a query are
// returned immediately. Every failure surfaces as errs.TransportError.
package indexer
