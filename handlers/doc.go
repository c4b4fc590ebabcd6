// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the VoteChain API.

# Handler Types

Each handler is a struct over the votechain.Service facade:

  - SessionHandler: wallet session, notifications and health
  - ContractHandler: contract summary and owner operations
  - ElectionHandler: election listing, detail, votes and results
  - BookmarkHandler: locally persisted bookmarks

	electionHandler := handlers.NewElectionHandler(svc, cfg)

# Errors

Failures carry their category to the client:

	{"error": "Conflict", "message": "Please switch to a supported network",
	 "kind": "unsupported_network", "hint": "..."}

invalid_input maps to 400, not_found to 404, user_rejected to 403, session
problems to 409, contract reverts to 422, wallet availability to 503 and
transport failures to 502.

# Views

Listing rows and election details add a countdown to the deadline and
relative times ("2 days from now", "3 hours ago"). Vote rows add a shortened
voter address.

# Consistency

Election detail and vote counts come from the indexer. After a confirmed
transaction they may lag the chain until the indexer catches up; has-voted
answers are advisory and the contract remains the final check.
*/
package handlers
