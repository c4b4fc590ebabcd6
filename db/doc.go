// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db holds the local SQL store: indexed contract events and small
key/value state such as bookmarks.

# Opening

Open connects, pings and creates the schema in one step:

	conn, err := db.Open(ctx, db.DialectSQLite, "votechain.db")
	if err != nil {
		log.Fatal(err)
	}

Both modernc.org/sqlite and lib/pq are registered. Queries are written with
? placeholders and rewritten by Dialect.Rebind for postgres.

# Tables

  - election_created: ElectionCreated events
  - candidate_created: CandidateCreated events
  - vote_submitted: VoteSubmitted events (voter stored as lowercase hex)
  - election_ended: ElectionEnded events
  - local_state: key/value pairs with an update time

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes.

# Event store

EventStore answers the same four reads as the GraphQL indexer, so it can
replace it for offline use. Record* methods load events; replays of an
entity id are ignored. The store never reads a chain itself.

# Bookmarks

Bookmarks keeps a JSON array of election ids under the key
"bookmarkedElections", in the order they were added.
*/
package db
