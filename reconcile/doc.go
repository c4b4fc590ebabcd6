// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reconcile rebuilds election state from indexed contract events.

The contract only exposes a per-election view and a global counter. History
(who created what, every vote, the final result) comes from an Indexer that
answers four queries: recent elections, all records of one election, the
votes of one voter and the recent votes of one election. The indexer package
implements it over GraphQL, db.EventStore over SQL tables.

# Fold

Fold is the core reduction:

  - candidates are ordered by candidate id
  - a candidate's vote count is the number of matching vote records
  - the total is the number of vote records
  - an ended record fills the winner, the winner's count and HasEnded
  - InputsHash is the sha256 of the RFC 8785 canonical JSON of the records

Records are sorted before folding, so two folds over the same records produce
byte-identical results regardless of the order the indexer returned them in.

Indexer counts trail the chain. A vote confirmed a moment ago is missing from
the fold until the indexer ingests it; a later refresh picks it up.
*/
package reconcile
