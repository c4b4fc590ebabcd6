// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package votechain is the service facade over the wallet session, the
contract and the indexer.

A Service owns one session.Manager and acts as its Refresher: every
connect, account or chain change and every confirmed transaction reloads

  - the contract summary (totalElection, paused and owner, read in parallel)
  - the election listing from the indexer
  - every election detail the store has cached

and writes them to the store tagged with the session generation. Writes
computed for an older generation are dropped.

Mutations go through envelope.Envelope. Vote first asks the indexer whether
the account already voted and refuses locally only when it did; the
contract stays authoritative while the indexer lags.
*/
package votechain
