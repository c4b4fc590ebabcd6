// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the VoteChain API server.

VoteChain is a voting dApp backend: it holds one wallet session, submits
transactions to the VoteChain contract through that wallet and reconciles
the contract with an off-chain event indexer.

# Starting the Server

	API_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -api-salt secret -wallet-rpc http://127.0.0.1:8545

The operator key for X-API-Key is printed to stderr with -print-key; the log
only carries its fingerprint.

# Configuration

Required settings:

  - API_KEY_SALT (-api-salt): Secret for the operator key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t), DATABASE_URL (-d): sqlite (default) or postgres
  - CONTRACT_ADDRESS (-contract), SUPPORTED_CHAINS (-chains), NETWORKS_FILE (-networks)
  - INDEXER_URL (-indexer), INDEXER_BACKEND (-indexer-backend): graphql or sql
  - WALLET_RPC_URL, NATIVE_BROWSER, NATIVE_WALLET, PAIRING_* : wallet discovery

# Architecture

  - wallet: provider discovery, connection and events
  - session: the single active session and its generation counter
  - contract: typed contract binding and revert decoding
  - envelope: the transaction lifecycle around every mutation
  - indexer, reconcile: subgraph client and the event fold
  - store, notify: derived-state snapshot and user notifications
  - votechain: the facade joining the above
  - handlers, router, middleware: the JSON API
  - db: schema, SQL event store and bookmarks
  - auth, cliparse, errs, models: shared support

See package documentation for each component.
*/
package main
