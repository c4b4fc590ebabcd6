// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the VoteChain API.

# Route Registration

	mux := router.NewRouter(svc, cfg, indexerClient.Ping)

# Endpoints

Health:

	GET /health

Wallet session:

	GET  /session
	POST /session/connect    - {"kind": "injected|native|remote"}
	POST /session/disconnect
	GET  /notifications

Contract (owner operations):

	GET  /contract
	POST /contract/pause
	POST /contract/unpause
	POST /contract/owner     - {"new_owner": "0x..."}

Elections:

	GET  /elections?limit=N
	POST /elections
	GET  /elections/{id}
	GET  /elections/{id}/onchain
	GET  /elections/{id}/result
	POST /elections/{id}/result
	POST /elections/{id}/votes          - {"candidate_id": N}
	GET  /elections/{id}/votes/recent?limit=N
	GET  /elections/{id}/has-voted[?account=0x...]
	GET  /accounts/{address}/votes

Bookmarks:

	GET    /bookmarks
	PUT    /bookmarks/{id}
	DELETE /bookmarks/{id}
	POST   /bookmarks/{id}/toggle

Every POST, PUT and DELETE route requires the operator key in X-API-Key.
*/
package router
