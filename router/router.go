// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"net/http"

	"github.com/danielhkuo/votechain/cliparse"
	"github.com/danielhkuo/votechain/handlers"
	"github.com/danielhkuo/votechain/middleware"
	"github.com/danielhkuo/votechain/votechain"
)

// NewRouter registers every route. ping, when set, backs the indexer check
// in /health.
func NewRouter(svc *votechain.Service, cfg cliparse.Config, ping func(ctx context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(svc, cfg)
	contractHandler := handlers.NewContractHandler(svc, cfg)
	electionHandler := handlers.NewElectionHandler(svc, cfg)
	bookmarkHandler := handlers.NewBookmarkHandler(svc)

	// operator wraps a mutating route with logging and the API key check
	operator := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAPIKey(cfg.APIKeySalt, h))
	}

	// Health check
	mux.HandleFunc("GET /health", sessionHandler.Health(ping))

	// Wallet session
	mux.HandleFunc("GET /session", middleware.WithLogging(sessionHandler.GetSession))
	mux.HandleFunc("POST /session/connect", operator(sessionHandler.Connect))
	mux.HandleFunc("POST /session/disconnect", operator(sessionHandler.Disconnect))
	mux.HandleFunc("GET /notifications", middleware.WithLogging(sessionHandler.Notifications))

	// Contract administration
	mux.HandleFunc("GET /contract", middleware.WithLogging(contractHandler.GetContract))
	mux.HandleFunc("POST /contract/pause", operator(contractHandler.Pause))
	mux.HandleFunc("POST /contract/unpause", operator(contractHandler.Unpause))
	mux.HandleFunc("POST /contract/owner", operator(contractHandler.TransferOwnership))

	// Elections
	mux.HandleFunc("GET /elections", middleware.WithLogging(electionHandler.ListElections))
	mux.HandleFunc("POST /elections", operator(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("GET /elections/{id}/onchain", middleware.WithLogging(electionHandler.GetOnchain))
	mux.HandleFunc("GET /elections/{id}/result", middleware.WithLogging(electionHandler.GetResult))
	mux.HandleFunc("POST /elections/{id}/result", operator(electionHandler.CalculateResult))
	mux.HandleFunc("POST /elections/{id}/votes", operator(electionHandler.Vote))
	mux.HandleFunc("GET /elections/{id}/votes/recent", middleware.WithLogging(electionHandler.RecentVotes))
	mux.HandleFunc("GET /elections/{id}/has-voted", middleware.WithLogging(electionHandler.HasVoted))
	mux.HandleFunc("GET /accounts/{address}/votes", middleware.WithLogging(electionHandler.AccountVotes))

	// Bookmarks
	mux.HandleFunc("GET /bookmarks", middleware.WithLogging(bookmarkHandler.List))
	mux.HandleFunc("PUT /bookmarks/{id}", operator(bookmarkHandler.Add))
	mux.HandleFunc("DELETE /bookmarks/{id}", operator(bookmarkHandler.Remove))
	mux.HandleFunc("POST /bookmarks/{id}/toggle", operator(bookmarkHandler.Toggle))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("votechain API v1"))
	})

	return mux
}
