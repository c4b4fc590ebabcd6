// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/votechain/auth"
	"github.com/danielhkuo/votechain/cliparse"
	"github.com/danielhkuo/votechain/middleware"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/votechain"
)

type ElectionHandler struct {
	svc *votechain.Service
	cfg cliparse.Config
	now clock
}

func NewElectionHandler(svc *votechain.Service, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{svc: svc, cfg: cfg, now: time.Now}
}

// ListElections handles GET /elections?limit=N
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	summaries, err := h.svc.Elections(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]models.ElectionSummaryView, len(summaries))
	for i, s := range summaries {
		views[i] = h.now.summary(s)
	}
	middleware.JSONResponse(w, http.StatusOK, views)
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := h.svc.CreateElection(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("election created", "name", req.Name, "tx", res.TxHash.Hex())
	middleware.JSONResponse(w, http.StatusCreated, res)
}

// GetElection handles GET /elections/{id}
// Returns the election reconciled from indexed events.
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}

	e, err := h.svc.Election(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.now.election(e))
}

// GetOnchain handles GET /elections/{id}/onchain
func (h *ElectionHandler) GetOnchain(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}

	e, err := h.svc.GetElection(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, e)
}

// GetResult handles GET /elections/{id}/result
func (h *ElectionHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.GetElectionResult(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ElectionResultResponse{ElectionID: id, Result: result})
}

// CalculateResult handles POST /elections/{id}/result
func (h *ElectionHandler) CalculateResult(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.CalculateElectionResult(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}

// Vote handles POST /elections/{id}/votes
func (h *ElectionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateID == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	res, err := h.svc.Vote(r.Context(), id, req.CandidateID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("vote cast", "election", id, "candidate", req.CandidateID, "tx", res.TxHash.Hex())
	middleware.JSONResponse(w, http.StatusCreated, res)
}

// RecentVotes handles GET /elections/{id}/votes/recent?limit=N
func (h *ElectionHandler) RecentVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	votes, err := h.svc.RecentVotes(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.now.votes(votes))
}

// HasVoted handles GET /elections/{id}/has-voted
// Checks ?account= when given, otherwise the connected account.
func (h *ElectionHandler) HasVoted(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}

	var account *common.Address
	if raw := r.URL.Query().Get("account"); raw != "" {
		a, err := auth.ParseAddress(raw)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "account must be a hex address")
			return
		}
		account = &a
	}

	who, voted, err := h.svc.HasVoted(r.Context(), id, account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.HasVotedResponse{
		ElectionID: id,
		Account:    who.Hex(),
		HasVoted:   voted,
	})
}

// AccountVotes handles GET /accounts/{address}/votes
func (h *ElectionHandler) AccountVotes(w http.ResponseWriter, r *http.Request) {
	account, err := auth.ParseAddress(r.PathValue("address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "address must be a hex address")
		return
	}

	votes, err := h.svc.UserVotes(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.now.votes(votes))
}
