// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votechain/cliparse"
	"github.com/danielhkuo/votechain/middleware"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/votechain"
)

type ContractHandler struct {
	svc *votechain.Service
	cfg cliparse.Config
}

func NewContractHandler(svc *votechain.Service, cfg cliparse.Config) *ContractHandler {
	return &ContractHandler{svc: svc, cfg: cfg}
}

// GetContract handles GET /contract
// Returns the last refreshed summary; it is zeroed while no session is active.
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.svc.ContractSummary())
}

// Pause handles POST /contract/pause
func (h *ContractHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.svc.Pause)
}

// Unpause handles POST /contract/unpause
func (h *ContractHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.svc.Unpause)
}

// TransferOwnership handles POST /contract/owner
func (h *ContractHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req models.TransferOwnershipRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.NewOwner == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "new_owner is required")
		return
	}

	h.submit(w, r, func(ctx context.Context) (*models.TransactionResult, error) {
		return h.svc.TransferOwnership(ctx, req.NewOwner)
	})
}

func (h *ContractHandler) submit(w http.ResponseWriter, r *http.Request, op func(context.Context) (*models.TransactionResult, error)) {
	res, err := op(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("contract transaction confirmed", "label", res.Label, "tx", res.TxHash.Hex())
	middleware.JSONResponse(w, http.StatusOK, res)
}
