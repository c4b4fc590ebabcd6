// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/votechain/cliparse"
	"github.com/danielhkuo/votechain/middleware"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/votechain"
)

type SessionHandler struct {
	svc *votechain.Service
	cfg cliparse.Config
}

func NewSessionHandler(svc *votechain.Service, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{svc: svc, cfg: cfg}
}

func (h *SessionHandler) response(view models.SessionView) models.SessionResponse {
	resp := models.SessionResponse{SessionView: view}
	if view.ChainID != nil {
		resp.Network = h.cfg.NetworkName(*view.ChainID)
	}
	return resp
}

// GetSession handles GET /session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.response(h.svc.Session()))
}

// Connect handles POST /session/connect
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Kind == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "kind is required")
		return
	}

	view, err := h.svc.Connect(r.Context(), req.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("wallet connected", "kind", view.Kind, "generation", view.Generation)
	middleware.JSONResponse(w, http.StatusOK, h.response(view))
}

// Disconnect handles POST /session/disconnect
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	view := h.svc.Disconnect(r.Context())
	middleware.JSONResponse(w, http.StatusOK, h.response(view))
}

// Notifications handles GET /notifications
// Returns the most recent notifications, newest last.
func (h *SessionHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.svc.Notifications())
}

// Health handles GET /health
// Reports the session state alongside the indexer reachability.
func (h *SessionHandler) Health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status":  "ok",
			"session": h.svc.Session().State,
			"time":    time.Now().UTC().Format(time.RFC3339),
		}
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				status["status"] = "degraded"
				status["indexer"] = err.Error()
			}
		}
		middleware.JSONResponse(w, http.StatusOK, status)
	}
}
