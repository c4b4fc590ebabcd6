// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/votechain/middleware"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/votechain"
)

type BookmarkHandler struct {
	svc *votechain.Service
}

func NewBookmarkHandler(svc *votechain.Service) *BookmarkHandler {
	return &BookmarkHandler{svc: svc}
}

// List handles GET /bookmarks
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Bookmarks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.BookmarksResponse{ElectionIDs: ids})
}

// Add handles PUT /bookmarks/{id}
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Bookmark(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ToggleBookmarkResponse{ElectionID: id, Bookmarked: true})
}

// Remove handles DELETE /bookmarks/{id}
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unbookmark(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ToggleBookmarkResponse{ElectionID: id, Bookmarked: false})
}

// Toggle handles POST /bookmarks/{id}/toggle
func (h *BookmarkHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := electionID(w, r)
	if !ok {
		return
	}
	on, err := h.svc.ToggleBookmark(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ToggleBookmarkResponse{ElectionID: id, Bookmarked: on})
}
