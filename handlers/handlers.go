// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/votechain/auth"
	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/middleware"
	"github.com/danielhkuo/votechain/models"
)

// maxLimit caps ?limit= on listing routes.
const maxLimit = 100

// statusFor maps an error category to an HTTP status.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.InvalidInput:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.UserRejected:
		return http.StatusForbidden
	case errs.NotConnected, errs.AlreadyConnecting, errs.UnsupportedNetwork:
		return http.StatusConflict
	case errs.ContractReverted:
		return http.StatusUnprocessableEntity
	case errs.ProviderUnavailable, errs.WalletDisabled:
		return http.StatusServiceUnavailable
	case errs.PairingFailed, errs.TransportError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError writes err as a JSON error carrying its kind, reason and hint.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	msg := errs.ReasonOf(err)
	if msg == "" {
		msg = kind.Label()
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"id", middleware.RequestID(r.Context()),
			"path", r.URL.Path,
			"kind", kind,
			"error", err,
		)
	}
	middleware.JSONResponse(w, status, models.ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
		Kind:    string(kind),
		Hint:    errs.HintOf(err),
	})
}

// electionID parses the {id} path value.
func electionID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// queryLimit parses ?limit=, returning 0 when absent.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return 0, false
	}
	return n, true
}

// clock renders epoch-second timestamps relative to now.
type clock func() time.Time

func (c clock) relative(epoch int64) string {
	if epoch == 0 {
		return ""
	}
	return humanize.RelTime(time.Unix(epoch, 0), c(), "ago", "from now")
}

func (c clock) summary(s models.ElectionSummary) models.ElectionSummaryView {
	return models.ElectionSummaryView{
		ElectionSummary: s,
		Remaining:       models.RemainingUntil(s.Deadline, c()),
		DeadlineText:    c.relative(s.Deadline),
		CreatedText:     c.relative(s.CreatedAt),
	}
}

func (c clock) election(e *models.Election) models.ElectionView {
	return models.ElectionView{
		Election:       *e,
		Remaining:      models.RemainingUntil(e.Deadline, c()),
		DeadlineText:   c.relative(e.Deadline),
		CreatedText:    c.relative(e.CreatedAt),
		TotalVotesText: humanize.Comma(int64(e.TotalVotes)),
	}
}

func (c clock) votes(records []models.VoteRecord) []models.VoteView {
	out := make([]models.VoteView, len(records))
	for i, v := range records {
		out[i] = models.VoteView{
			VoteRecord: v,
			VoterShort: auth.ShortAddress(v.Voter),
			TimeText:   c.relative(v.BlockTimestamp),
		}
	}
	return out
}
