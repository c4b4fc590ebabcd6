// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package contract

import (
	"strings"

	"github.com/danielhkuo/votechain/errs"
)

// Limits enforced by the contract. The client checks them first so that a
// doomed transaction is never sent.
const (
	MinDurationDays = 1
	MaxDurationDays = 7
	MinCandidates   = 2
	MaxCandidates   = 10
)

// ValidateCreateElection applies the contract's createElection limits.
func ValidateCreateElection(name string, candidateNames, candidateDescriptions []string, durationDays int64) error {
	const op = "createElection"

	if strings.TrimSpace(name) == "" {
		return errs.Newf(errs.InvalidInput, op, "election name is required")
	}
	if durationDays < MinDurationDays || durationDays > MaxDurationDays {
		return errs.Newf(errs.InvalidInput, op, "election duration must be between %d and %d days", MinDurationDays, MaxDurationDays)
	}
	if len(candidateNames) < MinCandidates {
		return errs.Newf(errs.InvalidInput, op, "at least %d candidates are required", MinCandidates)
	}
	if len(candidateNames) > MaxCandidates {
		return errs.Newf(errs.InvalidInput, op, "maximum of %d candidates allowed", MaxCandidates)
	}
	if len(candidateNames) != len(candidateDescriptions) {
		return errs.Newf(errs.InvalidInput, op, "got %d candidate names but %d descriptions", len(candidateNames), len(candidateDescriptions))
	}
	for i, n := range candidateNames {
		if strings.TrimSpace(n) == "" {
			return errs.Newf(errs.InvalidInput, op, "candidate %d has no name", i+1)
		}
	}
	return nil
}
