// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store holds the read-through state the service serves: the session
view, the contract summary, election listings, reconciled elections and recent
votes.

State is a copy-on-write Snapshot behind an atomic pointer. Every write clones
the snapshot, replaces whole fields and publishes the clone, so readers see
either the old or the new snapshot and never a mix.

Each snapshot carries the session generation it belongs to. Asynchronous
derivations write with UpdateIf and their results are dropped once the
session has moved on:

	gen := st.Load().Generation
	summary, err := readSummary(ctx)
	if err == nil {
		st.UpdateIf(gen, func(s *store.Snapshot) { s.Contract = summary })
	}
*/
package store
