// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package envelope wraps every state-changing contract call.

	res, err := env.Execute(ctx, "vote", func(ctx context.Context, b *contract.Binding) (*contract.Tx, error) {
		return b.Vote(ctx, electionID, candidateID)
	}, electionID, candidateID)

Execute checks the session first and never invokes the call without an
active account on a supported chain. After one confirmation it runs a full
refresh and only then returns, so readers of the store observe the mutation's
effects on the contract summary. Failures come back as categorized errors
(UserRejected, ContractReverted with the decoded reason, TransportError) and
are reported as "Failed to <label> because <reason>".
*/
package envelope
