// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package contract is the client side of the VoteChain contract.

The ABI is embedded (votechain.abi.json) and calls are packed and unpacked
with go-ethereum's accounts/abi. A Binding sends through any Transport, which
is the JSON-RPC surface of a wallet handle:

	b := contract.Bind(contract.DefaultAddress, account, signer)
	tx, err := b.Vote(ctx, electionID, candidateID)
	if err != nil {
		return err
	}
	receipt, err := tx.Wait(ctx)

# Views

TotalElection, Paused, Owner, GetElection and GetElectionResult go through
eth_call against the latest block.

# Transactions

CreateElection, Vote, CalculateElectionResult, Pause, Unpause and
TransferToNewOwner go through eth_sendTransaction; the wallet signs. Tx.Wait
polls for the receipt until one confirmation.

# Errors

Classify maps wallet and node errors onto the errs taxonomy. EIP-1193 code
4001 is UserRejected. Reverts are ContractReverted with the reason recovered
from the revert data: Error(string) messages verbatim, custom errors by name.
A transaction mined with status 0 is replayed with eth_call at its block to
recover the same reason.

ValidateCreateElection applies the contract's limits before anything is sent.
*/
package contract
