// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package contract_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/testutil"
)

func newBinding(t *testing.T, from common.Address) (*contract.Binding, *testutil.FakeChain) {
	t.Helper()
	chain := testutil.NewFakeChain(testutil.AccountA)
	b := contract.Bind(contract.DefaultAddress, from, chain).WithPollInterval(time.Millisecond)
	return b, chain
}

func TestEmbeddedABI(t *testing.T) {
	for _, name := range []string{
		"createElection", "vote", "calculateElectionResult", "getElection",
		"getElectionResult", "totalElection", "owner", "paused", "pause",
		"unpause", "transferToNewOwner",
	} {
		_, ok := contract.ABI.Methods[name]
		assert.True(t, ok, "method %s missing", name)
	}
	for _, name := range []string{"ElectionCreated", "CandidateCreated", "VoteSubmitted", "ElectionEnded"} {
		_, ok := contract.ABI.Events[name]
		assert.True(t, ok, "event %s missing", name)
	}
	for _, name := range []string{"EnforcedPause", "ExpectedPause", "OwnableInvalidOwner", "OwnableUnauthorizedAccount"} {
		_, ok := contract.ABI.Errors[name]
		assert.True(t, ok, "error %s missing", name)
	}
}

func TestSummaryViews(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountB)
	chain.AddElection(testutil.AccountA, "Board", 3, "Alice", "Bob")
	chain.AddElection(testutil.AccountA, "Budget", 3, "Yes", "No")
	chain.SetPaused(true)
	ctx := context.Background()

	total, err := b.TotalElection(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)

	paused, err := b.Paused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	owner, err := b.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.AccountA, owner)
}

func TestGetElection(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountB)
	id := chain.AddElection(testutil.AccountA, "Board", 3, "Alice", "Bob")
	ctx := context.Background()

	tx, err := b.Vote(ctx, id, 2)
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	e, err := b.GetElection(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "Board", e.Name)
	assert.Equal(t, uint64(1), e.TotalVotes)
	assert.True(t, e.HasVoted)
	require.Len(t, e.Candidates, 2)
	assert.Equal(t, "Bob", e.Candidates[1].Name)
	assert.Equal(t, uint64(1), e.Candidates[1].VoteCount)

	_, err = b.GetElection(ctx, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrContractReverted))
	assert.Equal(t, "Election does not exist", errs.ReasonOf(err))
}

func TestGetElectionResult(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountB)
	id := chain.AddElection(testutil.AccountA, "Board", 1, "Alice", "Bob")
	ctx := context.Background()

	tx, err := b.Vote(ctx, id, 1)
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	_, err = b.GetElectionResult(ctx, id)
	assert.True(t, errors.Is(err, errs.ErrContractReverted))

	chain.Advance(48 * time.Hour)
	tx, err = b.CalculateElectionResult(ctx, id)
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	result, err := b.GetElectionResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", result)
}

func TestTransactionConfirmed(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountA)
	ctx := context.Background()

	tx, err := b.CreateElection(ctx, "Board", "yearly", "", []string{"Alice", "Bob"}, []string{"a", "b"}, 3)
	require.NoError(t, err)
	assert.Equal(t, "createElection", tx.Method)

	receipt, err := tx.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, tx.Hash, receipt.TxHash)

	e, ok := chain.Election(1)
	require.True(t, ok)
	assert.Equal(t, "Board", e.Name)
	assert.Len(t, e.Candidates, 2)
}

func TestRevertAtSubmission(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountB)
	chain.SetPaused(true)
	id := chain.AddElection(testutil.AccountA, "Board", 3, "Alice", "Bob")

	_, err := b.Vote(context.Background(), id, 1)
	require.Error(t, err)
	assert.Equal(t, errs.ContractReverted, errs.KindOf(err))
	assert.Equal(t, "EnforcedPause", errs.ReasonOf(err))
}

func TestRevertAfterMining(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountB)
	chain.MineReverts = true
	id := chain.AddElection(testutil.AccountA, "Board", 3, "Alice", "Bob")
	ctx := context.Background()

	tx, err := b.Vote(ctx, id, 1)
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	tx, err = b.Vote(ctx, id, 2)
	require.NoError(t, err, "revert is only visible once mined")

	receipt, err := tx.Wait(ctx)
	require.Error(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Equal(t, errs.ContractReverted, errs.KindOf(err))
	assert.Equal(t, "You have already voted", errs.ReasonOf(err))
}

func TestUserRejected(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountA)
	chain.RejectNext()

	_, err := b.Pause(context.Background())
	assert.True(t, errors.Is(err, errs.ErrUserRejected))

	paused, err := b.Paused(context.Background())
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestOwnerOnlyRevertsWithCustomError(t *testing.T) {
	b, _ := newBinding(t, testutil.AccountB)

	_, err := b.Pause(context.Background())
	assert.Equal(t, errs.ContractReverted, errs.KindOf(err))
	assert.Equal(t, "OwnableUnauthorizedAccount", errs.ReasonOf(err))
}

func TestTransferToZeroAddressNeverSent(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountA)

	_, err := b.TransferToNewOwner(context.Background(), common.Address{})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	assert.Zero(t, chain.Calls("eth_sendTransaction"))
}

func TestWaitRetriesReceiptLookup(t *testing.T) {
	b, chain := newBinding(t, testutil.AccountA)
	id := chain.AddElection(testutil.AccountB, "Board", 3, "Alice", "Bob")
	ctx := context.Background()

	tx, err := b.Vote(ctx, id, 1)
	require.NoError(t, err)
	chain.FailNext(errors.New("connection reset by peer"))

	receipt, err := tx.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, 2, chain.Calls("eth_getTransactionReceipt"))

	e, _ := chain.Election(id)
	assert.Equal(t, uint64(1), e.Candidates[0].VoteCount)
}

func TestWaitHonoursContext(t *testing.T) {
	b, _ := newBinding(t, testutil.AccountA)
	tx, err := b.Pause(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = tx.Wait(ctx)
	assert.Equal(t, errs.TransportError, errs.KindOf(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   errs.Kind
		wantReason string
	}{
		{"nil", nil, "", ""},
		{"eip-1193 rejection", testutil.UserRejectedError(), errs.UserRejected, ""},
		{"unauthorized", &testutil.RPCError{Code: 4100, Message: "unauthorized"}, errs.UserRejected, ""},
		{"revert string", testutil.RevertError("Invalid candidate"), errs.ContractReverted, "Invalid candidate"},
		{"custom error", testutil.CustomRevertError("ExpectedPause"), errs.ContractReverted, "ExpectedPause"},
		{"revert text only", errors.New("execution reverted: Election has ended"), errs.ContractReverted, "Election has ended"},
		{"user denied text", errors.New("MetaMask Tx Signature: User denied transaction signature."), errs.UserRejected, ""},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), errs.TransportError, ""},
		{"other", errors.New("connection refused"), errs.TransportError, ""},
		{"categorized passthrough", errs.Newf(errs.NotFound, "getElection", "election 3"), errs.NotFound, "election 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := contract.Classify("vote", tt.err)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantKind, errs.KindOf(err))
			assert.Equal(t, tt.wantReason, errs.ReasonOf(err))
		})
	}
}

func TestValidateCreateElection(t *testing.T) {
	two := []string{"Alice", "Bob"}
	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = fmt.Sprintf("c%d", i)
	}

	tests := []struct {
		name    string
		title   string
		names   []string
		descs   []string
		days    int64
		wantErr bool
	}{
		{"valid", "Board", two, two, 3, false},
		{"max duration", "Board", two, two, 7, false},
		{"empty name", " ", two, two, 3, true},
		{"zero days", "Board", two, two, 0, true},
		{"eight days", "Board", two, two, 8, true},
		{"one candidate", "Board", two[:1], two[:1], 3, true},
		{"eleven candidates", "Board", eleven, eleven, 3, true},
		{"length mismatch", "Board", two, two[:1], 3, true},
		{"blank candidate", "Board", []string{"Alice", ""}, two, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := contract.ValidateCreateElection(tt.title, tt.names, tt.descs, tt.days)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errs.ErrInvalidInput), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
