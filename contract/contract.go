// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/models"
)

//go:embed votechain.abi.json
var abiJSON string

// ABI is the parsed VoteChain contract interface.
var ABI = mustParseABI()

// DefaultAddress is the deployed VoteChain contract.
var DefaultAddress = common.HexToAddress("0x013491434Eb3E9FFE509f0b1A6C04508369866a7")

// DefaultPollInterval is how often Wait asks for a receipt.
const DefaultPollInterval = 2 * time.Second

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("contract: invalid embedded ABI: %v", err))
	}
	return parsed
}

// Transport is the JSON-RPC surface of a wallet handle.
type Transport interface {
	Call(ctx context.Context, result any, method string, args ...any) error
}

// Binding is the VoteChain contract bound to one sending account.
type Binding struct {
	address      common.Address
	from         common.Address
	rpc          Transport
	pollInterval time.Duration
}

// Bind binds the contract at address to the account from, sending through t.
func Bind(address, from common.Address, t Transport) *Binding {
	return &Binding{
		address:      address,
		from:         from,
		rpc:          t,
		pollInterval: DefaultPollInterval,
	}
}

// WithPollInterval returns a copy of b that polls for receipts every d.
func (b *Binding) WithPollInterval(d time.Duration) *Binding {
	c := *b
	c.pollInterval = d
	return &c
}

func (b *Binding) Address() common.Address { return b.address }
func (b *Binding) From() common.Address    { return b.from }

type callArgs struct {
	From *common.Address `json:"from,omitempty"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

func (b *Binding) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, errs.New(errs.InvalidInput, method, err)
	}

	var out hexutil.Bytes
	msg := callArgs{From: &b.from, To: &b.address, Data: data}
	if err := b.rpc.Call(ctx, &out, "eth_call", msg, "latest"); err != nil {
		return nil, Classify(method, err)
	}

	values, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, errs.New(errs.TransportError, method, fmt.Errorf("failed to decode result: %w", err))
	}
	return values, nil
}

// TotalElection returns the number of elections the contract has created.
func (b *Binding) TotalElection(ctx context.Context) (uint64, error) {
	out, err := b.call(ctx, "totalElection")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (b *Binding) Paused(ctx context.Context) (bool, error) {
	out, err := b.call(ctx, "paused")
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (b *Binding) Owner(ctx context.Context) (common.Address, error) {
	out, err := b.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

type candidateTuple struct {
	CandidateId *big.Int
	Name        string
	Description string
	VoteCount   *big.Int
}

type electionTuple struct {
	Id          *big.Int
	Name        string
	Description string
	Image       string
	Deadline    *big.Int
	TotalVotes  *big.Int
	Winner      string
	Candidates  []candidateTuple
	HasVoted    bool
}

// GetElection reads the contract's own view of an election. HasVoted is
// evaluated for the bound account.
func (b *Binding) GetElection(ctx context.Context, electionID uint64) (*models.OnchainElection, error) {
	out, err := b.call(ctx, "getElection", new(big.Int).SetUint64(electionID))
	if err != nil {
		return nil, err
	}
	t := *abi.ConvertType(out[0], new(electionTuple)).(*electionTuple)

	e := &models.OnchainElection{
		ID:          t.Id.Uint64(),
		Name:        t.Name,
		Description: t.Description,
		Image:       t.Image,
		Deadline:    t.Deadline.Int64(),
		TotalVotes:  t.TotalVotes.Uint64(),
		Winner:      t.Winner,
		HasVoted:    t.HasVoted,
		Candidates:  make([]models.Candidate, 0, len(t.Candidates)),
	}
	for _, c := range t.Candidates {
		e.Candidates = append(e.Candidates, models.Candidate{
			CandidateID: c.CandidateId.Uint64(),
			Name:        c.Name,
			Description: c.Description,
			VoteCount:   c.VoteCount.Uint64(),
		})
	}
	return e, nil
}

// GetElectionResult returns the contract's result text for an ended election.
func (b *Binding) GetElectionResult(ctx context.Context, electionID uint64) (string, error) {
	out, err := b.call(ctx, "getElectionResult", new(big.Int).SetUint64(electionID))
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// Tx is a submitted transaction awaiting confirmation.
type Tx struct {
	Hash   common.Hash
	Method string

	data    []byte
	binding *Binding
}

func (b *Binding) transact(ctx context.Context, method string, args ...any) (*Tx, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, errs.New(errs.InvalidInput, method, err)
	}

	var hash common.Hash
	msg := callArgs{From: &b.from, To: &b.address, Data: data}
	if err := b.rpc.Call(ctx, &hash, "eth_sendTransaction", msg); err != nil {
		return nil, Classify(method, err)
	}
	return &Tx{Hash: hash, Method: method, data: data, binding: b}, nil
}

// CreateElection submits a new election after checking the contract's limits.
func (b *Binding) CreateElection(ctx context.Context, name, description, image string, candidateNames, candidateDescriptions []string, durationDays int64) (*Tx, error) {
	if err := ValidateCreateElection(name, candidateNames, candidateDescriptions, durationDays); err != nil {
		return nil, err
	}
	return b.transact(ctx, "createElection",
		name, description, image,
		candidateNames, candidateDescriptions,
		big.NewInt(durationDays),
	)
}

func (b *Binding) Vote(ctx context.Context, electionID, candidateID uint64) (*Tx, error) {
	return b.transact(ctx, "vote",
		new(big.Int).SetUint64(electionID),
		new(big.Int).SetUint64(candidateID),
	)
}

func (b *Binding) CalculateElectionResult(ctx context.Context, electionID uint64) (*Tx, error) {
	return b.transact(ctx, "calculateElectionResult", new(big.Int).SetUint64(electionID))
}

func (b *Binding) Pause(ctx context.Context) (*Tx, error) {
	return b.transact(ctx, "pause")
}

func (b *Binding) Unpause(ctx context.Context) (*Tx, error) {
	return b.transact(ctx, "unpause")
}

func (b *Binding) TransferToNewOwner(ctx context.Context, newOwner common.Address) (*Tx, error) {
	if newOwner == (common.Address{}) {
		return nil, errs.Newf(errs.InvalidInput, "transferToNewOwner", "new owner must not be the zero address")
	}
	return b.transact(ctx, "transferToNewOwner", newOwner)
}

// Wait blocks until the transaction has one confirmation. Receipt lookup
// errors are logged and retried; only ctx ends the wait early. A mined but
// failed transaction is replayed with eth_call to recover the revert reason.
func (tx *Tx) Wait(ctx context.Context) (*types.Receipt, error) {
	ticker := time.NewTicker(tx.binding.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := tx.binding.rpc.Call(ctx, &receipt, "eth_getTransactionReceipt", tx.Hash)
		switch {
		case err != nil:
			slog.Warn("receipt lookup failed", "method", tx.Method, "tx", tx.Hash.Hex(), "error", err)
		case receipt != nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, tx.revertReason(ctx, receipt)
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, errs.New(errs.TransportError, tx.Method, fmt.Errorf("waiting for %s: %w", tx.Hash.Hex(), ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (tx *Tx) revertReason(ctx context.Context, receipt *types.Receipt) error {
	b := tx.binding
	block := "latest"
	if receipt.BlockNumber != nil {
		block = hexutil.EncodeBig(receipt.BlockNumber)
	}

	var out hexutil.Bytes
	msg := callArgs{From: &b.from, To: &b.address, Data: tx.data}
	err := b.rpc.Call(ctx, &out, "eth_call", msg, block)
	if err != nil {
		classified := Classify(tx.Method, err)
		var e *errs.Error
		if errors.As(classified, &e) && e.Kind == errs.ContractReverted {
			return e
		}
	}
	return errs.New(errs.ContractReverted, tx.Method, nil)
}
