// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/models"
)

// RPCError is a JSON-RPC error as returned by wallets and nodes.
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string          { return e.Message }
func (e *RPCError) ErrorCode() int         { return e.Code }
func (e *RPCError) ErrorData() interface{} { return e.Data }

// UserRejectedError is what a wallet returns when the user declines.
func UserRejectedError() *RPCError {
	return &RPCError{Code: 4001, Message: "User rejected the request."}
}

// RevertError is a node's eth_call / estimate failure carrying an
// Error(string) payload.
func RevertError(reason string) *RPCError {
	return &RPCError{Code: 3, Message: "execution reverted: " + reason, Data: hexutil.Encode(encodeRevert(reason))}
}

// CustomRevertError is a revert carrying one of the contract's custom errors.
func CustomRevertError(name string) *RPCError {
	id := contract.ABI.Errors[name].ID
	return &RPCError{Code: 3, Message: "execution reverted", Data: hexutil.Encode(id.Bytes()[:4])}
}

var revertSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

func encodeRevert(reason string) []byte {
	stringTy, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: stringTy}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append(append([]byte{}, revertSelector...), packed...)
}

// FakeElection is the on-chain state of one election.
type FakeElection struct {
	ID          uint64
	Creator     common.Address
	Name        string
	Description string
	Image       string
	Deadline    int64
	Candidates  []models.Candidate
	Voters      map[common.Address]uint64
	Winner      string
	Ended       bool
}

// FakeChain is an in-memory VoteChain contract answering the JSON-RPC
// methods the contract binding uses. When Indexer is set, every mined
// transaction also appends the matching event records to it, unless
// HoldIndexer is set.
type FakeChain struct {
	Indexer     *MemIndexer
	HoldIndexer bool
	// MineReverts mines failing transactions with status 0 instead of
	// rejecting them at submission.
	MineReverts bool

	mu         sync.Mutex
	now        time.Time
	owner      common.Address
	paused     bool
	elections  map[uint64]*FakeElection
	total      uint64
	block      uint64
	receipts   map[common.Hash]*types.Receipt
	calls      map[string]int
	rejectNext bool
	failNext   error
	held       []func()
}

func NewFakeChain(owner common.Address) *FakeChain {
	return &FakeChain{
		now:       time.Unix(1_750_000_000, 0),
		owner:     owner,
		elections: make(map[uint64]*FakeElection),
		receipts:  make(map[common.Hash]*types.Receipt),
		calls:     make(map[string]int),
		block:     100,
	}
}

// Now is the chain's block time.
func (c *FakeChain) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves block time forward.
func (c *FakeChain) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *FakeChain) SetPaused(paused bool) {
	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()
}

func (c *FakeChain) Owner() common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// RejectNext makes the next eth_sendTransaction fail as a user rejection.
func (c *FakeChain) RejectNext() {
	c.mu.Lock()
	c.rejectNext = true
	c.mu.Unlock()
}

// FailNext makes the next request fail with err.
func (c *FakeChain) FailNext(err error) {
	c.mu.Lock()
	c.failNext = err
	c.mu.Unlock()
}

// Calls reports how often an RPC or contract method was requested.
func (c *FakeChain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// ReleaseIndexer applies the event records held back while HoldIndexer was set.
func (c *FakeChain) ReleaseIndexer() {
	c.mu.Lock()
	held := c.held
	c.held = nil
	c.mu.Unlock()

	for _, apply := range held {
		apply()
	}
}

// AddElection creates an election directly, as if mined earlier.
func (c *FakeChain) AddElection(creator common.Address, name string, durationDays int64, candidates ...string) uint64 {
	descs := make([]string, len(candidates))
	for i, n := range candidates {
		descs[i] = n + " description"
	}
	c.mu.Lock()
	id := c.createElection(creator, name, name+" description", "", candidates, descs, durationDays)
	c.mu.Unlock()
	return id
}

// Election returns a copy of the on-chain election state.
func (c *FakeChain) Election(id uint64) (FakeElection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.elections[id]
	if !ok {
		return FakeElection{}, false
	}
	cp := *e
	cp.Candidates = append([]models.Candidate(nil), e.Candidates...)
	return cp, true
}

type fakeCallArgs struct {
	From *common.Address `json:"from"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

func (c *FakeChain) Call(ctx context.Context, result any, method string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[method]++
	if c.failNext != nil {
		err := c.failNext
		c.failNext = nil
		return err
	}

	switch method {
	case "eth_call":
		msg, m, inputs, err := c.decode(args)
		if err != nil {
			return err
		}
		c.calls[m.Name]++
		out, err := c.view(msg, m, inputs)
		if err != nil {
			return err
		}
		return Assign(result, hexutil.Bytes(out))

	case "eth_sendTransaction":
		if c.rejectNext {
			c.rejectNext = false
			return UserRejectedError()
		}
		msg, m, inputs, err := c.decode(args)
		if err != nil {
			return err
		}
		c.calls[m.Name]++
		if err := c.check(msg, m, inputs); err != nil && !c.MineReverts {
			return err
		}
		return Assign(result, c.mine(msg, m, inputs))

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := Assign(&hash, args[0]); err != nil {
			return err
		}
		return Assign(result, c.receipts[hash])

	case "eth_blockNumber":
		return Assign(result, hexutil.Uint64(c.block))
	}
	return &RPCError{Code: -32601, Message: fmt.Sprintf("the method %s does not exist", method)}
}

func (c *FakeChain) decode(args []any) (fakeCallArgs, *abi.Method, []any, error) {
	var msg fakeCallArgs
	if len(args) == 0 {
		return msg, nil, nil, &RPCError{Code: -32602, Message: "missing call arguments"}
	}
	if err := Assign(&msg, args[0]); err != nil {
		return msg, nil, nil, err
	}
	if len(msg.Data) < 4 {
		return msg, nil, nil, &RPCError{Code: -32602, Message: "missing calldata"}
	}
	m, err := contract.ABI.MethodById(msg.Data[:4])
	if err != nil {
		return msg, nil, nil, &RPCError{Code: -32602, Message: err.Error()}
	}
	inputs, err := m.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return msg, nil, nil, &RPCError{Code: -32602, Message: err.Error()}
	}
	return msg, m, inputs, nil
}

func (c *FakeChain) sender(msg fakeCallArgs) common.Address {
	if msg.From == nil {
		return common.Address{}
	}
	return *msg.From
}

type fakeCandidateTuple struct {
	CandidateId *big.Int
	Name        string
	Description string
	VoteCount   *big.Int
}

type fakeElectionTuple struct {
	Id          *big.Int
	Name        string
	Description string
	Image       string
	Deadline    *big.Int
	TotalVotes  *big.Int
	Winner      string
	Candidates  []fakeCandidateTuple
	HasVoted    bool
}

func u256(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

func (c *FakeChain) view(msg fakeCallArgs, m *abi.Method, in []any) ([]byte, error) {
	switch m.Name {
	case "totalElection":
		return m.Outputs.Pack(u256(c.total))
	case "paused":
		return m.Outputs.Pack(c.paused)
	case "owner":
		return m.Outputs.Pack(c.owner)
	case "getElection":
		e, ok := c.elections[in[0].(*big.Int).Uint64()]
		if !ok {
			return nil, RevertError("Election does not exist")
		}
		t := fakeElectionTuple{
			Id:          u256(e.ID),
			Name:        e.Name,
			Description: e.Description,
			Image:       e.Image,
			Deadline:    big.NewInt(e.Deadline),
			TotalVotes:  u256(uint64(len(e.Voters))),
			Winner:      e.Winner,
			Candidates:  []fakeCandidateTuple{},
		}
		_, t.HasVoted = e.Voters[c.sender(msg)]
		for _, cand := range e.Candidates {
			t.Candidates = append(t.Candidates, fakeCandidateTuple{
				CandidateId: u256(cand.CandidateID),
				Name:        cand.Name,
				Description: cand.Description,
				VoteCount:   u256(cand.VoteCount),
			})
		}
		return m.Outputs.Pack(t)
	case "getElectionResult":
		e, ok := c.elections[in[0].(*big.Int).Uint64()]
		if !ok {
			return nil, RevertError("Election does not exist")
		}
		if !e.Ended {
			return nil, RevertError("Election result not calculated yet")
		}
		return m.Outputs.Pack(e.Winner)
	}

	// eth_call on a state-changing method simulates it.
	if err := c.check(msg, m, in); err != nil {
		return nil, err
	}
	return nil, nil
}

// check reports the revert a transaction would hit against current state.
func (c *FakeChain) check(msg fakeCallArgs, m *abi.Method, in []any) error {
	from := c.sender(msg)
	switch m.Name {
	case "createElection":
		if c.paused {
			return CustomRevertError("EnforcedPause")
		}
		names := in[3].([]string)
		days := in[5].(*big.Int).Int64()
		if days < contract.MinDurationDays || days > contract.MaxDurationDays {
			return RevertError("Invalid election duration")
		}
		if len(names) < contract.MinCandidates || len(names) > contract.MaxCandidates {
			return RevertError("Invalid number of candidates")
		}
	case "vote":
		if c.paused {
			return CustomRevertError("EnforcedPause")
		}
		e, ok := c.elections[in[0].(*big.Int).Uint64()]
		if !ok {
			return RevertError("Election does not exist")
		}
		if c.now.Unix() >= e.Deadline {
			return RevertError("Election has ended")
		}
		if _, voted := e.Voters[from]; voted {
			return RevertError("You have already voted")
		}
		if cand := in[1].(*big.Int).Uint64(); cand == 0 || cand > uint64(len(e.Candidates)) {
			return RevertError("Invalid candidate")
		}
	case "calculateElectionResult":
		e, ok := c.elections[in[0].(*big.Int).Uint64()]
		if !ok {
			return RevertError("Election does not exist")
		}
		if c.now.Unix() < e.Deadline {
			return RevertError("Election is still ongoing")
		}
		if e.Ended {
			return RevertError("Election result already calculated")
		}
	case "pause":
		if from != c.owner {
			return CustomRevertError("OwnableUnauthorizedAccount")
		}
		if c.paused {
			return CustomRevertError("EnforcedPause")
		}
	case "unpause":
		if from != c.owner {
			return CustomRevertError("OwnableUnauthorizedAccount")
		}
		if !c.paused {
			return CustomRevertError("ExpectedPause")
		}
	case "transferToNewOwner":
		if from != c.owner {
			return CustomRevertError("OwnableUnauthorizedAccount")
		}
		if in[0].(common.Address) == (common.Address{}) {
			return CustomRevertError("OwnableInvalidOwner")
		}
	}
	return nil
}

// mine applies a transaction and stores its receipt. Reverting transactions
// get a failed receipt and leave state untouched.
func (c *FakeChain) mine(msg fakeCallArgs, m *abi.Method, in []any) common.Hash {
	c.block++
	hash := crypto.Keccak256Hash(msg.Data, u256(c.block).Bytes())
	receipt := &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		TxHash:            hash,
		BlockNumber:       u256(c.block),
		Logs:              []*types.Log{},
	}
	c.receipts[hash] = receipt

	if err := c.check(msg, m, in); err != nil {
		receipt.Status = types.ReceiptStatusFailed
		return hash
	}

	from := c.sender(msg)
	switch m.Name {
	case "createElection":
		c.createElection(from, in[0].(string), in[1].(string), in[2].(string),
			in[3].([]string), in[4].([]string), in[5].(*big.Int).Int64())
	case "vote":
		c.vote(from, in[0].(*big.Int).Uint64(), in[1].(*big.Int).Uint64())
	case "calculateElectionResult":
		c.endElection(in[0].(*big.Int).Uint64())
	case "pause":
		c.paused = true
	case "unpause":
		c.paused = false
	case "transferToNewOwner":
		c.owner = in[0].(common.Address)
	}
	return hash
}

func (c *FakeChain) index(apply func()) {
	if c.Indexer == nil {
		return
	}
	if c.HoldIndexer {
		c.held = append(c.held, apply)
		return
	}
	apply()
}

func (c *FakeChain) createElection(creator common.Address, name, description, image string, names, descs []string, days int64) uint64 {
	c.total++
	e := &FakeElection{
		ID:          c.total,
		Creator:     creator,
		Name:        name,
		Description: description,
		Image:       image,
		Deadline:    c.now.Unix() + days*86400,
		Voters:      make(map[common.Address]uint64),
	}
	for i, n := range names {
		e.Candidates = append(e.Candidates, models.Candidate{CandidateID: uint64(i + 1), Name: n, Description: descs[i]})
	}
	c.elections[e.ID] = e

	created := models.ElectionCreatedRecord{
		EntityID:       fmt.Sprintf("0x%x-created", e.ID),
		ElectionID:     e.ID,
		Creator:        creator,
		Name:           name,
		Description:    description,
		Image:          image,
		Deadline:       e.Deadline,
		BlockTimestamp: c.now.Unix(),
	}
	candidates := make([]models.CandidateCreatedRecord, 0, len(e.Candidates))
	for _, cand := range e.Candidates {
		candidates = append(candidates, models.CandidateCreatedRecord{
			EntityID:    fmt.Sprintf("0x%x-candidate-%d", e.ID, cand.CandidateID),
			ElectionID:  e.ID,
			CandidateID: cand.CandidateID,
			Name:        cand.Name,
			Description: cand.Description,
		})
	}
	c.index(func() {
		c.Indexer.AddElection(created, candidates...)
	})
	return e.ID
}

func (c *FakeChain) vote(voter common.Address, electionID, candidateID uint64) {
	e := c.elections[electionID]
	e.Voters[voter] = candidateID
	e.Candidates[candidateID-1].VoteCount++

	rec := models.VoteRecord{
		EntityID:       fmt.Sprintf("0x%x-vote-%s", electionID, voter.Hex()),
		ElectionID:     electionID,
		Voter:          voter,
		CandidateID:    candidateID,
		BlockTimestamp: c.now.Unix(),
	}
	c.index(func() {
		c.Indexer.AddVote(rec)
	})
}

func (c *FakeChain) endElection(electionID uint64) {
	e := c.elections[electionID]
	e.Ended = true

	var best models.Candidate
	for _, cand := range e.Candidates {
		if cand.VoteCount > best.VoteCount {
			best = cand
		}
	}
	e.Winner = best.Name

	rec := models.ElectionEndedRecord{
		EntityID:        fmt.Sprintf("0x%x-ended", electionID),
		ElectionID:      electionID,
		Winner:          best.Name,
		TotalVotes:      uint64(len(e.Voters)),
		WinnerVoteCount: best.VoteCount,
		BlockTimestamp:  c.now.Unix(),
	}
	c.index(func() {
		c.Indexer.AddEnded(rec)
	})
}

// Assign stores v into result the way a JSON-RPC client decodes a response.
func Assign(result any, v any) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}
