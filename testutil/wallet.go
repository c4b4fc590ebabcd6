// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"

	"github.com/danielhkuo/votechain/wallet"
)

// Well-known test accounts.
var (
	AccountA = common.HexToAddress("0xAAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	AccountB = common.HexToAddress("0xBbBBbbBBbBbBbbbBbBBBbbBBbbbbBbBbbBbBbbBB")
	AccountC = common.HexToAddress("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC")
)

// Supported test chains.
const (
	ChainMainnet     uint64 = 1
	ChainSepolia     uint64 = 11155111
	ChainUnsupported uint64 = 999
)

// FakeHandle is a wallet provider handle backed by a FakeChain. Account and
// chain changes are published to subscribers like a real provider would.
type FakeHandle struct {
	Chain *FakeChain

	info wallet.Info
	feed event.Feed
	subs atomic.Int32

	mu             sync.Mutex
	accounts       []common.Address
	chainID        uint64
	rejectAccounts bool
}

func NewFakeHandle(chain *FakeChain, info wallet.Info, chainID uint64, accounts ...common.Address) *FakeHandle {
	return &FakeHandle{Chain: chain, info: info, chainID: chainID, accounts: accounts}
}

func (h *FakeHandle) Info() wallet.Info { return h.info }

// RejectAccounts makes eth_requestAccounts fail as a user rejection.
func (h *FakeHandle) RejectAccounts(reject bool) {
	h.mu.Lock()
	h.rejectAccounts = reject
	h.mu.Unlock()
}

func (h *FakeHandle) Call(ctx context.Context, result any, method string, args ...any) error {
	h.mu.Lock()
	accounts := slices.Clone(h.accounts)
	chainID := h.chainID
	reject := h.rejectAccounts
	h.mu.Unlock()

	switch method {
	case "eth_requestAccounts":
		if reject {
			return UserRejectedError()
		}
		return Assign(result, accounts)
	case "eth_accounts":
		return Assign(result, accounts)
	case "eth_chainId":
		return Assign(result, hexutil.Uint64(chainID))
	}
	if h.Chain == nil {
		return &RPCError{Code: -32601, Message: "no chain behind handle"}
	}
	return h.Chain.Call(ctx, result, method, args...)
}

func (h *FakeHandle) Subscribe(ch chan<- wallet.Event) event.Subscription {
	h.subs.Add(1)
	return &countedSub{Subscription: h.feed.Subscribe(ch), count: &h.subs}
}

// Subscribers is the number of live subscriptions.
func (h *FakeHandle) Subscribers() int { return int(h.subs.Load()) }

// SetAccounts changes the exposed accounts and publishes accountsChanged.
func (h *FakeHandle) SetAccounts(accounts ...common.Address) {
	h.mu.Lock()
	h.accounts = accounts
	h.mu.Unlock()
	h.feed.Send(wallet.Event{Type: wallet.EventAccountsChanged, Accounts: accounts})
}

// SetChain switches networks and publishes chainChanged.
func (h *FakeHandle) SetChain(id uint64) {
	h.mu.Lock()
	h.chainID = id
	h.mu.Unlock()
	h.feed.Send(wallet.Event{Type: wallet.EventChainChanged, ChainID: id})
}

// EmitDisconnect publishes a provider-initiated disconnect.
func (h *FakeHandle) EmitDisconnect() {
	h.feed.Send(wallet.Event{Type: wallet.EventDisconnect})
}

type countedSub struct {
	event.Subscription
	once  sync.Once
	count *atomic.Int32
}

func (s *countedSub) Unsubscribe() {
	s.once.Do(func() { s.count.Add(-1) })
	s.Subscription.Unsubscribe()
}

// FakePairing is a remote pairing client around a FakeHandle.
type FakePairing struct {
	*FakeHandle

	ConnectErr error
	// Block makes Connect wait for ctx, as an unanswered QR code would.
	Block bool
	// Gate, when set, holds Connect until it is closed.
	Gate chan struct{}

	connects    atomic.Int32
	disconnects atomic.Int32
}

func (p *FakePairing) Connect(ctx context.Context) error {
	p.connects.Add(1)
	if p.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.Gate != nil {
		select {
		case <-p.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.ConnectErr
}

func (p *FakePairing) Disconnect(ctx context.Context) error {
	p.disconnects.Add(1)
	return nil
}

func (p *FakePairing) Connects() int    { return int(p.connects.Load()) }
func (p *FakePairing) Disconnects() int { return int(p.disconnects.Load()) }

// FakeHost is a wallet.Host with configurable handles.
type FakeHost struct {
	InjectedHandle wallet.Handle
	NativeBrowser  bool
	IdentityErr    error
	Pairing        *FakePairing
	PairErr        error

	pairs atomic.Int32
}

func (h *FakeHost) Injected(ctx context.Context) (wallet.Handle, bool) {
	if h.InjectedHandle == nil {
		return nil, false
	}
	return h.InjectedHandle, true
}

func (h *FakeHost) BrowserIdentity(ctx context.Context) (bool, error) {
	return h.NativeBrowser, h.IdentityErr
}

func (h *FakeHost) Pair(ctx context.Context, opts wallet.PairingOptions) (wallet.PairingClient, error) {
	h.pairs.Add(1)
	if h.PairErr != nil {
		return nil, h.PairErr
	}
	if h.Pairing == nil {
		return nil, errors.New("no pairing client configured")
	}
	return h.Pairing, nil
}

// Pairs is how many pairing clients were requested.
func (h *FakeHost) Pairs() int { return int(h.pairs.Load()) }

// NewInjectedWallet returns a host with an extension wallet on chainID
// exposing accounts, backed by chain.
func NewInjectedWallet(chain *FakeChain, chainID uint64, accounts ...common.Address) (*FakeHost, *FakeHandle) {
	h := NewFakeHandle(chain, wallet.Info{ClientVersion: "MetaMask/v11.0.0", Extension: true}, chainID, accounts...)
	return &FakeHost{InjectedHandle: h}, h
}
