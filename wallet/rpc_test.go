// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votechain/testutil"
	"github.com/danielhkuo/votechain/wallet"
)

type ethService struct {
	mu       sync.Mutex
	accounts []common.Address
	chainID  uint64
	down     bool
}

func (s *ethService) Accounts() ([]common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errors.New("wallet locked")
	}
	return s.accounts, nil
}

func (s *ethService) ChainId() (hexutil.Uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return 0, errors.New("wallet locked")
	}
	return hexutil.Uint64(s.chainID), nil
}

func (s *ethService) set(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
}

type web3Service struct{}

func (web3Service) ClientVersion() string { return "BraveWallet/1.0" }

func newRPCHandle(t *testing.T, svc *ethService) *wallet.RPCHandle {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	require.NoError(t, server.RegisterName("web3", web3Service{}))
	t.Cleanup(server.Stop)

	client := rpc.DialInProc(server)
	h := wallet.NewRPCHandle(context.Background(), client, wallet.Info{Extension: true}, 10*time.Millisecond)
	t.Cleanup(h.Close)
	return h
}

func nextEvent(t *testing.T, ch <-chan wallet.Event) wallet.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no wallet event")
		return wallet.Event{}
	}
}

func TestRPCHandleInfo(t *testing.T) {
	h := newRPCHandle(t, &ethService{chainID: testutil.ChainMainnet})
	assert.Equal(t, "BraveWallet/1.0", h.Info().ClientVersion)
	assert.True(t, h.Info().Extension)
}

func TestRPCHandleWatchesChanges(t *testing.T) {
	svc := &ethService{accounts: []common.Address{testutil.AccountA}, chainID: testutil.ChainMainnet}
	h := newRPCHandle(t, svc)

	events := make(chan wallet.Event, 4)
	sub := h.Subscribe(events)
	defer sub.Unsubscribe()

	// Let the watcher record its baseline.
	time.Sleep(50 * time.Millisecond)

	svc.set(func() { svc.chainID = testutil.ChainSepolia })
	ev := nextEvent(t, events)
	assert.Equal(t, wallet.EventChainChanged, ev.Type)
	assert.Equal(t, testutil.ChainSepolia, ev.ChainID)

	svc.set(func() { svc.accounts = []common.Address{testutil.AccountB} })
	ev = nextEvent(t, events)
	assert.Equal(t, wallet.EventAccountsChanged, ev.Type)
	assert.Equal(t, []common.Address{testutil.AccountB}, ev.Accounts)

	svc.set(func() { svc.down = true })
	ev = nextEvent(t, events)
	assert.Equal(t, wallet.EventDisconnect, ev.Type)
}

func TestRPCHandleCall(t *testing.T) {
	h := newRPCHandle(t, &ethService{accounts: []common.Address{testutil.AccountC}, chainID: testutil.ChainMainnet})
	conn := wallet.NewConn(wallet.KindInjected, h)

	accounts, err := conn.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testutil.AccountC}, accounts)
}

func TestDialHostWithoutEndpoints(t *testing.T) {
	host := wallet.NewDialHost(wallet.DialConfig{})
	defer host.Close()

	_, ok := host.Injected(context.Background())
	assert.False(t, ok)

	native, err := host.BrowserIdentity(context.Background())
	require.NoError(t, err)
	assert.False(t, native)

	_, err = host.Pair(context.Background(), wallet.PairingOptions{ProjectID: "p"})
	assert.Error(t, err)
}
