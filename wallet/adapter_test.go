// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/testutil"
	"github.com/danielhkuo/votechain/wallet"
)

var pairingOpts = wallet.PairingOptions{
	ProjectID: "test-project",
	Chains:    []uint64{testutil.ChainMainnet, testutil.ChainSepolia},
	Metadata:  wallet.AppMetadata{Name: "VoteChain", URL: "http://localhost"},
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    wallet.Kind
		wantErr bool
	}{
		{"injected", wallet.KindInjected, false},
		{"MetaMask", wallet.KindInjected, false},
		{"native", wallet.KindNativeWallet, false},
		{"brave", wallet.KindNativeWallet, false},
		{" walletconnect ", wallet.KindRemotePaired, false},
		{"remote", wallet.KindRemotePaired, false},
		{"ledger", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := wallet.ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.String())
		})
	}
}

func TestConnectInjected(t *testing.T) {
	host, _ := testutil.NewInjectedWallet(nil, testutil.ChainMainnet, testutil.AccountA)
	a := wallet.NewAdapter(host, pairingOpts, 0)
	ctx := context.Background()

	conn, err := a.Connect(ctx, wallet.KindInjected)
	require.NoError(t, err)
	assert.Equal(t, wallet.KindInjected, conn.Kind)

	accounts, err := conn.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.AccountA, accounts[0])

	chainID, err := conn.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.ChainMainnet, chainID)
}

func TestConnectInjectedMissing(t *testing.T) {
	tests := []struct {
		name string
		host *testutil.FakeHost
	}{
		{"no handle", &testutil.FakeHost{}},
		{"handle without extension flag", &testutil.FakeHost{
			InjectedHandle: testutil.NewFakeHandle(nil, wallet.Info{}, testutil.ChainMainnet),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := wallet.NewAdapter(tt.host, pairingOpts, 0)
			_, err := a.Connect(context.Background(), wallet.KindInjected)
			assert.True(t, errors.Is(err, errs.ErrProviderUnavailable))
			assert.Equal(t, wallet.HintInstallExtension, errs.HintOf(err))
		})
	}
}

func TestConnectNative(t *testing.T) {
	nativeHandle := testutil.NewFakeHandle(nil, wallet.Info{Extension: true, NativeWallet: true}, testutil.ChainMainnet, testutil.AccountA)
	disabledHandle := testutil.NewFakeHandle(nil, wallet.Info{Extension: true}, testutil.ChainMainnet, testutil.AccountA)

	tests := []struct {
		name     string
		host     *testutil.FakeHost
		wantKind errs.Kind
		wantHint string
	}{
		{
			name:     "native browser with wallet",
			host:     &testutil.FakeHost{NativeBrowser: true, InjectedHandle: nativeHandle},
			wantKind: "",
		},
		{
			name:     "other browser",
			host:     &testutil.FakeHost{InjectedHandle: nativeHandle},
			wantKind: errs.ProviderUnavailable,
			wantHint: wallet.HintInstallBrowser,
		},
		{
			name:     "identity check fails",
			host:     &testutil.FakeHost{IdentityErr: errors.New("no brave api")},
			wantKind: errs.ProviderUnavailable,
			wantHint: wallet.HintInstallBrowser,
		},
		{
			name:     "wallet switched off",
			host:     &testutil.FakeHost{NativeBrowser: true, InjectedHandle: disabledHandle},
			wantKind: errs.WalletDisabled,
			wantHint: wallet.HintWalletSettings,
		},
		{
			name:     "no handle at all",
			host:     &testutil.FakeHost{NativeBrowser: true},
			wantKind: errs.WalletDisabled,
			wantHint: wallet.HintWalletSettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := wallet.NewAdapter(tt.host, pairingOpts, 0)
			conn, err := a.Connect(context.Background(), wallet.KindNativeWallet)
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, wallet.KindNativeWallet, conn.Kind)
				return
			}
			assert.Equal(t, tt.wantKind, errs.KindOf(err))
			assert.Equal(t, tt.wantHint, errs.HintOf(err))
		})
	}
}

func TestConnectRemoteReusesPairingClient(t *testing.T) {
	pairing := &testutil.FakePairing{
		FakeHandle: testutil.NewFakeHandle(nil, wallet.Info{}, testutil.ChainSepolia, testutil.AccountB),
	}
	host := &testutil.FakeHost{Pairing: pairing}
	a := wallet.NewAdapter(host, pairingOpts, time.Second)
	ctx := context.Background()

	_, err := a.Connect(ctx, wallet.KindRemotePaired)
	require.NoError(t, err)
	_, err = a.Connect(ctx, wallet.KindRemotePaired)
	require.NoError(t, err)

	assert.Equal(t, 1, host.Pairs(), "pairing client is created once")
	assert.Equal(t, 2, pairing.Connects())

	require.NoError(t, a.Teardown(ctx))
	assert.Equal(t, 1, pairing.Disconnects())

	_, err = a.Connect(ctx, wallet.KindRemotePaired)
	require.NoError(t, err)
	assert.Equal(t, 2, host.Pairs(), "teardown forgets the client")
}

func TestConnectRemoteFailures(t *testing.T) {
	t.Run("client init", func(t *testing.T) {
		host := &testutil.FakeHost{PairErr: errors.New("relay down")}
		a := wallet.NewAdapter(host, pairingOpts, time.Second)
		_, err := a.Connect(context.Background(), wallet.KindRemotePaired)
		assert.True(t, errors.Is(err, errs.ErrPairingFailed))
	})

	t.Run("rejected", func(t *testing.T) {
		pairing := &testutil.FakePairing{
			FakeHandle: testutil.NewFakeHandle(nil, wallet.Info{}, testutil.ChainMainnet),
			ConnectErr: errors.New("session rejected"),
		}
		a := wallet.NewAdapter(&testutil.FakeHost{Pairing: pairing}, pairingOpts, time.Second)
		_, err := a.Connect(context.Background(), wallet.KindRemotePaired)
		assert.True(t, errors.Is(err, errs.ErrPairingFailed))
	})

	t.Run("timeout", func(t *testing.T) {
		pairing := &testutil.FakePairing{
			FakeHandle: testutil.NewFakeHandle(nil, wallet.Info{}, testutil.ChainMainnet),
			Block:      true,
		}
		a := wallet.NewAdapter(&testutil.FakeHost{Pairing: pairing}, pairingOpts, 20*time.Millisecond)
		_, err := a.Connect(context.Background(), wallet.KindRemotePaired)
		assert.True(t, errors.Is(err, errs.ErrPairingFailed))
		assert.Contains(t, errs.ReasonOf(err), "timed out")
	})
}

func TestTeardownWithoutPairing(t *testing.T) {
	a := wallet.NewAdapter(&testutil.FakeHost{}, pairingOpts, 0)
	assert.NoError(t, a.Teardown(context.Background()))
}

func TestUnknownKind(t *testing.T) {
	a := wallet.NewAdapter(&testutil.FakeHost{}, pairingOpts, 0)
	_, err := a.Connect(context.Background(), wallet.Kind(42))
	assert.True(t, errors.Is(err, errs.ErrProviderUnavailable))
}

func TestSignerFor(t *testing.T) {
	host, _ := testutil.NewInjectedWallet(nil, testutil.ChainMainnet, testutil.AccountA)
	a := wallet.NewAdapter(host, pairingOpts, 0)
	ctx := context.Background()

	conn, err := a.Connect(ctx, wallet.KindInjected)
	require.NoError(t, err)

	signer, err := conn.SignerFor(ctx, testutil.AccountA)
	require.NoError(t, err)
	assert.Equal(t, testutil.AccountA, signer.Account())

	_, err = conn.SignerFor(ctx, testutil.AccountB)
	assert.True(t, errors.Is(err, errs.ErrNotConnected))
}

func TestRequestAccountsRejected(t *testing.T) {
	host, handle := testutil.NewInjectedWallet(nil, testutil.ChainMainnet, testutil.AccountA)
	handle.RejectAccounts(true)
	a := wallet.NewAdapter(host, pairingOpts, 0)
	ctx := context.Background()

	conn, err := a.Connect(ctx, wallet.KindInjected)
	require.NoError(t, err)

	_, err = conn.RequestAccounts(ctx)
	assert.True(t, errors.Is(err, errs.ErrUserRejected))
}

func TestSubscriptionsAreIndependent(t *testing.T) {
	host, handle := testutil.NewInjectedWallet(nil, testutil.ChainMainnet, testutil.AccountA)
	a := wallet.NewAdapter(host, pairingOpts, 0)
	conn, err := a.Connect(context.Background(), wallet.KindInjected)
	require.NoError(t, err)

	first := make(chan wallet.Event, 1)
	second := make(chan wallet.Event, 1)
	sub1 := conn.Subscribe(first)
	sub2 := conn.Subscribe(second)
	defer sub2.Unsubscribe()

	sub1.Unsubscribe()
	handle.SetChain(testutil.ChainSepolia)

	ev := <-second
	assert.Equal(t, wallet.EventChainChanged, ev.Type)
	assert.Equal(t, testutil.ChainSepolia, ev.ChainID)
	assert.Len(t, first, 0)
	assert.Equal(t, 1, handle.Subscribers())
}
