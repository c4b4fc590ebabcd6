// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/errs"
)

// Resource hints attached to connection failures.
const (
	HintInstallExtension = "https://metamask.io/download/"
	HintInstallBrowser   = "https://brave.com/download/"
	HintWalletSettings   = "brave://settings/wallet"
)

// DefaultPairingTimeout bounds the remote pairing handshake.
const DefaultPairingTimeout = 2 * time.Minute

// Adapter normalizes the three connection mechanisms into one Conn.
type Adapter struct {
	host           Host
	pairingOpts    PairingOptions
	pairingTimeout time.Duration

	mu      sync.Mutex
	pairing PairingClient
}

func NewAdapter(host Host, opts PairingOptions, pairingTimeout time.Duration) *Adapter {
	if pairingTimeout <= 0 {
		pairingTimeout = DefaultPairingTimeout
	}
	return &Adapter{host: host, pairingOpts: opts, pairingTimeout: pairingTimeout}
}

// Connect resolves a handle for kind. It does not request accounts.
func (a *Adapter) Connect(ctx context.Context, kind Kind) (*Conn, error) {
	switch kind {
	case KindInjected:
		return a.connectInjected(ctx)
	case KindNativeWallet:
		return a.connectNative(ctx)
	case KindRemotePaired:
		return a.connectRemote(ctx)
	}
	return nil, errs.Newf(errs.ProviderUnavailable, "connect", "unsupported wallet type %s", kind)
}

func (a *Adapter) connectInjected(ctx context.Context) (*Conn, error) {
	h, ok := a.host.Injected(ctx)
	if !ok || !h.Info().Extension {
		return nil, errs.Newf(errs.ProviderUnavailable, "connect", "no browser extension wallet found").
			WithHint(HintInstallExtension)
	}
	return &Conn{Kind: KindInjected, handle: h}, nil
}

func (a *Adapter) connectNative(ctx context.Context) (*Conn, error) {
	native, err := a.host.BrowserIdentity(ctx)
	if err != nil {
		return nil, errs.New(errs.ProviderUnavailable, "connect", err).WithHint(HintInstallBrowser)
	}
	if !native {
		return nil, errs.Newf(errs.ProviderUnavailable, "connect", "use the wallet-native browser with its wallet enabled").
			WithHint(HintInstallBrowser)
	}

	h, ok := a.host.Injected(ctx)
	if !ok || !h.Info().NativeWallet {
		return nil, errs.Newf(errs.WalletDisabled, "connect", "enable the browser wallet in settings").
			WithHint(HintWalletSettings)
	}
	return &Conn{Kind: KindNativeWallet, handle: h}, nil
}

func (a *Adapter) connectRemote(ctx context.Context) (*Conn, error) {
	client, err := a.pairingClient(ctx)
	if err != nil {
		return nil, err
	}

	hctx, cancel := context.WithTimeout(ctx, a.pairingTimeout)
	defer cancel()

	if err := client.Connect(hctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Newf(errs.PairingFailed, "connect", "pairing timed out after %s", a.pairingTimeout)
		}
		return nil, errs.New(errs.PairingFailed, "connect", err)
	}
	return &Conn{Kind: KindRemotePaired, handle: client}, nil
}

// pairingClient returns the cached pairing client, creating it on first use.
func (a *Adapter) pairingClient(ctx context.Context) (PairingClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pairing != nil {
		return a.pairing, nil
	}
	client, err := a.host.Pair(ctx, a.pairingOpts)
	if err != nil {
		return nil, errs.New(errs.PairingFailed, "connect", fmt.Errorf("pairing client initialization failed: %w", err))
	}
	a.pairing = client
	return client, nil
}

// Teardown disconnects and forgets the pairing client, if any.
func (a *Adapter) Teardown(ctx context.Context) error {
	a.mu.Lock()
	client := a.pairing
	a.pairing = nil
	a.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		slog.Warn("pairing client disconnect failed", "error", err)
		return err
	}
	return nil
}

// Conn is a resolved provider handle with the uniform capability set.
type Conn struct {
	Kind   Kind
	handle Handle
}

// NewConn wraps an already resolved handle.
func NewConn(kind Kind, h Handle) *Conn {
	return &Conn{Kind: kind, handle: h}
}

func (c *Conn) Handle() Handle { return c.handle }

// RequestAccounts asks the wallet to expose its accounts, prompting the user
// when needed.
func (c *Conn) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.handle.Call(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, contract.Classify("requestAccounts", err)
	}
	return accounts, nil
}

// Accounts lists the accounts already exposed, without prompting.
func (c *Conn) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.handle.Call(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, contract.Classify("accounts", err)
	}
	return accounts, nil
}

func (c *Conn) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.handle.Call(ctx, &id, "eth_chainId"); err != nil {
		return 0, contract.Classify("chainId", err)
	}
	return uint64(id), nil
}

func (c *Conn) Subscribe(ch chan<- Event) event.Subscription {
	return c.handle.Subscribe(ch)
}

// SignerFor returns a signer for account, which must be exposed by the wallet.
func (c *Conn) SignerFor(ctx context.Context, account common.Address) (*Signer, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a == account {
			return &Signer{account: account, handle: c.handle}, nil
		}
	}
	return nil, errs.Newf(errs.NotConnected, "signer", "account %s is not exposed by the wallet", account.Hex())
}

// Signer sends transactions from one account through the wallet, which
// does the actual signing.
type Signer struct {
	account common.Address
	handle  Handle
}

func (s *Signer) Account() common.Address { return s.account }

func (s *Signer) Call(ctx context.Context, result any, method string, args ...any) error {
	return s.handle.Call(ctx, result, method, args...)
}
