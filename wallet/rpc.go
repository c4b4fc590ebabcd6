// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	defaultWatchInterval = 2 * time.Second
	maxWatchFailures     = 3
)

// RPCHandle is a Handle over a JSON-RPC endpoint. JSON-RPC wallets do not
// push notifications, so the handle watches eth_accounts and eth_chainId and
// publishes an event whenever either changes. Repeated transport failures
// are published as a disconnect.
type RPCHandle struct {
	client   *rpc.Client
	info     Info
	interval time.Duration

	feed      event.Feed
	startOnce sync.Once
	closeOnce sync.Once
	quit      chan struct{}
}

// NewRPCHandle wraps client. info.ClientVersion is filled from
// web3_clientVersion when the endpoint answers it.
func NewRPCHandle(ctx context.Context, client *rpc.Client, info Info, interval time.Duration) *RPCHandle {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	if info.ClientVersion == "" {
		var version string
		if err := client.CallContext(ctx, &version, "web3_clientVersion"); err == nil {
			info.ClientVersion = version
		}
	}
	return &RPCHandle{client: client, info: info, interval: interval, quit: make(chan struct{})}
}

func (h *RPCHandle) Info() Info { return h.info }

func (h *RPCHandle) Call(ctx context.Context, result any, method string, args ...any) error {
	return h.client.CallContext(ctx, result, method, args...)
}

// Subscribe starts the watcher on first use.
func (h *RPCHandle) Subscribe(ch chan<- Event) event.Subscription {
	h.startOnce.Do(func() { go h.watch() })
	return h.feed.Subscribe(ch)
}

func (h *RPCHandle) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
		h.client.Close()
	})
}

type watchState struct {
	accounts []common.Address
	chainID  uint64
}

func (h *RPCHandle) poll() (watchState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.interval)
	defer cancel()

	var st watchState
	if err := h.client.CallContext(ctx, &st.accounts, "eth_accounts"); err != nil {
		return st, err
	}
	var id hexutil.Uint64
	if err := h.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return st, err
	}
	st.chainID = uint64(id)
	return st, nil
}

func (h *RPCHandle) watch() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last *watchState
	failures := 0

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
		}

		st, err := h.poll()
		if err != nil {
			failures++
			if failures == maxWatchFailures && last != nil {
				slog.Warn("wallet endpoint unreachable", "error", err)
				h.feed.Send(Event{Type: EventDisconnect})
				last = nil
			}
			continue
		}
		failures = 0

		if last == nil {
			last = &st
			continue
		}
		if st.chainID != last.chainID {
			h.feed.Send(Event{Type: EventChainChanged, ChainID: st.chainID})
		}
		if !slices.Equal(st.accounts, last.accounts) {
			h.feed.Send(Event{Type: EventAccountsChanged, Accounts: st.accounts})
		}
		last = &st
	}
}

// DialConfig configures DialHost.
type DialConfig struct {
	InjectedURL   string // extension wallet JSON-RPC endpoint
	NativeBrowser bool   // host is the wallet-native browser
	NativeWallet  bool   // native wallet enabled
	RelayURL      string // WebSocket pairing relay
	WatchInterval time.Duration
}

// DialHost is a Host whose handles are JSON-RPC endpoints.
type DialHost struct {
	cfg DialConfig

	mu       sync.Mutex
	injected *RPCHandle
}

func NewDialHost(cfg DialConfig) *DialHost {
	return &DialHost{cfg: cfg}
}

func (d *DialHost) Injected(ctx context.Context) (Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.injected != nil {
		return d.injected, true
	}
	if d.cfg.InjectedURL == "" {
		return nil, false
	}

	client, err := rpc.DialContext(ctx, d.cfg.InjectedURL)
	if err != nil {
		slog.Warn("injected wallet endpoint unavailable", "url", d.cfg.InjectedURL, "error", err)
		return nil, false
	}
	info := Info{Extension: true}
	h := NewRPCHandle(ctx, client, info, d.cfg.WatchInterval)
	h.info.NativeWallet = d.cfg.NativeWallet || strings.Contains(strings.ToLower(h.info.ClientVersion), "brave")
	d.injected = h
	return h, true
}

func (d *DialHost) BrowserIdentity(ctx context.Context) (bool, error) {
	return d.cfg.NativeBrowser, nil
}

func (d *DialHost) Pair(ctx context.Context, opts PairingOptions) (PairingClient, error) {
	if d.cfg.RelayURL == "" {
		return nil, errors.New("no pairing relay configured")
	}
	if opts.ProjectID == "" {
		return nil, errors.New("pairing project id is required")
	}

	client, err := rpc.DialWebsocket(ctx, d.cfg.RelayURL, opts.Metadata.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial pairing relay: %w", err)
	}
	h := NewRPCHandle(ctx, client, Info{}, d.cfg.WatchInterval)
	return &relayPairing{RPCHandle: h, opts: opts}, nil
}

// Close releases dialed handles.
func (d *DialHost) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.injected != nil {
		d.injected.Close()
		d.injected = nil
	}
}

// relayPairing talks EIP-1193 over a WebSocket relay. The relay shows the
// pairing QR code and answers eth_requestAccounts once the remote wallet
// approves.
type relayPairing struct {
	*RPCHandle
	opts PairingOptions
}

type pairingSession struct {
	ProjectID string           `json:"projectId"`
	Chains    []hexutil.Uint64 `json:"chains"`
	Name      string           `json:"name"`
	URL       string           `json:"url"`
}

func (p *relayPairing) Connect(ctx context.Context) error {
	chains := make([]hexutil.Uint64, len(p.opts.Chains))
	for i, c := range p.opts.Chains {
		chains[i] = hexutil.Uint64(c)
	}
	session := pairingSession{
		ProjectID: p.opts.ProjectID,
		Chains:    chains,
		Name:      p.opts.Metadata.Name,
		URL:       p.opts.Metadata.URL,
	}

	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts", session); err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("remote wallet approved no accounts")
	}
	return nil
}

func (p *relayPairing) Disconnect(ctx context.Context) error {
	defer p.Close()
	var ignored any
	return p.client.CallContext(ctx, &ignored, "wallet_revokePermissions", map[string]any{"eth_accounts": map[string]any{}})
}
