// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/danielhkuo/votechain/contract"
)

// Kind selects one of the supported connection mechanisms.
type Kind int

const (
	KindInjected     Kind = iota + 1 // browser extension handle
	KindNativeWallet                 // wallet built into the browser
	KindRemotePaired                 // QR / deep-link paired session
)

func (k Kind) String() string {
	switch k {
	case KindInjected:
		return "injected"
	case KindNativeWallet:
		return "native"
	case KindRemotePaired:
		return "remote"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the canonical names and the wallet product names the
// front end uses.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "injected", "metamask":
		return KindInjected, nil
	case "native", "brave":
		return KindNativeWallet, nil
	case "remote", "walletconnect":
		return KindRemotePaired, nil
	}
	return 0, fmt.Errorf("unknown wallet kind %q", s)
}

// EventType tags provider notifications.
type EventType int

const (
	EventAccountsChanged EventType = iota + 1
	EventChainChanged
	EventDisconnect
)

func (t EventType) String() string {
	switch t {
	case EventAccountsChanged:
		return "accountsChanged"
	case EventChainChanged:
		return "chainChanged"
	case EventDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// Event is a provider notification, republished unchanged.
type Event struct {
	Type     EventType
	Accounts []common.Address
	ChainID  uint64
}

// Info describes the wallet behind a handle.
type Info struct {
	ClientVersion string
	Extension     bool // handle belongs to the extension wallet
	NativeWallet  bool // browser-native wallet is enabled
}

// Handle is a raw wallet provider: JSON-RPC requests plus notifications.
type Handle interface {
	contract.Transport
	Info() Info
	Subscribe(ch chan<- Event) event.Subscription
}

// PairingClient is a long-lived remote pairing session.
type PairingClient interface {
	Handle
	// Connect runs the pairing handshake and returns once the remote
	// wallet approved the session.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// AppMetadata is shown to the user on the paired device.
type AppMetadata struct {
	Name        string
	Description string
	URL         string
}

type PairingOptions struct {
	ProjectID string
	Chains    []uint64
	Metadata  AppMetadata
}

// Host discovers wallet handles in the environment the service runs in.
type Host interface {
	// Injected returns the global extension handle when one is present.
	Injected(ctx context.Context) (Handle, bool)
	// BrowserIdentity reports whether the host is the wallet-native browser.
	BrowserIdentity(ctx context.Context) (bool, error)
	// Pair creates a new remote pairing client.
	Pair(ctx context.Context, opts PairingOptions) (PairingClient, error)
}
