// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package wallet normalizes the supported wallet connection mechanisms into a
single connection handle.

# Kinds

Three mechanisms are supported, selected by Kind:

	KindInjected      browser extension handle (needs the extension flag)
	KindNativeWallet  wallet built into the browser (needs the native browser
	                  and its wallet switched on)
	KindRemotePaired  QR / deep-link pairing with a remote wallet

Adapter.Connect dispatches on the kind and returns a *Conn, or a categorized
*errs.Error. Availability failures carry a resource hint (install page or
wallet settings) readable through errs.HintOf.

The remote pairing client is created lazily, cached for the adapter's
lifetime and reused on reconnect. Adapter.Teardown disconnects and forgets it.

# Events

Every handle publishes account, chain and disconnect notifications through a
go-ethereum event.Feed. Subscriptions are independent: unsubscribing one
consumer never affects another.

# Hosts

Host abstracts discovery of handles in the running environment. DialHost is
the production Host: injected and native handles are JSON-RPC endpoints, the
pairing client is a WebSocket relay. RPCHandle watches eth_accounts and
eth_chainId because plain JSON-RPC endpoints do not push wallet events.
*/
package wallet
