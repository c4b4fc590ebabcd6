// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package errs defines the error taxonomy shared by the wallet, session,
envelope and reconciler packages.

Every failure that reaches a caller is an *Error with a Kind:

	ProviderUnavailable  no matching wallet handle (Hint: install page)
	WalletDisabled       native wallet present but switched off (Hint: settings)
	PairingFailed        remote pairing handshake timed out or was rejected
	AlreadyConnecting    Connect called while connecting or connected
	NotConnected         no active session
	UnsupportedNetwork   session on a chain outside the supported set
	UserRejected         the user declined the signature request
	ContractReverted     the contract refused the call (Reason when readable)
	TransportError       RPC, indexer or network failure
	NotFound             an absent election or candidate
	InvalidInput         client-side pre-validation failed

Match with errors.Is against the package sentinels:

	if errors.Is(err, errs.ErrUnsupportedNetwork) {
		// ask the user to switch networks
	}
*/
package errs
