// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides operator keys, account address helpers and ID
generation.

# Operator Keys

Mutating HTTP routes are guarded by an HMAC-SHA256 key derived from a scope
and the server salt:

	key := auth.GenerateAPIKey(auth.OperatorScope, salt)
	err := auth.ValidateAPIKey(auth.OperatorScope, key, salt)

The key is URL-safe base64 without padding. It is deterministic, so the
server prints it at startup and never stores it.

# Addresses

	addr, err := auth.ParseAddress("0x0134...")  // errors.Is(err, auth.ErrInvalidAddress)
	auth.SameAddress(a, b)                       // case-insensitive hex compare
	auth.ShortAddress(addr)                      // "0x0134...66a7"

# ID Generation

Random hex IDs for request correlation:

	id, err := auth.GenerateID(8)  // 16 hex characters

# IP Hashing

Client IPs are logged as the first 8 bytes of an HMAC-SHA256:

	hash := auth.HashIP(ipAddress, salt)
*/
package auth
