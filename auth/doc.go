// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identity resolution and token generation utilities.

# Identity Providers

Handlers resolve the caller through an IdentityProvider:

	id, err := provider.Resolve(r)
	if errors.Is(err, auth.ErrNoIdentity) {
		// 401
	}

TokenProvider issues anonymous identities. The token is the identity ID and
its HMAC-SHA256 signature, URL-safe base64 encoded without padding:

	tokens := auth.NewTokenProvider(salt)
	identity, token := tokens.Issue("Ana")

Clients send it in the X-Identity-Token header or the doudou_identity cookie.
Since it's deterministic, validation needs no database lookup.

HeaderProvider trusts a header set by an authenticating proxy (default
X-User-ID). Only use it behind a proxy that strips the header from client
requests.

Both read an optional X-Display-Name header, truncated to 50 characters.

# Session Codes

Session codes are short uppercase base36 strings for sharing by voice or QR:

	code, err := auth.GenerateSessionCode(6)
	ok := auth.IsSessionCode(auth.NormalizeSessionCode(input), 6)

# Tokens and names

Upload slot tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateToken()

Display names for participants who did not pick one:

	name := auth.GenerateDisplayName()  // e.g. "swift-otter-42"

Names are capped at MaxDisplayNameLength characters. ClampDisplayName cuts
on a character boundary.
*/
package auth
