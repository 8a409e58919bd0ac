// Package auth manages the Google Drive connection.
//
// [TokenStore] persists the bearer credential with a five minute expiry buffer.
// [Session] runs the consent flow through a [Prompter], optionally restricts the account with an
// [IdentityVerifier], and exposes the connection [State]. [BrowserPrompter] is the interactive
// implementation: it opens the implicit grant URL and receives the token on a loopback relay.
package auth
