// Package server provides the loopback HTTP infrastructure used to complete browser sign in.
//
// # Relay Mux
//
// [RelayMux] mounts a [Handler] under its method patterns and wraps it in [Middleware].
// Every response carries [NoStore] headers since the relay page handles bearer tokens.
//
// # Implicit Grant Relay
//
// [ImplicitGrantHandler] completes the OAuth2 implicit grant. The provider redirects the browser to
// /callback with the token in the URL fragment. The relay page posts the fragment to /token, where the
// state parameter is checked and the result is sent through a channel.
//
// It only processes one post to prevent replay.
//
// # Loopback
//
// [Listen] binds the redirect address and serves a mux until [Loopback.Shutdown].
// The auth package starts one per consent request.
package server
