// Package models defines the value types shared across the novadrive player.
//
//   - [Track] : a playable item, bundled or remote
//   - [Credential] : a bearer token with its absolute expiry and the five minute safety buffer
//   - [Playlist] : a user playlist as persisted in the key-value store
//   - [RepeatMode] : none, all, or one
//   - [View] : the library or a playlist, keyed for queue reshuffling
package models
